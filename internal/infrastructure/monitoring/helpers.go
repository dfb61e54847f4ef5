package monitoring

import "time"

// Tool call outcomes
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Snapshot holds running totals for the JSON health endpoint
type Snapshot struct {
	ToolCalls     int64   `json:"toolCalls"`
	FailedCalls   int64   `json:"failedCalls"`
	Denials       int64   `json:"denials"`
	Confirmations int64   `json:"confirmations"`
	TotalDuration float64 `json:"-"`
	AvgDurationMs float64 `json:"avgDurationMs"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// Snapshot returns a copy of the running totals
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	s := m.snapshot
	m.mu.RUnlock()

	if s.ToolCalls > 0 {
		s.AvgDurationMs = s.TotalDuration / float64(s.ToolCalls) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
