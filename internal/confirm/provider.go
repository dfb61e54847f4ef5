package confirm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Action is the interaction outcome reported by a confirmation channel.
type Action string

const (
	ActionAccept  Action = "accept"
	ActionDecline Action = "decline"
	ActionCancel  Action = "cancel"
)

// Required confirmation fields. Both must come back true.
const (
	FieldConfirmRisk   = "confirmRisk"
	FieldConfirmBackup = "confirmBackup"
)

// ErrUnavailable is returned by providers that cannot reach anyone to ask.
var ErrUnavailable = errors.New("confirmation channel unavailable")

// Field is a boolean form field the responder must tick.
type Field struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DefaultFields is the two-field form used for destructive operations.
var DefaultFields = []Field{
	{
		Name:        FieldConfirmRisk,
		Title:       "I understand the risk",
		Description: "The operation is destructive and cannot be undone",
	},
	{
		Name:        FieldConfirmBackup,
		Title:       "I have a backup",
		Description: "Affected data is backed up or may be lost",
	},
}

// Request is one confirmation prompt.
type Request struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Paths       []string `json:"paths"`
	Fields      []Field  `json:"fields"`
}

// Message renders the prompt text shown to the responder.
func (r Request) Message() string {
	var b strings.Builder
	b.WriteString("⚠️  Confirmation required: ")
	b.WriteString(r.Description)
	if len(r.Paths) > 0 {
		b.WriteString("\n\nAffected paths:")
		for _, p := range r.Paths {
			fmt.Fprintf(&b, "\n  - %s", p)
		}
	}
	return b.String()
}

// Schema returns the JSON schema of the confirmation form.
func (r Request) Schema() map[string]interface{} {
	properties := make(map[string]interface{}, len(r.Fields))
	required := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		properties[f.Name] = map[string]interface{}{
			"type":        "boolean",
			"title":       f.Title,
			"description": f.Description,
		}
		required = append(required, f.Name)
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// Response is the answer returned by a provider.
type Response struct {
	Action  Action                 `json:"action"`
	Content map[string]interface{} `json:"content,omitempty"`
}

// Confirms reports whether resp accepts req: the action must be accept and every field
// of req must be the boolean true.
func (r Request) Confirms(resp *Response) bool {
	if resp == nil || resp.Action != ActionAccept {
		return false
	}
	for _, f := range r.Fields {
		v, ok := resp.Content[f.Name].(bool)
		if !ok || !v {
			return false
		}
	}
	return true
}

// Provider asks someone outside the process to confirm a request.
type Provider interface {
	Elicit(ctx context.Context, req Request) (*Response, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (*Response, error)

// Elicit calls f.
func (f ProviderFunc) Elicit(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// FailClosed never confirms anything.
type FailClosed struct{}

// Elicit always returns ErrUnavailable.
func (FailClosed) Elicit(context.Context, Request) (*Response, error) {
	return nil, ErrUnavailable
}
