/*
Package resilience provides a circuit breaker for calls to external processes.

# Overview

The media tools shell out to a metadata engine. When that engine is missing,
hanging or crashing, the breaker opens and later calls fail fast with
ErrCircuitOpen instead of spawning another process.

# Usage

	breaker := resilience.New("exiftool", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || fserrors.IsKind(err, fserrors.KindValidation)
		},
	})

	err := breaker.Do(ctx, func(ctx context.Context) error {
		return cmd.Run()
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open

Cancellation of the caller's context is not counted as a failure.
*/
package resilience
