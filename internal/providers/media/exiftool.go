package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsguard/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
)

const defaultExifToolTimeout = 30 * time.Second

// ExifTool is an Engine backed by the exiftool command. Every invocation passes
// through a circuit breaker so a missing or wedged binary fails fast.
type ExifTool struct {
	path    string
	timeout time.Duration
	breaker *resilience.Breaker
	logger  *zap.Logger
}

// ExifToolOption configures an ExifTool engine
type ExifToolOption func(*ExifTool)

// WithExifToolTimeout bounds a single exiftool invocation.
func WithExifToolTimeout(d time.Duration) ExifToolOption {
	return func(e *ExifTool) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *resilience.Breaker) ExifToolOption {
	return func(e *ExifTool) {
		if b != nil {
			e.breaker = b
		}
	}
}

// WithEngineLogger sets the logger used for failed invocations.
func WithEngineLogger(logger *zap.Logger) ExifToolOption {
	return func(e *ExifTool) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExifTool creates the engine. An empty path resolves "exiftool" from PATH.
func NewExifTool(path string, opts ...ExifToolOption) *ExifTool {
	if path == "" {
		path = "exiftool"
	}
	e := &ExifTool{
		path:    path,
		timeout: defaultExifToolTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.breaker == nil {
		e.breaker = NewBreaker(e.logger, nil)
	}
	return e
}

// NewBreaker returns the breaker settings used for the metadata engine. Errors the
// engine attributes to the input file do not count as failures.
func NewBreaker(logger *zap.Logger, onChange func(from, to resilience.State)) *resilience.Breaker {
	return resilience.New("exiftool", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || fserrors.IsKind(err, fserrors.KindInvalidOperation)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if onChange != nil {
				onChange(from, to)
			}
		},
	})
}

// Available reports whether the exiftool binary can be found.
func (e *ExifTool) Available() bool {
	_, err := exec.LookPath(e.path)
	return err == nil
}

// Breaker exposes the engine's circuit breaker.
func (e *ExifTool) Breaker() *resilience.Breaker {
	return e.breaker
}

// Read returns every tag exiftool reports for path.
func (e *ExifTool) Read(ctx context.Context, path string) (Tags, error) {
	out, err := e.run(ctx, "-json", path)
	if err != nil && len(out) == 0 {
		return nil, err
	}

	var records []map[string]interface{}
	if uerr := sonic.Unmarshal(out, &records); uerr != nil || len(records) == 0 {
		if err != nil {
			return nil, err
		}
		return nil, fserrors.New(fserrors.KindOperationFailed, "unreadable exiftool output for "+path).WithPath(path)
	}

	tags := Tags(records[0])
	if msg, ok := tags["Error"].(string); ok {
		return nil, fserrors.New(fserrors.KindInvalidOperation, msg+": "+path).WithPath(path)
	}
	delete(tags, "SourceFile")
	return tags, nil
}

// Write sets tags in place.
func (e *ExifTool) Write(ctx context.Context, path string, tags map[string]string) error {
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)

	args := []string{"-overwrite_original"}
	for _, name := range names {
		args = append(args, "-"+name+"="+tags[name])
	}
	_, err := e.run(ctx, append(args, path)...)
	return err
}

// Delete clears tags in place.
func (e *ExifTool) Delete(ctx context.Context, path string, tags []string) error {
	args := []string{"-overwrite_original"}
	for _, name := range tags {
		args = append(args, "-"+name+"=")
	}
	_, err := e.run(ctx, append(args, path)...)
	return err
}

// Binary extracts an embedded binary tag.
func (e *ExifTool) Binary(ctx context.Context, path, tag string) ([]byte, error) {
	out, err := e.run(ctx, "-b", "-"+tag, path)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// run executes exiftool and returns stdout. A non-zero exit returns both the output
// and an error since exiftool reports per-file problems that way.
func (e *ExifTool) run(ctx context.Context, args ...string) ([]byte, error) {
	var out []byte
	err := e.breaker.Do(ctx, func(ctx context.Context) error {
		runCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(runCtx, e.path, args...)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		cmd.WaitDelay = time.Second

		runErr := cmd.Run()
		out = stdout.Bytes()
		if runErr == nil {
			return nil
		}

		switch {
		case errors.Is(runErr, exec.ErrNotFound), errors.Is(runErr, fs.ErrNotExist):
			return fserrors.Wrap(fserrors.KindOperationFailed, runErr, "exiftool not found: "+e.path)
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			return fserrors.Wrap(fserrors.KindOperationFailed, runErr,
				fmt.Sprintf("exiftool timed out after %s", e.timeout))
		case ctx.Err() != nil:
			return ctx.Err()
		}

		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = exitErr.Error()
			}
			// Exit status 1 means exiftool ran and rejected the input.
			if exitErr.ExitCode() == 1 {
				return fserrors.Wrap(fserrors.KindInvalidOperation, runErr, "exiftool: "+msg)
			}
			return fserrors.Wrap(fserrors.KindOperationFailed, runErr, "exiftool failed: "+msg)
		}
		return fserrors.Wrap(fserrors.KindOperationFailed, runErr, "exiftool failed")
	})

	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return nil, fserrors.Wrap(fserrors.KindOperationFailed, err, "metadata engine unavailable")
	}
	if err != nil {
		e.logger.Debug("exiftool invocation failed", zap.Strings("args", args), zap.Error(err))
	}
	return out, err
}
