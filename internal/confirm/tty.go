package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// TTY asks on the controlling terminal. It works even when stdin and stdout carry a
// protocol stream, since it talks to /dev/tty directly.
type TTY struct {
	mu   sync.Mutex
	open func() (io.ReadWriteCloser, error)
}

// NewTTY returns a provider bound to /dev/tty.
func NewTTY() *TTY {
	return &TTY{open: openTerminal}
}

// newTTYWith builds a provider on a custom terminal, for tests.
func newTTYWith(open func() (io.ReadWriteCloser, error)) *TTY {
	return &TTY{open: open}
}

func openTerminal() (io.ReadWriteCloser, error) {
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	if !term.IsTerminal(int(f.Fd())) {
		f.Close()
		return nil, fmt.Errorf("/dev/tty is not a terminal")
	}
	return f, nil
}

// TerminalAvailable reports whether a controlling terminal can be opened.
func TerminalAvailable() bool {
	f, err := openTerminal()
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// Elicit prints the request and asks for each field in turn.
func (t *TTY) Elicit(ctx context.Context, req Request) (*Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tty, err := t.open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer tty.Close()

	// Closing the terminal unblocks a pending read once the caller gives up.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			tty.Close()
		case <-stop:
		}
	}()

	fmt.Fprintf(tty, "\n%s\n\n", req.Message())
	reader := bufio.NewReader(tty)
	content := make(map[string]interface{}, len(req.Fields))
	for _, f := range req.Fields {
		fmt.Fprintf(tty, "%s? (yes/No): ", f.Title)
		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return &Response{Action: ActionCancel}, nil
		}
		yes := parseYes(line)
		content[f.Name] = yes
		if !yes {
			fmt.Fprintln(tty, "Operation declined.")
			return &Response{Action: ActionDecline, Content: content}, nil
		}
	}
	return &Response{Action: ActionAccept, Content: content}, nil
}

// parseYes accepts only an explicit "y" or "yes"; an empty line means no.
func parseYes(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
