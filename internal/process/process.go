package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// receives one line of console output at a time
type LineSink func(line string)

// external tool invocation
type Command struct {
	Path string
	Args []string
	Dir  string // working directory; empty means the current one
}

// ExitError reports a tool that ran but exited non-zero.
type ExitError struct {
	Tool string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
}

// grace period between the interrupt and the kill on cancellation
const killDelay = 5 * time.Second

// String renders the command the way a user would type it in a shell.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Path))
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t\"'\\$`") {
		return s
	}
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`").Replace(s) + `"`
}

// Run starts the command and delivers its merged stdout and stderr to sink
// line by line until it exits. Cancelling ctx interrupts the process and
// kills it if it has not stopped after a grace period.
func Run(ctx context.Context, c Command, sink LineSink) error {
	if sink == nil {
		sink = func(string) {}
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if runtime.GOOS != "windows" {
		cmd.Cancel = func() error {
			return cmd.Process.Signal(os.Interrupt)
		}
	}
	cmd.WaitDelay = killDelay

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		scanner.Split(scanConsoleLines)
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), " \t")
			if line != "" {
				sink(line)
			}
		}
		// drain so the writer side never blocks on an overlong line
		_, _ = io.Copy(io.Discard, pr)
	}()

	tool := filepath.Base(c.Path)
	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		wg.Wait()
		return fmt.Errorf("failed to start %s: %w", tool, err)
	}

	err := cmd.Wait()
	_ = pw.Close()
	wg.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s cancelled: %w", tool, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Tool: tool, Code: exitErr.ExitCode()}
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", tool, err)
	}
	return nil
}

// like bufio.ScanLines but also splits on bare carriage returns, which
// ffmpeg and whisper-cli use for progress updates
func scanConsoleLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance = i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		} else if data[i] == '\r' && i+1 == len(data) && !atEOF {
			// might be the first half of \r\n
			return 0, nil, nil
		}
		return advance, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
