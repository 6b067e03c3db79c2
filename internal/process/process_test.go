package process

import (
	"bufio"
	"context"
	"errors"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

func collect() (LineSink, func() []string) {
	var mu sync.Mutex
	var lines []string
	return func(line string) {
			mu.Lock()
			defer mu.Unlock()
			lines = append(lines, line)
		}, func() []string {
			mu.Lock()
			defer mu.Unlock()
			return append([]string(nil), lines...)
		}
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
}

func TestScanConsoleLines(t *testing.T) {
	input := "one\ntwo\r\nframe=1\rframe=2\rthree"
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Split(scanConsoleLines)

	var got []string
	for scanner.Scan() {
		got = append(got, scanner.Text())
	}
	want := []string{"one", "two", "frame=1", "frame=2", "three"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestRunStreamsStdoutAndStderr(t *testing.T) {
	skipWithoutShell(t)

	sink, lines := collect()
	err := Run(context.Background(), Command{
		Path: "/bin/sh",
		Args: []string{"-c", "echo out; echo err 1>&2; echo; printf 'last'"},
	}, sink)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := lines()
	if len(got) != 3 {
		t.Fatalf("got %d lines %q, want 3", len(got), got)
	}
	for _, want := range []string{"out", "err", "last"} {
		found := false
		for _, l := range got {
			if l == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing line %q in %q", want, got)
		}
	}
}

func TestRunWorkingDirectory(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	sink, lines := collect()
	if err := Run(context.Background(), Command{Path: "/bin/sh", Args: []string{"-c", "pwd"}, Dir: dir}, sink); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := lines()
	if len(got) != 1 || !strings.HasSuffix(got[0], strings.TrimPrefix(dir, "/private")) {
		t.Errorf("pwd = %q, want %q", got, dir)
	}
}

func TestRunExitError(t *testing.T) {
	skipWithoutShell(t)

	err := Run(context.Background(), Command{Path: "/bin/sh", Args: []string{"-c", "exit 3"}}, nil)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run() error = %v, want *ExitError", err)
	}
	if exitErr.Code != 3 || exitErr.Tool != "sh" {
		t.Errorf("ExitError = %+v, want sh/3", exitErr)
	}
}

func TestRunMissingBinary(t *testing.T) {
	err := Run(context.Background(), Command{Path: "/definitely/not/here"}, nil)
	if err == nil || !strings.Contains(err.Error(), "failed to start") {
		t.Errorf("Run() error = %v, want start failure", err)
	}
}

func TestRunCancel(t *testing.T) {
	skipWithoutShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	sink, _ := collect()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Command{Path: "/bin/sh", Args: []string{"-c", "echo started; exec sleep 30"}}, sink)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2*killDelay + 5*time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestCommandString(t *testing.T) {
	c := Command{Path: "ffmpeg", Args: []string{"-i", "my file.mp4", "-af", "atempo=1.5", ""}}
	want := `ffmpeg -i "my file.mp4" -af atempo=1.5 ""`
	if c.String() != want {
		t.Errorf("String() = %q, want %q", c.String(), want)
	}
}
