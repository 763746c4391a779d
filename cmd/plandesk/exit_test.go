package main

import (
	"errors"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/plandesk/runtime"
)

func TestExitErrHandler_NilError(t *testing.T) {
	// Should not panic or exit on nil error
	exitErrHandler(nil, nil)
}

// The exit codes of ask must survive cli.Exit unchanged.
func TestExitErrHandler_PreservesExitCode(t *testing.T) {
	testCases := []struct {
		name string
		code int
	}{
		{"ok", runtime.ExitCodeOK},
		{"usage", runtime.ExitCodeUsage},
		{"query_failed", runtime.ExitCodeQueryFailed},
		{"unreachable", runtime.ExitCodeUnreachable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := cli.Exit("", tc.code)

			var exitCoder cli.ExitCoder
			if !errors.As(err, &exitCoder) {
				t.Fatalf("cli.Exit should return ExitCoder")
			}
			if exitCoder.ExitCode() != tc.code {
				t.Errorf("ExitCode() = %d, want %d", exitCoder.ExitCode(), tc.code)
			}
		})
	}
}

func TestExitErrHandler_WrappedExitCoder(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), cli.Exit("inner error", 42))

	var exitCoder cli.ExitCoder
	if !errors.As(wrapped, &exitCoder) {
		t.Fatal("wrapped error should still match cli.ExitCoder")
	}
	if exitCoder.ExitCode() != 42 {
		t.Errorf("exit code = %d, want 42", exitCoder.ExitCode())
	}
}

func TestExitErrHandler_MessageSuppression(t *testing.T) {
	err := cli.Exit("", 2)
	if msg := err.Error(); msg != "" && msg != "exit status 2" {
		t.Errorf("Expected empty or 'exit status 2', got %q", msg)
	}
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()
	want := []string{"chat", "ask", "show", "report", "parse", "journal", "devserver", "version"}
	for _, name := range want {
		if app.Command(name) == nil {
			t.Errorf("command %q not registered", name)
		}
	}
}
