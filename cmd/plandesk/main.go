// Package main provides the plandesk CLI entrypoint.
//
// Usage:
//
//	plandesk <command> [options]
//
// Exit codes:
//   - 0: query done and results loaded
//   - 1: invalid arguments or configuration
//   - 2: query failed, timed out or exhausted its status checks
//   - 3: service unreachable
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/plandesk/cli/cmd"
	"github.com/pithecene-io/plandesk/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	// PLANDESK_* variables may come from a local .env file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: load .env: %v\n", err)
		os.Exit(1)
	}

	app := newApp()
	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "plandesk",
		Usage:          "Chat client for the retirement planning service",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.ChatCommand(),
			cmd.AskCommand(),
			cmd.ShowCommand(),
			cmd.ReportCommand(),
			cmd.ParseCommand(),
			cmd.JournalCommand(),
			cmd.DevServerCommand(),
			cmd.VersionCommand(commit),
		},
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N", so skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
