// Package cmd provides CLI commands for the plandesk binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared output flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}
)

// Connection and behavior flags. Each overrides the matching plandesk.yaml
// value when set.
var (
	// ConfigFlag names the YAML config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file (default: ./plandesk.yaml when present)",
		EnvVars: []string{"PLANDESK_CONFIG"},
	}

	// URLFlag is the service base URL.
	URLFlag = &cli.StringFlag{
		Name:    "url",
		Usage:   "Service base URL (service.url)",
		EnvVars: []string{"PLANDESK_URL"},
	}

	// TokenFlag is the service bearer token.
	TokenFlag = &cli.StringFlag{
		Name:    "token",
		Usage:   "Service bearer token (service.token)",
		EnvVars: []string{"PLANDESK_TOKEN"},
	}

	// IntervalFlag is the delay between status checks.
	IntervalFlag = &cli.DurationFlag{
		Name:  "interval",
		Usage: "Delay between status checks (poll.interval)",
	}

	// MaxAttemptsFlag caps status checks per query.
	MaxAttemptsFlag = &cli.IntFlag{
		Name:  "max-attempts",
		Usage: "Maximum status checks per query (poll.max_attempts)",
	}

	// JournalFlag enables the session journal.
	JournalFlag = &cli.StringFlag{
		Name:  "journal",
		Usage: "Append a session journal to this file (journal.path)",
	}

	// ExportPathFlag enables result export.
	ExportPathFlag = &cli.StringFlag{
		Name:  "export-path",
		Usage: "Export results to this location (fs: directory, s3: bucket/prefix)",
	}

	// ExportBackendFlag selects the export backend.
	ExportBackendFlag = &cli.StringFlag{
		Name:  "export-backend",
		Usage: "Export backend: fs or s3 (export.backend)",
	}

	// LogLevelFlag sets the minimum log level.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error (log.level)",
	}
)

// OutputFlags returns the shared flags for commands that render data.
func OutputFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
	}
}

// ServiceFlags returns the flags needed to reach the service.
func ServiceFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		URLFlag,
		TokenFlag,
		LogLevelFlag,
	}
}

// QueryFlags returns the flags of commands that submit and poll.
func QueryFlags() []cli.Flag {
	return append(ServiceFlags(),
		IntervalFlag,
		MaxAttemptsFlag,
		JournalFlag,
		ExportPathFlag,
		ExportBackendFlag,
	)
}
