package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/plandesk/iox"
)

// ReportCommand returns the report command.
// Report downloads the detailed flows report of a query as HTML.
func ReportCommand() *cli.Command {
	flags := append(ServiceFlags(), keyFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the report to this file instead of stdout",
		},
		ExportPathFlag,
		ExportBackendFlag,
	)
	return &cli.Command{
		Name:   "report",
		Usage:  "Download the detailed report of a query",
		Flags:  flags,
		Action: reportAction,
	}
}

func reportAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return usageError(err)
	}
	key := queryKey(c)

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, cfg, c.App.ErrWriter)
	if err != nil {
		return usageError(err)
	}
	defer s.close()

	data, err := s.client.DetailReport(ctx, key)
	if err != nil {
		return cli.Exit(fmt.Sprintf("fetch report of %s: %v", key, err), exitCodeFor(err))
	}

	if s.exporter != nil {
		if err := s.exporter.PutReport(ctx, key, data); err != nil {
			s.logger.Warn("report export failed", map[string]any{
				"session_id": key.SessionID,
				"query_id":   key.QueryID,
				"error":      err.Error(),
			})
		}
	}

	if path := c.String("output"); path != "" {
		if err := iox.WriteFileAtomic(path, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		_, _ = fmt.Fprintf(c.App.ErrWriter, "report written to %s\n", path)
		return nil
	}
	_, err = c.App.Writer.Write(data)
	return err
}
