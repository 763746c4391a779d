package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/plandesk/devserver"
	"github.com/pithecene-io/plandesk/log"
)

// DevServerCommand returns the devserver command, which serves an
// in-memory fake of the planning service.
func DevServerCommand() *cli.Command {
	return &cli.Command{
		Name:  "devserver",
		Usage: "Run a local fake of the planning service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: "127.0.0.1:8080",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Require this bearer token on every request",
				EnvVars: []string{"PLANDESK_TOKEN"},
			},
			&cli.IntFlag{
				Name:  "working-polls",
				Usage: "Status checks answered Working before a query completes",
				Value: devserver.DefaultWorkingPolls,
			},
			LogLevelFlag,
		},
		Action: devServerAction,
	}
}

func devServerAction(c *cli.Context) error {
	if c.Int("working-polls") < 1 {
		return cli.Exit("--working-polls must be at least 1", 1)
	}
	level, err := log.ParseLevel(c.String("log-level"))
	if err != nil {
		return usageError(err)
	}
	logger := log.New(c.App.ErrWriter, level)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signalContext()
	defer cancel()

	srv := devserver.New(devserver.Config{
		Token:        c.String("token"),
		WorkingPolls: c.Int("working-polls"),
		Logger:       logger,
	})
	addr := c.String("addr")
	_, _ = fmt.Fprintf(c.App.ErrWriter, "devserver listening on http://%s\n", addr)
	return srv.ListenAndServe(ctx, addr)
}
