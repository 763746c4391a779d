package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/plandesk/cli/config"
	"github.com/pithecene-io/plandesk/cli/tui"
	"github.com/pithecene-io/plandesk/conversation"
	"github.com/pithecene-io/plandesk/iox"
)

// ChatCommand returns the chat command, the interactive TUI.
func ChatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Open the interactive chat",
		Flags: append(QueryFlags(),
			&cli.StringFlag{
				Name:  "charts-dir",
				Usage: "Directory for saved charts (chat.charts_dir)",
			},
			&cli.StringFlag{
				Name:  "reports-dir",
				Usage: "Directory for saved reports (chat.reports_dir)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to this file (log.path)",
			},
		),
		Action: chatAction,
	}
}

func chatAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return usageError(err)
	}
	if c.IsSet("charts-dir") {
		cfg.Chat.ChartsDir = c.String("charts-dir")
	}
	if c.IsSet("reports-dir") {
		cfg.Chat.ReportsDir = c.String("reports-dir")
	}
	if c.IsSet("log-file") {
		cfg.Log.Path = c.String("log-file")
	}

	// The TUI owns the terminal; logs go to a file or nowhere.
	logOut := io.Discard
	if cfg.Log.Path != "" {
		f, err := os.OpenFile(cfg.Log.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return usageError(fmt.Errorf("open log file: %w", err))
		}
		defer iox.DiscardClose(f)
		logOut = f
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, cfg, logOut)
	if err != nil {
		return usageError(err)
	}
	defer s.close()

	orch, err := s.orchestrator(greeting(cfg))
	if err != nil {
		return usageError(err)
	}
	exec, err := s.executor()
	if err != nil {
		return usageError(err)
	}

	chatCfg := tui.ChatConfig{
		Orchestrator: orch,
		Runner:       exec,
		Reports:      s.client,
		Collector:    s.collector,
		ChartsDir:    cfg.Chat.ChartsDir,
		ReportsDir:   cfg.Chat.ReportsDir,
		Context:      ctx,
		Logger:       s.logger,
	}
	if s.exporter != nil {
		chatCfg.ReportStore = s.exporter
	}
	return tui.RunChat(chatCfg)
}

// greeting returns the configured greeting. An explicit empty greeting
// starts the conversation blank.
func greeting(cfg *config.Config) string {
	if cfg.Chat.Greeting != nil {
		return *cfg.Chat.Greeting
	}
	return conversation.WelcomeText
}
