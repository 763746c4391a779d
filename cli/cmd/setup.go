package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/plandesk/adapter"
	"github.com/pithecene-io/plandesk/adapter/redis"
	"github.com/pithecene-io/plandesk/adapter/webhook"
	"github.com/pithecene-io/plandesk/cli/config"
	"github.com/pithecene-io/plandesk/hydrate"
	"github.com/pithecene-io/plandesk/journal"
	"github.com/pithecene-io/plandesk/lode"
	"github.com/pithecene-io/plandesk/log"
	"github.com/pithecene-io/plandesk/metrics"
	"github.com/pithecene-io/plandesk/runtime"
	"github.com/pithecene-io/plandesk/service"
)

// loadConfig resolves the config file and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Resolve(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("url") {
		cfg.Service.URL = c.String("url")
	}
	if c.IsSet("token") {
		cfg.Service.Token = c.String("token")
	}
	if c.IsSet("interval") {
		cfg.Poll.Interval = config.Duration{Duration: c.Duration("interval")}
	}
	if c.IsSet("max-attempts") {
		cfg.Poll.MaxAttempts = c.Int("max-attempts")
	}
	if c.IsSet("journal") {
		cfg.Journal.Path = c.String("journal")
	}
	if c.IsSet("export-path") {
		cfg.Export.Enabled = true
		cfg.Export.Path = c.String("export-path")
	}
	if c.IsSet("export-backend") {
		cfg.Export.Backend = c.String("export-backend")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// usageError wraps a configuration or argument problem for exit code 1.
func usageError(err error) error {
	return cli.Exit(err.Error(), runtime.ExitCodeUsage)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// session holds everything one command invocation talks to.
type session struct {
	cfg       *config.Config
	logger    *log.Logger
	collector *metrics.Collector
	client    *service.Client
	exporter  *lode.Exporter
	notifier  adapter.Adapter
	journal   *journal.Writer
	closers   []func() error
}

// openSession builds the service client and every configured output.
// Logs go to logOut.
func openSession(ctx context.Context, cfg *config.Config, logOut io.Writer) (*session, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := log.New(logOut, level)

	if cfg.Service.URL == "" {
		return nil, errors.New("service URL is required (--url or service.url)")
	}
	client, err := service.NewClient(service.Config{
		BaseURL: cfg.Service.URL,
		Token:   cfg.Service.Token,
		Headers: cfg.Service.Headers,
		Timeout: cfg.Service.Timeout.Duration,
	})
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger, client: client}
	s.closers = append(s.closers, client.Close, logger.Sync)

	if cfg.Export.Enabled {
		s.exporter, err = lode.Open(ctx, lode.Config{Dataset: cfg.Export.Dataset}, exportTarget(cfg))
		if err != nil {
			s.close()
			return nil, fmt.Errorf("export: %w", err)
		}
		s.closers = append(s.closers, s.exporter.Close)
	}

	s.notifier, err = buildAdapter(cfg.Adapter)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("adapter: %w", err)
	}
	if s.notifier != nil {
		s.closers = append(s.closers, s.notifier.Close)
	}

	if cfg.Journal.Path != "" {
		s.journal, err = journal.Create(cfg.Journal.Path)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, s.journal.Close)
	}

	storage := ""
	if s.exporter != nil {
		storage = cfg.Export.Backend
		if storage == "" {
			storage = lode.BackendFS
		}
	}
	s.collector = metrics.NewCollector(cfg.Service.URL, storage, cfg.Adapter.Type)
	return s, nil
}

func exportTarget(cfg *config.Config) lode.Target {
	return lode.Target{
		Backend:      cfg.Export.Backend,
		Path:         cfg.Export.Path,
		Region:       cfg.Export.Region,
		Endpoint:     cfg.Export.Endpoint,
		UsePathStyle: cfg.Export.S3PathStyle,
	}
}

// buildAdapter creates the configured notification adapter, or nil.
func buildAdapter(cfg config.AdapterConfig) (adapter.Adapter, error) {
	retries := webhook.DefaultRetries
	if cfg.Retries != nil {
		retries = *cfg.Retries
	}

	switch cfg.Type {
	case "":
		return nil, nil
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:     cfg.URL,
			Channel: cfg.Channel,
			Timeout: cfg.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type: %s", cfg.Type)
	}
}

// orchestrator creates an Orchestrator wired to the session outputs.
func (s *session) orchestrator(greeting string) (*runtime.Orchestrator, error) {
	cfg := runtime.Config{
		Poll:      s.cfg.PollSchedule(),
		Greeting:  greeting,
		Export:    s.exporter != nil,
		Notify:    s.notifier != nil,
		Logger:    s.logger,
		Collector: s.collector,
	}
	if s.journal != nil {
		cfg.Recorder = s.journal
	}
	return runtime.New(cfg)
}

// executor creates the effect runner for the session.
func (s *session) executor() (*runtime.Executor, error) {
	cfg := runtime.ExecutorConfig{
		Service:   s.client,
		Hydrator:  s.hydrator(),
		Notifier:  s.notifier,
		Logger:    s.logger,
		Collector: s.collector,
	}
	if s.exporter != nil {
		cfg.Exporter = s.exporter
	}
	return runtime.NewExecutor(cfg)
}

func (s *session) hydrator() *hydrate.Hydrator {
	return hydrate.New(s.client, s.logger, s.collector)
}

// close releases resources in reverse order of acquisition.
func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
	s.closers = nil
}

// exitCodeFor maps a service error to a process exit code.
func exitCodeFor(err error) int {
	if service.IsUnreachable(err) {
		return runtime.ExitCodeUnreachable
	}
	return runtime.ExitCodeQueryFailed
}
