package runtime

import (
	"context"
	"fmt"

	"github.com/pithecene-io/plandesk/adapter"
	"github.com/pithecene-io/plandesk/log"
	"github.com/pithecene-io/plandesk/metrics"
	"github.com/pithecene-io/plandesk/service"
	"github.com/pithecene-io/plandesk/types"
)

// EffectRunner executes one effect and returns the resulting event.
// A nil event means the effect produces no feedback.
type EffectRunner interface {
	Run(ctx context.Context, eff Effect) Event
}

// BundleHydrator fetches result bundles.
type BundleHydrator interface {
	Hydrate(ctx context.Context, key types.QueryKey) (*types.ResultBundle, error)
}

// Exporter writes hydrated bundles to durable storage.
type Exporter interface {
	Export(ctx context.Context, bundle *types.ResultBundle) error
}

// ExecutorConfig wires an Executor.
type ExecutorConfig struct {
	// Service is the remote API (required).
	Service service.Service
	// Hydrator fetches bundles (required).
	Hydrator BundleHydrator
	// Clock drives Wait effects (default SystemClock).
	Clock Clock
	// Exporter handles Export effects; nil drops them.
	Exporter Exporter
	// Notifier handles Notify effects; nil drops them.
	Notifier adapter.Adapter
	// Logger is the structured logger (default discards).
	Logger *log.Logger
	// Collector records export and notify metrics.
	Collector *metrics.Collector
}

// Executor performs effects against the service, clock and outputs.
// Run is safe for concurrent use.
type Executor struct {
	svc       service.Service
	hydrator  BundleHydrator
	clock     Clock
	exporter  Exporter
	notifier  adapter.Adapter
	logger    *log.Logger
	collector *metrics.Collector
}

// NewExecutor creates an Executor.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("executor requires a service")
	}
	if cfg.Hydrator == nil {
		return nil, fmt.Errorf("executor requires a hydrator")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	return &Executor{
		svc:       cfg.Service,
		hydrator:  cfg.Hydrator,
		clock:     cfg.Clock,
		exporter:  cfg.Exporter,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
		collector: cfg.Collector,
	}, nil
}

// Run executes eff. It blocks for the duration of the effect.
func (x *Executor) Run(ctx context.Context, eff Effect) Event {
	switch e := eff.(type) {
	case Submit:
		resp, err := x.svc.Submit(ctx, e.Request)
		return Submitted{Response: resp, Err: err}

	case Wait:
		select {
		case <-ctx.Done():
			return nil
		case <-x.clock.After(e.Delay):
			return PollTicked{Key: e.Key}
		}

	case CheckStatus:
		status, err := x.svc.Status(ctx, e.Key)
		return StatusChecked{Key: e.Key, Attempt: e.Attempt, Status: status, Err: err}

	case RefreshDialog:
		raw, err := x.svc.Dialog(ctx, e.Key.SessionID)
		return DialogRefreshed{Key: e.Key, Raw: raw, Err: err}

	case Hydrate:
		bundle, err := x.hydrator.Hydrate(ctx, e.Key)
		return Hydrated{Key: e.Key, Request: e.Request, Origin: e.Origin, Bundle: bundle, Err: err}

	case Notify:
		x.notify(ctx, e)
		return nil

	case Export:
		x.export(ctx, e)
		return nil

	default:
		x.logger.Warn("unknown effect", map[string]any{"effect": fmt.Sprintf("%T", eff)})
		return nil
	}
}

func (x *Executor) notify(ctx context.Context, e Notify) {
	if x.notifier == nil || e.Event == nil {
		return
	}
	logger := x.logger.WithQuery(types.QueryKey{SessionID: e.Event.SessionID, QueryID: e.Event.QueryID})
	if err := x.notifier.Publish(ctx, e.Event); err != nil {
		x.collector.IncNotifyFailure()
		logger.Warn("completion notification failed", map[string]any{"error": err.Error()})
		return
	}
	x.collector.IncNotifySuccess()
	logger.Debug("completion notification published", map[string]any{"outcome": e.Event.Outcome})
}

func (x *Executor) export(ctx context.Context, e Export) {
	if x.exporter == nil || e.Bundle == nil {
		return
	}
	logger := x.logger.WithQuery(e.Bundle.Key)
	if err := x.exporter.Export(ctx, e.Bundle); err != nil {
		x.collector.IncExportFailure()
		logger.Warn("result export failed", map[string]any{"error": err.Error()})
		return
	}
	x.collector.IncExportSuccess()
	logger.Debug("result exported", nil)
}

var _ EffectRunner = (*Executor)(nil)
