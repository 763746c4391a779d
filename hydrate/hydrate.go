// Package hydrate assembles the result bundle of a completed query.
//
// The dialog transcript is mandatory: without it there is no bundle.
// Structured inputs and each chart are optional and fetched concurrently;
// a failed optional fetch leaves that artifact absent and never fails the
// hydration.
package hydrate

//go:generate mockgen -source=hydrate.go -destination=mock_fetcher_test.go -package=hydrate Fetcher

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pithecene-io/plandesk/conversation"
	"github.com/pithecene-io/plandesk/dialog"
	"github.com/pithecene-io/plandesk/log"
	"github.com/pithecene-io/plandesk/metrics"
	"github.com/pithecene-io/plandesk/types"
)

// Fetcher is the subset of the service API hydration needs.
type Fetcher interface {
	Dialog(ctx context.Context, sessionID string) (string, error)
	Inputs(ctx context.Context, key types.QueryKey) (map[string]any, error)
	Chart(ctx context.Context, key types.QueryKey, kind types.ChartKind) ([]byte, error)
}

// Artifact names used in logs and metrics.
const (
	ArtifactInputs = "inputs"
	artifactChart  = "chart:"
)

// ChartArtifact returns the artifact name of a chart kind.
func ChartArtifact(kind types.ChartKind) string {
	return artifactChart + string(kind)
}

// Hydrator fetches result bundles.
type Hydrator struct {
	fetcher   Fetcher
	logger    *log.Logger
	collector *metrics.Collector
}

// New creates a Hydrator. logger and collector may be nil.
func New(fetcher Fetcher, logger *log.Logger, collector *metrics.Collector) *Hydrator {
	if logger == nil {
		logger = log.Nop()
	}
	return &Hydrator{fetcher: fetcher, logger: logger, collector: collector}
}

// Hydrate fetches and assembles the bundle for key.
// It returns an error only when the transcript cannot be fetched.
func (h *Hydrator) Hydrate(ctx context.Context, key types.QueryKey) (*types.ResultBundle, error) {
	logger := h.logger.WithQuery(key)

	raw, err := h.fetcher.Dialog(ctx, key.SessionID)
	if err != nil {
		h.collector.IncHydrateFailure()
		return nil, fmt.Errorf("fetch dialog: %w", err)
	}

	bundle := &types.ResultBundle{
		Key:    key,
		Dialog: raw,
		Turns:  dialog.Parse(raw),
		Charts: make(map[types.ChartKind][]byte, len(types.ChartKinds)),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	miss := func(artifact string, err error) {
		logger.Debug("optional artifact unavailable", map[string]any{
			"artifact": artifact,
			"error":    err.Error(),
		})
		h.collector.IncArtifactMiss(artifact)
	}

	g.Go(func() error {
		inputs, err := h.fetcher.Inputs(ctx, key)
		if err != nil {
			miss(ArtifactInputs, err)
			return nil
		}
		mu.Lock()
		bundle.Inputs = inputs
		mu.Unlock()
		return nil
	})

	for _, kind := range types.ChartKinds {
		g.Go(func() error {
			data, err := h.fetcher.Chart(ctx, key, kind)
			if err != nil {
				miss(ChartArtifact(kind), err)
				return nil
			}
			mu.Lock()
			bundle.Charts[kind] = data
			mu.Unlock()
			return nil
		})
	}

	// Optional fetches never return errors.
	_ = g.Wait()

	h.collector.IncHydrateSuccess()
	logger.Debug("hydrated", map[string]any{
		"turns":  len(bundle.Turns),
		"inputs": bundle.HasInputs(),
		"charts": len(bundle.Charts),
	})
	return bundle, nil
}

// Resolve replaces the placeholder bound to queryID with the bundle's last
// agent turn. It reports whether a message changed. A bundle with no agent
// turn or a conversation with no message for queryID is a no-op.
func Resolve(conv *conversation.Conversation, queryID string, bundle *types.ResultBundle) bool {
	turn, ok := bundle.LastAgentTurn()
	if !ok {
		return false
	}
	return conv.ReplaceAgentText(queryID, turn.Text)
}
