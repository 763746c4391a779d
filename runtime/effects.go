package runtime

import (
	"time"

	"github.com/pithecene-io/plandesk/adapter"
	"github.com/pithecene-io/plandesk/service"
	"github.com/pithecene-io/plandesk/types"
)

// Effect is work the Orchestrator asks its driver to perform.
// Every effect is keyed by the query it serves.
type Effect interface {
	// Name names the effect in logs.
	Name() string
}

// Submit sends a message to the service.
type Submit struct {
	Request service.SubmitRequest
}

// Name implements Effect.
func (Submit) Name() string { return "submit" }

// Wait delays, then produces PollTicked for Key.
type Wait struct {
	Key   types.QueryKey
	Delay time.Duration
}

// Name implements Effect.
func (Wait) Name() string { return "wait" }

// CheckStatus fetches the status of Key.
type CheckStatus struct {
	Key     types.QueryKey
	Attempt int
}

// Name implements Effect.
func (CheckStatus) Name() string { return "check_status" }

// RefreshDialog fetches the session transcript while Key is in progress.
type RefreshDialog struct {
	Key types.QueryKey
}

// Name implements Effect.
func (RefreshDialog) Name() string { return "refresh_dialog" }

// Hydrate fetches the result bundle of Key.
type Hydrate struct {
	Key     types.QueryKey
	Request uint64
	Origin  Origin
}

// Name implements Effect.
func (Hydrate) Name() string { return "hydrate" }

// Notify publishes a completion event. It produces no event.
type Notify struct {
	Event *adapter.QueryCompletedEvent
}

// Name implements Effect.
func (Notify) Name() string { return "notify" }

// Export writes a hydrated bundle to the result store. It produces no event.
type Export struct {
	Bundle *types.ResultBundle
}

// Name implements Effect.
func (Export) Name() string { return "export" }
