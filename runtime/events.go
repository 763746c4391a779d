package runtime

import (
	"github.com/pithecene-io/plandesk/service"
	"github.com/pithecene-io/plandesk/types"
)

// Event is the result of an executed effect, fed back into the Orchestrator.
type Event interface {
	// Kind names the event in logs and the journal.
	Kind() string
	// QueryKey is the query the originating effect was launched for.
	// Submitted events carry the server-assigned key, or zero on failure.
	QueryKey() types.QueryKey
}

// Origin says why a hydration was launched.
type Origin int

// Origin constants.
const (
	// OriginPoll: the live query reached Done.
	OriginPoll Origin = iota
	// OriginSelect: the user selected a query from history.
	OriginSelect
)

func (o Origin) String() string {
	if o == OriginSelect {
		return "select"
	}
	return "poll"
}

// Submitted reports the result of a Submit effect.
type Submitted struct {
	Response *service.SubmitResponse
	Err      error
}

// Kind implements Event.
func (Submitted) Kind() string { return "submitted" }

// QueryKey implements Event.
func (e Submitted) QueryKey() types.QueryKey {
	if e.Response == nil {
		return types.QueryKey{}
	}
	return e.Response.Key()
}

// PollTicked reports that the inter-poll delay for Key has elapsed.
type PollTicked struct {
	Key types.QueryKey
}

// Kind implements Event.
func (PollTicked) Kind() string { return "poll_ticked" }

// QueryKey implements Event.
func (e PollTicked) QueryKey() types.QueryKey { return e.Key }

// StatusChecked reports the result of one status check.
type StatusChecked struct {
	Key     types.QueryKey
	Attempt int
	Status  types.QueryStatus
	Err     error
}

// Kind implements Event.
func (StatusChecked) Kind() string { return "status_checked" }

// QueryKey implements Event.
func (e StatusChecked) QueryKey() types.QueryKey { return e.Key }

// DialogRefreshed reports the result of a best-effort transcript refresh.
type DialogRefreshed struct {
	Key types.QueryKey
	Raw string
	Err error
}

// Kind implements Event.
func (DialogRefreshed) Kind() string { return "dialog_refreshed" }

// QueryKey implements Event.
func (e DialogRefreshed) QueryKey() types.QueryKey { return e.Key }

// Hydrated reports the result of a hydration.
type Hydrated struct {
	Key types.QueryKey
	// Request is the display request sequence; zero means the bundle is
	// only used to resolve the conversation and is never displayed.
	Request uint64
	Origin  Origin
	Bundle  *types.ResultBundle
	Err     error
}

// Kind implements Event.
func (Hydrated) Kind() string { return "hydrated" }

// QueryKey implements Event.
func (e Hydrated) QueryKey() types.QueryKey { return e.Key }
