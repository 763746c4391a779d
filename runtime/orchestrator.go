// Package runtime drives the query lifecycle: submission, status polling,
// result hydration and historical selection.
//
// The Orchestrator is a single-threaded state machine. Its operations and
// Handle return Effects; a driver (Loop for headless use, the TUI for
// interactive use) executes them and feeds the resulting Events back through
// Handle. Every event carries the query key it was launched for, and the
// Orchestrator discards events whose key no longer matches the live or
// selected query.
package runtime

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pithecene-io/plandesk/adapter"
	"github.com/pithecene-io/plandesk/conversation"
	"github.com/pithecene-io/plandesk/dialog"
	"github.com/pithecene-io/plandesk/hydrate"
	"github.com/pithecene-io/plandesk/journal"
	"github.com/pithecene-io/plandesk/log"
	"github.com/pithecene-io/plandesk/metrics"
	"github.com/pithecene-io/plandesk/poll"
	"github.com/pithecene-io/plandesk/service"
	"github.com/pithecene-io/plandesk/types"
)

// ErrEmptyQuery is returned by Submit for blank text.
var ErrEmptyQuery = errors.New("query text is empty")

// ErrSubmitInFlight is returned by Submit while an earlier submission has
// not been acknowledged.
var ErrSubmitInFlight = errors.New("a submission is already in flight")

// ErrNoQueryID is returned by SelectHistorical for an empty id.
var ErrNoQueryID = errors.New("query id is empty")

// Recorder receives one journal entry per handled event.
type Recorder interface {
	Record(entry journal.Entry) error
}

// Config configures an Orchestrator.
type Config struct {
	// Poll is the status polling schedule.
	Poll poll.Config
	// Greeting seeds the conversation; empty starts it blank.
	Greeting string
	// Export requests an Export effect for each bundle hydrated after a
	// live query completes.
	Export bool
	// Notify requests a Notify effect at the end of every poll cycle.
	Notify bool
	// Clock supplies timestamps (default SystemClock).
	Clock Clock
	// Logger is the structured logger (default discards).
	Logger *log.Logger
	// Collector records metrics; nil disables metrics.
	Collector *metrics.Collector
	// Recorder journals handled events; nil disables journaling.
	Recorder Recorder
}

// Snapshot is a read-only view of orchestrator state for presentation.
type Snapshot struct {
	Messages []types.Message
	Session  types.Session
	// Status is the last recognised status of the live query.
	Status      types.QueryStatus
	Phase       poll.Phase
	Polling     bool
	Attempt     int
	MaxAttempts int
	Submitting  bool
	// Bundle is the displayed result of the selected query, nil while loading.
	Bundle *types.ResultBundle
	// LiveTurns is the latest transcript refreshed while polling.
	LiveTurns []types.Turn
	// Outcome of the most recent finished poll cycle, empty while polling.
	Outcome Outcome
	// History lists selectable query ids in submission order.
	History []string
}

// Orchestrator owns the session, conversation and live poll machine.
// It is not safe for concurrent use.
type Orchestrator struct {
	cfg       Config
	clock     Clock
	logger    *log.Logger
	collector *metrics.Collector
	recorder  Recorder

	conv    *conversation.Conversation
	session types.Session

	// submission in flight
	submitting     bool
	placeholderIdx int

	// live poll cycle
	machine    *poll.Machine
	liveStatus types.QueryStatus
	cycleStart time.Time
	outcome    Outcome

	// newlySubmitted is the query eligible for the auto-scroll signal.
	newlySubmitted string
	scroll         bool

	// display hydration sequencing
	requestSeq    uint64
	latestRequest uint64
	displayed     *types.ResultBundle
	liveTurns     []types.Turn
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.Poll.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	return &Orchestrator{
		cfg:            cfg,
		clock:          cfg.Clock,
		logger:         cfg.Logger,
		collector:      cfg.Collector,
		recorder:       cfg.Recorder,
		conv:           conversation.New(cfg.Greeting),
		placeholderIdx: -1,
	}, nil
}

// Submit appends the user message and a placeholder, and requests the
// submission.
func (o *Orchestrator) Submit(text string) ([]Effect, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyQuery
	}
	if o.submitting {
		return nil, ErrSubmitInFlight
	}

	o.conv.AppendUser(text)
	o.placeholderIdx = o.conv.AppendPlaceholder()
	o.submitting = true

	o.logger.WithSession(o.session.SessionID).Debug("submitting", map[string]any{
		"length": len(text),
	})

	return []Effect{Submit{Request: service.SubmitRequest{
		Message:   text,
		SessionID: o.session.SessionID,
	}}}, nil
}

// SelectHistorical displays the results of an earlier query.
// The live poll cycle is unaffected. Without a session only the selection
// changes.
func (o *Orchestrator) SelectHistorical(queryID string) ([]Effect, error) {
	if queryID == "" {
		return nil, ErrNoQueryID
	}

	o.session.SelectedQueryID = queryID
	o.displayed = nil
	o.newlySubmitted = ""

	if o.session.SessionID == "" {
		return nil, nil
	}

	key := o.session.SelectedKey()
	o.logger.WithQuery(key).Debug("selecting historical query", nil)
	return []Effect{Hydrate{Key: key, Request: o.nextRequest(), Origin: OriginSelect}}, nil
}

// SelectAdjacent selects the query before (delta < 0) or after (delta > 0)
// the currently selected one in history.
func (o *Orchestrator) SelectAdjacent(delta int) ([]Effect, error) {
	history := o.conv.QueryIDs()
	if len(history) == 0 || delta == 0 {
		return nil, nil
	}

	idx := len(history) - 1
	for i, id := range history {
		if id == o.session.SelectedQueryID {
			idx = i
			break
		}
	}
	idx += delta
	if idx < 0 || idx >= len(history) {
		return nil, nil
	}
	return o.SelectHistorical(history[idx])
}

// Handle applies an event and returns follow-up effects.
func (o *Orchestrator) Handle(ev Event) []Effect {
	switch e := ev.(type) {
	case Submitted:
		return o.handleSubmitted(e)
	case PollTicked:
		return o.handlePollTicked(e)
	case StatusChecked:
		return o.handleStatusChecked(e)
	case DialogRefreshed:
		return o.handleDialogRefreshed(e)
	case Hydrated:
		return o.handleHydrated(e)
	default:
		o.logger.Warn("unknown event", map[string]any{"event": fmt.Sprintf("%T", ev)})
		return nil
	}
}

// TakeScrollSignal reports and clears the one-shot auto-scroll signal.
func (o *Orchestrator) TakeScrollSignal() bool {
	s := o.scroll
	o.scroll = false
	return s
}

// Idle reports whether no submission or poll cycle is in progress.
func (o *Orchestrator) Idle() bool {
	return !o.submitting && (o.machine == nil || o.machine.Done())
}

// Session returns the session identity and selection.
func (o *Orchestrator) Session() types.Session {
	return o.session
}

// Snapshot returns the presentation view.
func (o *Orchestrator) Snapshot() Snapshot {
	snap := Snapshot{
		Messages:   o.conv.Messages(),
		Session:    o.session,
		Status:     o.liveStatus,
		Submitting: o.submitting,
		Bundle:     o.displayed,
		LiveTurns:  o.liveTurns,
		Outcome:    o.outcome,
		History:    o.conv.QueryIDs(),
	}
	if o.machine != nil {
		snap.Phase = o.machine.Phase()
		snap.Polling = !o.machine.Done()
		snap.Attempt = o.machine.Attempt()
		snap.MaxAttempts = o.machine.MaxAttempts()
	} else {
		snap.MaxAttempts = o.cfg.Poll.MaxAttempts
	}
	return snap
}

func (o *Orchestrator) handleSubmitted(e Submitted) []Effect {
	if !o.submitting {
		o.stale(e, "no submission in flight")
		return nil
	}
	o.submitting = false
	idx := o.placeholderIdx
	o.placeholderIdx = -1

	if e.Err != nil {
		o.collector.IncSubmitFailure()
		_ = o.conv.SetText(idx, "Error: "+e.Err.Error())
		o.logger.WithSession(o.session.SessionID).Warn("submission failed", map[string]any{
			"error": e.Err.Error(),
		})
		o.record(e, true, "", e.Err.Error())
		return nil
	}

	resp := e.Response
	key := resp.Key()
	if o.session.SessionID != "" && o.session.SessionID != resp.SessionID {
		o.logger.Warn("service assigned a new session", map[string]any{
			"previous": o.session.SessionID,
			"current":  resp.SessionID,
		})
	}

	o.collector.IncSubmitSuccess()
	_ = o.conv.Bind(idx, resp.QueryID, resp.Reply)

	o.session.SessionID = resp.SessionID
	o.session.CurrentQueryID = resp.QueryID
	o.session.SelectedQueryID = resp.QueryID
	o.newlySubmitted = resp.QueryID
	o.scroll = false

	// Invalidate display hydrations launched for the previous selection.
	o.displayed = nil
	o.nextRequest()

	// A fresh machine supersedes any earlier cycle; its events become stale.
	o.machine = poll.New(key, o.cfg.Poll)
	o.liveStatus = ""
	o.outcome = ""
	o.cycleStart = o.clock.Now()

	o.logger.WithQuery(key).Info("query submitted", map[string]any{
		"immediate_reply": resp.Reply != "",
	})
	o.record(e, true, "", "")

	attempt, _ := o.machine.Begin()
	return []Effect{CheckStatus{Key: key, Attempt: attempt}}
}

func (o *Orchestrator) handlePollTicked(e PollTicked) []Effect {
	if !o.isLive(e.Key) {
		o.stale(e, "superseded")
		return nil
	}
	attempt, ok := o.machine.Begin()
	if !ok {
		o.stale(e, "poll cycle finished")
		return nil
	}
	o.record(e, true, "", "")
	return []Effect{CheckStatus{Key: e.Key, Attempt: attempt}}
}

func (o *Orchestrator) handleStatusChecked(e StatusChecked) []Effect {
	if !o.isLive(e.Key) {
		o.stale(e, "superseded")
		return nil
	}

	step := o.machine.Observe(e.Status, e.Err)
	if step.Decision == poll.DecisionNone {
		o.stale(e, "poll cycle finished")
		return nil
	}

	o.collector.IncStatusCheck()
	logger := o.logger.WithQuery(e.Key)
	detail := ""
	if step.Transient {
		o.collector.IncTransientError()
		if e.Err != nil {
			detail = e.Err.Error()
		}
		logger.Debug("transient status check failure", map[string]any{
			"attempt": step.Attempt,
			"error":   detail,
		})
	} else {
		o.liveStatus = step.Status
	}
	o.record(e, true, string(step.Status), detail)

	switch step.Decision {
	case poll.DecisionContinue:
		effects := []Effect{Wait{Key: e.Key, Delay: step.Delay}}
		if step.RefreshDialog {
			effects = append(effects, RefreshDialog{Key: e.Key})
		}
		return effects

	case poll.DecisionHydrate:
		o.collector.IncTerminal(string(step.Status))
		logger.Info("query done", map[string]any{"attempts": step.Attempt})
		var request uint64
		if e.Key.QueryID == o.session.SelectedQueryID {
			request = o.nextRequest()
		}
		return o.finishCycle(e.Key, step, Hydrate{Key: e.Key, Request: request, Origin: OriginPoll})

	case poll.DecisionReport:
		o.collector.IncTerminal(string(step.Status))
		text := conversation.FailedText
		if step.Status == types.StatusTimeout {
			text = conversation.TimedOutText
		}
		o.conv.AppendAgent(text)
		logger.Info("query ended without results", map[string]any{"status": string(step.Status)})
		return o.finishCycle(e.Key, step, nil)

	case poll.DecisionExhausted:
		o.collector.IncExhausted()
		o.conv.AppendAgent(ExhaustedMessage(step))
		logger.Warn("poll budget exhausted", map[string]any{
			"attempts":  step.Attempt,
			"transient": step.Transient,
		})
		return o.finishCycle(e.Key, step, nil)
	}
	return nil
}

func (o *Orchestrator) finishCycle(key types.QueryKey, step poll.Step, first Effect) []Effect {
	o.outcome = DetermineOutcome(step)

	var effects []Effect
	if first != nil {
		effects = append(effects, first)
	}
	if o.cfg.Notify {
		now := o.clock.Now()
		effects = append(effects, Notify{Event: &adapter.QueryCompletedEvent{
			ContractVersion: types.ContractVersion,
			EventType:       adapter.EventTypeQueryCompleted,
			SessionID:       key.SessionID,
			QueryID:         key.QueryID,
			Outcome:         string(o.outcome),
			Attempts:        step.Attempt,
			DurationMs:      now.Sub(o.cycleStart).Milliseconds(),
			Timestamp:       now.UTC().Format(time.RFC3339),
		}})
	}
	return effects
}

func (o *Orchestrator) handleDialogRefreshed(e DialogRefreshed) []Effect {
	if !o.isLive(e.Key) {
		o.stale(e, "superseded")
		return nil
	}
	if o.machine.Done() {
		// The final hydration owns the live transcript.
		o.stale(e, "poll cycle finished")
		return nil
	}
	if e.Err != nil {
		o.logger.WithQuery(e.Key).Debug("dialog refresh failed", map[string]any{"error": e.Err.Error()})
		o.record(e, true, "", e.Err.Error())
		return nil
	}
	o.liveTurns = dialog.Parse(e.Raw)
	o.record(e, true, "", "")
	return nil
}

func (o *Orchestrator) handleHydrated(e Hydrated) []Effect {
	if e.Key.SessionID != o.session.SessionID {
		o.stale(e, "other session")
		return nil
	}
	displayCurrent := e.Request != 0 && e.Request == o.latestRequest && e.Key.QueryID == o.session.SelectedQueryID
	liveCurrent := e.Origin == OriginPoll && e.Key == o.session.LiveKey()
	logger := o.logger.WithQuery(e.Key)

	if e.Err != nil {
		if !displayCurrent && !liveCurrent {
			o.stale(e, "hydration error for unselected query")
			return nil
		}
		o.conv.AppendAgent("Error loading results: " + e.Err.Error())
		logger.Warn("hydration failed", map[string]any{"error": e.Err.Error()})
		o.record(e, true, "", e.Err.Error())
		return nil
	}

	// The transcript is per session; a superseded cycle would resolve its
	// placeholder with a newer query's answer.
	if e.Origin == OriginPoll && !liveCurrent {
		o.stale(e, "superseded")
		return nil
	}

	// Conversation accuracy lands before the bundle is published.
	resolved := hydrate.Resolve(o.conv, e.Key.QueryID, e.Bundle)
	if e.Origin == OriginPoll && resolved && e.Key.QueryID == o.newlySubmitted {
		o.scroll = true
		o.newlySubmitted = ""
	}
	if e.Key == o.session.LiveKey() {
		o.liveTurns = e.Bundle.Turns
	}

	detail := ""
	switch {
	case displayCurrent:
		o.displayed = e.Bundle
	case e.Request != 0:
		detail = "selection changed"
		o.collector.IncStaleDropped()
	default:
		detail = "not selected"
	}
	o.record(e, displayCurrent || resolved, "", detail)

	logger.Debug("hydration applied", map[string]any{
		"origin":    e.Origin.String(),
		"resolved":  resolved,
		"displayed": displayCurrent,
	})

	if o.cfg.Export && e.Origin == OriginPoll {
		return []Effect{Export{Bundle: e.Bundle}}
	}
	return nil
}

func (o *Orchestrator) isLive(key types.QueryKey) bool {
	return o.machine != nil && o.machine.Key() == key
}

func (o *Orchestrator) nextRequest() uint64 {
	o.requestSeq++
	o.latestRequest = o.requestSeq
	return o.latestRequest
}

func (o *Orchestrator) stale(ev Event, reason string) {
	o.collector.IncStaleDropped()
	o.logger.WithQuery(ev.QueryKey()).Debug("dropping stale event", map[string]any{
		"event":  ev.Kind(),
		"reason": reason,
	})
	o.record(ev, false, "", reason)
}

func (o *Orchestrator) record(ev Event, applied bool, status, detail string) {
	if o.recorder == nil {
		return
	}
	key := ev.QueryKey()
	entry := journal.Entry{
		Kind:      ev.Kind(),
		SessionID: key.SessionID,
		QueryID:   key.QueryID,
		Status:    status,
		Detail:    detail,
		Applied:   applied,
		Timestamp: o.clock.Now().UTC(),
	}
	if sc, ok := ev.(StatusChecked); ok {
		entry.Attempt = sc.Attempt
	}
	if err := o.recorder.Record(entry); err != nil {
		o.logger.Warn("journal write failed", map[string]any{"error": err.Error()})
	}
}
