package runtime

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pithecene-io/plandesk/conversation"
	"github.com/pithecene-io/plandesk/journal"
	"github.com/pithecene-io/plandesk/metrics"
	"github.com/pithecene-io/plandesk/poll"
	"github.com/pithecene-io/plandesk/service"
	"github.com/pithecene-io/plandesk/types"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

type memRecorder struct{ entries []journal.Entry }

func (r *memRecorder) Record(e journal.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func newTestOrchestrator(t *testing.T, mutate func(*Config)) *Orchestrator {
	t.Helper()
	cfg := Config{
		Poll:     poll.Config{Interval: time.Second, MaxAttempts: 300},
		Greeting: conversation.WelcomeText,
		Clock:    &fixedClock{now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	o, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func key(q string) types.QueryKey { return types.QueryKey{SessionID: "s1", QueryID: q} }

func submitted(q string) Submitted {
	return Submitted{Response: &service.SubmitResponse{SessionID: "s1", QueryID: q}}
}

func agentBundle(q, text string, charts ...types.ChartKind) *types.ResultBundle {
	b := &types.ResultBundle{
		Key:    key(q),
		Dialog: "[ASSISTANT]: " + text,
		Turns:  []types.Turn{{Speaker: types.SpeakerAgent, Text: text}},
		Charts: map[types.ChartKind][]byte{},
	}
	for _, c := range charts {
		b.Charts[c] = []byte(q + ":" + string(c))
	}
	return b
}

// submitAndBind runs Submit and its acknowledgment and returns the first
// status check.
func submitAndBind(t *testing.T, o *Orchestrator, text, q string) CheckStatus {
	t.Helper()
	effects, err := o.Submit(text)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(effects) != 1 {
		t.Fatalf("Submit effects = %#v", effects)
	}
	if _, ok := effects[0].(Submit); !ok {
		t.Fatalf("expected Submit effect, got %T", effects[0])
	}

	effects = o.Handle(submitted(q))
	if len(effects) != 1 {
		t.Fatalf("Submitted effects = %#v", effects)
	}
	check, ok := effects[0].(CheckStatus)
	if !ok {
		t.Fatalf("expected CheckStatus, got %T", effects[0])
	}
	return check
}

func findEffect[T Effect](effects []Effect) (T, bool) {
	for _, e := range effects {
		if v, ok := e.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func lastMessage(o *Orchestrator) types.Message {
	msgs := o.Snapshot().Messages
	return msgs[len(msgs)-1]
}

func TestSubmit_Guards(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	if _, err := o.Submit("   "); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
	if _, err := o.Submit("first"); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Submit("second"); !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("expected ErrSubmitInFlight, got %v", err)
	}
	if n := len(o.Snapshot().Messages); n != 3 {
		t.Errorf("messages = %d, want greeting + user + placeholder", n)
	}
}

func TestSubmit_PlaceholderBoundOnAcknowledgment(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	effects, _ := o.Submit("Plan my retirement")
	req := effects[0].(Submit).Request
	if req.Message != "Plan my retirement" || req.SessionID != "" {
		t.Errorf("first request = %+v", req)
	}

	placeholder := lastMessage(o)
	if placeholder.Text != conversation.PlaceholderText || placeholder.QueryID != "" || !placeholder.Pending {
		t.Errorf("placeholder before ack = %+v", placeholder)
	}

	check := func() CheckStatus {
		effs := o.Handle(submitted("q1"))
		return effs[0].(CheckStatus)
	}()
	if check.Key != key("q1") || check.Attempt != 1 {
		t.Errorf("first check = %+v", check)
	}

	placeholder = lastMessage(o)
	if placeholder.QueryID != "q1" {
		t.Errorf("placeholder not bound: %+v", placeholder)
	}

	snap := o.Snapshot()
	if snap.Session != (types.Session{SessionID: "s1", CurrentQueryID: "q1", SelectedQueryID: "q1"}) {
		t.Errorf("session = %+v", snap.Session)
	}
	if !snap.Polling || snap.Attempt != 1 || snap.MaxAttempts != 300 {
		t.Errorf("poll progress = %+v", snap)
	}

	// Second submission reuses the session.
	effects, _ = o.Submit("again")
	if effects[0].(Submit).Request.SessionID != "s1" {
		t.Error("second submission must carry the session id")
	}
}

func TestSubmit_ImmediateReply(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	_, _ = o.Submit("hello")
	o.Handle(Submitted{Response: &service.SubmitResponse{SessionID: "s1", QueryID: "q1", Reply: "Working on it"}})

	if m := lastMessage(o); m.Text != "Working on it" || m.QueryID != "q1" {
		t.Errorf("placeholder = %+v", m)
	}
}

func TestSubmit_Failure(t *testing.T) {
	collector := metrics.NewCollector("", "", "")
	o := newTestOrchestrator(t, func(c *Config) { c.Collector = collector })

	_, _ = o.Submit("hello")
	effects := o.Handle(Submitted{Err: errors.New("service unavailable")})
	if len(effects) != 0 {
		t.Errorf("failure must not schedule work: %#v", effects)
	}

	snap := o.Snapshot()
	if len(snap.Messages) != 3 {
		t.Fatalf("messages = %d", len(snap.Messages))
	}
	m := snap.Messages[2]
	if m.Text != "Error: service unavailable" || m.Pending || m.QueryID != "" {
		t.Errorf("error message = %+v", m)
	}
	if snap.Submitting || snap.Polling {
		t.Error("nothing should be in progress")
	}
	if collector.Snapshot().SubmitFailure != 1 {
		t.Error("submit failure not counted")
	}

	if _, err := o.Submit("retry"); err != nil {
		t.Errorf("submit after failure: %v", err)
	}
}

func TestEndToEnd_PlanMyRetirement(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	check := submitAndBind(t, o, "Plan my retirement", "q1")

	for i := 1; i <= 2; i++ {
		effects := o.Handle(StatusChecked{Key: check.Key, Attempt: check.Attempt, Status: types.StatusWorking})
		wait, ok := findEffect[Wait](effects)
		if !ok || wait.Delay != time.Second || wait.Key != key("q1") {
			t.Fatalf("poll %d: expected Wait, got %#v", i, effects)
		}
		if _, ok := findEffect[RefreshDialog](effects); !ok {
			t.Errorf("poll %d: expected RefreshDialog", i)
		}
		if o.TakeScrollSignal() {
			t.Fatal("no scroll while working")
		}

		effects = o.Handle(PollTicked{Key: wait.Key})
		check = effects[0].(CheckStatus)
		if check.Attempt != i+1 {
			t.Errorf("attempt = %d, want %d", check.Attempt, i+1)
		}
	}

	effects := o.Handle(StatusChecked{Key: check.Key, Attempt: check.Attempt, Status: types.StatusDone})
	hyd, ok := findEffect[Hydrate](effects)
	if !ok || hyd.Origin != OriginPoll || hyd.Request == 0 {
		t.Fatalf("expected display hydration, got %#v", effects)
	}
	if snap := o.Snapshot(); snap.Polling || snap.Phase != poll.PhaseTerminal || snap.Outcome != OutcomeDone {
		t.Errorf("after done: %+v", snap)
	}

	bundle := agentBundle("q1", "Here is your plan", types.ChartFlows, types.ChartBalances)
	o.Handle(Hydrated{Key: hyd.Key, Request: hyd.Request, Origin: hyd.Origin, Bundle: bundle})

	snap := o.Snapshot()
	var agentForQ1 []types.Message
	for _, m := range snap.Messages {
		if m.QueryID == "q1" {
			agentForQ1 = append(agentForQ1, m)
		}
	}
	if len(agentForQ1) != 1 || agentForQ1[0].Text != "Here is your plan" || agentForQ1[0].Pending {
		t.Errorf("q1 messages = %+v", agentForQ1)
	}
	if snap.Bundle != bundle {
		t.Error("bundle not displayed")
	}

	if !o.TakeScrollSignal() {
		t.Error("scroll signal should fire")
	}
	if o.TakeScrollSignal() {
		t.Error("scroll signal must fire exactly once")
	}
	if !o.Idle() {
		t.Error("orchestrator should be idle")
	}
}

func TestStaleCycleSuppressed(t *testing.T) {
	collector := metrics.NewCollector("", "", "")
	o := newTestOrchestrator(t, func(c *Config) { c.Collector = collector })

	first := submitAndBind(t, o, "first", "q1")
	effects := o.Handle(StatusChecked{Key: first.Key, Attempt: 1, Status: types.StatusWorking})
	staleWait, _ := findEffect[Wait](effects)

	second := submitAndBind(t, o, "second", "q2")
	if second.Attempt != 1 {
		t.Errorf("new cycle must start at attempt 1, got %d", second.Attempt)
	}
	before := o.Snapshot()

	if effs := o.Handle(PollTicked{Key: staleWait.Key}); len(effs) != 0 {
		t.Errorf("stale tick produced %#v", effs)
	}
	if effs := o.Handle(StatusChecked{Key: key("q1"), Attempt: 2, Status: types.StatusDone}); len(effs) != 0 {
		t.Errorf("stale status produced %#v", effs)
	}
	if effs := o.Handle(StatusChecked{Key: key("q1"), Attempt: 2, Status: types.StatusFailed}); len(effs) != 0 {
		t.Errorf("stale failure produced %#v", effs)
	}
	if effs := o.Handle(DialogRefreshed{Key: key("q1"), Raw: "[ASSISTANT]: old"}); len(effs) != 0 {
		t.Errorf("stale dialog produced %#v", effs)
	}

	after := o.Snapshot()
	if len(after.Messages) != len(before.Messages) {
		t.Fatalf("conversation changed: %d -> %d", len(before.Messages), len(after.Messages))
	}
	for i := range after.Messages {
		if after.Messages[i] != before.Messages[i] {
			t.Errorf("message %d changed: %+v -> %+v", i, before.Messages[i], after.Messages[i])
		}
	}
	if after.Attempt != 1 || after.Session.CurrentQueryID != "q2" {
		t.Errorf("live cycle disturbed: %+v", after)
	}
	if collector.Snapshot().StaleEventsDrops != 4 {
		t.Errorf("stale drops = %d", collector.Snapshot().StaleEventsDrops)
	}
}

// A hydration from a finished cycle that lands after a newer submission
// neither resolves its placeholder nor exports.
func TestStaleCycleHydrationDropped(t *testing.T) {
	collector := metrics.NewCollector("", "", "")
	o := newTestOrchestrator(t, func(c *Config) {
		c.Collector = collector
		c.Export = true
	})

	first := submitAndBind(t, o, "first", "q1")
	effects := o.Handle(StatusChecked{Key: first.Key, Attempt: 1, Status: types.StatusDone})
	hyd, ok := findEffect[Hydrate](effects)
	if !ok {
		t.Fatalf("expected Hydrate, got %#v", effects)
	}

	submitAndBind(t, o, "second", "q2")
	before := o.Snapshot()

	effects = o.Handle(Hydrated{Key: hyd.Key, Request: hyd.Request, Origin: hyd.Origin, Bundle: agentBundle("q1", "answer to second")})
	if len(effects) != 0 {
		t.Errorf("stale hydration produced %#v", effects)
	}

	after := o.Snapshot()
	for i := range after.Messages {
		if after.Messages[i] != before.Messages[i] {
			t.Errorf("message %d changed: %+v -> %+v", i, before.Messages[i], after.Messages[i])
		}
	}
	if after.Bundle != nil || o.TakeScrollSignal() {
		t.Error("stale hydration displayed or scrolled")
	}
	if collector.Snapshot().StaleEventsDrops != 1 {
		t.Errorf("stale drops = %d", collector.Snapshot().StaleEventsDrops)
	}
}

func TestServerFailureAndTimeout(t *testing.T) {
	tests := []struct {
		status  types.QueryStatus
		text    string
		outcome Outcome
	}{
		{types.StatusFailed, conversation.FailedText, OutcomeFailed},
		{types.StatusTimeout, conversation.TimedOutText, OutcomeTimeout},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			o := newTestOrchestrator(t, func(c *Config) { c.Notify = true })
			check := submitAndBind(t, o, "q", "q1")

			effects := o.Handle(StatusChecked{Key: check.Key, Attempt: 1, Status: tt.status})
			if _, ok := findEffect[Hydrate](effects); ok {
				t.Error("no hydration after server failure")
			}
			notify, ok := findEffect[Notify](effects)
			if !ok || notify.Event.Outcome != string(tt.outcome) || notify.Event.QueryID != "q1" {
				t.Errorf("notify = %#v", effects)
			}

			if m := lastMessage(o); m.Text != tt.text {
				t.Errorf("last message = %q", m.Text)
			}
			if effs := o.Handle(PollTicked{Key: check.Key}); len(effs) != 0 {
				t.Error("terminal cycle must absorb further ticks")
			}
		})
	}
}

func TestExhaustion_Reported(t *testing.T) {
	o := newTestOrchestrator(t, func(c *Config) { c.Poll.MaxAttempts = 2 })
	check := submitAndBind(t, o, "slow", "q1")

	effects := o.Handle(StatusChecked{Key: check.Key, Attempt: 1, Status: types.StatusWorking})
	wait, _ := findEffect[Wait](effects)
	check = o.Handle(PollTicked{Key: wait.Key})[0].(CheckStatus)
	effects = o.Handle(StatusChecked{Key: check.Key, Attempt: 2, Status: types.StatusWorking})

	if len(effects) != 0 {
		t.Errorf("exhausted cycle without notifications produced %#v", effects)
	}
	m := lastMessage(o)
	if !strings.HasPrefix(m.Text, "No result after 2 status checks") {
		t.Errorf("exhaustion message = %q", m.Text)
	}
	if snap := o.Snapshot(); snap.Phase != poll.PhaseExhausted || snap.Outcome != OutcomeExhausted {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestExhaustion_LostContact(t *testing.T) {
	o := newTestOrchestrator(t, func(c *Config) { c.Poll.MaxAttempts = 1 })
	check := submitAndBind(t, o, "q", "q1")

	o.Handle(StatusChecked{Key: check.Key, Attempt: 1, Err: errors.New("connection refused")})

	m := lastMessage(o)
	want := "Lost contact with the service after 1 status checks: connection refused"
	if m.Text != want {
		t.Errorf("message = %q, want %q", m.Text, want)
	}
	if o.Snapshot().Outcome != OutcomeUnreachable {
		t.Errorf("outcome = %s", o.Snapshot().Outcome)
	}
}

func TestTransientErrorsAreSilent(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	check := submitAndBind(t, o, "q", "q1")
	before := len(o.Snapshot().Messages)

	effects := o.Handle(StatusChecked{Key: check.Key, Attempt: 1, Err: errors.New("timeout")})
	if _, ok := findEffect[Wait](effects); !ok {
		t.Errorf("expected retry wait, got %#v", effects)
	}
	if _, ok := findEffect[RefreshDialog](effects); ok {
		t.Error("transient failure must not refresh dialog")
	}
	if len(o.Snapshot().Messages) != before {
		t.Error("transient failure must not add messages")
	}
}

func TestDialogRefresh_UpdatesLiveTurns(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	check := submitAndBind(t, o, "q", "q1")
	o.Handle(StatusChecked{Key: check.Key, Attempt: 1, Status: types.StatusWorking})

	o.Handle(DialogRefreshed{Key: check.Key, Raw: "[USER]: q\n[ASSISTANT]: thinking"})
	turns := o.Snapshot().LiveTurns
	if len(turns) != 2 || turns[1].Text != "thinking" {
		t.Errorf("live turns = %+v", turns)
	}

	o.Handle(DialogRefreshed{Key: check.Key, Err: errors.New("boom")})
	if len(o.Snapshot().LiveTurns) != 2 {
		t.Error("failed refresh must keep previous turns")
	}
}

// A refresh launched alongside the last tick must not overwrite the
// transcript of the final hydration.
func TestDialogRefresh_AfterCycleEndsDropped(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	check := submitAndBind(t, o, "q", "q1")
	o.Handle(StatusChecked{Key: check.Key, Attempt: 1, Status: types.StatusWorking})

	effects := o.Handle(StatusChecked{Key: check.Key, Attempt: 2, Status: types.StatusDone})
	hyd, _ := findEffect[Hydrate](effects)
	o.Handle(Hydrated{Key: hyd.Key, Request: hyd.Request, Origin: hyd.Origin, Bundle: agentBundle("q1", "final")})

	o.Handle(DialogRefreshed{Key: check.Key, Raw: "[USER]: q\n[ASSISTANT]: thinking"})
	turns := o.Snapshot().LiveTurns
	if len(turns) != 1 || turns[0].Text != "final" {
		t.Errorf("live turns = %+v", turns)
	}
}

// completeQuery drives a query from submission to a displayed bundle.
func completeQuery(t *testing.T, o *Orchestrator, q string, charts ...types.ChartKind) {
	t.Helper()
	check := submitAndBind(t, o, "query "+q, q)
	effects := o.Handle(StatusChecked{Key: check.Key, Attempt: 1, Status: types.StatusDone})
	hyd, ok := findEffect[Hydrate](effects)
	if !ok {
		t.Fatalf("expected hydrate for %s", q)
	}
	o.Handle(Hydrated{Key: hyd.Key, Request: hyd.Request, Origin: hyd.Origin, Bundle: agentBundle(q, "answer "+q, charts...)})
	o.TakeScrollSignal()
}

func TestSelectHistorical_ClearsBeforeHydrating(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	completeQuery(t, o, "q1", types.ChartFlows)
	completeQuery(t, o, "q2", types.ChartFlows, types.ChartBalances)

	if b := o.Snapshot().Bundle; b == nil || b.Key.QueryID != "q2" {
		t.Fatalf("q2 should be displayed, got %+v", b)
	}

	effects, err := o.SelectHistorical("q1")
	if err != nil {
		t.Fatal(err)
	}
	snap := o.Snapshot()
	if snap.Bundle != nil {
		t.Fatal("previous bundle must be cleared immediately on selection")
	}
	if snap.Session.SelectedQueryID != "q1" || snap.Session.CurrentQueryID != "q2" {
		t.Errorf("session = %+v", snap.Session)
	}

	hyd, ok := findEffect[Hydrate](effects)
	if !ok || hyd.Key != key("q1") || hyd.Origin != OriginSelect {
		t.Fatalf("expected hydrate for q1, got %#v", effects)
	}

	// A late q2 display hydration must never be shown under q1.
	o.Handle(Hydrated{Key: key("q2"), Request: hyd.Request - 1, Origin: OriginSelect, Bundle: agentBundle("q2", "answer q2", types.ChartBalances)})
	if o.Snapshot().Bundle != nil {
		t.Fatal("stale q2 bundle displayed while q1 is selected")
	}

	o.Handle(Hydrated{Key: hyd.Key, Request: hyd.Request, Origin: hyd.Origin, Bundle: agentBundle("q1", "answer q1", types.ChartFlows)})
	b := o.Snapshot().Bundle
	if b == nil || b.Key.QueryID != "q1" {
		t.Fatalf("q1 bundle not displayed: %+v", b)
	}
	if data, _ := b.Chart(types.ChartFlows); string(data) != "q1:Flows" {
		t.Errorf("displayed chart = %q", data)
	}
	if _, ok := b.Chart(types.ChartBalances); ok {
		t.Error("q2's Balances chart shown for q1")
	}
	if o.TakeScrollSignal() {
		t.Error("historical selection must never scroll")
	}
}

func TestSelectHistorical_DoesNotDisturbLivePoll(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	completeQuery(t, o, "q1")
	check := submitAndBind(t, o, "live", "q2")
	effects := o.Handle(StatusChecked{Key: check.Key, Attempt: 1, Status: types.StatusWorking})
	wait, _ := findEffect[Wait](effects)

	if _, err := o.SelectHistorical("q1"); err != nil {
		t.Fatal(err)
	}

	effects = o.Handle(PollTicked{Key: wait.Key})
	next, ok := findEffect[CheckStatus](effects)
	if !ok || next.Attempt != 2 || next.Key != key("q2") {
		t.Fatalf("live poll disturbed: %#v", effects)
	}

	// q2 finishes while q1 is selected: resolve only, no display, no scroll.
	effects = o.Handle(StatusChecked{Key: next.Key, Attempt: 2, Status: types.StatusDone})
	hyd, _ := findEffect[Hydrate](effects)
	if hyd.Request != 0 {
		t.Errorf("unselected live query hydration must not request display, got %d", hyd.Request)
	}
	o.Handle(Hydrated{Key: hyd.Key, Request: hyd.Request, Origin: hyd.Origin, Bundle: agentBundle("q2", "answer q2")})

	if o.Snapshot().Bundle != nil {
		t.Error("q2 bundle displayed while q1 selected")
	}
	if o.TakeScrollSignal() {
		t.Error("selection cleared the newly-submitted mark; no scroll expected")
	}
	found := false
	for _, m := range o.Snapshot().Messages {
		if m.QueryID == "q2" && m.Text == "answer q2" {
			found = true
		}
	}
	if !found {
		t.Error("q2 placeholder not resolved")
	}
}

func TestSelectHistorical_NoSession(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	effects, err := o.SelectHistorical("q1")
	if err != nil || len(effects) != 0 {
		t.Errorf("effects = %#v, err = %v", effects, err)
	}
	if o.Session().SelectedQueryID != "q1" {
		t.Error("selection not updated")
	}
	if _, err := o.SelectHistorical(""); !errors.Is(err, ErrNoQueryID) {
		t.Errorf("expected ErrNoQueryID, got %v", err)
	}
}

func TestSelectAdjacent(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	completeQuery(t, o, "q1")
	completeQuery(t, o, "q2")
	completeQuery(t, o, "q3")

	effects, _ := o.SelectAdjacent(-1)
	if hyd, ok := findEffect[Hydrate](effects); !ok || hyd.Key.QueryID != "q2" {
		t.Fatalf("prev from q3 = %#v", effects)
	}
	effects, _ = o.SelectAdjacent(-1)
	if hyd, _ := findEffect[Hydrate](effects); hyd.Key.QueryID != "q1" {
		t.Errorf("prev from q2 = %#v", effects)
	}
	if effects, _ := o.SelectAdjacent(-1); len(effects) != 0 {
		t.Error("no query before q1")
	}
	effects, _ = o.SelectAdjacent(1)
	if hyd, _ := findEffect[Hydrate](effects); hyd.Key.QueryID != "q2" {
		t.Errorf("next from q1 = %#v", effects)
	}
}

func TestHydrationError(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	check := submitAndBind(t, o, "q", "q1")
	effects := o.Handle(StatusChecked{Key: check.Key, Attempt: 1, Status: types.StatusDone})
	hyd, _ := findEffect[Hydrate](effects)

	o.Handle(Hydrated{Key: hyd.Key, Request: hyd.Request, Origin: hyd.Origin, Err: errors.New("dialog unavailable")})

	if m := lastMessage(o); m.Text != "Error loading results: dialog unavailable" {
		t.Errorf("last message = %q", m.Text)
	}
	if o.Snapshot().Bundle != nil {
		t.Error("no bundle after transcript failure")
	}
	if o.TakeScrollSignal() {
		t.Error("no scroll after failed hydration")
	}
}

func TestHydrationError_StaleDropped(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	completeQuery(t, o, "q1")
	completeQuery(t, o, "q2")

	first, _ := o.SelectHistorical("q1")
	if _, err := o.SelectHistorical("q2"); err != nil {
		t.Fatal(err)
	}
	stale, _ := findEffect[Hydrate](first)
	before := len(o.Snapshot().Messages)

	o.Handle(Hydrated{Key: stale.Key, Request: stale.Request, Origin: OriginSelect, Err: errors.New("boom")})
	if len(o.Snapshot().Messages) != before {
		t.Error("stale hydration error must not be reported")
	}
}

func TestHydrated_OtherSessionDropped(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	completeQuery(t, o, "q1")
	before := o.Snapshot()

	other := types.QueryKey{SessionID: "s9", QueryID: "q1"}
	o.Handle(Hydrated{Key: other, Request: 99, Bundle: agentBundle("q1", "intruder")})

	after := o.Snapshot()
	if after.Bundle != before.Bundle {
		t.Error("bundle from another session displayed")
	}
	for _, m := range after.Messages {
		if m.Text == "intruder" {
			t.Error("conversation mutated by another session")
		}
	}
}

func TestExportAndNotifyEffects(t *testing.T) {
	o := newTestOrchestrator(t, func(c *Config) {
		c.Export = true
		c.Notify = true
	})
	check := submitAndBind(t, o, "q", "q1")

	effects := o.Handle(StatusChecked{Key: check.Key, Attempt: 1, Status: types.StatusDone})
	notify, ok := findEffect[Notify](effects)
	if !ok {
		t.Fatal("expected Notify")
	}
	ev := notify.Event
	if ev.EventType != "query_completed" || ev.Outcome != "done" || ev.Attempts != 1 || ev.ContractVersion != types.ContractVersion {
		t.Errorf("event = %+v", ev)
	}
	if ev.Timestamp != "2026-10-18T12:00:00Z" {
		t.Errorf("timestamp = %q", ev.Timestamp)
	}

	hyd, _ := findEffect[Hydrate](effects)
	effects = o.Handle(Hydrated{Key: hyd.Key, Request: hyd.Request, Origin: hyd.Origin, Bundle: agentBundle("q1", "a")})
	export, ok := findEffect[Export](effects)
	if !ok || export.Bundle.Key != key("q1") {
		t.Errorf("expected Export, got %#v", effects)
	}

	// Historical views are not re-exported.
	effects, _ = o.SelectHistorical("q1")
	hyd, _ = findEffect[Hydrate](effects)
	effects = o.Handle(Hydrated{Key: hyd.Key, Request: hyd.Request, Origin: hyd.Origin, Bundle: agentBundle("q1", "a")})
	if _, ok := findEffect[Export](effects); ok {
		t.Error("historical selection must not export")
	}
}

func TestRecorder_JournalsAppliedAndStale(t *testing.T) {
	rec := &memRecorder{}
	o := newTestOrchestrator(t, func(c *Config) { c.Recorder = rec })

	check := submitAndBind(t, o, "q", "q1")
	o.Handle(StatusChecked{Key: check.Key, Attempt: 1, Status: types.StatusWorking})
	o.Handle(PollTicked{Key: key("old")})

	if len(rec.entries) != 3 {
		t.Fatalf("entries = %+v", rec.entries)
	}
	if rec.entries[0].Kind != "submitted" || !rec.entries[0].Applied {
		t.Errorf("entry 0 = %+v", rec.entries[0])
	}
	if e := rec.entries[1]; e.Kind != "status_checked" || e.Status != "Working" || e.Attempt != 1 || !e.Applied {
		t.Errorf("entry 1 = %+v", e)
	}
	if e := rec.entries[2]; e.Kind != "poll_ticked" || e.Applied || e.QueryID != "old" {
		t.Errorf("entry 2 = %+v", e)
	}
}

func TestNew_InvalidPollConfig(t *testing.T) {
	if _, err := New(Config{Poll: poll.Config{Interval: 0, MaxAttempts: 1}}); !errors.Is(err, poll.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
