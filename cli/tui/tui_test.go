package tui

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/plandesk/conversation"
	"github.com/pithecene-io/plandesk/devserver"
	"github.com/pithecene-io/plandesk/hydrate"
	"github.com/pithecene-io/plandesk/inputs"
	"github.com/pithecene-io/plandesk/metrics"
	"github.com/pithecene-io/plandesk/poll"
	"github.com/pithecene-io/plandesk/runtime"
	"github.com/pithecene-io/plandesk/service"
	"github.com/pithecene-io/plandesk/types"
)

type recordingStore struct {
	mu   sync.Mutex
	keys []types.QueryKey
}

func (s *recordingStore) PutReport(_ context.Context, key types.QueryKey, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return nil
}

type testChat struct {
	model ChatModel
	store *recordingStore
	dir   string
}

func newTestChat(t *testing.T) *testChat {
	t.Helper()
	srv := httptest.NewServer(devserver.New(devserver.Config{WorkingPolls: 2}).Handler())
	t.Cleanup(srv.Close)

	client, err := service.NewClient(service.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	collector := metrics.NewCollector(srv.URL, "", "")
	orch, err := runtime.New(runtime.Config{
		Poll:      poll.Config{Interval: time.Millisecond, MaxAttempts: 20},
		Greeting:  conversation.WelcomeText,
		Collector: collector,
	})
	if err != nil {
		t.Fatal(err)
	}
	exec, err := runtime.NewExecutor(runtime.ExecutorConfig{
		Service:   client,
		Hydrator:  hydrate.New(client, nil, collector),
		Collector: collector,
	})
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	store := &recordingStore{}
	m, err := NewChatModel(ChatConfig{
		Orchestrator: orch,
		Runner:       exec,
		Reports:      client,
		ReportStore:  store,
		Collector:    collector,
		ChartsDir:    filepath.Join(dir, "charts"),
		ReportsDir:   filepath.Join(dir, "reports"),
		Context:      t.Context(),
	})
	if err != nil {
		t.Fatal(err)
	}
	tc := &testChat{model: m, store: store, dir: dir}
	tc.send(t, tea.WindowSizeMsg{Width: 160, Height: 50})
	return tc
}

// send feeds msg to the model and then runs every command it produced,
// feeding effect events back until no work remains.
func (tc *testChat) send(t *testing.T, msg tea.Msg) {
	t.Helper()
	next, cmd := tc.model.Update(msg)
	tc.model = next.(ChatModel)

	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch out := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, out...)
		case eventMsg, savedMsg:
			next, cmd := tc.model.Update(out)
			tc.model = next.(ChatModel)
			queue = append(queue, cmd)
		}
	}
}

func (tc *testChat) ask(t *testing.T, text string) {
	t.Helper()
	tc.model.input.SetValue(text)
	tc.send(t, tea.KeyMsg{Type: tea.KeyEnter})
}

func TestNewChatModel_Validation(t *testing.T) {
	if _, err := NewChatModel(ChatConfig{}); err == nil {
		t.Error("expected error without orchestrator")
	}
	orch, err := runtime.New(runtime.Config{Poll: poll.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewChatModel(ChatConfig{Orchestrator: orch}); err == nil {
		t.Error("expected error without runner")
	}
}

func TestChat_SubmitToCompletion(t *testing.T) {
	tc := newTestChat(t)
	tc.ask(t, "Plan my retirement")

	snap := tc.model.orch.Snapshot()
	if snap.Outcome != runtime.OutcomeDone {
		t.Fatalf("outcome = %q", snap.Outcome)
	}
	last := snap.Messages[len(snap.Messages)-1]
	if last.Pending || !strings.HasPrefix(last.Text, "Here is your plan") {
		t.Errorf("last message = %+v", last)
	}
	if tc.model.input.Value() != "" {
		t.Errorf("input not cleared: %q", tc.model.input.Value())
	}
	if !tc.model.transcript.AtBottom() {
		t.Error("transcript should be scrolled to the bottom")
	}

	view := tc.model.View()
	for _, want := range []string{
		"Here is your plan",
		"Results · " + snap.Session.SelectedQueryID,
		inputs.TitlePersonal,
		"Last query: done",
		"Submitted",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestChat_EmptySubmitIgnored(t *testing.T) {
	tc := newTestChat(t)
	before := len(tc.model.orch.Snapshot().Messages)

	tc.ask(t, "   ")

	if got := len(tc.model.orch.Snapshot().Messages); got != before {
		t.Errorf("messages = %d, want %d", got, before)
	}
	if tc.model.notice != "" {
		t.Errorf("notice = %q", tc.model.notice)
	}
}

func TestChat_HistorySelection(t *testing.T) {
	tc := newTestChat(t)
	tc.ask(t, "Plan my retirement")
	first := tc.model.orch.Session().CurrentQueryID
	tc.ask(t, "What if I retire at 60?")
	second := tc.model.orch.Session().CurrentQueryID
	if first == second {
		t.Fatalf("query ids not distinct: %s", first)
	}

	tc.send(t, tea.KeyMsg{Type: tea.KeyCtrlP})
	snap := tc.model.orch.Snapshot()
	if snap.Session.SelectedQueryID != first {
		t.Errorf("selected = %s, want %s", snap.Session.SelectedQueryID, first)
	}
	if snap.Bundle == nil || snap.Bundle.Key.QueryID != first {
		t.Errorf("displayed bundle = %+v", snap.Bundle)
	}

	// Already at the oldest query.
	tc.send(t, tea.KeyMsg{Type: tea.KeyCtrlP})
	if got := tc.model.orch.Session().SelectedQueryID; got != first {
		t.Errorf("selected = %s after second ctrl+p", got)
	}

	tc.send(t, tea.KeyMsg{Type: tea.KeyCtrlN})
	snap = tc.model.orch.Snapshot()
	if snap.Session.SelectedQueryID != second || snap.Bundle == nil || snap.Bundle.Key.QueryID != second {
		t.Errorf("selected = %s, bundle = %+v", snap.Session.SelectedQueryID, snap.Bundle)
	}
}

func TestChat_SaveChartsAndReport(t *testing.T) {
	tc := newTestChat(t)
	tc.ask(t, "Plan my retirement")
	key := tc.model.orch.Session().SelectedKey()

	tc.send(t, tea.KeyMsg{Type: tea.KeyCtrlS})
	if tc.model.noticeErr {
		t.Fatalf("save charts: %s", tc.model.notice)
	}
	for _, kind := range types.ChartKinds {
		path := filepath.Join(tc.dir, "charts", hydrate.ChartFilename(key, kind))
		if _, err := os.Stat(path); err != nil {
			t.Errorf("chart %s not saved: %v", kind, err)
		}
	}

	tc.send(t, tea.KeyMsg{Type: tea.KeyCtrlR})
	if tc.model.noticeErr || !strings.HasPrefix(tc.model.notice, "Saved report: ") {
		t.Fatalf("notice = %q", tc.model.notice)
	}
	data, err := os.ReadFile(filepath.Join(tc.dir, "reports", hydrate.ReportFilename(key)))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<table>") {
		t.Errorf("report = %q", data)
	}
	if len(tc.store.keys) != 1 || tc.store.keys[0] != key {
		t.Errorf("report store keys = %v", tc.store.keys)
	}
}

func TestChat_SaveWithoutResults(t *testing.T) {
	tc := newTestChat(t)

	tc.send(t, tea.KeyMsg{Type: tea.KeyCtrlS})
	if !tc.model.noticeErr || tc.model.notice != "Save charts failed: no charts to save" {
		t.Errorf("charts notice = %q", tc.model.notice)
	}

	tc.send(t, tea.KeyMsg{Type: tea.KeyCtrlR})
	if !tc.model.noticeErr || tc.model.notice != "Save report failed: no query selected" {
		t.Errorf("report notice = %q", tc.model.notice)
	}
}

func TestChat_Quit(t *testing.T) {
	tc := newTestChat(t)
	next, cmd := tc.model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m := next.(ChatModel)
	if !m.quitting || m.View() != "" {
		t.Error("model should be quitting with an empty view")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc should quit")
	}
}

func TestRenderStatus_Polling(t *testing.T) {
	tc := newTestChat(t)
	got := tc.model.renderStatus(runtime.Snapshot{
		Polling:     true,
		Status:      types.StatusWorking,
		Attempt:     3,
		MaxAttempts: 30,
	})
	if !strings.Contains(got, "Working") || !strings.Contains(got, "check 3/30") {
		t.Errorf("status = %q", got)
	}

	got = tc.model.renderStatus(runtime.Snapshot{Outcome: runtime.OutcomeExhausted})
	if !strings.Contains(got, "Last query: exhausted") {
		t.Errorf("status = %q", got)
	}
}

func TestRenderResults(t *testing.T) {
	if got := renderResults(runtime.Snapshot{}); !strings.Contains(got, "No results yet.") {
		t.Errorf("empty = %q", got)
	}

	loading := runtime.Snapshot{Session: types.Session{SessionID: "s1", SelectedQueryID: "q1"}}
	if got := renderResults(loading); !strings.Contains(got, "Results · q1") || !strings.Contains(got, "Loading results...") {
		t.Errorf("loading = %q", got)
	}

	flows, err := devserver.RenderChart(types.ChartFlows)
	if err != nil {
		t.Fatal(err)
	}
	loaded := loading
	loaded.Bundle = &types.ResultBundle{
		Key:    types.QueryKey{SessionID: "s1", QueryID: "q1"},
		Inputs: devserver.SampleInputs(),
		Charts: map[types.ChartKind][]byte{types.ChartFlows: flows},
	}
	got := renderResults(loaded)
	for _, want := range []string{"png 120x60", "unavailable", inputs.TitlePersonal, inputs.TitleAccounts} {
		if !strings.Contains(got, want) {
			t.Errorf("results missing %q:\n%s", want, got)
		}
	}
}

func TestChartSummary_NotAnImage(t *testing.T) {
	if got := chartSummary([]byte("abc")); got != "3 B" {
		t.Errorf("chartSummary = %q", got)
	}
	if got := formatBytes(2048); got != "2.0 KB" {
		t.Errorf("formatBytes = %q", got)
	}
}

func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Here is your plan", "Here is your plan"},
		{"emphasis", "Your **savings** last *long*.", "Your savings last long."},
		{"heading", "# Summary\n\nAll good.", "Summary\n\nAll good."},
		{"bullets", "Options:\n\n- one\n- two", "Options:\n\n• one\n• two"},
		{"ordered", "3. c\n4. d", "3. c\n4. d"},
		{"nested", "- a\n  - b", "• a\n  • b"},
		{"link", "See [docs](https://example.com).", "See docs (https://example.com)."},
		{"autolink", "<https://example.com>", "https://example.com"},
		{"code span", "Run `plandesk ask`", "Run plandesk ask"},
		{"code block", "```\nx = 1\n```", "    x = 1"},
		{"soft break", "line one\nline two", "line one line two"},
		{"html dropped", "a <b>bold</b> move", "a bold move"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderMarkdown(tt.in); got != tt.want {
				t.Errorf("RenderMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
