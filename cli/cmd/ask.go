package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/plandesk/cli/render"
	"github.com/pithecene-io/plandesk/hydrate"
	"github.com/pithecene-io/plandesk/inputs"
	"github.com/pithecene-io/plandesk/metrics"
	"github.com/pithecene-io/plandesk/runtime"
	"github.com/pithecene-io/plandesk/types"
)

// AskCommand returns the ask command.
// Ask submits one message, polls until the cycle ends and prints the
// resulting conversation and result summary.
func AskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Submit a message and wait for its results",
		ArgsUsage: "<message>",
		Flags: append(append(QueryFlags(), OutputFlags()...),
			&cli.StringFlag{
				Name:  "charts-dir",
				Usage: "Save the result charts to this directory",
			},
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "Include client metrics in the output",
			},
		),
		Action: askAction,
	}
}

// AskResponse is the output of the ask command.
type AskResponse struct {
	SessionID   string            `json:"session_id" yaml:"session_id"`
	QueryID     string            `json:"query_id" yaml:"query_id"`
	Outcome     runtime.Outcome   `json:"outcome" yaml:"outcome"`
	Status      types.QueryStatus `json:"status,omitempty" yaml:"status,omitempty"`
	Attempts    int               `json:"attempts" yaml:"attempts"`
	Messages    []types.Message   `json:"messages" yaml:"messages"`
	Charts      []types.ChartKind `json:"charts,omitempty" yaml:"charts,omitempty"`
	SavedCharts []string          `json:"saved_charts,omitempty" yaml:"saved_charts,omitempty"`
	Inputs      []inputs.Table    `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Stats       *StatsView        `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Sections implements render.Sectioned.
func (r AskResponse) Sections() []render.Section {
	summary := render.Section{
		Title:   "Query",
		Headers: []string{"SESSION", "QUERY", "OUTCOME", "STATUS", "CHECKS"},
		Rows: [][]string{{
			r.SessionID, r.QueryID, string(r.Outcome), string(r.Status), fmt.Sprint(r.Attempts),
		}},
	}
	sections := []render.Section{summary, conversationSection(r.Messages)}

	charts := render.Section{Title: "Charts", Headers: []string{"CHART", "PRESENT"}}
	present := make(map[types.ChartKind]bool, len(r.Charts))
	for _, k := range r.Charts {
		present[k] = true
	}
	for _, k := range types.ChartKinds {
		charts.Rows = append(charts.Rows, []string{string(k), fmt.Sprint(present[k])})
	}
	sections = append(sections, charts)

	if len(r.SavedCharts) > 0 {
		saved := render.Section{Title: "Saved"}
		for _, p := range r.SavedCharts {
			saved.Rows = append(saved.Rows, []string{p})
		}
		sections = append(sections, saved)
	}
	sections = append(sections, inputSections(r.Inputs)...)
	if r.Stats != nil {
		sections = append(sections, r.Stats.section())
	}
	return sections
}

// StatsView is the rendered form of client metrics.
type StatsView struct {
	SubmitSuccess   int64            `json:"submit_success" yaml:"submit_success"`
	SubmitFailure   int64            `json:"submit_failure" yaml:"submit_failure"`
	StatusChecks    int64            `json:"status_checks" yaml:"status_checks"`
	TransientErrors int64            `json:"transient_errors" yaml:"transient_errors"`
	Terminal        map[string]int64 `json:"terminal" yaml:"terminal"`
	Exhaustions     int64            `json:"exhaustions" yaml:"exhaustions"`
	HydrateSuccess  int64            `json:"hydrate_success" yaml:"hydrate_success"`
	HydrateFailure  int64            `json:"hydrate_failure" yaml:"hydrate_failure"`
	ArtifactMisses  map[string]int64 `json:"artifact_misses" yaml:"artifact_misses"`
	StaleDropped    int64            `json:"stale_dropped" yaml:"stale_dropped"`
	ExportSuccess   int64            `json:"export_success" yaml:"export_success"`
	ExportFailure   int64            `json:"export_failure" yaml:"export_failure"`
	NotifySuccess   int64            `json:"notify_success" yaml:"notify_success"`
	NotifyFailure   int64            `json:"notify_failure" yaml:"notify_failure"`
}

func newStatsView(s metrics.Snapshot) *StatsView {
	return &StatsView{
		SubmitSuccess:   s.SubmitSuccess,
		SubmitFailure:   s.SubmitFailure,
		StatusChecks:    s.StatusChecks,
		TransientErrors: s.TransientErrors,
		Terminal:        s.TerminalByStatus,
		Exhaustions:     s.Exhaustions,
		HydrateSuccess:  s.HydrateSuccess,
		HydrateFailure:  s.HydrateFailure,
		ArtifactMisses:  s.ArtifactMisses,
		StaleDropped:    s.StaleEventsDrops,
		ExportSuccess:   s.ExportSuccess,
		ExportFailure:   s.ExportFailure,
		NotifySuccess:   s.NotifySuccess,
		NotifyFailure:   s.NotifyFailure,
	}
}

func (v *StatsView) section() render.Section {
	return render.Section{
		Title:   "Stats",
		Headers: []string{"METRIC", "VALUE"},
		Rows: [][]string{
			{"submissions ok", fmt.Sprint(v.SubmitSuccess)},
			{"submissions failed", fmt.Sprint(v.SubmitFailure)},
			{"status checks", fmt.Sprint(v.StatusChecks)},
			{"transient errors", fmt.Sprint(v.TransientErrors)},
			{"exhaustions", fmt.Sprint(v.Exhaustions)},
			{"hydrations ok", fmt.Sprint(v.HydrateSuccess)},
			{"hydrations failed", fmt.Sprint(v.HydrateFailure)},
			{"stale events dropped", fmt.Sprint(v.StaleDropped)},
			{"exports ok", fmt.Sprint(v.ExportSuccess)},
			{"exports failed", fmt.Sprint(v.ExportFailure)},
			{"notifications ok", fmt.Sprint(v.NotifySuccess)},
			{"notifications failed", fmt.Sprint(v.NotifyFailure)},
		},
	}
}

func conversationSection(messages []types.Message) render.Section {
	sec := render.Section{Title: "Conversation", Headers: []string{"SPEAKER", "QUERY", "TEXT"}}
	for _, m := range messages {
		sec.Rows = append(sec.Rows, []string{string(m.Speaker), m.QueryID, oneLine(m.Text)})
	}
	return sec
}

func inputSections(tables []inputs.Table) []render.Section {
	sections := make([]render.Section, 0, len(tables))
	for _, t := range tables {
		sections = append(sections, render.Section{
			Title:   t.Title,
			Headers: upper(t.Headers),
			Rows:    t.Rows,
		})
	}
	return sections
}

func upper(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToUpper(s)
	}
	return out
}

// oneLine collapses whitespace so multi-line text fits a table cell.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// submitWatcher records the error of a failed submission.
type submitWatcher struct {
	runtime.EffectRunner
	mu  sync.Mutex
	err error
}

func (w *submitWatcher) Run(ctx context.Context, eff runtime.Effect) runtime.Event {
	ev := w.EffectRunner.Run(ctx, eff)
	if s, ok := ev.(runtime.Submitted); ok && s.Err != nil {
		w.mu.Lock()
		w.err = s.Err
		w.mu.Unlock()
	}
	return ev
}

func (w *submitWatcher) submitErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func askAction(c *cli.Context) error {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return cli.Exit("message required", runtime.ExitCodeUsage)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError(err)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return usageError(err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, cfg, c.App.ErrWriter)
	if err != nil {
		return usageError(err)
	}
	defer s.close()

	orch, err := s.orchestrator("")
	if err != nil {
		return usageError(err)
	}
	exec, err := s.executor()
	if err != nil {
		return usageError(err)
	}
	runner := &submitWatcher{EffectRunner: exec}
	loop := runtime.NewLoop(orch, runner)

	if err := loop.Submit(ctx, text); err != nil {
		return fmt.Errorf("ask interrupted: %w", err)
	}

	snap := orch.Snapshot()
	resp := AskResponse{
		SessionID: snap.Session.SessionID,
		QueryID:   snap.Session.CurrentQueryID,
		Outcome:   snap.Outcome,
		Status:    snap.Status,
		Attempts:  snap.Attempt,
		Messages:  snap.Messages,
	}
	if snap.Bundle != nil {
		for _, kind := range types.ChartKinds {
			if _, ok := snap.Bundle.Chart(kind); ok {
				resp.Charts = append(resp.Charts, kind)
			}
		}
		tables, err := inputs.Tables(snap.Bundle.Inputs)
		if err != nil {
			s.logger.Warn("inputs not decodable", map[string]any{"error": err.Error()})
		}
		resp.Inputs = tables

		if dir := c.String("charts-dir"); dir != "" {
			resp.SavedCharts, err = hydrate.SaveCharts(dir, snap.Bundle)
			if err != nil {
				return cli.Exit(err.Error(), runtime.ExitCodeUsage)
			}
		}
	}
	if c.Bool("stats") {
		resp.Stats = newStatsView(s.collector.Snapshot())
	}

	if err := r.Render(resp); err != nil {
		return err
	}

	code := askExitCode(snap, runner.submitErr())
	if code == runtime.ExitCodeOK {
		return nil
	}
	if isStderrTTY() {
		fmt.Fprintf(os.Stderr, "query ended: %s\n", describeFailure(snap, runner.submitErr()))
	}
	return cli.Exit("", code)
}

// askExitCode maps the end state of an ask to a process exit code.
// A completed query whose results could not be loaded is a failure.
func askExitCode(snap runtime.Snapshot, submitErr error) int {
	if submitErr != nil {
		return exitCodeFor(submitErr)
	}
	if snap.Outcome == runtime.OutcomeDone && snap.Bundle == nil {
		return runtime.ExitCodeQueryFailed
	}
	if snap.Outcome == "" {
		return runtime.ExitCodeQueryFailed
	}
	return snap.Outcome.ExitCode()
}

func describeFailure(snap runtime.Snapshot, submitErr error) string {
	switch {
	case submitErr != nil:
		return "submission failed: " + submitErr.Error()
	case snap.Outcome == runtime.OutcomeDone:
		return "results could not be loaded"
	default:
		return string(snap.Outcome)
	}
}

// isStderrTTY returns true if stderr is a TTY.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
