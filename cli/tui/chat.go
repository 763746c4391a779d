package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/plandesk/hydrate"
	"github.com/pithecene-io/plandesk/log"
	"github.com/pithecene-io/plandesk/metrics"
	"github.com/pithecene-io/plandesk/runtime"
	"github.com/pithecene-io/plandesk/types"
)

// Fixed rows around the two panes: header, status line, input, metrics
// boxes and help.
const chromeHeight = 2 + 1 + 1 + 4 + 1

// ReportSource fetches detail reports.
type ReportSource interface {
	DetailReport(ctx context.Context, key types.QueryKey) ([]byte, error)
}

// ReportStore keeps a copy of saved detail reports.
type ReportStore interface {
	PutReport(ctx context.Context, key types.QueryKey, data []byte) error
}

// ChatConfig wires a ChatModel.
type ChatConfig struct {
	// Orchestrator owns the conversation (required).
	Orchestrator *runtime.Orchestrator
	// Runner executes effects (required).
	Runner runtime.EffectRunner
	// Reports serves ctrl+r; nil disables report saving.
	Reports ReportSource
	// ReportStore additionally receives saved reports; optional.
	ReportStore ReportStore
	// Collector feeds the metrics footer; nil hides it.
	Collector *metrics.Collector
	// ChartsDir and ReportsDir receive saved files (default ".").
	ChartsDir  string
	ReportsDir string
	// Context bounds every effect (default context.Background).
	Context context.Context
	// Logger is the structured logger (default discards).
	Logger *log.Logger
}

// eventMsg carries the event produced by one effect.
type eventMsg struct {
	event runtime.Event
}

// savedMsg reports the result of a save command.
type savedMsg struct {
	what  string
	paths []string
	err   error
}

// ChatModel is the Bubble Tea model of the chat screen.
type ChatModel struct {
	orch        *runtime.Orchestrator
	runner      runtime.EffectRunner
	reports     ReportSource
	reportStore ReportStore
	collector   *metrics.Collector
	chartsDir   string
	reportsDir  string
	ctx         context.Context
	logger      *log.Logger

	input      textinput.Model
	transcript viewport.Model
	results    viewport.Model
	spinner    spinner.Model
	progress   progress.Model

	notice    string
	noticeErr bool
	shown     int

	width    int
	height   int
	quitting bool
}

// NewChatModel creates a chat model.
func NewChatModel(cfg ChatConfig) (ChatModel, error) {
	if cfg.Orchestrator == nil {
		return ChatModel{}, errors.New("orchestrator is required")
	}
	if cfg.Runner == nil {
		return ChatModel{}, errors.New("effect runner is required")
	}
	if cfg.ChartsDir == "" {
		cfg.ChartsDir = "."
	}
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = "."
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}

	input := textinput.New()
	input.Prompt = "❯ "
	input.Placeholder = "Ask about your retirement plan"
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = WarningStyle

	transcript := viewport.New(0, 0)
	transcript.MouseWheelEnabled = true
	transcript.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
	}

	m := ChatModel{
		orch:        cfg.Orchestrator,
		runner:      cfg.Runner,
		reports:     cfg.Reports,
		reportStore: cfg.ReportStore,
		collector:   cfg.Collector,
		chartsDir:   cfg.ChartsDir,
		reportsDir:  cfg.ReportsDir,
		ctx:         cfg.Context,
		logger:      cfg.Logger,
		input:       input,
		transcript:  transcript,
		results:     viewport.New(0, 0),
		spinner:     sp,
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	m.refresh(true)
	return m, nil
}

// Init implements tea.Model.
func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink)
}

// Update implements tea.Model.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refresh(false)
		return m, nil

	case eventMsg:
		if msg.event == nil {
			m.refresh(false)
			return m, nil
		}
		effects := m.orch.Handle(msg.event)
		m.refresh(m.orch.TakeScrollSignal())
		return m, m.run(effects)

	case savedMsg:
		m.setSaved(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.orch.Snapshot().Submitting || m.hasPending() {
			m.refresh(false)
		}
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Submit):
			return m.submit()
		case key.Matches(msg, keys.Prev):
			return m.selectAdjacent(-1)
		case key.Matches(msg, keys.Next):
			return m.selectAdjacent(1)
		case key.Matches(msg, keys.SaveCharts):
			return m, m.saveCharts()
		case key.Matches(msg, keys.SaveReport):
			return m, m.saveReport()
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.transcript, cmd = m.transcript.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m ChatModel) submit() (tea.Model, tea.Cmd) {
	effects, err := m.orch.Submit(m.input.Value())
	switch {
	case errors.Is(err, runtime.ErrEmptyQuery):
		return m, nil
	case err != nil:
		m.setNotice(err.Error(), true)
		return m, nil
	}
	m.input.Reset()
	m.notice = ""
	m.refresh(false)
	return m, m.run(effects)
}

func (m ChatModel) selectAdjacent(delta int) (tea.Model, tea.Cmd) {
	effects, err := m.orch.SelectAdjacent(delta)
	if err != nil {
		m.setNotice(err.Error(), true)
		return m, nil
	}
	m.refresh(false)
	return m, m.run(effects)
}

// run turns effects into commands. Each command blocks for the duration of
// its effect and returns the resulting event as an eventMsg.
func (m ChatModel) run(effects []runtime.Effect) tea.Cmd {
	if len(effects) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(effects))
	for _, eff := range effects {
		cmds = append(cmds, runEffect(m.ctx, m.runner, eff))
	}
	return tea.Batch(cmds...)
}

func runEffect(ctx context.Context, runner runtime.EffectRunner, eff runtime.Effect) tea.Cmd {
	return func() tea.Msg {
		return eventMsg{event: runner.Run(ctx, eff)}
	}
}

func (m ChatModel) saveCharts() tea.Cmd {
	bundle := m.orch.Snapshot().Bundle
	if bundle == nil || len(bundle.Charts) == 0 {
		return func() tea.Msg {
			return savedMsg{what: "charts", err: errors.New("no charts to save")}
		}
	}
	dir := m.chartsDir
	return func() tea.Msg {
		paths, err := hydrate.SaveCharts(dir, bundle)
		return savedMsg{what: "charts", paths: paths, err: err}
	}
}

func (m ChatModel) saveReport() tea.Cmd {
	key := m.orch.Session().SelectedKey()
	if m.reports == nil || key.QueryID == "" || key.SessionID == "" {
		return func() tea.Msg {
			return savedMsg{what: "report", err: errors.New("no query selected")}
		}
	}
	ctx, reports, store, dir, logger := m.ctx, m.reports, m.reportStore, m.reportsDir, m.logger
	return func() tea.Msg {
		data, err := reports.DetailReport(ctx, key)
		if err != nil {
			return savedMsg{what: "report", err: err}
		}
		path, err := hydrate.SaveReport(dir, key, data)
		if err != nil {
			return savedMsg{what: "report", err: err}
		}
		if store != nil {
			if err := store.PutReport(ctx, key, data); err != nil {
				logger.WithQuery(key).Warn("report export failed", map[string]any{"error": err.Error()})
			}
		}
		return savedMsg{what: "report", paths: []string{path}}
	}
}

func (m *ChatModel) setSaved(msg savedMsg) {
	if msg.err != nil {
		m.setNotice(fmt.Sprintf("Save %s failed: %v", msg.what, msg.err), true)
		return
	}
	m.setNotice(fmt.Sprintf("Saved %s: %s", msg.what, strings.Join(msg.paths, ", ")), false)
}

func (m *ChatModel) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m *ChatModel) hasPending() bool {
	for _, msg := range m.orch.Snapshot().Messages {
		if msg.Pending {
			return true
		}
	}
	return false
}

func (m *ChatModel) paneWidths() (left, right int) {
	if m.width <= 0 {
		return 0, 0
	}
	left = m.width * 11 / 20
	return left, m.width - left
}

func (m *ChatModel) resize() {
	left, right := m.paneWidths()
	body := max(m.height-chromeHeight, 3)

	// BoxStyle adds a border and one column of padding on each side.
	m.transcript.Width = max(left-4, 1)
	m.transcript.Height = max(body-2, 1)
	m.results.Width = max(right-4, 1)
	m.results.Height = max(body-2, 1)
	m.input.Width = max(m.width-4, 1)
	m.progress.Width = max(m.width/3, 10)
}

// refresh re-renders both panes. The transcript jumps to the bottom when
// scroll is set or new messages arrived.
func (m *ChatModel) refresh(scroll bool) {
	snap := m.orch.Snapshot()
	m.transcript.SetContent(m.renderTranscript(snap))
	if scroll || len(snap.Messages) > m.shown {
		m.transcript.GotoBottom()
	}
	m.shown = len(snap.Messages)
	m.results.SetContent(renderResults(snap))
}

func (m *ChatModel) renderTranscript(snap runtime.Snapshot) string {
	width := m.transcript.Width
	wrap := lipgloss.NewStyle()
	if width > 0 {
		wrap = wrap.Width(width)
	}

	blocks := make([]string, 0, len(snap.Messages))
	for _, msg := range snap.Messages {
		var b strings.Builder
		if msg.Speaker == types.SpeakerUser {
			b.WriteString(UserStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(wrap.Render(msg.Text))
			blocks = append(blocks, b.String())
			continue
		}

		b.WriteString(AgentStyle.Render("Planner"))
		if msg.QueryID != "" {
			marker := " · " + msg.QueryID
			if msg.QueryID == snap.Session.SelectedQueryID {
				marker += " ◂"
			}
			b.WriteString(HelpStyle.Render(marker))
		}
		b.WriteString("\n")
		if msg.Pending {
			b.WriteString(PendingStyle.Render(m.spinner.View() + " " + msg.Text))
		} else {
			b.WriteString(wrap.Render(RenderMarkdown(msg.Text)))
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// View implements tea.Model.
func (m ChatModel) View() string {
	if m.quitting {
		return ""
	}
	snap := m.orch.Snapshot()

	var b strings.Builder
	b.WriteString(m.renderHeader(snap))
	b.WriteString("\n\n")

	left, right := m.paneWidths()
	transcript := BoxStyle.Width(max(left-2, 1)).Render(m.transcript.View())
	results := BoxStyle.Width(max(right-2, 1)).Render(m.results.View())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, transcript, results))
	b.WriteString("\n")

	b.WriteString(m.renderStatus(snap))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.collector != nil {
		b.WriteString(renderMetrics(m.collector.Snapshot()))
		b.WriteString("\n")
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m ChatModel) renderHeader(snap runtime.Snapshot) string {
	header := TitleStyle.UnsetMarginBottom().Render("plandesk")
	if snap.Session.SessionID != "" {
		header += HelpStyle.Render("  session " + snap.Session.SessionID)
	}
	return header
}

// renderStatus shows submission and polling progress, otherwise the last
// notice or cycle outcome.
func (m ChatModel) renderStatus(snap runtime.Snapshot) string {
	switch {
	case snap.Submitting:
		return m.spinner.View() + " " + WarningStyle.Render("Submitting...")
	case snap.Polling && snap.Status.InProgress():
		ratio := 0.0
		if snap.MaxAttempts > 0 {
			ratio = float64(snap.Attempt) / float64(snap.MaxAttempts)
		}
		return fmt.Sprintf("%s %s %s %s",
			m.spinner.View(),
			StatusStyle(snap.Status).Render(string(snap.Status)),
			m.progress.ViewAs(min(ratio, 1)),
			HelpStyle.Render(fmt.Sprintf("check %d/%d", snap.Attempt, snap.MaxAttempts)))
	case snap.Polling:
		return m.spinner.View() + " " + HelpStyle.Render("Waiting for status...")
	case m.notice != "":
		if m.noticeErr {
			return ErrorStyle.Render(m.notice)
		}
		return SuccessStyle.Render(m.notice)
	case snap.Outcome != "":
		return OutcomeStyle(snap.Outcome).Render("Last query: " + string(snap.Outcome))
	default:
		return ""
	}
}

func (m ChatModel) renderHelp() string {
	parts := make([]string, 0, len(keys.help()))
	for _, b := range keys.help() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return HelpStyle.Render(strings.Join(parts, " • "))
}

// OutcomeStyle returns a style for a poll cycle outcome.
func OutcomeStyle(o runtime.Outcome) lipgloss.Style {
	switch o {
	case runtime.OutcomeDone:
		return SuccessStyle
	case runtime.OutcomeExhausted:
		return WarningStyle
	default:
		return ErrorStyle
	}
}

// RunChat runs the chat TUI until the user quits.
func RunChat(cfg ChatConfig) error {
	model, err := NewChatModel(cfg)
	if err != nil {
		return err
	}
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}
