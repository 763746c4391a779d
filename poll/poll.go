// Package poll implements the bounded-attempt status polling state machine.
//
// A Machine tracks one query. It starts in PhasePolling with zero attempts.
// Each Begin authorises one status check and each Observe consumes the
// result of that check. Terminal statuses and attempt exhaustion are
// absorbing: once reached, the machine authorises nothing further.
//
// The machine is pure. It performs no I/O and owns no timers; the caller
// turns each Step into effects (waits, status checks, hydrations).
package poll

import (
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/plandesk/types"
)

// Default schedule.
const (
	DefaultInterval    = time.Second
	DefaultMaxAttempts = 300
)

// Config is the polling schedule.
type Config struct {
	// Interval is the fixed delay between status checks.
	Interval time.Duration
	// MaxAttempts caps the number of status checks per query.
	MaxAttempts int
}

// DefaultConfig returns the default schedule.
func DefaultConfig() Config {
	return Config{Interval: DefaultInterval, MaxAttempts: DefaultMaxAttempts}
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid poll config")

// Validate checks the schedule.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidConfig, c.Interval)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	return nil
}

// Phase is the machine's lifecycle phase.
type Phase int

// Phase constants.
const (
	PhasePolling Phase = iota
	PhaseTerminal
	PhaseExhausted
)

func (p Phase) String() string {
	switch p {
	case PhasePolling:
		return "polling"
	case PhaseTerminal:
		return "terminal"
	case PhaseExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Decision is what the caller must do after an observation.
type Decision int

// Decision constants.
const (
	// DecisionNone: nothing to do (absorbed or unexpected observation).
	DecisionNone Decision = iota
	// DecisionContinue: wait Step.Delay, then tick again.
	DecisionContinue
	// DecisionHydrate: the query is Done; fetch its results.
	DecisionHydrate
	// DecisionReport: the query failed or timed out server-side.
	DecisionReport
	// DecisionExhausted: the attempt cap was reached without a terminal status.
	DecisionExhausted
)

func (d Decision) String() string {
	switch d {
	case DecisionNone:
		return "none"
	case DecisionContinue:
		return "continue"
	case DecisionHydrate:
		return "hydrate"
	case DecisionReport:
		return "report"
	case DecisionExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Step is the outcome of one observation.
type Step struct {
	Decision Decision
	// Delay before the next tick; set only for DecisionContinue.
	Delay time.Duration
	// Status is the recognised status, empty for transient observations.
	Status types.QueryStatus
	// RefreshDialog requests a best-effort transcript refresh.
	RefreshDialog bool
	// Attempt is the number of checks performed so far.
	Attempt int
	// MaxAttempts is the configured cap.
	MaxAttempts int
	// Transient is true when this check failed or returned an unknown token.
	Transient bool
	// Err is the transport error of a transient check, if any.
	Err error
}

// Machine is the polling state for one query.
type Machine struct {
	key      types.QueryKey
	cfg      Config
	attempt  int
	phase    Phase
	status   types.QueryStatus
	awaiting bool
	lastErr  error
	lastBad  bool
}

// New creates a machine in PhasePolling with zero attempts.
// An invalid config is replaced by the default.
func New(key types.QueryKey, cfg Config) *Machine {
	if cfg.Validate() != nil {
		cfg = DefaultConfig()
	}
	return &Machine{key: key, cfg: cfg}
}

// Key returns the query this machine polls.
func (m *Machine) Key() types.QueryKey { return m.key }

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// Attempt returns the number of checks authorised so far.
func (m *Machine) Attempt() int { return m.attempt }

// MaxAttempts returns the cap.
func (m *Machine) MaxAttempts() int { return m.cfg.MaxAttempts }

// Status returns the last recognised status.
func (m *Machine) Status() types.QueryStatus { return m.status }

// LastError returns the transport error of the most recent check, if any.
func (m *Machine) LastError() error { return m.lastErr }

// LastTransient reports whether the most recent check was transient.
func (m *Machine) LastTransient() bool { return m.lastBad }

// Done reports whether the machine is absorbed.
func (m *Machine) Done() bool { return m.phase != PhasePolling }

// Begin authorises one status check and returns its attempt number.
// It refuses when absorbed, when a check is already outstanding, or when the
// cap has been reached.
func (m *Machine) Begin() (int, bool) {
	if m.phase != PhasePolling || m.awaiting || m.attempt >= m.cfg.MaxAttempts {
		return m.attempt, false
	}
	m.attempt++
	m.awaiting = true
	return m.attempt, true
}

// Observe consumes the result of the outstanding check.
// A non-nil err or an unrecognised status is a transient observation.
func (m *Machine) Observe(status types.QueryStatus, err error) Step {
	step := Step{Attempt: m.attempt, MaxAttempts: m.cfg.MaxAttempts}
	if m.phase != PhasePolling || !m.awaiting {
		step.Decision = DecisionNone
		return step
	}
	m.awaiting = false

	if err != nil || !(status.InProgress() || status.IsTerminal()) {
		m.lastErr = err
		m.lastBad = true
		step.Transient = true
		step.Err = err
		m.continueOrExhaust(&step)
		return step
	}

	m.lastErr = nil
	m.lastBad = false
	m.status = status
	step.Status = status

	switch status {
	case types.StatusDone:
		m.phase = PhaseTerminal
		step.Decision = DecisionHydrate
	case types.StatusFailed, types.StatusTimeout:
		m.phase = PhaseTerminal
		step.Decision = DecisionReport
	default:
		step.RefreshDialog = true
		m.continueOrExhaust(&step)
	}
	return step
}

func (m *Machine) continueOrExhaust(step *Step) {
	if m.attempt < m.cfg.MaxAttempts {
		step.Decision = DecisionContinue
		step.Delay = m.cfg.Interval
		return
	}
	m.phase = PhaseExhausted
	step.Decision = DecisionExhausted
}
