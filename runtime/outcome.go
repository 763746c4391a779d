package runtime

import (
	"errors"
	"fmt"

	"github.com/pithecene-io/plandesk/poll"
	"github.com/pithecene-io/plandesk/service"
	"github.com/pithecene-io/plandesk/types"
)

// Outcome is how a poll cycle ended.
type Outcome string

// Outcome constants.
const (
	OutcomeDone        Outcome = "done"
	OutcomeFailed      Outcome = "failed"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeExhausted   Outcome = "exhausted"
	OutcomeUnreachable Outcome = "unreachable"
)

// Exit codes for headless commands.
const (
	ExitCodeOK          = 0 // query done, results hydrated
	ExitCodeUsage       = 1 // invalid arguments or configuration
	ExitCodeQueryFailed = 2 // failed, timed out or exhausted
	ExitCodeUnreachable = 3 // service could not be reached
)

// DetermineOutcome maps the final step of a poll cycle to an outcome.
//
//   - DecisionHydrate: done
//   - DecisionReport: failed or timeout
//   - DecisionExhausted after a transport error: unreachable
//   - DecisionExhausted otherwise: exhausted
func DetermineOutcome(step poll.Step) Outcome {
	switch step.Decision {
	case poll.DecisionHydrate:
		return OutcomeDone
	case poll.DecisionReport:
		if step.Status == types.StatusTimeout {
			return OutcomeTimeout
		}
		return OutcomeFailed
	case poll.DecisionExhausted:
		if lostContact(step) {
			return OutcomeUnreachable
		}
		return OutcomeExhausted
	default:
		return ""
	}
}

// ExitCode maps an outcome to a process exit code.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeDone:
		return ExitCodeOK
	case OutcomeUnreachable:
		return ExitCodeUnreachable
	default:
		return ExitCodeQueryFailed
	}
}

// ExhaustedMessage is the conversation report for an exhausted cycle.
// A final transport failure is reported as lost contact; a query that was
// still running (or answered with an unknown status) is reported as
// unfinished.
func ExhaustedMessage(step poll.Step) string {
	if lostContact(step) {
		return fmt.Sprintf("Lost contact with the service after %d status checks: %v", step.Attempt, step.Err)
	}
	return fmt.Sprintf("No result after %d status checks. The query may still be running; select it later to load its results.", step.Attempt)
}

// lostContact reports whether the final check failed to get a usable
// answer from the service. An unknown status token is an answer.
func lostContact(step poll.Step) bool {
	return step.Transient && step.Err != nil && !errors.Is(step.Err, service.ErrUnknownStatus)
}
