package runner

import "fmt"

// Outcome is the terminal state of one scenario run. Failures are data, not
// panics: a future multi-scenario runner can collect them in one pass.
type Outcome int

const (
	// OutcomePassed means every assertion in the scenario held.
	OutcomePassed Outcome = iota
	// OutcomeFailed means an assertion did not hold; Result.Reason names the
	// expected-vs-actual mismatch.
	OutcomeFailed
	// OutcomeNotImplemented means the scenario exists in the catalog but the
	// harness has no logic for it yet. This is an explicit stub state that
	// documents the compliance matrix's coverage gaps; it is neither a pass
	// nor a fail.
	OutcomeNotImplemented
	// OutcomeNotApplicable means the scenario requires a transport this
	// runner does not speak (http_only on the stdio runner).
	OutcomeNotApplicable
)

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeFailed:
		return "failed"
	case OutcomeNotImplemented:
		return "not implemented"
	case OutcomeNotApplicable:
		return "not applicable"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result pairs an outcome with its human-readable reason.
type Result struct {
	Outcome Outcome
	Reason  string
}

func passed() Result {
	return Result{Outcome: OutcomePassed}
}

func failedf(format string, args ...any) Result {
	return Result{Outcome: OutcomeFailed, Reason: fmt.Sprintf(format, args...)}
}
