package team

import "strings"

// StopReason identifies which terminal condition ended a run.
type StopReason string

const (
	// StopMaxRounds means the round limit was reached; inconclusive.
	StopMaxRounds StopReason = "max_rounds"

	// StopTaskComplete means the TASK_COMPLETE marker appeared; success.
	StopTaskComplete StopReason = "task_complete"

	// StopTaskFailed means the TASK_FAILED marker appeared; failure.
	StopTaskFailed StopReason = "task_failed"

	// StopHumanEscalation means a hand-off targeted the human sentinel;
	// inconclusive, requires external action.
	StopHumanEscalation StopReason = "human_escalation"
)

// Conclusive reports whether the run reached a definite outcome.
// Max-rounds and human-escalation stops are inconclusive.
func (r StopReason) Conclusive() bool {
	return r == StopTaskComplete || r == StopTaskFailed
}

// Condition is one first-class termination condition. Check inspects
// the turn just produced and the round count after it.
type Condition interface {
	Check(turn Turn, round int) (StopReason, bool)
}

// Turn is the outcome of one role acting: its output message and the
// hand-off target its output designated (empty when none).
type Turn struct {
	Message Message
	Handoff string
}

// markerCondition stops when a marker substring appears in the turn's
// output.
type markerCondition struct {
	marker string
	reason StopReason
}

func (c markerCondition) Check(turn Turn, round int) (StopReason, bool) {
	if strings.Contains(turn.Message.Content, c.marker) {
		return c.reason, true
	}
	return "", false
}

// maxRoundsCondition stops when the round count reaches the bound.
type maxRoundsCondition struct {
	max int
}

func (c maxRoundsCondition) Check(turn Turn, round int) (StopReason, bool) {
	if round >= c.max {
		return StopMaxRounds, true
	}
	return "", false
}

// escalationCondition stops when the hand-off targets the human
// sentinel.
type escalationCondition struct{}

func (c escalationCondition) Check(turn Turn, round int) (StopReason, bool) {
	if turn.Handoff == HumanTarget {
		return StopHumanEscalation, true
	}
	return "", false
}

// Evaluator runs the termination conditions after every turn. The
// first satisfied condition wins. TASK_COMPLETE is checked before
// TASK_FAILED, so a message carrying both stops as a success.
type Evaluator struct {
	conditions []Condition
}

// NewEvaluator builds the four standard conditions for a run.
func NewEvaluator(maxRounds int) *Evaluator {
	return &Evaluator{
		conditions: []Condition{
			markerCondition{marker: MarkerComplete, reason: StopTaskComplete},
			markerCondition{marker: MarkerFailed, reason: StopTaskFailed},
			escalationCondition{},
			maxRoundsCondition{max: maxRounds},
		},
	}
}

// Evaluate returns the stop reason for the turn, or false to continue.
func (e *Evaluator) Evaluate(turn Turn, round int) (StopReason, bool) {
	for _, c := range e.conditions {
		if reason, stop := c.Check(turn, round); stop {
			return reason, true
		}
	}
	return "", false
}
