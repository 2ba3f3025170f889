package team

import (
	"fmt"
	"regexp"
	"strings"
)

// HumanTarget is the hand-off sentinel meaning "escalate to a human
// operator". It terminates the run.
const HumanTarget = "human"

// handoffDirectiveRe matches an explicit hand-off directive in role
// output, e.g. "HANDOFF: coder".
var handoffDirectiveRe = regexp.MustCompile(`(?m)^\s*HANDOFF:\s*(\S+)`)

// ParseHandoff returns the hand-off target designated in a role's
// output, or empty when the output carries no directive.
func ParseHandoff(content string) string {
	m := handoffDirectiveRe.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// Router selects the next role after a turn. It never terminates the
// run itself; termination is the evaluator's concern.
type Router interface {
	// Next returns the name of the role to act after current's turn.
	Next(current *Role, turn Turn) (string, error)
}

// HandoffRouter follows the acting role's explicit hand-off directive,
// validated against its declared targets. Without a directive, or with
// an undeclared target, it falls back to the role's first declared
// target.
type HandoffRouter struct{}

func (HandoffRouter) Next(current *Role, turn Turn) (string, error) {
	if len(current.Handoffs) == 0 {
		return "", fmt.Errorf("role %s has no hand-off targets", current.Name)
	}
	if turn.Handoff != "" {
		for _, target := range current.Handoffs {
			if target == turn.Handoff {
				return target, nil
			}
		}
	}
	return current.Handoffs[0], nil
}

// RoundRobinRouter cycles through the assembled roles in fixed order,
// ignoring any hand-off the output designates.
type RoundRobinRouter struct {
	order []string
}

// NewRoundRobinRouter creates a router over the assembled role order.
func NewRoundRobinRouter(order []string) *RoundRobinRouter {
	return &RoundRobinRouter{order: order}
}

func (r *RoundRobinRouter) Next(current *Role, turn Turn) (string, error) {
	for i, name := range r.order {
		if name == current.Name {
			return r.order[(i+1)%len(r.order)], nil
		}
	}
	return "", fmt.Errorf("role %s not in round-robin order", current.Name)
}
