package team

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHandoff(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"simple directive", "done here.\nHANDOFF: coder", "coder"},
		{"uppercase target normalized", "HANDOFF: Coder", "coder"},
		{"leading whitespace", "  HANDOFF: planner", "planner"},
		{"human sentinel", "HANDOFF: human", "human"},
		{"no directive", "just some analysis", ""},
		{"mid-line mention is not a directive", "we could HANDOFF: later", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseHandoff(tt.content))
		})
	}
}

func TestHandoffRouter(t *testing.T) {
	role := &Role{Name: "coder", Handoffs: []string{"executor", "locator"}}
	router := HandoffRouter{}

	next, err := router.Next(role, turn("HANDOFF: locator", "locator"))
	require.NoError(t, err)
	assert.Equal(t, "locator", next)

	// no directive falls back to first declared target
	next, err = router.Next(role, turn("no directive", ""))
	require.NoError(t, err)
	assert.Equal(t, "executor", next)

	// undeclared target falls back too
	next, err = router.Next(role, turn("HANDOFF: reviewer", "reviewer"))
	require.NoError(t, err)
	assert.Equal(t, "executor", next)
}

func TestHandoffRouter_NoTargets(t *testing.T) {
	role := &Role{Name: "stranded"}
	_, err := router(t).Next(role, turn("", ""))
	require.Error(t, err)
}

func router(t *testing.T) HandoffRouter {
	t.Helper()
	return HandoffRouter{}
}

func TestRoundRobinRouter(t *testing.T) {
	order := []string{"planner", "locator", "coder", "executor"}
	r := NewRoundRobinRouter(order)

	// ignores the output's hand-off directive
	next, err := r.Next(&Role{Name: "planner"}, turn("HANDOFF: executor", "executor"))
	require.NoError(t, err)
	assert.Equal(t, "locator", next)

	// wraps around
	next, err = r.Next(&Role{Name: "executor"}, turn("", ""))
	require.NoError(t, err)
	assert.Equal(t, "planner", next)
}

func TestRoundRobinRouter_UnknownRole(t *testing.T) {
	r := NewRoundRobinRouter([]string{"planner"})
	_, err := r.Next(&Role{Name: "ghost"}, turn("", ""))
	require.Error(t, err)
}
