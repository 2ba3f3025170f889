package team

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlan(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "dash items",
			content: "PLAN:\n- step one\n- step two",
			want:    []string{"step one", "step two"},
		},
		{
			name:    "numbered items",
			content: "Here is my plan.\nPLAN:\n1. reproduce the bug\n2. write a failing test\n3. fix it",
			want:    []string{"reproduce the bug", "write a failing test", "fix it"},
		},
		{
			name:    "star items",
			content: "PLAN:\n* first\n* second",
			want:    []string{"first", "second"},
		},
		{
			name:    "stops at non-indented non-list line",
			content: "PLAN:\n- step one\nConclusion follows here\n- not collected",
			want:    []string{"step one"},
		},
		{
			name:    "blank lines are skipped",
			content: "PLAN:\n\n- step one\n\n- step two",
			want:    []string{"step one", "step two"},
		},
		{
			name:    "no marker",
			content: "- step one\n- step two",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractPlan(tt.content))
		})
	}
}

func TestExtract_MarkerOrder(t *testing.T) {
	// A single message carrying several markers fires each extractor
	// exactly once.
	tc := NewTaskContext("bug", 10, nil)
	now := time.Now()
	content := "PLAN:\n- step one\nPATCH: change the operand\nTEST_RESULTS: 3 passed"

	extract(tc, content, now)

	assert.Equal(t, []string{"step one"}, tc.Plan)
	require.Len(t, tc.ProposedPatches, 1)
	assert.Equal(t, content, tc.ProposedPatches[0].Content)
	require.NotNil(t, tc.TestResults)
	assert.Equal(t, now, tc.TestResults.Timestamp)
}

func TestExtract_PatchAppendOrder(t *testing.T) {
	tc := NewTaskContext("bug", 10, nil)
	extract(tc, "PATCH: first", time.Now())
	extract(tc, "PATCH: second", time.Now())

	require.Len(t, tc.ProposedPatches, 2)
	assert.Equal(t, "PATCH: first", tc.ProposedPatches[0].Content)
	assert.Equal(t, "PATCH: second", tc.ProposedPatches[1].Content)
}

func TestExtract_PlanOverwrite(t *testing.T) {
	tc := NewTaskContext("bug", 10, nil)
	extract(tc, "PLAN:\n- old step", time.Now())
	extract(tc, "PLAN:\n- new step one\n- new step two", time.Now())

	assert.Equal(t, []string{"new step one", "new step two"}, tc.Plan)
}

func TestExtract_TestResultsOverwrite(t *testing.T) {
	tc := NewTaskContext("bug", 10, nil)
	extract(tc, "TEST_RESULTS: 1 failed", time.Now())
	extract(tc, "TEST_RESULTS: 3 passed", time.Now())

	require.NotNil(t, tc.TestResults)
	assert.Contains(t, tc.TestResults.Content, "3 passed")
}

func TestExtract_IrrelevantMessageIgnored(t *testing.T) {
	tc := NewTaskContext("bug", 10, nil)
	extract(tc, "just thinking out loud", time.Now())

	assert.Empty(t, tc.Plan)
	assert.Empty(t, tc.ProposedPatches)
	assert.Nil(t, tc.TestResults)
}

func TestExtractSolution(t *testing.T) {
	transcript := []Message{
		{Role: "planner", Content: "PLAN:\n- fix it"},
		{Role: "coder", Content: "PATCH: use str(x)"},
		{Role: "coder", Content: "SOLUTION: cast before concatenation"},
		{Role: "executor", Content: "TEST_RESULTS: all green"},
	}

	sol := extractSolution(transcript, time.Now())
	require.NotNil(t, sol)
	assert.Equal(t, "Combined solution from agent team", sol.Description)
	require.Len(t, sol.Patches, 2)
	assert.Contains(t, sol.Patches[0], "PATCH:")
	assert.Contains(t, sol.Patches[1], "SOLUTION:")
}

func TestExtractSolution_MessageCountedOnce(t *testing.T) {
	// A message containing several solution markers contributes once.
	transcript := []Message{
		{Role: "coder", Content: "PATCH: x\nFIX: y\nSOLUTION: z"},
	}
	sol := extractSolution(transcript, time.Now())
	assert.Len(t, sol.Patches, 1)
}

func TestTaskContext_Snapshot(t *testing.T) {
	tc := NewTaskContext("bug", 5, map[string]interface{}{
		"located_files": []interface{}{"a.go", "b.go"},
	})
	tc.Plan = []string{"one"}

	snap := tc.Snapshot()
	snap.Plan[0] = "mutated"
	snap.LocatedFiles[0] = "mutated"

	assert.Equal(t, "one", tc.Plan[0])
	assert.Equal(t, "a.go", tc.LocatedFiles[0])
	assert.Equal(t, tc.TaskID, snap.TaskID)
}
