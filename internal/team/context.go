// Package team implements the debugging team: role descriptors, the
// hand-off router, termination evaluation, marker extraction, and the
// run driver that sequences role turns into a result.
package team

import (
	"time"

	"github.com/google/uuid"
)

// PatchRecord is one proposed patch extracted from a role's output.
type PatchRecord struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TestResults is the most recent extracted test outcome.
type TestResults struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskContext accumulates structured facts extracted from the
// conversation. It is a passive record: only the run driver mutates it,
// and only during extraction.
type TaskContext struct {
	TaskID          string        `json:"task_id"`
	BugReport       string        `json:"bug_report"`
	Plan            []string      `json:"plan,omitempty"`
	LocatedFiles    []string      `json:"located_files,omitempty"`
	ProposedPatches []PatchRecord `json:"proposed_patches,omitempty"`
	TestResults     *TestResults  `json:"test_results,omitempty"`
	Critique        string        `json:"critique,omitempty"`
	Iteration       int           `json:"iteration"`
	MaxIterations   int           `json:"max_iterations"`
}

// NewTaskContext creates a context for one run. Extra carries optional
// caller-provided seed state (located files, a prior plan).
func NewTaskContext(bugReport string, maxIterations int, extra map[string]interface{}) *TaskContext {
	tc := &TaskContext{
		TaskID:        uuid.New().String(),
		BugReport:     bugReport,
		MaxIterations: maxIterations,
	}
	for key, value := range extra {
		switch key {
		case "plan":
			tc.Plan = toStringSlice(value)
		case "located_files":
			tc.LocatedFiles = toStringSlice(value)
		case "critique":
			if s, ok := value.(string); ok {
				tc.Critique = s
			}
		}
	}
	return tc
}

// Snapshot returns a deep copy suitable for embedding in a result.
func (tc *TaskContext) Snapshot() *TaskContext {
	snap := *tc
	snap.Plan = append([]string(nil), tc.Plan...)
	snap.LocatedFiles = append([]string(nil), tc.LocatedFiles...)
	snap.ProposedPatches = append([]PatchRecord(nil), tc.ProposedPatches...)
	if tc.TestResults != nil {
		tr := *tc.TestResults
		snap.TestResults = &tr
	}
	return &snap
}

func toStringSlice(v interface{}) []string {
	switch vals := v.(type) {
	case []string:
		return append([]string(nil), vals...)
	case []interface{}:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
