package team

import (
	"strings"
	"time"
)

// Marker substrings recognized in role output. Matched as plain
// substrings, not structured tags.
const (
	MarkerPlan        = "PLAN:"
	MarkerPatch       = "PATCH:"
	MarkerTestResults = "TEST_RESULTS:"
	MarkerComplete    = "TASK_COMPLETE"
	MarkerFailed      = "TASK_FAILED"
)

// solutionMarkers mark messages that contribute to the extracted
// solution.
var solutionMarkers = []string{MarkerPatch, "FIX:", "SOLUTION:"}

// Message is one transcript entry.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Solution is the extracted outcome of a successful run.
type Solution struct {
	Description string    `json:"description"`
	Patches     []string  `json:"patches"`
	Timestamp   time.Time `json:"timestamp"`
}

// extract scans one message's content and updates the context. Each
// marker type fires at most once per message, in fixed order: plan,
// patch, test results. Terminal markers are the termination
// evaluator's concern, not extraction's.
func extract(tc *TaskContext, content string, now time.Time) {
	if strings.Contains(content, MarkerPlan) {
		if plan := extractPlan(content); len(plan) > 0 {
			tc.Plan = plan
		}
	}
	if strings.Contains(content, MarkerPatch) {
		tc.ProposedPatches = append(tc.ProposedPatches, PatchRecord{
			Content:   content,
			Timestamp: now,
		})
	}
	if strings.Contains(content, MarkerTestResults) {
		tc.TestResults = &TestResults{
			Content:   content,
			Timestamp: now,
		}
	}
}

// extractPlan collects list items following the PLAN: line. Items begin
// with "-", "*", or a numeric-dot prefix; collection stops at the first
// non-indented, non-list line.
func extractPlan(content string) []string {
	var plan []string
	inPlan := false
	for _, line := range strings.Split(content, "\n") {
		if !inPlan {
			if strings.Contains(line, MarkerPlan) {
				inPlan = true
			}
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isListItem(trimmed) {
			plan = append(plan, stripListPrefix(trimmed))
		} else if !strings.HasPrefix(line, " ") {
			break
		}
	}
	return plan
}

func isListItem(s string) bool {
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "*") {
		return true
	}
	// numeric-dot prefix: "1.", "12."
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i > 0 && i < len(s) && s[i] == '.'
}

func stripListPrefix(s string) string {
	return strings.TrimLeft(s, "-*0123456789. ")
}

// extractSolution combines every transcript message containing a
// solution marker into a single solution record.
func extractSolution(transcript []Message, now time.Time) *Solution {
	var patches []string
	for _, msg := range transcript {
		for _, marker := range solutionMarkers {
			if strings.Contains(msg.Content, marker) {
				patches = append(patches, msg.Content)
				break
			}
		}
	}
	return &Solution{
		Description: "Combined solution from agent team",
		Patches:     patches,
		Timestamp:   now,
	}
}
