package team

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func turn(content, handoff string) Turn {
	return Turn{Message: Message{Role: "executor", Content: content}, Handoff: handoff}
}

func TestEvaluator_TaskComplete(t *testing.T) {
	e := NewEvaluator(10)
	reason, stop := e.Evaluate(turn("all tests pass. TASK_COMPLETE", ""), 3)
	assert.True(t, stop)
	assert.Equal(t, StopTaskComplete, reason)
}

func TestEvaluator_TaskFailed(t *testing.T) {
	e := NewEvaluator(10)
	reason, stop := e.Evaluate(turn("cannot reproduce. TASK_FAILED", ""), 3)
	assert.True(t, stop)
	assert.Equal(t, StopTaskFailed, reason)
}

func TestEvaluator_CompleteTakesPrecedenceOverFailed(t *testing.T) {
	e := NewEvaluator(10)
	reason, stop := e.Evaluate(turn("TASK_FAILED earlier, but retried: TASK_COMPLETE", ""), 3)
	assert.True(t, stop)
	assert.Equal(t, StopTaskComplete, reason)
}

func TestEvaluator_HumanEscalation(t *testing.T) {
	e := NewEvaluator(10)
	reason, stop := e.Evaluate(turn("I need help. HANDOFF: human", HumanTarget), 3)
	assert.True(t, stop)
	assert.Equal(t, StopHumanEscalation, reason)
}

func TestEvaluator_MaxRounds(t *testing.T) {
	e := NewEvaluator(5)

	_, stop := e.Evaluate(turn("still working", ""), 4)
	assert.False(t, stop)

	reason, stop := e.Evaluate(turn("still working", ""), 5)
	assert.True(t, stop)
	assert.Equal(t, StopMaxRounds, reason)
}

func TestEvaluator_Continue(t *testing.T) {
	e := NewEvaluator(10)
	reason, stop := e.Evaluate(turn("handing to the coder. HANDOFF: coder", "coder"), 2)
	assert.False(t, stop)
	assert.Empty(t, reason)
}

func TestStopReason_Conclusive(t *testing.T) {
	assert.True(t, StopTaskComplete.Conclusive())
	assert.True(t, StopTaskFailed.Conclusive())
	assert.False(t, StopMaxRounds.Conclusive())
	assert.False(t, StopHumanEscalation.Conclusive())
}
