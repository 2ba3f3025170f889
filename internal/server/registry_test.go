package server_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/debugd/internal/server"
	"github.com/fyrsmithlabs/debugd/internal/team"
)

func TestRegistry_Lifecycle(t *testing.T) {
	r := server.NewRegistry()

	created := r.Create("t1")
	assert.Equal(t, server.StatusPending, created.Status)

	r.SetProcessing("t1")
	task, err := r.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, server.StatusProcessing, task.Status)

	r.Complete("t1", &team.RunResult{TaskID: "t1", Success: true, StopReason: team.StopTaskComplete})
	task, err = r.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, server.StatusCompleted, task.Status)
	require.NotNil(t, task.Result)
	assert.True(t, task.Result.Success)
}

func TestRegistry_CompleteWithRunError(t *testing.T) {
	r := server.NewRegistry()
	r.Create("t1")

	r.Complete("t1", &team.RunResult{TaskID: "t1", Error: "model unavailable"})
	task, err := r.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, server.StatusFailed, task.Status)
	assert.Equal(t, "model unavailable", task.Error)
}

func TestRegistry_InconclusiveRunIsCompleted(t *testing.T) {
	r := server.NewRegistry()
	r.Create("t1")

	// a max-rounds stop carries no error and is a completed task record
	r.Complete("t1", &team.RunResult{TaskID: "t1", StopReason: team.StopMaxRounds})
	task, err := r.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, server.StatusCompleted, task.Status)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := server.NewRegistry()
	_, err := r.Get("nope")
	assert.ErrorIs(t, err, server.ErrTaskNotFound)
}

func TestRegistry_Count(t *testing.T) {
	r := server.NewRegistry()
	r.Create("a")
	r.Create("b")
	r.SetProcessing("b")
	r.Create("c")
	r.Fail("c", "boom")

	counts := r.Count()
	assert.Equal(t, 1, counts[server.StatusPending])
	assert.Equal(t, 1, counts[server.StatusProcessing])
	assert.Equal(t, 1, counts[server.StatusFailed])
}
