package team

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/debugd/internal/config"
	"github.com/fyrsmithlabs/debugd/internal/memory"
	"github.com/fyrsmithlabs/debugd/internal/metrics"
)

var tracer = otel.Tracer("debugd.team")

// RunResult is the outcome of one debugging run.
type RunResult struct {
	TaskID     string       `json:"task_id"`
	Success    bool         `json:"success"`
	StopReason StopReason   `json:"stop_reason,omitempty"`
	Solution   *Solution    `json:"solution,omitempty"`
	Transcript []Message    `json:"transcript"`
	Context    *TaskContext `json:"context"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	Duration   float64      `json:"duration_seconds"`
}

// Event is one streamed run lifecycle event.
type Event struct {
	Type    string     `json:"type"` // task_created | turn | task_completed | error
	TaskID  string     `json:"task_id"`
	Role    string     `json:"role,omitempty"`
	Content string     `json:"content,omitempty"`
	Round   int        `json:"round,omitempty"`
	Result  *RunResult `json:"result,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// Event types.
const (
	EventTaskCreated   = "task_created"
	EventTurn          = "turn"
	EventTaskCompleted = "task_completed"
	EventError         = "error"
)

// Team drives a debugging run: it sequences role turns under the
// configured router, extracts structured state, evaluates termination,
// and bridges to solution memory.
type Team struct {
	cfg    config.TeamConfig
	roles  []*Role
	byName map[string]*Role
	router Router
	bridge *memory.Bridge
	logger *zap.Logger
}

// New assembles a team over the given roles. Unknown coordination
// modes and empty role sets are configuration errors.
func New(cfg config.TeamConfig, roles []*Role, bridge *memory.Bridge, logger *zap.Logger) (*Team, error) {
	if len(roles) == 0 {
		return nil, fmt.Errorf("team requires at least one role")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	byName := make(map[string]*Role, len(roles))
	order := make([]string, 0, len(roles))
	for _, r := range roles {
		if _, dup := byName[r.Name]; dup {
			return nil, fmt.Errorf("duplicate role name: %s", r.Name)
		}
		byName[r.Name] = r
		order = append(order, r.Name)
	}
	for _, r := range roles {
		for _, target := range r.Handoffs {
			if target == HumanTarget {
				continue
			}
			if _, ok := byName[target]; !ok {
				return nil, fmt.Errorf("role %s declares absent hand-off target %s", r.Name, target)
			}
		}
	}

	var router Router
	switch cfg.CoordinationMode {
	case config.ModeHandoff:
		router = HandoffRouter{}
	case config.ModeRoundRobin:
		router = NewRoundRobinRouter(order)
	default:
		return nil, fmt.Errorf("unknown coordination mode: %s", cfg.CoordinationMode)
	}

	return &Team{
		cfg:    cfg,
		roles:  roles,
		byName: byName,
		router: router,
		bridge: bridge,
		logger: logger,
	}, nil
}

// Solve runs the team to completion in batch mode: extraction happens
// once over the full transcript at the end. Errors never propagate;
// they are embedded in the result.
func (t *Team) Solve(ctx context.Context, bugReport string, extra map[string]interface{}) *RunResult {
	return t.solve(ctx, bugReport, extra, false, nil)
}

// SolveStream runs the team in streaming mode, emitting lifecycle
// events as turns are produced. The channel is closed when the run
// ends.
func (t *Team) SolveStream(ctx context.Context, bugReport string, extra map[string]interface{}) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		emit := func(e Event) {
			select {
			case events <- e:
			case <-ctx.Done():
			}
		}
		result := t.solve(ctx, bugReport, extra, true, emit)
		if result.Error != "" && result.StopReason == "" {
			emit(Event{Type: EventError, TaskID: result.TaskID, Error: result.Error, Result: result})
			return
		}
		emit(Event{Type: EventTaskCompleted, TaskID: result.TaskID, Result: result})
	}()
	return events
}

func (t *Team) solve(ctx context.Context, bugReport string, extra map[string]interface{}, streaming bool, emit func(Event)) *RunResult {
	start := time.Now()
	tc := NewTaskContext(bugReport, t.cfg.MaxRounds, extra)

	ctx, span := tracer.Start(ctx, "Team.Solve")
	defer span.End()
	span.SetAttributes(
		attribute.String("task_id", tc.TaskID),
		attribute.String("mode", t.cfg.CoordinationMode),
	)

	metrics.ActiveTasks.Inc()
	defer metrics.ActiveTasks.Dec()

	t.logger.Info("run started",
		zap.String("task_id", tc.TaskID),
		zap.String("mode", t.cfg.CoordinationMode),
		zap.Int("max_rounds", t.cfg.MaxRounds),
	)
	if emit != nil {
		emit(Event{Type: EventTaskCreated, TaskID: tc.TaskID})
	}

	similar := t.bridge.SearchSimilar(ctx, bugReport)
	if len(similar) > 0 {
		t.logger.Info("found similar past solutions",
			zap.String("task_id", tc.TaskID),
			zap.Int("count", len(similar)),
		)
	}
	initial := composeInitialMessage(bugReport, tc.TaskID, similar)

	result := t.runLoop(ctx, tc, initial, streaming, emit)
	result.StartedAt = start
	result.Duration = time.Since(start).Seconds()

	status := "error"
	if result.StopReason != "" {
		status = string(result.StopReason)
	}
	metrics.TasksTotal.WithLabelValues(status).Inc()
	metrics.TaskDuration.WithLabelValues(status).Observe(result.Duration)

	if result.Error != "" {
		span.SetStatus(codes.Error, result.Error)
	} else {
		span.SetStatus(codes.Ok, string(result.StopReason))
	}

	if result.Success && result.Solution != nil {
		t.storeSolution(ctx, result)
	}

	t.logger.Info("run finished",
		zap.String("task_id", tc.TaskID),
		zap.Bool("success", result.Success),
		zap.String("stop_reason", string(result.StopReason)),
		zap.Int("rounds", result.Context.Iteration),
		zap.Float64("duration_s", result.Duration),
	)
	return result
}

// runLoop executes the turn loop. Any failure is caught and converted
// into a failed result; it never propagates.
func (t *Team) runLoop(ctx context.Context, tc *TaskContext, initial string, streaming bool, emit func(Event)) *RunResult {
	evaluator := NewEvaluator(tc.MaxIterations)
	transcript := []Message{{Role: "user", Content: initial, Timestamp: time.Now()}}
	current := t.roles[0]

	failure := func(err error) *RunResult {
		t.logger.Error("run aborted",
			zap.String("task_id", tc.TaskID),
			zap.String("role", current.Name),
			zap.Error(err),
		)
		return &RunResult{
			TaskID:     tc.TaskID,
			Success:    false,
			Transcript: transcript,
			Context:    tc.Snapshot(),
			Error:      err.Error(),
		}
	}

	var reason StopReason
	for {
		if err := ctx.Err(); err != nil {
			return failure(fmt.Errorf("run canceled: %w", err))
		}

		output, err := current.Act(ctx, transcript)
		if err != nil {
			metrics.RoleTurnsTotal.WithLabelValues(current.Name, "error").Inc()
			return failure(err)
		}
		metrics.RoleTurnsTotal.WithLabelValues(current.Name, "ok").Inc()

		msg := Message{Role: current.Name, Content: output, Timestamp: time.Now()}
		transcript = append(transcript, msg)
		tc.Iteration++

		if streaming {
			extract(tc, output, msg.Timestamp)
		}

		turn := Turn{Message: msg, Handoff: ParseHandoff(output)}
		if emit != nil {
			emit(Event{
				Type:    EventTurn,
				TaskID:  tc.TaskID,
				Role:    current.Name,
				Content: output,
				Round:   tc.Iteration,
			})
		}

		var stop bool
		reason, stop = evaluator.Evaluate(turn, tc.Iteration)
		if stop {
			break
		}

		nextName, err := t.router.Next(current, turn)
		if err != nil {
			return failure(err)
		}
		next, ok := t.byName[nextName]
		if !ok {
			return failure(fmt.Errorf("router selected absent role %s", nextName))
		}
		current = next
	}

	if !streaming {
		for _, msg := range transcript[1:] {
			extract(tc, msg.Content, msg.Timestamp)
		}
	}

	result := &RunResult{
		TaskID:     tc.TaskID,
		StopReason: reason,
		Success:    reason == StopTaskComplete,
		Transcript: transcript,
		Context:    tc.Snapshot(),
	}
	if result.Success {
		result.Solution = extractSolution(transcript, time.Now())
	}
	return result
}

func (t *Team) storeSolution(ctx context.Context, result *RunResult) {
	solution, err := json.MarshalIndent(result.Solution, "", "  ")
	if err != nil {
		t.logger.Warn("failed to encode solution", zap.Error(err))
		return
	}
	testPassed := result.Context.TestResults != nil && result.Success
	_ = t.bridge.StoreSolution(ctx, memory.Record{
		TaskID:         result.TaskID,
		BugReport:      result.Context.BugReport,
		Solution:       string(solution),
		Iterations:     result.Context.Iteration,
		PlanSteps:      len(result.Context.Plan),
		PatchesApplied: len(result.Context.ProposedPatches),
		TestPassed:     testPassed,
	})
}

// composeInitialMessage builds the prompt that seeds the run: the bug
// report, the task id, up to 3 similar past solutions, and the fixed
// instruction suffix.
func composeInitialMessage(bugReport, taskID string, similar []memory.Entry) string {
	message := fmt.Sprintf("\n## Bug Report\n%s\n\n## Task ID: %s\n", bugReport, taskID)

	if len(similar) > 0 {
		message += "\n## Similar Past Solutions\n"
		if len(similar) > 3 {
			similar = similar[:3]
		}
		for i, entry := range similar {
			message += fmt.Sprintf("\n### Solution %d (Similarity: %.2f)\n%s\n", i+1, entry.Score, entry.Content)
			if len(entry.Metadata) > 0 {
				if meta, err := json.MarshalIndent(entry.Metadata, "", "  "); err == nil {
					message += fmt.Sprintf("Context: %s\n", meta)
				}
			}
		}
	}

	message += "\n## Instructions\n"
	message += "Please analyze this bug report and work together to create a fix. "
	message += "Start by creating a detailed plan, then locate the relevant code, "
	message += "implement a fix, test it, and validate the solution."
	return message
}

// RoleStatus describes one assembled role for the status surface.
type RoleStatus struct {
	Description string   `json:"description"`
	Model       string   `json:"model"`
	Tools       []string `json:"tools"`
	Handoffs    []string `json:"handoffs"`
}

// Status describes the assembled team.
type Status struct {
	Roles            map[string]RoleStatus `json:"roles"`
	CoordinationMode string                `json:"coordination_mode"`
	MaxRounds        int                   `json:"max_rounds"`
	MemoryEnabled    bool                  `json:"memory_enabled"`
}

// Status reports the team's configuration for the status surface.
func (t *Team) Status() Status {
	roles := make(map[string]RoleStatus, len(t.roles))
	for _, r := range t.roles {
		toolNames := make([]string, 0, len(r.Tools))
		for _, tool := range r.Tools {
			toolNames = append(toolNames, tool.Name())
		}
		roles[r.Name] = RoleStatus{
			Description: r.Description,
			Model:       r.client.Model(),
			Tools:       toolNames,
			Handoffs:    append([]string(nil), r.Handoffs...),
		}
	}
	return Status{
		Roles:            roles,
		CoordinationMode: t.cfg.CoordinationMode,
		MaxRounds:        t.cfg.MaxRounds,
		MemoryEnabled:    t.bridge.Enabled(),
	}
}
