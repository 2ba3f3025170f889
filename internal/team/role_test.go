package team

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/debugd/internal/config"
	"github.com/fyrsmithlabs/debugd/internal/llm"
	"github.com/fyrsmithlabs/debugd/internal/tools"
)

type fakeTool struct {
	name   string
	result interface{}
	err    error
	inputs []json.RawMessage
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake " + f.name }

func (f *fakeTool) Run(ctx context.Context, input json.RawMessage) (interface{}, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func fullRegistry() *tools.Registry {
	names := []string{"search_code", "read_file", "search_memory", "analyze_code", "apply_patch", "run_tests"}
	var all []tools.Tool
	for _, name := range names {
		all = append(all, &fakeTool{name: name, result: map[string]string{"ok": name}})
	}
	return tools.NewRegistry(zap.NewNop(), all...)
}

func stubClientFactory(cfg config.ModelConfig) (llm.Client, error) {
	return &scriptedClient{outputs: []string{"ok"}}, nil
}

func TestAssembleRoles_FullTeam(t *testing.T) {
	roles, err := AssembleRoles(config.TeamConfig{
		EnableCritic:   true,
		EnableReviewer: true,
	}, config.ModelsConfig{}, fullRegistry(), stubClientFactory, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, roles, 6)

	byName := make(map[string]*Role)
	var order []string
	for _, r := range roles {
		byName[r.Name] = r
		order = append(order, r.Name)
	}
	assert.Equal(t, []string{"planner", "locator", "coder", "executor", "critic", "reviewer"}, order)
	assert.Equal(t, []string{"critic", "reviewer"}, byName["executor"].Handoffs)
	assert.Equal(t, []string{"coder", "planner"}, byName["critic"].Handoffs)
	assert.Equal(t, []string{"coder"}, byName["reviewer"].Handoffs)

	var locatorTools []string
	for _, tool := range byName["locator"].Tools {
		locatorTools = append(locatorTools, tool.Name())
	}
	assert.Equal(t, []string{"search_code", "read_file", "search_memory"}, locatorTools)
}

func TestAssembleRoles_OptionalRolesDisabled(t *testing.T) {
	roles, err := AssembleRoles(config.TeamConfig{}, config.ModelsConfig{},
		fullRegistry(), stubClientFactory, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, roles, 4)

	byName := make(map[string]*Role)
	for _, r := range roles {
		byName[r.Name] = r
	}
	assert.NotContains(t, byName, "critic")
	assert.NotContains(t, byName, "reviewer")
	// both of the executor's declared targets are disabled, so it falls
	// back to the planner
	assert.Equal(t, []string{"planner"}, byName["executor"].Handoffs)
}

func TestAssembleRoles_OnlyCriticEnabled(t *testing.T) {
	roles, err := AssembleRoles(config.TeamConfig{EnableCritic: true},
		config.ModelsConfig{}, fullRegistry(), stubClientFactory, zap.NewNop())
	require.NoError(t, err)

	byName := make(map[string]*Role)
	for _, r := range roles {
		byName[r.Name] = r
	}
	assert.Equal(t, []string{"critic"}, byName["executor"].Handoffs)
}

func TestAssembleRoles_MissingToolRejected(t *testing.T) {
	registry := tools.NewRegistry(zap.NewNop()) // empty
	_, err := AssembleRoles(config.TeamConfig{}, config.ModelsConfig{},
		registry, stubClientFactory, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, tools.ErrUnknownTool)
}

func TestAssembleRoles_ClientFactoryErrorPropagates(t *testing.T) {
	failing := func(cfg config.ModelConfig) (llm.Client, error) {
		return nil, assert.AnError
	}
	_, err := AssembleRoles(config.TeamConfig{}, config.ModelsConfig{},
		fullRegistry(), failing, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating model client for role planner")
}

func TestParseToolDirective(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		wantName  string
		wantInput string
		wantOK    bool
	}{
		{
			name:      "directive on its own line",
			output:    "Let me look.\nTOOL: read_file {\"file_path\": \"main.go\"}\n",
			wantName:  "read_file",
			wantInput: `{"file_path": "main.go"}`,
			wantOK:    true,
		},
		{
			name:      "indented directive",
			output:    "  TOOL: search_code {}",
			wantName:  "search_code",
			wantInput: "{}",
			wantOK:    true,
		},
		{
			name:   "no directive",
			output: "I will use the TOOL later.",
			wantOK: false,
		},
		{
			name:   "directive without json input",
			output: "TOOL: read_file",
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, input, ok := parseToolDirective(tt.output)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantName, name)
				assert.JSONEq(t, tt.wantInput, string(input))
			}
		})
	}
}

func TestAct_ToolLoop(t *testing.T) {
	tool := &fakeTool{name: "read_file", result: map[string]string{"content": "package main"}}
	role := &Role{
		Name:   "locator",
		System: "locate things",
		Tools:  []tools.Tool{tool},
		client: &scriptedClient{outputs: []string{
			`TOOL: read_file {"file_path": "main.go"}`,
			"Found it in main.go. HANDOFF: coder",
		}},
		logger: zap.NewNop(),
	}

	output, err := role.Act(context.Background(), []Message{{Role: "user", Content: "find the bug"}})
	require.NoError(t, err)
	assert.Equal(t, "Found it in main.go. HANDOFF: coder", output)
	require.Len(t, tool.inputs, 1)
	assert.JSONEq(t, `{"file_path": "main.go"}`, string(tool.inputs[0]))
}

func TestAct_ToolErrorFedBackNotFatal(t *testing.T) {
	tool := &fakeTool{name: "read_file", err: assert.AnError}
	role := &Role{
		Name:  "locator",
		Tools: []tools.Tool{tool},
		client: &scriptedClient{outputs: []string{
			`TOOL: read_file {"file_path": "gone.go"}`,
			"The file is missing; checking elsewhere.",
		}},
		logger: zap.NewNop(),
	}

	output, err := role.Act(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "The file is missing; checking elsewhere.", output)
}

func TestAct_ToolLoopBounded(t *testing.T) {
	tool := &fakeTool{name: "read_file", result: "content"}
	directive := `TOOL: read_file {"file_path": "main.go"}`
	role := &Role{
		Name:   "locator",
		Tools:  []tools.Tool{tool},
		client: &scriptedClient{outputs: []string{directive}},
		logger: zap.NewNop(),
	}

	output, err := role.Act(context.Background(), nil)
	require.NoError(t, err)
	// after the cap the directive is returned as the role's message
	assert.Equal(t, directive, output)
	assert.Len(t, tool.inputs, maxToolCalls)
}

func TestAct_UnavailableToolReportedToModel(t *testing.T) {
	role := &Role{
		Name: "coder",
		client: &scriptedClient{outputs: []string{
			`TOOL: run_tests {}`,
			"cannot run tests from here",
		}},
		logger: zap.NewNop(),
	}

	output, err := role.Act(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "cannot run tests from here", output)
}

func TestSystemPrompt(t *testing.T) {
	role := &Role{
		Name:     "locator",
		System:   "locate things",
		Handoffs: []string{"coder", "planner"},
		Tools:    []tools.Tool{&fakeTool{name: "search_code"}},
	}
	prompt := role.systemPrompt()
	assert.Contains(t, prompt, "locate things")
	assert.Contains(t, prompt, "search_code")
	assert.Contains(t, prompt, "HANDOFF: <role>")
	assert.Contains(t, prompt, "coder, planner")
	assert.Contains(t, prompt, "HANDOFF: human")
}
