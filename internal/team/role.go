package team

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/debugd/internal/config"
	"github.com/fyrsmithlabs/debugd/internal/llm"
	"github.com/fyrsmithlabs/debugd/internal/tools"
)

// maxToolCalls bounds tool invocations within a single role turn.
const maxToolCalls = 5

// toolDirectiveRe matches a tool invocation in role output, e.g.
// `TOOL: read_file {"file_path": "main.go"}`.
var toolDirectiveRe = regexp.MustCompile(`(?m)^\s*TOOL:\s*(\S+)\s*(\{.*\})\s*$`)

// Role is one configured participant: a name, instructions, a model
// client, a tool set, and declared hand-off targets. Immutable for the
// run's duration.
type Role struct {
	Name        string
	Description string
	System      string
	Handoffs    []string
	Tools       []tools.Tool

	client llm.Client
	logger *zap.Logger
}

// Act produces the role's next message given the transcript so far.
// Tool directives in the model's output are executed (bounded) and
// their results fed back before the final message is returned.
func (r *Role) Act(ctx context.Context, transcript []Message) (string, error) {
	history := make([]llm.Message, 0, len(transcript)+2*maxToolCalls)
	for _, msg := range transcript {
		msgRole := "user"
		if msg.Role == r.Name {
			msgRole = "assistant"
		}
		history = append(history, llm.Message{Role: msgRole, Content: msg.Content})
	}

	for call := 0; ; call++ {
		output, err := r.client.Complete(ctx, r.systemPrompt(), history)
		if err != nil {
			return "", fmt.Errorf("role %s: %w", r.Name, err)
		}

		name, input, ok := parseToolDirective(output)
		if !ok || call >= maxToolCalls {
			return output, nil
		}

		toolResult := r.invokeTool(ctx, name, input)
		history = append(history,
			llm.Message{Role: "assistant", Content: output},
			llm.Message{Role: "user", Content: toolResult},
		)
	}
}

func (r *Role) invokeTool(ctx context.Context, name string, input json.RawMessage) string {
	var tool tools.Tool
	for _, t := range r.Tools {
		if t.Name() == name {
			tool = t
			break
		}
	}
	if tool == nil {
		return fmt.Sprintf("TOOL_RESULT %s: error: tool not available to this role", name)
	}

	result, err := tool.Run(ctx, input)
	if err != nil {
		r.logger.Warn("tool call failed",
			zap.String("role", r.Name),
			zap.String("tool", name),
			zap.Error(err),
		)
		return fmt.Sprintf("TOOL_RESULT %s: error: %v", name, err)
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("TOOL_RESULT %s: error encoding result: %v", name, err)
	}
	return fmt.Sprintf("TOOL_RESULT %s: %s", name, encoded)
}

// systemPrompt appends the role's tool and hand-off conventions to its
// base instructions.
func (r *Role) systemPrompt() string {
	var b strings.Builder
	b.WriteString(r.System)

	if len(r.Tools) > 0 {
		b.WriteString("\n\nAvailable tools (invoke with a line `TOOL: <name> <json-input>`):\n")
		for _, t := range r.Tools {
			fmt.Fprintf(&b, "- %s: %s\n", t.Name(), t.Description())
		}
	}
	if len(r.Handoffs) > 0 {
		fmt.Fprintf(&b, "\nWhen your part is done, hand off with a line `HANDOFF: <role>`. Your targets: %s.",
			strings.Join(r.Handoffs, ", "))
		fmt.Fprintf(&b, " Use `HANDOFF: %s` only when the team cannot proceed without a human operator.", HumanTarget)
	}
	return b.String()
}

func parseToolDirective(output string) (string, json.RawMessage, bool) {
	m := toolDirectiveRe.FindStringSubmatch(output)
	if m == nil {
		return "", nil, false
	}
	return m[1], json.RawMessage(m[2]), true
}

// roleSpec declares one role kind: its description, instructions, tool
// names, and hand-off targets before the enabled-set collapse.
type roleSpec struct {
	description string
	system      string
	toolNames   []string
	handoffs    []string
	optional    bool
}

var roleSpecs = map[string]roleSpec{
	config.RolePlanner: {
		description: "Expert at analyzing bugs and creating detailed action plans",
		system: "You are the planning specialist of a debugging team. Analyze the bug report " +
			"and produce a detailed, ordered action plan. Begin the plan with a line `PLAN:` " +
			"followed by one list item per step.",
		handoffs: []string{config.RoleLocator},
	},
	config.RoleLocator: {
		description: "Expert at searching and locating relevant code segments",
		system: "You are the code-location specialist of a debugging team. Use the search and " +
			"read tools to find the files and lines implicated by the bug, and report them.",
		toolNames: []string{"search_code", "read_file", "search_memory"},
		handoffs:  []string{config.RoleCoder, config.RolePlanner},
	},
	config.RoleCoder: {
		description: "Expert at writing clean, efficient code fixes",
		system: "You are the fix author of a debugging team. Write the minimal correct change. " +
			"Present each proposed change starting with a line `PATCH:` followed by the patched content.",
		toolNames: []string{"read_file", "analyze_code"},
		handoffs:  []string{config.RoleExecutor, config.RoleLocator},
	},
	config.RoleExecutor: {
		description: "Expert at safely executing code and running tests",
		system: "You are the execution specialist of a debugging team. Apply the proposed patches " +
			"and run the tests. Report outcomes starting with a line `TEST_RESULTS:`. Emit " +
			"TASK_COMPLETE when the fix is verified, TASK_FAILED when it cannot be.",
		toolNames: []string{"apply_patch", "run_tests"},
		handoffs:  []string{config.RoleCritic, config.RoleReviewer},
	},
	config.RoleCritic: {
		description: "Expert at analyzing failures and providing actionable feedback",
		system: "You are the critic of a debugging team. Analyze failed attempts and give " +
			"concrete, actionable feedback on what to change.",
		handoffs: []string{config.RoleCoder, config.RolePlanner},
		optional: true,
	},
	config.RoleReviewer: {
		description: "Senior engineer conducting final code reviews",
		system: "You are the final reviewer of a debugging team. Validate the fix for correctness " +
			"and quality. Emit TASK_COMPLETE if it holds, otherwise hand back to the coder.",
		toolNames: []string{"read_file", "analyze_code", "run_tests"},
		handoffs:  []string{config.RoleCoder},
		optional:  true,
	},
}

// assemblyOrder is the fixed role order; optional roles join only when
// enabled.
var assemblyOrder = []string{
	config.RolePlanner,
	config.RoleLocator,
	config.RoleCoder,
	config.RoleExecutor,
	config.RoleCritic,
	config.RoleReviewer,
}

// AssembleRoles builds the immutable role set for a run. Hand-off
// targets referencing disabled roles are removed; a role left with no
// targets, or a target naming an unknown role, is a configuration
// error.
func AssembleRoles(
	cfg config.TeamConfig,
	models config.ModelsConfig,
	registry *tools.Registry,
	newClient func(config.ModelConfig) (llm.Client, error),
	logger *zap.Logger,
) ([]*Role, error) {
	enabled := map[string]bool{
		config.RolePlanner:  true,
		config.RoleLocator:  true,
		config.RoleCoder:    true,
		config.RoleExecutor: true,
		config.RoleCritic:   cfg.EnableCritic,
		config.RoleReviewer: cfg.EnableReviewer,
	}

	var roles []*Role
	for _, name := range assemblyOrder {
		if !enabled[name] {
			continue
		}
		spec := roleSpecs[name]

		handoffs := make([]string, 0, len(spec.handoffs))
		for _, target := range spec.handoffs {
			active, known := enabled[target]
			if !known && target != HumanTarget {
				return nil, fmt.Errorf("role %s declares unknown hand-off target %s", name, target)
			}
			if known && !active {
				continue
			}
			handoffs = append(handoffs, target)
		}
		if len(handoffs) == 0 {
			// executor with critic and reviewer disabled loops back to
			// the planner for another iteration
			handoffs = []string{config.RolePlanner}
		}

		roleTools, err := registry.Subset(spec.toolNames)
		if err != nil {
			return nil, fmt.Errorf("assembling role %s: %w", name, err)
		}

		modelCfg, err := models.ForRole(name)
		if err != nil {
			return nil, err
		}
		client, err := newClient(modelCfg)
		if err != nil {
			return nil, fmt.Errorf("creating model client for role %s: %w", name, err)
		}

		roles = append(roles, &Role{
			Name:        name,
			Description: spec.description,
			System:      spec.system,
			Handoffs:    handoffs,
			Tools:       roleTools,
			client:      client,
			logger:      logger,
		})
	}
	return roles, nil
}
