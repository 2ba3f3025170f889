// Package tools provides the tool collaborators available to debugging
// roles: code search, file reading, patch application, test execution,
// code analysis, and memory search.
//
// Each tool takes JSON input and returns a JSON-serializable result.
// The registry dispatches by tool name.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

var (
	// ErrUnknownTool indicates a tool name with no registered handler.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidInput indicates malformed tool input.
	ErrInvalidInput = errors.New("invalid tool input")

	// ErrPathOutsideWorkDir indicates a path escaping the sandbox work
	// directory.
	ErrPathOutsideWorkDir = errors.New("path outside work directory")
)

// Tool is one callable capability exposed to roles.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, input json.RawMessage) (interface{}, error)
}

// Registry manages the available tools.
type Registry struct {
	tools  map[string]Tool
	logger *zap.Logger
}

// NewRegistry creates a registry over the given tools.
func NewRegistry(logger *zap.Logger, tools ...Tool) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := make(map[string]Tool, len(tools))
	for _, t := range tools {
		m[t.Name()] = t
	}
	return &Registry{tools: m, logger: logger}
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

// List returns all registered tool names in sorted order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Subset returns the tools for the given names. Unknown names are a
// configuration error.
func (r *Registry) Subset(names []string) ([]Tool, error) {
	subset := make([]Tool, 0, len(names))
	for _, name := range names {
		t, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		subset = append(subset, t)
	}
	return subset, nil
}

// Call invokes a tool by name.
func (r *Registry) Call(ctx context.Context, name string, input json.RawMessage) (interface{}, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("tool call", zap.String("tool", name))
	return t.Run(ctx, input)
}
