package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fyrsmithlabs/debugd/internal/memory"
)

// MemorySearchInput is the input for the search_memory tool.
type MemorySearchInput struct {
	Query string `json:"query"`
}

// MemorySearchEntry is one retrieved past solution.
type MemorySearchEntry struct {
	Content    string                 `json:"content"`
	Similarity float32                `json:"similarity"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// MemorySearchResult is the output of the search_memory tool.
type MemorySearchResult struct {
	Results []MemorySearchEntry `json:"results"`
}

// MemorySearchTool exposes the solution memory to roles.
type MemorySearchTool struct {
	bridge *memory.Bridge
}

// NewMemorySearchTool creates the search_memory tool.
func NewMemorySearchTool(bridge *memory.Bridge) *MemorySearchTool {
	return &MemorySearchTool{bridge: bridge}
}

func (t *MemorySearchTool) Name() string { return "search_memory" }

func (t *MemorySearchTool) Description() string {
	return "Search past solutions for similar issues"
}

func (t *MemorySearchTool) Run(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in MemorySearchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.Query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}

	entries := t.bridge.SearchSimilar(ctx, in.Query)
	result := MemorySearchResult{Results: make([]MemorySearchEntry, 0, len(entries))}
	for _, e := range entries {
		result.Results = append(result.Results, MemorySearchEntry{
			Content:    e.Content,
			Similarity: e.Score,
			Metadata:   e.Metadata,
		})
	}
	return result, nil
}
