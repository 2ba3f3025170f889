package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fyrsmithlabs/debugd/internal/config"
)

// Patch is one full-content file replacement.
type Patch struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

// ApplyPatchInput is the input for the apply_patch tool.
type ApplyPatchInput struct {
	Patches []Patch `json:"patches"`
	DryRun  bool    `json:"dry_run,omitempty"`
}

// FailedPatch records a patch that could not be applied.
type FailedPatch struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// ApplyPatchResult is the output of the apply_patch tool.
type ApplyPatchResult struct {
	Success       bool          `json:"success"`
	AppliedFiles  []string      `json:"applied_files"`
	FailedPatches []FailedPatch `json:"failed_patches"`
}

// ApplyPatchTool writes patched file contents under the work directory.
// A patch carries the complete new file content; partial diffs are not
// supported.
type ApplyPatchTool struct {
	cfg config.SandboxConfig
}

// NewApplyPatchTool creates the apply_patch tool.
func NewApplyPatchTool(cfg config.SandboxConfig) *ApplyPatchTool {
	return &ApplyPatchTool{cfg: cfg}
}

func (t *ApplyPatchTool) Name() string { return "apply_patch" }

func (t *ApplyPatchTool) Description() string {
	return "Apply full-content file patches under the work directory"
}

func (t *ApplyPatchTool) Run(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in ApplyPatchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(in.Patches) == 0 {
		return nil, fmt.Errorf("%w: patches are required", ErrInvalidInput)
	}

	result := ApplyPatchResult{
		AppliedFiles:  []string{},
		FailedPatches: []FailedPatch{},
	}
	for _, p := range in.Patches {
		if err := t.applyOne(p, in.DryRun); err != nil {
			result.FailedPatches = append(result.FailedPatches, FailedPatch{
				File:  p.FilePath,
				Error: err.Error(),
			})
			continue
		}
		result.AppliedFiles = append(result.AppliedFiles, p.FilePath)
	}
	result.Success = len(result.FailedPatches) == 0
	return result, nil
}

func (t *ApplyPatchTool) applyOne(p Patch, dryRun bool) error {
	if p.FilePath == "" {
		return fmt.Errorf("file_path is required")
	}
	if p.Content == "" {
		return fmt.Errorf("content is required")
	}
	path, err := resolveInWorkDir(t.cfg.WorkDir, p.FilePath)
	if err != nil {
		return err
	}
	if dryRun {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(p.Content), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
