package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/debugd/internal/config"
)

// FileReadInput is the input for the read_file tool.
type FileReadInput struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

// FileReadResult is the output of the read_file tool.
type FileReadResult struct {
	Content    string `json:"content"`
	FilePath   string `json:"file_path"`
	TotalLines int    `json:"total_lines"`
	Language   string `json:"language,omitempty"`
}

// FileReadTool reads a file under the work directory with an optional
// line range.
type FileReadTool struct {
	cfg config.SandboxConfig
}

// NewFileReadTool creates the read_file tool.
func NewFileReadTool(cfg config.SandboxConfig) *FileReadTool {
	return &FileReadTool{cfg: cfg}
}

func (t *FileReadTool) Name() string { return "read_file" }

func (t *FileReadTool) Description() string {
	return "Read contents of a file with optional line range"
}

var languageBySuffix = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".java": "java",
	".cpp":  "cpp",
	".c":    "c",
	".go":   "go",
	".rs":   "rust",
	".rb":   "ruby",
	".php":  "php",
}

func (t *FileReadTool) Run(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in FileReadInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.FilePath == "" {
		return nil, fmt.Errorf("%w: file_path is required", ErrInvalidInput)
	}

	path, err := resolveInWorkDir(t.cfg.WorkDir, in.FilePath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", in.FilePath)
	}
	maxBytes := int64(t.cfg.MaxFileSizeMB) * 1024 * 1024
	if info.Size() > maxBytes {
		return nil, fmt.Errorf("file too large: %d bytes (max %d MB)", info.Size(), t.cfg.MaxFileSizeMB)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", in.FilePath, err)
	}

	content := string(data)
	lines := strings.Split(content, "\n")
	total := len(lines)

	if in.StartLine > 0 || in.EndLine > 0 {
		start := in.StartLine
		if start < 1 {
			start = 1
		}
		end := in.EndLine
		if end <= 0 || end > total {
			end = total
		}
		if start > total {
			start = total
		}
		content = strings.Join(lines[start-1:end], "\n")
	}

	return FileReadResult{
		Content:    content,
		FilePath:   path,
		TotalLines: total,
		Language:   languageBySuffix[strings.ToLower(filepath.Ext(path))],
	}, nil
}
