package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/debugd/internal/config"
)

// CodeAnalysisInput is the input for the analyze_code tool.
type CodeAnalysisInput struct {
	FilePath string `json:"file_path"`
}

// CodeAnalysisResult is the output of the analyze_code tool.
type CodeAnalysisResult struct {
	ParseErrors  []string `json:"parse_errors,omitempty"`
	FormatIssues bool     `json:"format_issues"`
	Summary      string   `json:"summary"`
}

// CodeAnalysisTool performs static checks on a source file. Go files
// get a parse and a gofmt check; other languages only a syntax-neutral
// read validation.
type CodeAnalysisTool struct {
	cfg config.SandboxConfig
}

// NewCodeAnalysisTool creates the analyze_code tool.
func NewCodeAnalysisTool(cfg config.SandboxConfig) *CodeAnalysisTool {
	return &CodeAnalysisTool{cfg: cfg}
}

func (t *CodeAnalysisTool) Name() string { return "analyze_code" }

func (t *CodeAnalysisTool) Description() string {
	return "Run syntax and formatting checks on a source file"
}

func (t *CodeAnalysisTool) Run(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in CodeAnalysisInput
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
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", in.FilePath)
	}

	result := CodeAnalysisResult{}
	if filepath.Ext(path) == ".go" {
		fset := token.NewFileSet()
		if _, err := parser.ParseFile(fset, path, data, parser.AllErrors); err != nil {
			for _, line := range strings.Split(err.Error(), "\n") {
				if line != "" {
					result.ParseErrors = append(result.ParseErrors, line)
				}
			}
		}
		if formatted, err := format.Source(data); err == nil {
			result.FormatIssues = string(formatted) != string(data)
		}
	}

	issues := []string{}
	if len(result.ParseErrors) > 0 {
		issues = append(issues, fmt.Sprintf("%d parse errors", len(result.ParseErrors)))
	}
	if result.FormatIssues {
		issues = append(issues, "formatting issues")
	}
	if len(issues) == 0 {
		result.Summary = "Analysis complete: no issues found"
	} else {
		result.Summary = "Analysis complete: " + strings.Join(issues, ", ")
	}
	return result, nil
}
