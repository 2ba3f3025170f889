package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/debugd/internal/config"
)

// CodeSearchInput is the input for the search_code tool.
type CodeSearchInput struct {
	Pattern     string `json:"pattern"`
	FilePattern string `json:"file_pattern,omitempty"`
	Path        string `json:"path,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

// CodeSearchMatch is one match with its location.
type CodeSearchMatch struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

// CodeSearchResult is the output of the search_code tool.
type CodeSearchResult struct {
	Matches      []CodeSearchMatch `json:"matches"`
	TotalMatches int               `json:"total_matches"`
	Truncated    bool              `json:"truncated"`
}

// CodeSearchTool searches files under the work directory for a regex
// pattern.
type CodeSearchTool struct {
	cfg config.SandboxConfig
}

// NewCodeSearchTool creates the search_code tool.
func NewCodeSearchTool(cfg config.SandboxConfig) *CodeSearchTool {
	return &CodeSearchTool{cfg: cfg}
}

func (t *CodeSearchTool) Name() string { return "search_code" }

func (t *CodeSearchTool) Description() string {
	return "Search for code patterns (regex) under the work directory"
}

func (t *CodeSearchTool) Run(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in CodeSearchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.Pattern == "" {
		return nil, fmt.Errorf("%w: pattern is required", ErrInvalidInput)
	}
	if in.MaxResults <= 0 {
		in.MaxResults = 50
	}

	re, err := regexp.Compile(in.Pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid pattern: %v", ErrInvalidInput, err)
	}

	root, err := resolveInWorkDir(t.cfg.WorkDir, in.Path)
	if err != nil {
		return nil, err
	}

	result := CodeSearchResult{Matches: []CodeSearchMatch{}}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == "node_modules" || name == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if in.FilePattern != "" {
			matched, _ := filepath.Match(in.FilePattern, d.Name())
			if !matched {
				return nil
			}
		}
		if result.Truncated {
			return filepath.SkipAll
		}
		t.searchFile(path, re, in.MaxResults, &result)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", root, err)
	}

	result.TotalMatches = len(result.Matches)
	return result, nil
}

func (t *CodeSearchTool) searchFile(path string, re *regexp.Regexp, max int, result *CodeSearchResult) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !re.MatchString(line) {
			continue
		}
		result.Matches = append(result.Matches, CodeSearchMatch{
			File:    path,
			Line:    lineNo,
			Content: strings.TrimRight(line, "\r\n"),
		})
		if len(result.Matches) >= max {
			result.Truncated = true
			return
		}
	}
}

// resolveInWorkDir joins rel onto the work directory and rejects paths
// escaping it.
func resolveInWorkDir(workDir, rel string) (string, error) {
	base, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolving work dir: %w", err)
	}
	if rel == "" || rel == "." {
		return base, nil
	}
	joined := rel
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(base, rel)
	}
	joined = filepath.Clean(joined)
	if joined != base && !strings.HasPrefix(joined, base+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideWorkDir, rel)
	}
	return joined, nil
}
