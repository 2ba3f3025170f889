package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/debugd/internal/config"
)

// ErrCommandNotAllowed indicates a test command outside the allow-list.
var ErrCommandNotAllowed = errors.New("command not allowed")

// RunTestsInput is the input for the run_tests tool.
type RunTestsInput struct {
	WorkingDirectory string   `json:"working_directory,omitempty"`
	TestCommand      string   `json:"test_command,omitempty"`
	TestFiles        []string `json:"test_files,omitempty"`
}

// RunTestsResult is the output of the run_tests tool.
type RunTestsResult struct {
	Success       bool    `json:"success"`
	Output        string  `json:"output"`
	ExitCode      int     `json:"exit_code"`
	TestsRun      int     `json:"tests_run,omitempty"`
	TestsPassed   int     `json:"tests_passed,omitempty"`
	TestsFailed   int     `json:"tests_failed,omitempty"`
	ExecutionTime float64 `json:"execution_time"`
}

// RunTestsTool runs the project's test command with a timeout and a
// command allow-list.
type RunTestsTool struct {
	cfg    config.SandboxConfig
	logger *zap.Logger
}

// NewRunTestsTool creates the run_tests tool.
func NewRunTestsTool(cfg config.SandboxConfig, logger *zap.Logger) *RunTestsTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunTestsTool{cfg: cfg, logger: logger}
}

func (t *RunTestsTool) Name() string { return "run_tests" }

func (t *RunTestsTool) Description() string {
	return "Run the project's test suite with a timeout"
}

func (t *RunTestsTool) Run(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in RunTestsInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	workDir, err := resolveInWorkDir(t.cfg.WorkDir, in.WorkingDirectory)
	if err != nil {
		return nil, err
	}

	command := in.TestCommand
	if command == "" {
		command = detectTestCommand(workDir)
	}
	if len(in.TestFiles) > 0 {
		command += " " + strings.Join(in.TestFiles, " ")
	}

	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty test command", ErrInvalidInput)
	}
	if !t.allowed(args[0]) {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotAllowed, args[0])
	}

	timeout := time.Duration(t.cfg.TestTimeout)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Dir = workDir
	output, err := cmd.CombinedOutput()
	elapsed := time.Since(start).Seconds()

	result := RunTestsResult{
		Output:        string(output),
		ExecutionTime: elapsed,
	}

	if runCtx.Err() == context.DeadlineExceeded {
		result.Success = false
		result.ExitCode = -1
		result.Output = fmt.Sprintf("test execution timed out after %s\n%s", timeout, output)
		return result, nil
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("running tests: %w", err)
		}
	}
	result.ExitCode = exitCode
	result.Success = exitCode == 0
	parseTestSummary(command, result.Output, &result)

	t.logger.Debug("tests executed",
		zap.String("command", command),
		zap.Int("exit_code", exitCode),
		zap.Float64("duration_s", elapsed),
	)
	return result, nil
}

func (t *RunTestsTool) allowed(command string) bool {
	base := filepath.Base(command)
	for _, allowed := range t.cfg.AllowedCommands {
		if base == allowed {
			return true
		}
	}
	return false
}

// detectTestCommand picks a test command from the project layout.
func detectTestCommand(workDir string) string {
	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(workDir, name))
		return err == nil
	}
	switch {
	case exists("go.mod"):
		return "go test ./..."
	case exists("pytest.ini"), exists("pyproject.toml"), exists("setup.py"):
		return "pytest -x"
	case exists("package.json"):
		return "npm test"
	case exists("Cargo.toml"):
		return "cargo test"
	default:
		return "pytest -x"
	}
}

var (
	pytestSummaryRe = regexp.MustCompile(`(\d+) passed(?:, (\d+) failed)?(?:, (\d+) error)?`)
	jestSummaryRe   = regexp.MustCompile(`Tests:\s+(\d+) passed(?:, (\d+) failed)?(?:, (\d+) total)?`)
	goTestFailRe    = regexp.MustCompile(`(?m)^--- FAIL`)
	goTestPassRe    = regexp.MustCompile(`(?m)^--- PASS`)
)

// parseTestSummary extracts pass/fail counts from well-known test
// runner output formats. Absence of a recognizable summary leaves the
// counts at zero.
func parseTestSummary(command, output string, result *RunTestsResult) {
	switch {
	case strings.Contains(command, "pytest") || strings.Contains(command, "python"):
		if m := pytestSummaryRe.FindStringSubmatch(output); m != nil {
			result.TestsPassed = atoi(m[1])
			result.TestsFailed = atoi(m[2]) + atoi(m[3])
			result.TestsRun = result.TestsPassed + result.TestsFailed
		}
	case strings.Contains(command, "npm") || strings.Contains(command, "jest"):
		if m := jestSummaryRe.FindStringSubmatch(output); m != nil {
			result.TestsPassed = atoi(m[1])
			result.TestsFailed = atoi(m[2])
			result.TestsRun = atoi(m[3])
			if result.TestsRun == 0 {
				result.TestsRun = result.TestsPassed + result.TestsFailed
			}
		}
	case strings.Contains(command, "go test"):
		result.TestsPassed = len(goTestPassRe.FindAllString(output, -1))
		result.TestsFailed = len(goTestFailRe.FindAllString(output, -1))
		result.TestsRun = result.TestsPassed + result.TestsFailed
	}
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
