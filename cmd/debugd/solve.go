package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/debugd/internal/team"
)

var (
	solveBugReport string
	solveFromFile  bool
	solveNoStream  bool
	solveOutput    string
	solveContext   string
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a bug with the debugging team",
	Long: `Run the debugging team against a bug report.

Examples:
  # Solve from the command line
  debugd solve -b "TypeError: unsupported operand type(s) for +: 'int' and 'str'"

  # Solve from a file, without streaming, writing results to disk
  debugd solve -b report.txt -f --no-stream -o result.json

  # Seed the run with extra context
  debugd solve -b "panic in parser" -c '{"located_files": ["parser.go"]}'`,
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVarP(&solveBugReport, "bug-report", "b", "", "bug report text or file path")
	solveCmd.Flags().BoolVarP(&solveFromFile, "file", "f", false, "treat bug-report as file path")
	solveCmd.Flags().BoolVar(&solveNoStream, "no-stream", false, "disable streaming output")
	solveCmd.Flags().StringVarP(&solveOutput, "output", "o", "", "output file for results")
	solveCmd.Flags().StringVarP(&solveContext, "context", "c", "", "additional context as JSON")
	_ = solveCmd.MarkFlagRequired("bug-report")
}

func runSolve(cmd *cobra.Command, args []string) error {
	bugReport := solveBugReport
	if solveFromFile {
		data, err := os.ReadFile(solveBugReport)
		if err != nil {
			return fmt.Errorf("bug report file not found: %s", solveBugReport)
		}
		bugReport = string(data)
	}

	var extra map[string]interface{}
	if solveContext != "" {
		if err := json.Unmarshal([]byte(solveContext), &extra); err != nil {
			return fmt.Errorf("invalid JSON in --context: %w", err)
		}
	}

	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var result *team.RunResult
	if solveNoStream {
		result = a.team.Solve(ctx, bugReport, extra)
	} else {
		for event := range a.team.SolveStream(ctx, bugReport, extra) {
			switch event.Type {
			case team.EventTurn:
				fmt.Printf("--- %s (round %d) ---\n%s\n\n", event.Role, event.Round, event.Content)
			case team.EventTaskCompleted, team.EventError:
				result = event.Result
			}
		}
	}
	if ctx.Err() != nil {
		return fmt.Errorf("interrupted")
	}
	if result == nil {
		return fmt.Errorf("run produced no result")
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	if solveOutput != "" {
		if err := os.WriteFile(solveOutput, output, 0o644); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
		fmt.Printf("Results written to: %s\n", solveOutput)
	} else {
		fmt.Println("\n=== RESULTS ===")
		fmt.Println(string(output))
	}

	if !result.Success && result.Error != "" {
		return fmt.Errorf("run failed: %s", result.Error)
	}
	return nil
}
