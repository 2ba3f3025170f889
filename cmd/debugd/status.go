package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/debugd/internal/memory"
	"github.com/fyrsmithlabs/debugd/internal/team"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	RunE:  runStatus,
}

type statusOutput struct {
	System string                 `json:"system"`
	Team   team.Status            `json:"team"`
	Memory memory.Stats           `json:"memory"`
	Config map[string]interface{} `json:"settings"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out := statusOutput{
		System: "ready",
		Team:   a.team.Status(),
		Memory: a.bridge.Statistics(ctx),
		Config: map[string]interface{}{
			"memory_enabled":    a.cfg.Memory.Enabled,
			"coordination_mode": a.cfg.Team.CoordinationMode,
			"max_iterations":    a.cfg.Team.MaxRounds,
		},
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
