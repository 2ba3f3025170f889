// Package memory persists successful debugging solutions in a vector
// store and retrieves them for similar bug reports.
//
// Memory failures never fail the run: a search error degrades to no
// results and a store error is logged and dropped.
package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/debugd/internal/config"
	"github.com/fyrsmithlabs/debugd/internal/metrics"
	"github.com/fyrsmithlabs/debugd/internal/vectorstore"
)

var tracer = otel.Tracer("debugd.memory")

// ErrDisabled indicates the memory bridge is disabled by configuration.
var ErrDisabled = errors.New("memory is disabled")

// Entry is one retrieved solution record.
type Entry struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]interface{}
}

// Record describes a completed run to store.
type Record struct {
	TaskID         string
	BugReport      string
	Solution       string
	Iterations     int
	PlanSteps      int
	PatchesApplied int
	TestPassed     bool
}

// Stats summarizes the state of the memory collection.
type Stats struct {
	TotalMemories int    `json:"total_memories"`
	Collection    string `json:"collection_name"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
}

// Bridge connects the debugging team to the vector store.
type Bridge struct {
	store  vectorstore.Store
	cfg    config.MemoryConfig
	logger *zap.Logger
}

// NewBridge creates a memory bridge. The store may be nil when memory
// is disabled.
func NewBridge(cfg config.MemoryConfig, store vectorstore.Store, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{store: store, cfg: cfg, logger: logger}
}

// Enabled reports whether the bridge will search and store.
func (b *Bridge) Enabled() bool {
	return b.cfg.Enabled && b.store != nil
}

// SearchSimilar retrieves past solutions similar to the bug report.
// Results below the similarity threshold are dropped. Errors degrade to
// an empty result set.
func (b *Bridge) SearchSimilar(ctx context.Context, bugReport string) []Entry {
	if !b.Enabled() {
		return nil
	}

	ctx, span := tracer.Start(ctx, "Bridge.SearchSimilar")
	defer span.End()

	results, err := b.store.Search(ctx, b.cfg.Collection, bugReport, b.cfg.MaxResults)
	if err != nil {
		span.RecordError(err)
		metrics.MemorySearchesTotal.WithLabelValues("error").Inc()
		b.logger.Warn("memory search failed, continuing without history",
			zap.Error(err),
		)
		return nil
	}

	entries := make([]Entry, 0, len(results))
	for _, r := range results {
		if r.Score < b.cfg.SimilarityThreshold {
			continue
		}
		entries = append(entries, Entry{
			ID:       r.ID,
			Content:  r.Content,
			Score:    r.Score,
			Metadata: r.Metadata,
		})
	}

	if len(entries) > 0 {
		metrics.MemorySearchesTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.MemorySearchesTotal.WithLabelValues("miss").Inc()
	}
	span.SetAttributes(attribute.Int("results", len(entries)))
	b.logger.Debug("memory search complete",
		zap.Int("candidates", len(results)),
		zap.Int("above_threshold", len(entries)),
	)
	return entries
}

// StoreSolution stores a successful solution for future retrieval.
// A storage failure is logged and reported but never aborts the run.
func (b *Bridge) StoreSolution(ctx context.Context, rec Record) error {
	if !b.Enabled() {
		return ErrDisabled
	}

	ctx, span := tracer.Start(ctx, "Bridge.StoreSolution")
	defer span.End()

	content := fmt.Sprintf(`## Bug Report
%s

## Solution
%s

## Context
Task ID: %s
Iterations: %d
Success: true
`, rec.BugReport, rec.Solution, rec.TaskID, rec.Iterations)

	doc := vectorstore.Document{
		Content: content,
		Metadata: map[string]interface{}{
			"task_id":         rec.TaskID,
			"iterations":      rec.Iterations,
			"plan_steps":      rec.PlanSteps,
			"patches_applied": rec.PatchesApplied,
			"test_passed":     rec.TestPassed,
			"category":        "solution",
			"timestamp":       time.Now().UTC().Format(time.RFC3339),
		},
	}

	if _, err := b.store.AddDocuments(ctx, b.cfg.Collection, []vectorstore.Document{doc}); err != nil {
		span.RecordError(err)
		metrics.MemoryStoresTotal.WithLabelValues("error").Inc()
		b.logger.Warn("failed to store solution",
			zap.String("task_id", rec.TaskID),
			zap.Error(err),
		)
		return fmt.Errorf("storing solution: %w", err)
	}

	metrics.MemoryStoresTotal.WithLabelValues("success").Inc()
	b.logger.Info("solution stored",
		zap.String("task_id", rec.TaskID),
		zap.Int("iterations", rec.Iterations),
	)
	return nil
}

// Statistics reports the current state of the memory collection.
func (b *Bridge) Statistics(ctx context.Context) Stats {
	stats := Stats{Collection: b.cfg.Collection}
	if !b.Enabled() {
		stats.Status = "disabled"
		return stats
	}

	count, err := b.store.Count(ctx, b.cfg.Collection)
	if err != nil {
		stats.Status = "error"
		stats.Error = err.Error()
		return stats
	}

	stats.TotalMemories = count
	stats.Status = "healthy"
	metrics.MemoryEntries.Set(float64(count))
	return stats
}
