package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/guttosm/idxpulse/config"
	"github.com/guttosm/idxpulse/internal/cache"
	"github.com/guttosm/idxpulse/internal/domain/models"
	"github.com/guttosm/idxpulse/internal/ingestion"
	"github.com/guttosm/idxpulse/internal/logger"
	"github.com/guttosm/idxpulse/internal/storage"
)

// Pipeline drives a full aggregation run: partition discovery, the
// per-stock phase, then the index rollup phase. Partitions are independent;
// no ordering is guaranteed across them. Within a partition the sequence is
// strictly discover → check-exists → load → parse → filter → dedup →
// aggregate → write.
type Pipeline struct {
	store   storage.BlobStore
	cache   *cache.ContentCache
	planner *ingestion.Planner
	batch   config.BatchConfig
}

// New wires a Pipeline over the blob store using the given cache and batch
// tuning.
func New(store storage.BlobStore, c *cache.ContentCache, batch config.BatchConfig) *Pipeline {
	return &Pipeline{
		store:   store,
		cache:   c,
		planner: ingestion.NewPlanner(store),
		batch:   batch,
	}
}

// Run executes both phases over the lastN most recent discovered dates
// (lastN <= 0 means every date found). force reprocesses partitions whose
// outputs already exist.
//
// The returned summary carries partition-granularity outcomes only; job
// failures are inside it, and the only error returned directly is context
// cancellation or a discovery failure.
func (p *Pipeline) Run(ctx context.Context, lastN int, force bool) (Summary, error) {
	log := logger.With("pipeline")
	start := time.Now()

	dates, err := p.planner.DiscoverDates(ctx, lastN)
	if err != nil {
		return Summary{}, fmt.Errorf("discover partitions: %w", err)
	}
	log.Info().Int("dates", len(dates)).Msg("discovery complete")

	var summary Summary

	// Stock phase: many small uploads, wide concurrency.
	stockCalc := NewStockCalculator(p.planner, p.store, p.cache, force)
	var stockJobs []Job
	for _, date := range dates {
		keys, err := p.pendingStock(ctx, date, force)
		if err != nil {
			return summary, err
		}
		// Combinations the planner found complete are skips, not absences:
		// they must show up in the summary like any other outcome.
		for _, key := range completeKeys(date, keys) {
			summary.add(Result{Name: "stock/" + key.String(), Status: StatusSkipped})
		}
		if len(keys) == 0 {
			log.Info().Str("date", date).Msg("date already complete, skipped without parsing")
			continue
		}
		for _, key := range keys {
			stockJobs = append(stockJobs, stockCalc.Job(key))
		}
	}
	stockRunner := NewRunner(RunnerConfig{
		BatchSize:      p.batch.StockBatchSize,
		MaxConcurrency: p.batch.StockParallel,
		Pause:          time.Duration(p.batch.PauseMillis) * time.Millisecond,
		MemSoftLimitMB: p.batch.MemSoftLimitMB,
		MemHardLimitMB: p.batch.MemHardLimitMB,
	})
	stockSummary, err := stockRunner.Run(ctx, stockJobs)
	summary.Merge(stockSummary)
	if err != nil {
		return summary, err
	}

	// Index phase: whole-partition downloads, narrow concurrency.
	indexCalc := NewIndexCalculator(p.planner, p.store, p.cache, force)
	var indexJobs []Job
	for _, date := range dates {
		keys, err := p.pendingIndex(ctx, date, force)
		if err != nil {
			return summary, err
		}
		for _, key := range completeKeys(date, keys) {
			summary.add(Result{Name: "index/" + key.String(), Status: StatusSkipped})
		}
		for _, key := range keys {
			indexJobs = append(indexJobs, indexCalc.Job(key))
		}
	}
	indexRunner := NewRunner(RunnerConfig{
		BatchSize:      p.batch.IndexBatchSize,
		MaxConcurrency: p.batch.IndexParallel,
		Pause:          time.Duration(p.batch.PauseMillis) * time.Millisecond,
		MemSoftLimitMB: p.batch.MemSoftLimitMB,
		MemHardLimitMB: p.batch.MemHardLimitMB,
	})
	indexSummary, err := indexRunner.Run(ctx, indexJobs)
	summary.Merge(indexSummary)
	if err != nil {
		return summary, err
	}

	stats := p.cache.Stats()
	log.Info().
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int64("cache_hits", stats.Hits).
		Int64("cache_misses", stats.Misses).
		Int64("cache_evictions", stats.Evictions).
		Dur("elapsed", time.Since(start)).
		Msg("run complete")
	return summary, nil
}

// pendingStock returns the partition keys still to compute for a date.
// With force every combination is recomputed regardless of markers.
func (p *Pipeline) pendingStock(ctx context.Context, date string, force bool) ([]models.PartitionKey, error) {
	if force {
		return models.AllPartitionKeys(date), nil
	}
	return p.planner.PendingStockPartitions(ctx, date)
}

// pendingIndex mirrors pendingStock for the rollup phase.
func (p *Pipeline) pendingIndex(ctx context.Context, date string, force bool) ([]models.PartitionKey, error) {
	if force {
		return models.AllPartitionKeys(date), nil
	}
	return p.planner.PendingIndexPartitions(ctx, date)
}

// completeKeys returns the date's combinations absent from pending, i.e.
// the partitions a phase will not touch because their outputs already exist.
func completeKeys(date string, pending []models.PartitionKey) []models.PartitionKey {
	seen := make(map[string]struct{}, len(pending))
	for _, k := range pending {
		seen[k.String()] = struct{}{}
	}
	var out []models.PartitionKey
	for _, k := range models.AllPartitionKeys(date) {
		if _, ok := seen[k.String()]; !ok {
			out = append(out, k)
		}
	}
	return out
}
