package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/guttosm/idxpulse/internal/cache"
	"github.com/guttosm/idxpulse/internal/domain/models"
	"github.com/guttosm/idxpulse/internal/ingestion"
	"github.com/guttosm/idxpulse/internal/logger"
	"github.com/guttosm/idxpulse/internal/service"
	"github.com/guttosm/idxpulse/internal/storage"
)

// markerContent is the body of the terminal marker object. Its presence,
// not its content, is what matters.
const markerContent = "done\n"

// StockCalculator produces the per-stock broker files for one partition:
// load raw ticks (through the shared cache), filter by segment, aggregate
// per stock with the investor-role filter, and upload one CSV per stock
// followed by the terminal marker.
type StockCalculator struct {
	planner *ingestion.Planner
	store   storage.BlobStore
	cache   *cache.ContentCache
	force   bool
}

// NewStockCalculator wires a StockCalculator. force bypasses skip checks
// and overwrites existing outputs.
func NewStockCalculator(planner *ingestion.Planner, store storage.BlobStore, c *cache.ContentCache, force bool) *StockCalculator {
	return &StockCalculator{planner: planner, store: store, cache: c, force: force}
}

// Job builds the batch job computing one partition key.
func (c *StockCalculator) Job(key models.PartitionKey) Job {
	return Job{
		Name: "stock/" + key.String(),
		Run: func(ctx context.Context) (Status, error) {
			return c.run(ctx, key)
		},
	}
}

func (c *StockCalculator) run(ctx context.Context, key models.PartitionKey) (Status, error) {
	log := logger.With("stock")

	// The planner checked the marker when it picked this partition, but the
	// pick may be stale by now. Re-check so a partition finished by another
	// worker in the meantime is a clean skip.
	if !c.force {
		done, err := c.store.Exists(ctx, key.MarkerPath())
		if err != nil {
			return StatusFailed, fmt.Errorf("check marker: %w", err)
		}
		if done {
			return StatusSkipped, nil
		}
	}

	rawPath := ingestion.RawPath(key.Date)
	raw, err := c.cache.Get(ctx, rawPath, func(ctx context.Context) (string, error) {
		return c.store.DownloadText(ctx, rawPath)
	})
	if err != nil {
		return StatusFailed, fmt.Errorf("load %s: %w", rawPath, err)
	}

	ticks, err := ingestion.ParseTicks(raw)
	if err != nil {
		// Schema error: the whole file is rejected and the partition stays
		// unprocessed, to be retried on the next run.
		log.Error().Str("partition", key.String()).Err(err).Msg("raw file rejected")
		return StatusFailed, fmt.Errorf("parse %s: %w", rawPath, err)
	}

	segTicks := ingestion.FilterSegment(ticks, key.Segment)
	byStock := service.BuildStockRows(segTicks, key.Investor)

	stocks := make([]string, 0, len(byStock))
	for stock := range byStock {
		stocks = append(stocks, stock)
	}
	sort.Strings(stocks)

	written := 0
	for _, stock := range stocks {
		if err := ctx.Err(); err != nil {
			return StatusFailed, err
		}
		text := service.EncodeRows(byStock[stock])
		ok, err := c.planner.WriteIfAbsent(ctx, key.StockPath(stock), text, service.OutputContentType, c.force)
		if err != nil {
			return StatusFailed, fmt.Errorf("write %s: %w", key.StockPath(stock), err)
		}
		if ok {
			written++
		}
	}

	// Marker last: it declares every per-stock file above durable.
	if _, err := c.planner.WriteIfAbsent(ctx, key.MarkerPath(), markerContent, "text/plain", c.force); err != nil {
		return StatusFailed, fmt.Errorf("write marker: %w", err)
	}

	log.Info().
		Str("partition", key.String()).
		Int("stocks", len(stocks)).
		Int("written", written).
		Int("ticks", len(segTicks)).
		Msg("partition complete")
	return StatusProcessed, nil
}
