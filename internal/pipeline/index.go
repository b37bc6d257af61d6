package pipeline

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/guttosm/idxpulse/internal/cache"
	"github.com/guttosm/idxpulse/internal/domain/models"
	"github.com/guttosm/idxpulse/internal/ingestion"
	"github.com/guttosm/idxpulse/internal/logger"
	"github.com/guttosm/idxpulse/internal/service"
	"github.com/guttosm/idxpulse/internal/storage"
)

// IndexCalculator consumes the per-stock outputs of one partition and
// produces the cross-stock IDX rollup for it. It runs after the stock phase
// and only over partitions whose terminal marker exists.
type IndexCalculator struct {
	planner *ingestion.Planner
	store   storage.BlobStore
	cache   *cache.ContentCache
	force   bool
}

// NewIndexCalculator wires an IndexCalculator.
func NewIndexCalculator(planner *ingestion.Planner, store storage.BlobStore, c *cache.ContentCache, force bool) *IndexCalculator {
	return &IndexCalculator{planner: planner, store: store, cache: c, force: force}
}

// Job builds the batch job computing one partition's rollup.
func (c *IndexCalculator) Job(key models.PartitionKey) Job {
	return Job{
		Name: "index/" + key.String(),
		Run: func(ctx context.Context) (Status, error) {
			return c.run(ctx, key)
		},
	}
}

func (c *IndexCalculator) run(ctx context.Context, key models.PartitionKey) (Status, error) {
	if !c.force {
		done, err := c.store.Exists(ctx, key.IndexPath())
		if err != nil {
			return StatusFailed, fmt.Errorf("check index: %w", err)
		}
		if done {
			return StatusSkipped, nil
		}
	}

	paths, err := c.store.ListPaths(ctx, key.OutputDir()+"/")
	if err != nil {
		return StatusFailed, fmt.Errorf("list partition: %w", err)
	}

	perStock := make(map[string][]models.BrokerRow)
	for _, p := range paths {
		stock, ok := stockFromPath(p)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return StatusFailed, err
		}
		text, err := c.cache.Get(ctx, p, func(ctx context.Context) (string, error) {
			return c.store.DownloadText(ctx, p)
		})
		if err != nil {
			return StatusFailed, fmt.Errorf("load %s: %w", p, err)
		}
		rows, err := service.DecodeRows(text)
		if err != nil {
			return StatusFailed, fmt.Errorf("decode %s: %w", p, err)
		}
		perStock[stock] = rows
	}

	// A partition can complete with zero stocks (thin boards under a narrow
	// nationality filter). The rollup is then a header-only file, which
	// still marks the partition as rolled up.
	rows := service.RollupIndex(perStock)
	written, err := c.planner.WriteIfAbsent(ctx, key.IndexPath(), service.EncodeRows(rows), service.OutputContentType, c.force)
	if err != nil {
		return StatusFailed, fmt.Errorf("write index: %w", err)
	}
	if !written {
		// Another worker produced the rollup between our check and write.
		return StatusSkipped, nil
	}

	log := logger.With("index")
	log.Info().
		Str("partition", key.String()).
		Int("stocks", len(perStock)).
		Int("brokers", len(rows)).
		Msg("rollup complete")
	return StatusProcessed, nil
}

// stockFromPath extracts the stock code from a per-stock output path,
// rejecting the IDX rollup and the terminal marker.
func stockFromPath(p string) (string, bool) {
	base := path.Base(p)
	if base == models.IndexFileName || base == models.DoneMarker {
		return "", false
	}
	stock := strings.TrimSuffix(base, ".csv")
	if stock == base || len(stock) != 4 {
		return "", false
	}
	return stock, true
}
