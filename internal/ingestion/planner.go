package ingestion

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/guttosm/idxpulse/internal/domain/models"
	"github.com/guttosm/idxpulse/internal/logger"
	"github.com/guttosm/idxpulse/internal/storage"
)

const (
	// RawPrefix is where the exchange drops the daily trade files.
	RawPrefix = "transaction/"

	rawFilePrefix = "IDX_TRANSACTION_"
	rawFileSuffix = ".csv"
)

// RawPath returns the raw daily file path for a date (YYYYMMDD).
func RawPath(date string) string {
	return RawPrefix + rawFilePrefix + date + rawFileSuffix
}

// DateFromRawPath derives the trading date from a raw file path, e.g.
// "transaction/IDX_TRANSACTION_20260115.csv" -> "20260115". Paths that do
// not follow the convention are rejected.
func DateFromRawPath(p string) (string, error) {
	base := path.Base(p)
	if !strings.HasPrefix(base, rawFilePrefix) || !strings.HasSuffix(base, rawFileSuffix) {
		return "", fmt.Errorf("unrecognized raw file name: %s", base)
	}
	date := strings.TrimSuffix(strings.TrimPrefix(base, rawFilePrefix), rawFileSuffix)
	if len(date) != 8 {
		return "", fmt.Errorf("unrecognized date in raw file name: %s", base)
	}
	for _, c := range date {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("unrecognized date in raw file name: %s", base)
		}
	}
	return date, nil
}

// Planner discovers unprocessed partitions and guards output writes against
// concurrent duplication. It is the only component that decides whether work
// happens at all; everything downstream assumes its partition is wanted.
type Planner struct {
	store storage.BlobStore
}

// NewPlanner creates a Planner over the given blob store.
func NewPlanner(store storage.BlobStore) *Planner {
	return &Planner{store: store}
}

// DiscoverDates lists the raw input prefix and derives candidate trading
// dates, most recent last. Unrecognized objects under the prefix are logged
// and ignored. When lastN > 0 only the lastN most recent dates are kept.
func (p *Planner) DiscoverDates(ctx context.Context, lastN int) ([]string, error) {
	paths, err := p.store.ListPaths(ctx, RawPrefix)
	if err != nil {
		return nil, fmt.Errorf("list raw files: %w", err)
	}

	log := logger.With("planner")
	var dates []string
	for _, rp := range paths {
		date, err := DateFromRawPath(rp)
		if err != nil {
			log.Debug().Str("path", rp).Msg("skipping non-raw object")
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)

	if lastN > 0 && len(dates) > lastN {
		dates = dates[len(dates)-lastN:]
	}
	return dates, nil
}

// PendingStockPartitions returns the partition keys of a date whose stock
// phase has not completed (no terminal marker). A date whose combinations
// are all complete yields nil, so the raw file is never parsed for it.
func (p *Planner) PendingStockPartitions(ctx context.Context, date string) ([]models.PartitionKey, error) {
	var pending []models.PartitionKey
	for _, key := range models.AllPartitionKeys(date) {
		done, err := p.store.Exists(ctx, key.MarkerPath())
		if err != nil {
			return nil, fmt.Errorf("check marker %s: %w", key.MarkerPath(), err)
		}
		if !done {
			pending = append(pending, key)
		}
	}
	return pending, nil
}

// PendingIndexPartitions returns the partition keys of a date whose IDX
// rollup file does not exist yet. Only partitions whose stock phase is
// complete are candidates; a rollup over a half-written partition would
// under-count.
func (p *Planner) PendingIndexPartitions(ctx context.Context, date string) ([]models.PartitionKey, error) {
	var pending []models.PartitionKey
	for _, key := range models.AllPartitionKeys(date) {
		stockDone, err := p.store.Exists(ctx, key.MarkerPath())
		if err != nil {
			return nil, fmt.Errorf("check marker %s: %w", key.MarkerPath(), err)
		}
		if !stockDone {
			continue
		}
		indexDone, err := p.store.Exists(ctx, key.IndexPath())
		if err != nil {
			return nil, fmt.Errorf("check index %s: %w", key.IndexPath(), err)
		}
		if !indexDone {
			pending = append(pending, key)
		}
	}
	return pending, nil
}

// WriteIfAbsent is the idempotency guard: it re-checks existence immediately
// before uploading, so two workers racing on the same partition cannot both
// write. The later writer skips; a skip is a success, not an error. force
// bypasses the check and overwrites.
//
// Returns:
//   - bool: true if the object was written, false if the write was skipped.
//   - error: remote failure from the existence check or the upload.
func (p *Planner) WriteIfAbsent(ctx context.Context, path, text, contentType string, force bool) (bool, error) {
	if !force {
		exists, err := p.store.Exists(ctx, path)
		if err != nil {
			return false, fmt.Errorf("pre-write check %s: %w", path, err)
		}
		if exists {
			log := logger.With("planner")
			log.Info().Str("path", path).Msg("output already present, skipping write")
			return false, nil
		}
	}
	if err := p.store.UploadText(ctx, path, text, contentType); err != nil {
		return false, err
	}
	return true, nil
}
