package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/guttosm/idxpulse/internal/cache"
	"github.com/guttosm/idxpulse/internal/domain/models"
)

type stubStore struct {
	objects   map[string]string
	downloads int
}

func (s *stubStore) ListPaths(context.Context, string) ([]string, error) { return nil, nil }

func (s *stubStore) Exists(_ context.Context, path string) (bool, error) {
	_, ok := s.objects[path]
	return ok, nil
}

func (s *stubStore) DownloadText(_ context.Context, path string) (string, error) {
	s.downloads++
	content, ok := s.objects[path]
	if !ok {
		return "", fmt.Errorf("no such object: %s", path)
	}
	return content, nil
}

func (s *stubStore) UploadText(context.Context, string, string, string) error { return nil }
func (s *stubStore) Ping(context.Context) error                               { return nil }

func TestReadService_GetBrokerRows(t *testing.T) {
	key := models.PartitionKey{Date: "20260115", Segment: models.SegmentAll, Investor: models.InvestorAll}
	store := &stubStore{objects: map[string]string{
		key.StockPath("BBCA"): EncodeRows(sampleRows()),
	}}
	svc := NewReadService(store, cache.New(1<<20, time.Hour))
	ctx := context.Background()

	rows, err := svc.GetBrokerRows(ctx, key, "BBCA")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(rows) != len(sampleRows()) {
		t.Fatalf("rows: %d", len(rows))
	}

	// Absent partition is nil, nil: the handler turns it into a 404.
	rows, err = svc.GetBrokerRows(ctx, key, "TLKM")
	if err != nil || rows != nil {
		t.Fatalf("absent: rows=%v err=%v", rows, err)
	}

	// Repeat reads are served from the shared cache.
	if _, err := svc.GetBrokerRows(ctx, key, "BBCA"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if store.downloads != 1 {
		t.Fatalf("downloads: got %d want 1", store.downloads)
	}
	if stats := svc.CacheStats(); stats.Hits != 1 {
		t.Fatalf("cache stats: %+v", stats)
	}
}

func TestReadService_GetIndexRows(t *testing.T) {
	key := models.PartitionKey{Date: "20260115", Segment: models.SegmentRG, Investor: models.InvestorForeign}
	store := &stubStore{objects: map[string]string{
		key.IndexPath(): EncodeRows(sampleRows()),
	}}
	svc := NewReadService(store, cache.New(1<<20, time.Hour))

	rows, err := svc.GetIndexRows(context.Background(), key)
	if err != nil || len(rows) == 0 {
		t.Fatalf("rows=%d err=%v", len(rows), err)
	}
}

func TestReadService_CorruptOutput(t *testing.T) {
	key := models.PartitionKey{Date: "20260115", Segment: models.SegmentAll, Investor: models.InvestorAll}
	store := &stubStore{objects: map[string]string{
		key.IndexPath(): "not,a,valid\nrollup",
	}}
	svc := NewReadService(store, cache.New(1<<20, time.Hour))

	if _, err := svc.GetIndexRows(context.Background(), key); err == nil {
		t.Fatalf("corrupt output must error")
	}
}
