package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/guttosm/idxpulse/config"
	"github.com/guttosm/idxpulse/internal/cache"
	"github.com/guttosm/idxpulse/internal/domain/models"
	"github.com/guttosm/idxpulse/internal/ingestion"
	"github.com/guttosm/idxpulse/internal/service"
)

// fakeStore is an in-memory blob store shared by the calculator tests.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]string)}
}

func (f *fakeStore) ListPaths(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeStore) Exists(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[path]
	return ok, nil
}

func (f *fakeStore) DownloadText(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.objects[path]
	if !ok {
		return "", fmt.Errorf("no such object: %s", path)
	}
	return content, nil
}

func (f *fakeStore) UploadText(_ context.Context, path, text, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = text
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

const rawHeader = "STK_CODE;BRK_COD1;BRK_COD2;STK_VOLM;STK_PRIC;TRX_CODE;TRX_TYPE;TRX_TIME;INV_TYP1;INV_TYP2;TRX_ORD1;TRX_ORD2"

// rawFixture covers both boards and both nationalities so every one of the
// twelve partition combinations has at least some activity on the RG side.
func rawFixture() string {
	rows := []string{
		rawHeader,
		"BBCA;YP;PD;100;9500;T1;RG;09:00:00;D;F;B1;S1",
		"BBCA;PD;YP;50;9600;T2;RG;09:01:00;F;D;B2;S2",
		"TLKM;ZP;CC;200;3000;T3;RG;09:02:00;D;D;B3;S3",
		"TLKM;CC;ZP;80;3100;T4;TN;09:03:00;F;F;B4;S4",
		"ANTM;YP;ZP;60;2500;T5;NG;09:04:00;D;F;B5;S5",
	}
	return strings.Join(rows, "\n") + "\n"
}

func seedRaw(store *fakeStore, date string) {
	store.objects[ingestion.RawPath(date)] = rawFixture()
}

func testBatchConfig() config.BatchConfig {
	return config.BatchConfig{
		StockBatchSize: 4,
		StockParallel:  2,
		IndexBatchSize: 4,
		IndexParallel:  2,
		RetryAttempts:  1,
		PauseMillis:    0,
	}
}

func newTestCache() *cache.ContentCache {
	return cache.New(1<<20, time.Hour)
}

func TestStockCalculator_WritesOutputsAndMarker(t *testing.T) {
	store := newFakeStore()
	seedRaw(store, "20260115")
	key := models.PartitionKey{Date: "20260115", Segment: models.SegmentRG, Investor: models.InvestorAll}

	calc := NewStockCalculator(ingestion.NewPlanner(store), store, newTestCache(), false)
	status, err := calc.run(context.Background(), key)
	if err != nil || status != StatusProcessed {
		t.Fatalf("status=%s err=%v", status, err)
	}

	for _, stock := range []string{"BBCA", "TLKM"} {
		text, ok := store.objects[key.StockPath(stock)]
		if !ok {
			t.Fatalf("missing output for %s", stock)
		}
		rows, err := service.DecodeRows(text)
		if err != nil || len(rows) == 0 {
			t.Fatalf("output for %s: rows=%d err=%v", stock, len(rows), err)
		}
	}
	// TN and NG rows are out of segment scope for RG.
	if _, ok := store.objects[key.StockPath("ANTM")]; ok {
		t.Fatalf("NG-only stock leaked into RG partition")
	}
	if _, ok := store.objects[key.MarkerPath()]; !ok {
		t.Fatalf("terminal marker not written")
	}
}

func TestStockCalculator_SkipsCompletedPartition(t *testing.T) {
	store := newFakeStore()
	seedRaw(store, "20260115")
	key := models.PartitionKey{Date: "20260115", Segment: models.SegmentRG, Investor: models.InvestorAll}
	store.objects[key.MarkerPath()] = "done\n"

	calc := NewStockCalculator(ingestion.NewPlanner(store), store, newTestCache(), false)
	status, err := calc.run(context.Background(), key)
	if err != nil || status != StatusSkipped {
		t.Fatalf("status=%s err=%v", status, err)
	}
	if len(store.objects) != 2 {
		t.Fatalf("skip must not write: %v", store.objects)
	}
}

func TestStockCalculator_RejectsBadSchema(t *testing.T) {
	store := newFakeStore()
	date := "20260115"
	store.objects[ingestion.RawPath(date)] = "STK_CODE;BRK_COD1\nBBCA;YP\n"
	key := models.PartitionKey{Date: date, Segment: models.SegmentAll, Investor: models.InvestorAll}

	calc := NewStockCalculator(ingestion.NewPlanner(store), store, newTestCache(), false)
	status, err := calc.run(context.Background(), key)
	if err == nil || status != StatusFailed {
		t.Fatalf("status=%s err=%v", status, err)
	}
	if _, ok := store.objects[key.MarkerPath()]; ok {
		t.Fatalf("rejected file must leave partition unprocessed")
	}
}

func TestIndexCalculator_Rollup(t *testing.T) {
	store := newFakeStore()
	key := models.PartitionKey{Date: "20260115", Segment: models.SegmentRG, Investor: models.InvestorAll}

	// Seed per-stock outputs as the stock phase would have left them.
	perStock := service.BuildStockRows([]models.RawTick{
		{StockCode: "BBCA", BuyerBroker: "YP", SellerBroker: "PD", Volume: 100, Price: 9500, TradeCode: "T1", Segment: "RG", BuyerInvestor: "D", SellerInvestor: "F", BuyerOrderRef: "B1", SellerOrderRef: "S1"},
		{StockCode: "TLKM", BuyerBroker: "YP", SellerBroker: "CC", Volume: 50, Price: 3000, TradeCode: "T2", Segment: "RG", BuyerInvestor: "D", SellerInvestor: "D", BuyerOrderRef: "B2", SellerOrderRef: "S2"},
	}, models.InvestorAll)
	for stock, rows := range perStock {
		store.objects[key.StockPath(stock)] = service.EncodeRows(rows)
	}
	store.objects[key.MarkerPath()] = "done\n"

	calc := NewIndexCalculator(ingestion.NewPlanner(store), store, newTestCache(), false)
	status, err := calc.run(context.Background(), key)
	if err != nil || status != StatusProcessed {
		t.Fatalf("status=%s err=%v", status, err)
	}

	text, ok := store.objects[key.IndexPath()]
	if !ok {
		t.Fatalf("IDX not written")
	}
	rows, err := service.DecodeRows(text)
	if err != nil {
		t.Fatalf("decode IDX: %v", err)
	}
	for _, r := range rows {
		if r.Broker == "YP" {
			if r.BuyerVol != 150 {
				t.Fatalf("YP index buy vol: %d", r.BuyerVol)
			}
			return
		}
	}
	t.Fatalf("YP missing from IDX rows: %v", rows)
}

func TestIndexCalculator_SkipWhenIndexExists(t *testing.T) {
	store := newFakeStore()
	key := models.PartitionKey{Date: "20260115", Segment: models.SegmentRG, Investor: models.InvestorAll}
	store.objects[key.IndexPath()] = "existing"

	calc := NewIndexCalculator(ingestion.NewPlanner(store), store, newTestCache(), false)
	status, err := calc.run(context.Background(), key)
	if err != nil || status != StatusSkipped {
		t.Fatalf("status=%s err=%v", status, err)
	}
	if store.objects[key.IndexPath()] != "existing" {
		t.Fatalf("skip must not overwrite")
	}
}

func TestIndexCalculator_EmptyPartitionWritesHeaderOnly(t *testing.T) {
	store := newFakeStore()
	key := models.PartitionKey{Date: "20260115", Segment: models.SegmentTN, Investor: models.InvestorDomestic}
	store.objects[key.MarkerPath()] = "done\n"

	calc := NewIndexCalculator(ingestion.NewPlanner(store), store, newTestCache(), false)
	status, err := calc.run(context.Background(), key)
	if err != nil || status != StatusProcessed {
		t.Fatalf("status=%s err=%v", status, err)
	}

	rows, err := service.DecodeRows(store.objects[key.IndexPath()])
	if err != nil || len(rows) != 0 {
		t.Fatalf("empty partition rollup: rows=%d err=%v", len(rows), err)
	}
}

func TestPipeline_EndToEndIdempotent(t *testing.T) {
	store := newFakeStore()
	seedRaw(store, "20260115")
	ctx := context.Background()

	p := New(store, newTestCache(), testBatchConfig())
	first, err := p.Run(ctx, 0, false)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	// 12 stock partitions + 12 index rollups.
	if first.Failed != 0 {
		t.Fatalf("first run failures: %+v", first.Results)
	}
	if first.Processed != 24 || first.Skipped != 0 {
		t.Fatalf("first run: processed=%d skipped=%d, want 24/0", first.Processed, first.Skipped)
	}

	for _, key := range models.AllPartitionKeys("20260115") {
		if _, ok := store.objects[key.MarkerPath()]; !ok {
			t.Fatalf("missing marker for %s", key)
		}
		if _, ok := store.objects[key.IndexPath()]; !ok {
			t.Fatalf("missing IDX for %s", key)
		}
	}

	snapshot := make(map[string]string, len(store.objects))
	for k, v := range store.objects {
		snapshot[k] = v
	}

	// Second run: everything is already durable, so every partition is
	// reported skipped, nothing is recomputed, and no object changes.
	second, err := p.Run(ctx, 0, false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Processed != 0 || second.Failed != 0 {
		t.Fatalf("second run: %+v", second)
	}
	if second.Skipped != 24 || len(second.Results) != 24 {
		t.Fatalf("second run must report all partitions skipped: skipped=%d results=%d", second.Skipped, len(second.Results))
	}
	for _, res := range second.Results {
		if res.Status != StatusSkipped || res.Err != nil {
			t.Fatalf("second run result: %+v", res)
		}
	}
	if len(store.objects) != len(snapshot) {
		t.Fatalf("object count changed: %d -> %d", len(snapshot), len(store.objects))
	}
	for k, v := range snapshot {
		if store.objects[k] != v {
			t.Fatalf("object %s changed on idempotent rerun", k)
		}
	}

	// Force run recomputes every partition and converges to the same bytes.
	forced, err := p.Run(ctx, 0, true)
	if err != nil {
		t.Fatalf("force run: %v", err)
	}
	if forced.Processed != 24 || forced.Failed != 0 {
		t.Fatalf("force run: %+v", forced)
	}
	for k, v := range snapshot {
		if store.objects[k] != v {
			t.Fatalf("object %s diverged under force", k)
		}
	}
}
