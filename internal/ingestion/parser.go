package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/guttosm/idxpulse/internal/domain/models"
)

// Input column names for the exchange daily trade file. Column order is not
// fixed; positions are resolved from the header row by name.
const (
	colStockCode      = "STK_CODE"
	colBuyerBroker    = "BRK_COD1"
	colSellerBroker   = "BRK_COD2"
	colVolume         = "STK_VOLM"
	colPrice          = "STK_PRIC"
	colTradeCode      = "TRX_CODE"
	colSegment        = "TRX_TYPE"
	colTradeTime      = "TRX_TIME"
	colBuyerInvestor  = "INV_TYP1"
	colSellerInvestor = "INV_TYP2"
	colBuyerOrderRef  = "TRX_ORD1"
	colSellerOrderRef = "TRX_ORD2"
)

var requiredColumns = []string{
	colStockCode,
	colBuyerBroker,
	colSellerBroker,
	colVolume,
	colPrice,
	colTradeCode,
	colSegment,
	colTradeTime,
	colBuyerInvestor,
	colSellerInvestor,
	colBuyerOrderRef,
	colSellerOrderRef,
}

// ErrMissingColumn marks a file whose header lacks a required column. The
// whole file is rejected; the partition stays unprocessed and is retried on
// the next run.
var ErrMissingColumn = errors.New("missing required column")

// ParseTicks converts one raw semicolon-delimited daily file into typed
// trade records.
//
// File-level rules:
//   - The first line is the header; every required column must be present
//     (any position), otherwise the whole file fails with ErrMissingColumn.
//
// Row-level rules:
//   - Rows whose stock code is not exactly 4 characters are dropped
//     silently (non-equity or malformed rows).
//   - Numeric fields that fail to parse default to 0 rather than aborting
//     the row.
func ParseTicks(raw string) ([]models.RawTick, error) {
	r := csv.NewReader(strings.NewReader(raw))
	r.Comma = ';'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	var ticks []models.RawTick
	for {
		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read row: %w", err)
		}

		field := func(name string) string {
			i := cols[name]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		stock := field(colStockCode)
		if len(stock) != 4 {
			continue
		}

		tm, err := models.ParseTradeTime(field(colTradeTime))
		if err != nil {
			tm = 0
		}

		ticks = append(ticks, models.RawTick{
			StockCode:      stock,
			BuyerBroker:    field(colBuyerBroker),
			SellerBroker:   field(colSellerBroker),
			Volume:         parseInt(field(colVolume)),
			Price:          parseFloat(field(colPrice)),
			TradeCode:      field(colTradeCode),
			Segment:        field(colSegment),
			TradeTime:      tm,
			BuyerInvestor:  field(colBuyerInvestor),
			SellerInvestor: field(colSellerInvestor),
			BuyerOrderRef:  field(colBuyerOrderRef),
			SellerOrderRef: field(colSellerOrderRef),
		})
	}

	return ticks, nil
}

// parseInt parses a non-negative integer field, defaulting to 0 on failure.
func parseInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseFloat parses a decimal field, defaulting to 0 on failure.
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
