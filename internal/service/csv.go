package service

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/guttosm/idxpulse/internal/domain/models"
)

// Output files are comma-delimited with one header row and one row per
// broker. The writer, the index rollup (which reads per-stock outputs
// back), and the read API all share this codec.

// OutputContentType is the content type uploaded with every CSV output.
const OutputContentType = "text/csv"

var csvHeader = []string{
	"broker",
	"buyer_vol", "buyer_value", "buyer_avg", "buyer_freq", "buyer_raw_order", "buyer_order",
	"seller_vol", "seller_value", "seller_avg", "seller_freq", "seller_raw_order", "seller_order",
	"buyer_lot", "buyer_lot_per_freq", "buyer_lot_per_order",
	"seller_lot", "seller_lot_per_freq", "seller_lot_per_order",
	"net_buy_vol", "net_buy_value", "net_buy_freq", "net_buy_lot",
	"net_sell_vol", "net_sell_value", "net_sell_freq", "net_sell_lot",
}

// EncodeRows renders broker rows to CSV text. Row order is preserved, so
// callers sort before encoding. Floats use the shortest exact
// representation, keeping repeated runs byte-identical.
func EncodeRows(rows []models.BrokerRow) string {
	var b strings.Builder
	w := csv.NewWriter(&b)

	_ = w.Write(csvHeader)
	for _, r := range rows {
		_ = w.Write([]string{
			r.Broker,
			formatInt(r.BuyerVol), formatFloat(r.BuyerValue), formatFloat(r.BuyerAvg),
			formatInt(r.BuyerFreq), formatInt(r.BuyerRawOrder), formatInt(r.BuyerOrder),
			formatInt(r.SellerVol), formatFloat(r.SellerValue), formatFloat(r.SellerAvg),
			formatInt(r.SellerFreq), formatInt(r.SellerRawOrder), formatInt(r.SellerOrder),
			formatFloat(r.BuyerLot), formatFloat(r.BuyerLotPerFreq), formatFloat(r.BuyerLotPerOrder),
			formatFloat(r.SellerLot), formatFloat(r.SellerLotPerFreq), formatFloat(r.SellerLotPerOrder),
			formatInt(r.NetBuyVol), formatFloat(r.NetBuyValue), formatInt(r.NetBuyFreq), formatFloat(r.NetBuyLot),
			formatInt(r.NetSellVol), formatFloat(r.NetSellValue), formatInt(r.NetSellFreq), formatFloat(r.NetSellLot),
		})
	}
	w.Flush()
	return b.String()
}

// DecodeRows parses CSV text produced by EncodeRows back into broker rows.
func DecodeRows(text string) ([]models.BrokerRow, error) {
	r := csv.NewReader(strings.NewReader(text))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv: missing header")
	}
	if len(records[0]) != len(csvHeader) {
		return nil, fmt.Errorf("unexpected column count: want %d got %d", len(csvHeader), len(records[0]))
	}

	rows := make([]models.BrokerRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(csvHeader) {
			return nil, fmt.Errorf("row %d: unexpected column count %d", i+2, len(rec))
		}
		row := models.BrokerRow{Broker: rec[0]}
		var err error
		fields := []struct {
			i  *int64
			f  *float64
			at int
		}{
			{i: &row.BuyerVol, at: 1}, {f: &row.BuyerValue, at: 2}, {f: &row.BuyerAvg, at: 3},
			{i: &row.BuyerFreq, at: 4}, {i: &row.BuyerRawOrder, at: 5}, {i: &row.BuyerOrder, at: 6},
			{i: &row.SellerVol, at: 7}, {f: &row.SellerValue, at: 8}, {f: &row.SellerAvg, at: 9},
			{i: &row.SellerFreq, at: 10}, {i: &row.SellerRawOrder, at: 11}, {i: &row.SellerOrder, at: 12},
			{f: &row.BuyerLot, at: 13}, {f: &row.BuyerLotPerFreq, at: 14}, {f: &row.BuyerLotPerOrder, at: 15},
			{f: &row.SellerLot, at: 16}, {f: &row.SellerLotPerFreq, at: 17}, {f: &row.SellerLotPerOrder, at: 18},
			{i: &row.NetBuyVol, at: 19}, {f: &row.NetBuyValue, at: 20}, {i: &row.NetBuyFreq, at: 21}, {f: &row.NetBuyLot, at: 22},
			{i: &row.NetSellVol, at: 23}, {f: &row.NetSellValue, at: 24}, {i: &row.NetSellFreq, at: 25}, {f: &row.NetSellLot, at: 26},
		}
		for _, fd := range fields {
			if fd.i != nil {
				*fd.i, err = strconv.ParseInt(rec[fd.at], 10, 64)
			} else {
				*fd.f, err = strconv.ParseFloat(rec[fd.at], 64)
			}
			if err != nil {
				return nil, fmt.Errorf("row %d col %s: %w", i+2, csvHeader[fd.at], err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
