package models

// BrokerRow is the aggregate produced for one broker within one partition.
// In a per-stock output file the row covers that broker's activity on a
// single stock; in the IDX rollup it covers the broker's activity across
// every stock of the partition. Rows are created once per aggregation run
// and never mutated afterwards.
//
// Conventions:
//   - Averages are value/volume, 0 when the volume is 0.
//   - Freq counts distinct trade-sequence codes per side.
//   - RawOrder counts distinct raw order references; Order is the
//     deduplicated count (see ingestion.DedupOrderCount).
//   - Lot fields are the corresponding volume divided by 100.
//   - Exactly one of NetBuyVol/NetSellVol is non-zero (both zero when flat).
//   - NetBuyFreq/NetSellFreq are signed differences and may be negative.
type BrokerRow struct {
	Broker string

	BuyerVol      int64
	BuyerValue    float64
	BuyerAvg      float64
	BuyerFreq     int64
	BuyerRawOrder int64
	BuyerOrder    int64

	SellerVol      int64
	SellerValue    float64
	SellerAvg      float64
	SellerFreq     int64
	SellerRawOrder int64
	SellerOrder    int64

	BuyerLot          float64
	BuyerLotPerFreq   float64
	BuyerLotPerOrder  float64
	SellerLot         float64
	SellerLotPerFreq  float64
	SellerLotPerOrder float64

	NetBuyVol   int64
	NetBuyValue float64
	NetBuyFreq  int64
	NetBuyLot   float64

	NetSellVol   int64
	NetSellValue float64
	NetSellFreq  int64
	NetSellLot   float64
}

// FinishNet derives the mutually-exclusive net fields and the lot/ratio
// metrics from the buyer/seller totals already accumulated on the row.
func (r *BrokerRow) FinishNet() {
	if r.BuyerVol > 0 {
		r.BuyerAvg = r.BuyerValue / float64(r.BuyerVol)
	}
	if r.SellerVol > 0 {
		r.SellerAvg = r.SellerValue / float64(r.SellerVol)
	}

	rawNet := r.BuyerVol - r.SellerVol
	if rawNet >= 0 {
		r.NetBuyVol = rawNet
		r.NetBuyValue = r.BuyerValue - r.SellerValue
		r.NetSellVol = 0
		r.NetSellValue = 0
	} else {
		r.NetSellVol = -rawNet
		r.NetSellValue = abs(r.BuyerValue - r.SellerValue)
		r.NetBuyVol = 0
		r.NetBuyValue = 0
	}
	r.NetBuyFreq = r.BuyerFreq - r.SellerFreq
	r.NetSellFreq = r.SellerFreq - r.BuyerFreq

	r.BuyerLot = float64(r.BuyerVol) / 100
	r.SellerLot = float64(r.SellerVol) / 100
	r.NetBuyLot = float64(r.NetBuyVol) / 100
	r.NetSellLot = float64(r.NetSellVol) / 100

	r.BuyerLotPerFreq = ratio(r.BuyerLot, r.BuyerFreq)
	r.BuyerLotPerOrder = ratio(r.BuyerLot, r.BuyerOrder)
	r.SellerLotPerFreq = ratio(r.SellerLot, r.SellerFreq)
	r.SellerLotPerOrder = ratio(r.SellerLot, r.SellerOrder)
}

// ratio divides lot by a count denominator, yielding 0 when the denominator
// is 0 instead of propagating an infinity.
func ratio(lot float64, denom int64) float64 {
	if denom == 0 {
		return 0
	}
	return lot / float64(denom)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
