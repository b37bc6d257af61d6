package service

import "github.com/guttosm/idxpulse/internal/domain/models"

// RollupIndex re-aggregates the per-stock broker rows of one partition into
// a single cross-stock row per broker.
//
// Volume, value, frequency and order-count totals are summed across stocks;
// averages are then recomputed from the summed totals (sum of values over
// sum of volumes). Averaging the per-stock averages instead would bias the
// figure toward low-volume stocks. Net fields follow the same
// mutually-exclusive sign convention as the per-stock rows, and the result
// is sorted by net buy value descending.
func RollupIndex(perStock map[string][]models.BrokerRow) []models.BrokerRow {
	totals := make(map[string]*models.BrokerRow)
	for _, rows := range perStock {
		for _, r := range rows {
			t, ok := totals[r.Broker]
			if !ok {
				t = &models.BrokerRow{Broker: r.Broker}
				totals[r.Broker] = t
			}
			t.BuyerVol += r.BuyerVol
			t.BuyerValue += r.BuyerValue
			t.BuyerFreq += r.BuyerFreq
			t.BuyerRawOrder += r.BuyerRawOrder
			t.BuyerOrder += r.BuyerOrder
			t.SellerVol += r.SellerVol
			t.SellerValue += r.SellerValue
			t.SellerFreq += r.SellerFreq
			t.SellerRawOrder += r.SellerRawOrder
			t.SellerOrder += r.SellerOrder
		}
	}

	out := make([]models.BrokerRow, 0, len(totals))
	for _, t := range totals {
		t.FinishNet()
		out = append(out, *t)
	}
	SortRows(out)
	return out
}
