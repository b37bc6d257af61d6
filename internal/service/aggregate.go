package service

import (
	"sort"

	"github.com/guttosm/idxpulse/internal/domain/models"
	"github.com/guttosm/idxpulse/internal/ingestion"
)

// sideAcc accumulates one side (buy or sell) of one broker's activity on
// one stock while ticks stream through the aggregator.
type sideAcc struct {
	vol    int64
	value  float64
	trades map[string]struct{} // distinct trade-sequence codes
	ticks  []ingestion.SideTick
}

func newSideAcc() *sideAcc {
	return &sideAcc{trades: make(map[string]struct{})}
}

func (a *sideAcc) add(t models.RawTick, orderRef string) {
	a.vol += t.Volume
	a.value += float64(t.Volume) * t.Price
	a.trades[t.TradeCode] = struct{}{}
	a.ticks = append(a.ticks, ingestion.SideTick{Time: t.TradeTime, OrderRef: orderRef})
}

type brokerAcc struct {
	buy  *sideAcc
	sell *sideAcc
}

// BuildStockRows folds segment-filtered ticks into per-stock broker rows
// for one investor-nationality filter.
//
// Nationality is applied per broker-role (see ingestion.BuySideMatches):
// the buy side accrues to the buyer broker only when the buyer-side
// investor matches, independently of the seller side.
//
// Each stock's rows carry buyer/seller totals, distinct-trade frequencies,
// raw and deduplicated order counts, and the derived net/lot/ratio metrics,
// sorted by net buy value descending (ties broken by broker code so output
// bytes are deterministic).
func BuildStockRows(ticks []models.RawTick, inv models.InvestorType) map[string][]models.BrokerRow {
	type key struct {
		stock  string
		broker string
	}
	accs := make(map[key]*brokerAcc)
	get := func(stock, broker string) *brokerAcc {
		k := key{stock: stock, broker: broker}
		a, ok := accs[k]
		if !ok {
			a = &brokerAcc{buy: newSideAcc(), sell: newSideAcc()}
			accs[k] = a
		}
		return a
	}

	for _, t := range ticks {
		if ingestion.BuySideMatches(t, inv) {
			get(t.StockCode, t.BuyerBroker).buy.add(t, t.BuyerOrderRef)
		}
		if ingestion.SellSideMatches(t, inv) {
			get(t.StockCode, t.SellerBroker).sell.add(t, t.SellerOrderRef)
		}
	}

	byStock := make(map[string][]models.BrokerRow)
	for k, a := range accs {
		row := models.BrokerRow{
			Broker:         k.broker,
			BuyerVol:       a.buy.vol,
			BuyerValue:     a.buy.value,
			BuyerFreq:      int64(len(a.buy.trades)),
			BuyerRawOrder:  ingestion.RawOrderCount(a.buy.ticks),
			BuyerOrder:     ingestion.DedupOrderCount(a.buy.ticks),
			SellerVol:      a.sell.vol,
			SellerValue:    a.sell.value,
			SellerFreq:     int64(len(a.sell.trades)),
			SellerRawOrder: ingestion.RawOrderCount(a.sell.ticks),
			SellerOrder:    ingestion.DedupOrderCount(a.sell.ticks),
		}
		row.FinishNet()
		byStock[k.stock] = append(byStock[k.stock], row)
	}

	for stock := range byStock {
		SortRows(byStock[stock])
	}
	return byStock
}

// SortRows orders rows by net buy value descending, broker code ascending
// on ties.
func SortRows(rows []models.BrokerRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].NetBuyValue != rows[j].NetBuyValue {
			return rows[i].NetBuyValue > rows[j].NetBuyValue
		}
		return rows[i].Broker < rows[j].Broker
	})
}
