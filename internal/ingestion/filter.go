package ingestion

import "github.com/guttosm/idxpulse/internal/domain/models"

// FilterSegment keeps ticks whose board tag equals seg. SegmentAll keeps
// every tick.
func FilterSegment(ticks []models.RawTick, seg models.Segment) []models.RawTick {
	if seg == models.SegmentAll {
		return ticks
	}
	out := make([]models.RawTick, 0, len(ticks))
	for _, t := range ticks {
		if t.Segment == string(seg) {
			out = append(out, t)
		}
	}
	return out
}

// Nationality filtering is directional: it is evaluated per broker-role,
// not per row. A tick contributes to the buyer broker's buy side only when
// the buyer-side investor matches the requested type, and to the seller
// broker's sell side only when the seller-side investor matches. The same
// row can therefore count for one broker under D and for the counterparty
// under F. Downstream consumers depend on these semantics; do not collapse
// this into a whole-row filter.

// BuySideMatches reports whether the tick's buy side is in scope for inv.
func BuySideMatches(t models.RawTick, inv models.InvestorType) bool {
	return inv == models.InvestorAll || t.BuyerInvestor == string(inv)
}

// SellSideMatches reports whether the tick's sell side is in scope for inv.
func SellSideMatches(t models.RawTick, inv models.InvestorType) bool {
	return inv == models.InvestorAll || t.SellerInvestor == string(inv)
}
