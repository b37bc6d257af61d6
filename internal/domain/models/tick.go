package models

import "fmt"

// Segment identifies the market board a trade executed on.
type Segment string

// InvestorType identifies the nationality class of the investor behind an order.
type InvestorType string

const (
	SegmentAll Segment = "ALL" // no board filter
	SegmentRG  Segment = "RG"  // regular board
	SegmentTN  Segment = "TN"  // cash board
	SegmentNG  Segment = "NG"  // negotiated board

	InvestorAll      InvestorType = "ALL" // no nationality filter
	InvestorDomestic InvestorType = "D"
	InvestorForeign  InvestorType = "F"
)

// Segments lists every market-segment filter a partition can be built for.
var Segments = []Segment{SegmentAll, SegmentRG, SegmentTN, SegmentNG}

// InvestorTypes lists every nationality filter a partition can be built for.
var InvestorTypes = []InvestorType{InvestorAll, InvestorDomestic, InvestorForeign}

// RawTick represents a single executed trade from the exchange daily file.
// Each field matches one column of the semicolon-delimited input, resolved
// by header name (column order in the file is not fixed).
//
// A tick is immutable once parsed and lives only for the duration of one
// partition-processing pass.
type RawTick struct {
	StockCode      string // 4-letter equity code
	BuyerBroker    string
	SellerBroker   string
	Volume         int64
	Price          float64
	TradeCode      string // trade-sequence code, unique per executed trade
	Segment        string // RG, TN or NG
	TradeTime      int    // seconds since midnight
	BuyerInvestor  string // D or F
	SellerInvestor string // D or F
	BuyerOrderRef  string
	SellerOrderRef string
}

// ParseTradeTime converts an exchange trade-time string into seconds since
// midnight. Both "HH:MM:SS" and "HHMMSS" layouts appear in the feed.
//
// Returns:
//   - int: seconds since midnight.
//   - error: if the value matches neither layout.
func ParseTradeTime(s string) (int, error) {
	var h, m, sec int
	switch len(s) {
	case 8:
		if _, err := fmt.Sscanf(s, "%02d:%02d:%02d", &h, &m, &sec); err != nil {
			return 0, fmt.Errorf("invalid trade time %q: %w", s, err)
		}
	case 6:
		if _, err := fmt.Sscanf(s, "%02d%02d%02d", &h, &m, &sec); err != nil {
			return 0, fmt.Errorf("invalid trade time %q: %w", s, err)
		}
	default:
		return 0, fmt.Errorf("invalid trade time %q: want HH:MM:SS or HHMMSS", s)
	}
	if h > 23 || m > 59 || sec > 59 {
		return 0, fmt.Errorf("invalid trade time %q: out of range", s)
	}
	return h*3600 + m*60 + sec, nil
}
