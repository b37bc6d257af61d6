package models

import "strings"

// familyBase is the output family prefix shared by every broker-transaction
// partition. Non-ALL dimensions append lowercase suffixes, e.g.
// "broker_transaction_stock_d_rg" for domestic investors on the RG board.
const familyBase = "broker_transaction_stock"

// IndexFileName is the cross-stock rollup file inside a partition directory.
const IndexFileName = "IDX.csv"

// DoneMarker is the terminal marker object written after the last per-stock
// file of a partition. Its presence means the stock phase for that partition
// is complete.
const DoneMarker = "_DONE"

// PartitionKey identifies one unit of aggregation work and one output
// location: a trading date combined with a market-segment filter and an
// investor-nationality filter.
type PartitionKey struct {
	Date     string // YYYYMMDD
	Segment  Segment
	Investor InvestorType
}

// AllPartitionKeys returns every segment × investor combination for a date,
// ALL dimensions included.
func AllPartitionKeys(date string) []PartitionKey {
	keys := make([]PartitionKey, 0, len(Segments)*len(InvestorTypes))
	for _, inv := range InvestorTypes {
		for _, seg := range Segments {
			keys = append(keys, PartitionKey{Date: date, Segment: seg, Investor: inv})
		}
	}
	return keys
}

// Family encodes the segment/nationality combination into the output family
// name. ALL dimensions contribute no suffix.
func (k PartitionKey) Family() string {
	var b strings.Builder
	b.WriteString(familyBase)
	if k.Investor != InvestorAll {
		b.WriteString("_")
		b.WriteString(strings.ToLower(string(k.Investor)))
	}
	if k.Segment != SegmentAll {
		b.WriteString("_")
		b.WriteString(strings.ToLower(string(k.Segment)))
	}
	return b.String()
}

// OutputDir returns the blob-store directory holding this partition's files:
// "{family}/{family}_{date}".
func (k PartitionKey) OutputDir() string {
	f := k.Family()
	return f + "/" + f + "_" + k.Date
}

// StockPath returns the per-stock output path "{dir}/{STOCK}.csv".
func (k PartitionKey) StockPath(stock string) string {
	return k.OutputDir() + "/" + stock + ".csv"
}

// IndexPath returns the cross-stock rollup path "{dir}/IDX.csv".
func (k PartitionKey) IndexPath() string {
	return k.OutputDir() + "/" + IndexFileName
}

// MarkerPath returns the terminal marker path "{dir}/_DONE".
func (k PartitionKey) MarkerPath() string {
	return k.OutputDir() + "/" + DoneMarker
}

func (k PartitionKey) String() string {
	return k.Date + "/" + string(k.Segment) + "/" + string(k.Investor)
}
