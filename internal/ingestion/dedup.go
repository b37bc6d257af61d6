package ingestion

// The exchange occasionally re-reports an order under a fresh reference
// within the same timestamp bucket after market open, so counting distinct
// raw references over-counts economic orders. DedupOrderCount collapses
// those apparent duplicates.

// dedupCutoff is 08:58:00 in seconds since midnight. Ticks strictly before
// the cutoff keep their references as-is; ticks at or after it are bucketed
// by exact trade time.
const dedupCutoff = 8*3600 + 58*60

// SideTick is one side of an executed trade as seen by a single broker:
// the trade time plus that side's order reference. The dedup engine runs
// independently per (broker, stock, side) over these.
type SideTick struct {
	Time     int // seconds since midnight
	OrderRef string
}

// DedupOrderCount computes the deduplicated order count for one side of one
// (broker, stock) pair.
//
// Algorithm:
//  1. Ticks at/after the 08:58:00 cutoff are grouped by exact time value;
//     each time bucket contributes at most one reference (the first tick's)
//     as its representative.
//  2. Ticks before the cutoff contribute their references individually.
//  3. The count is the size of the union of bucket representatives and
//     pre-cutoff references; a pre-cutoff reference already chosen as a
//     bucket representative is not counted twice.
func DedupOrderCount(ticks []SideTick) int64 {
	refs := make(map[string]struct{})
	buckets := make(map[int]struct{})

	for _, t := range ticks {
		if t.Time < dedupCutoff {
			refs[t.OrderRef] = struct{}{}
			continue
		}
		if _, seen := buckets[t.Time]; seen {
			continue
		}
		buckets[t.Time] = struct{}{}
		refs[t.OrderRef] = struct{}{}
	}

	return int64(len(refs))
}

// RawOrderCount counts distinct raw order references for one side, the
// naive figure DedupOrderCount improves on.
func RawOrderCount(ticks []SideTick) int64 {
	refs := make(map[string]struct{}, len(ticks))
	for _, t := range ticks {
		refs[t.OrderRef] = struct{}{}
	}
	return int64(len(refs))
}
