package ingestion

import "testing"

const (
	beforeCutoff = 8*3600 + 57*60 // 08:57:00
	afterCutoff  = 9 * 3600      // 09:00:00
)

func TestDedupOrderCount(t *testing.T) {
	cases := []struct {
		name  string
		ticks []SideTick
		want  int64
	}{
		{
			name: "post-cutoff same second collapses to one",
			ticks: []SideTick{
				{Time: afterCutoff, OrderRef: "A"},
				{Time: afterCutoff, OrderRef: "B"},
				{Time: afterCutoff, OrderRef: "C"},
			},
			want: 1,
		},
		{
			name: "post-cutoff distinct seconds count separately",
			ticks: []SideTick{
				{Time: afterCutoff, OrderRef: "A"},
				{Time: afterCutoff + 1, OrderRef: "B"},
				{Time: afterCutoff + 2, OrderRef: "C"},
			},
			want: 3,
		},
		{
			name: "pre-cutoff refs count individually",
			ticks: []SideTick{
				{Time: beforeCutoff, OrderRef: "A"},
				{Time: beforeCutoff, OrderRef: "B"},
				{Time: beforeCutoff + 1, OrderRef: "C"},
			},
			want: 3,
		},
		{
			name: "pre-cutoff duplicate ref counts once",
			ticks: []SideTick{
				{Time: beforeCutoff, OrderRef: "A"},
				{Time: beforeCutoff + 10, OrderRef: "A"},
			},
			want: 1,
		},
		{
			name: "union does not double count shared ref",
			ticks: []SideTick{
				{Time: beforeCutoff, OrderRef: "A"},
				{Time: afterCutoff, OrderRef: "A"},
				{Time: afterCutoff, OrderRef: "B"},
			},
			want: 1,
		},
		{
			name: "boundary second is post-cutoff",
			ticks: []SideTick{
				{Time: dedupCutoff, OrderRef: "A"},
				{Time: dedupCutoff, OrderRef: "B"},
			},
			want: 1,
		},
		{
			name:  "empty",
			ticks: nil,
			want:  0,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DedupOrderCount(c.ticks); got != c.want {
				t.Fatalf("got %d want %d", got, c.want)
			}
		})
	}
}

func TestDedupNeverExceedsRaw(t *testing.T) {
	ticks := []SideTick{
		{Time: beforeCutoff, OrderRef: "A"},
		{Time: beforeCutoff, OrderRef: "B"},
		{Time: afterCutoff, OrderRef: "C"},
		{Time: afterCutoff, OrderRef: "D"},
		{Time: afterCutoff + 1, OrderRef: "E"},
		{Time: afterCutoff + 1, OrderRef: "A"},
	}

	raw := RawOrderCount(ticks)
	dedup := DedupOrderCount(ticks)
	if dedup > raw {
		t.Fatalf("dedup %d exceeds raw %d", dedup, raw)
	}
	if raw != 5 {
		t.Fatalf("raw: got %d want 5", raw)
	}
	if dedup != 4 {
		t.Fatalf("dedup: got %d want 4", dedup)
	}
}
