package models

import "testing"

func TestParseTradeTime_TableDriven(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "08:57:59", want: 8*3600 + 57*60 + 59},
		{in: "085759", want: 8*3600 + 57*60 + 59},
		{in: "00:00:00", want: 0},
		{in: "235959", want: 23*3600 + 59*60 + 59},
		{in: "24:00:00", wantErr: true},
		{in: "9:00:00", wantErr: true},
		{in: "", wantErr: true},
		{in: "abcdef", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTradeTime(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}
