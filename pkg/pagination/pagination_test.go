package pagination

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   Params
		want Params
	}{
		{in: Params{}, want: Params{Limit: DefaultLimit}},
		{in: Params{Limit: 500, Offset: 10}, want: Params{Limit: MaxLimit, Offset: 10}},
		{in: Params{Limit: 5, Offset: -3}, want: Params{Limit: 5}},
	}
	for _, tc := range cases {
		if got := tc.in.Normalize(); got != tc.want {
			t.Fatalf("Normalize(%+v) = %+v want %+v", tc.in, got, tc.want)
		}
	}
}
