package llm

import "testing"

func TestDecimalFromFloat(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{0, 0},
		{12.5, 1250},
		{999.99, 99999},
		{1000, 100000},
	}
	for _, c := range cases {
		got := decimalFromFloat(c.in)
		if got.Units != c.want {
			t.Errorf("decimalFromFloat(%v) = %d, want %d", c.in, got.Units, c.want)
		}
	}
}
