package models

import "testing"

func TestBiasSignal(t *testing.T) {
	cases := []struct {
		bias Bias
		want float64
	}{
		{BiasBullish, 1},
		{BiasBearish, -1},
		{BiasNeutral, 0},
		{Bias("bullish_volatile"), 1},
		{Bias("bearish_quiet"), -1},
		{Bias("buy_call"), 1},
		{Bias("sell_put"), -1},
		{Bias("long"), 1},
		{Bias("short"), -1},
		{Bias("BUY_CALL"), 1},
		{Bias("chop"), 0},
		{Bias(""), 0},
	}
	for _, c := range cases {
		if got := c.bias.Signal(); got != c.want {
			t.Fatalf("Signal(%q): got %v, want %v", c.bias, got, c.want)
		}
	}
}
