package models

import (
	"strings"
	"time"
)

// Bias is a source's directional stance. Plain values are "bullish",
// "bearish", "neutral"; quadrant-style values combine direction and
// volatility regime, e.g. "bullish_volatile" or "bearish_quiet".
// Flow-style sources phrase the stance as an action instead, e.g.
// "buy_call", "sell_put", "long", "short".
type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasNeutral Bias = "neutral"
)

// Signal maps the bias onto a directional signal in [-1, +1]. Only the
// direction token before an underscore matters, so "bullish_volatile"
// and "buy_call" both read as +1.
func (b Bias) Signal() float64 {
	s := strings.ToLower(string(b))
	if i := strings.IndexByte(s, '_'); i > 0 {
		s = s[:i]
	}
	switch s {
	case "bullish", "buy", "long":
		return 1
	case "bearish", "sell", "short":
		return -1
	default:
		return 0
	}
}

// SourceView is one source's current stance on a symbol. At most one view
// exists per (symbol, source); newer extractions replace it wholesale.
type SourceView struct {
	Symbol        string    `json:"symbol"`
	Source        string    `json:"source"`
	Bias          Bias      `json:"bias"`
	Confidence    float64   `json:"confidence"`
	Notes         string    `json:"notes,omitempty"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}
