package models

import "time"

type LevelType string

const (
	LevelSupport      LevelType = "support"
	LevelResistance   LevelType = "resistance"
	LevelTarget       LevelType = "target"
	LevelInvalidation LevelType = "invalidation"
)

// ValidLevelType reports whether t is one of the known level types.
func ValidLevelType(t LevelType) bool {
	switch t {
	case LevelSupport, LevelResistance, LevelTarget, LevelInvalidation:
		return true
	}
	return false
}

type Direction string

const (
	DirectionBullishReversal  Direction = "bullish_reversal"
	DirectionBearishBreakdown Direction = "bearish_breakdown"
	DirectionNeutral          Direction = "neutral"
)

// PriceLevel is a deduplicated price level extracted from one source.
// Levels within the merge-tolerance band of an existing record for the same
// (symbol, source, type) are folded into it rather than stored twice.
type PriceLevel struct {
	Symbol          string    `json:"symbol"`
	Source          string    `json:"source"`
	Type            LevelType `json:"type"`
	Price           float64   `json:"price"`
	PriceUpper      float64   `json:"price_upper,omitempty"` // set for range levels
	Direction       Direction `json:"direction,omitempty"`
	Retracement     string    `json:"retracement,omitempty"` // e.g. "0.618"
	Confidence      float64   `json:"confidence"`
	Context         string    `json:"context,omitempty"`
	LowConfidence   bool      `json:"low_confidence,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	LastConfirmedAt time.Time `json:"last_confirmed_at"`
}

// Mid returns the comparison price: the midpoint for range levels,
// the price itself otherwise.
func (l PriceLevel) Mid() float64 {
	if l.PriceUpper > 0 && l.PriceUpper > l.Price {
		return (l.Price + l.PriceUpper) / 2
	}
	return l.Price
}
