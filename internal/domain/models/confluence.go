package models

type Classification string

const (
	ClassificationHigh   Classification = "high"
	ClassificationMedium Classification = "medium"
	ClassificationLow    Classification = "low"
	ClassificationNone   Classification = "none"
)

// ConfluenceState is the derived cross-source agreement picture for one
// symbol. It is recomputed from stored views and levels at read time and
// never persisted as an independent source of truth.
type ConfluenceState struct {
	Symbol         string         `json:"symbol"`
	Score          float64        `json:"score"`
	Aligned        bool           `json:"aligned"`
	Classification Classification `json:"classification"`
	Summary        string         `json:"summary,omitempty"`
	TradeSetup     string         `json:"trade_setup,omitempty"`
}
