package confluence

import "time"

// Thresholds are per-source staleness bounds. Age at or past Soft flags the
// entry stale (still used, with a visible warning); age at or past Hard
// excludes it from scoring entirely.
type Thresholds struct {
	Soft time.Duration
	Hard time.Duration
}

// ThresholdSet carries per-source tuning plus a fallback for sources
// without an explicit entry. Sources publish at different cadences, so a
// weekly newsletter tolerates a much longer gap than a near-daily feed.
type ThresholdSet struct {
	Default   Thresholds
	PerSource map[string]Thresholds
}

// For returns the thresholds for source.
func (t ThresholdSet) For(source string) Thresholds {
	if th, ok := t.PerSource[source]; ok {
		return th
	}
	return t.Default
}

type Freshness int

const (
	Fresh Freshness = iota
	Stale           // past the soft threshold, still scored
	Expired         // past the hard cutoff, excluded as if absent
)

// Evaluate classifies the freshness of an entry last touched at `last` as
// of `now`. Pure function of its inputs.
func Evaluate(last, now time.Time, th Thresholds) Freshness {
	age := now.Sub(last)
	if th.Hard > 0 && age >= th.Hard {
		return Expired
	}
	if th.Soft > 0 && age >= th.Soft {
		return Stale
	}
	return Fresh
}

// IsStale reports whether the entry should carry a staleness warning.
func IsStale(last, now time.Time, th Thresholds) bool {
	return Evaluate(last, now, th) != Fresh
}
