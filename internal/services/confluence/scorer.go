package confluence

import (
	"fmt"
	"math"
	"strings"
	"time"

	"Conflux/internal/domain/models"
	domsvc "Conflux/internal/domain/service"
)

// Weights holds the scoring constants. The exact values are judgment calls
// rather than derived quantities, so they are configuration with these
// defaults rather than hard-coded.
type Weights struct {
	Bias            float64 // weight of pairwise bias agreement
	Proximity       float64 // weight of the cross-source level proximity bonus
	StalePenalty    float64 // max dampening applied as the soft-stale fraction grows
	SingleSourceCap float64 // ceiling for single-source scores, below the aligned band
	MergeTolerance  float64 // relative band treating two levels as the same
	HighCut         float64
	MediumCut       float64
	LowCut          float64
}

// DefaultWeights returns the reference configuration.
func DefaultWeights() Weights {
	return Weights{
		Bias:            0.65,
		Proximity:       0.35,
		StalePenalty:    0.3,
		SingleSourceCap: 0.39,
		MergeTolerance:  0.015,
		HighCut:         0.7,
		MediumCut:       0.4,
		LowCut:          0.15,
	}
}

// Scorer combines non-excluded source views into an alignment score and
// classification. Pure read-time computation: no caches, no locks.
type Scorer struct {
	w  Weights
	th ThresholdSet
}

func NewScorer(w Weights, th ThresholdSet) *Scorer {
	return &Scorer{w: w, th: th}
}

func (s *Scorer) Score(symbol string, views []models.SourceView, levels []models.PriceLevel, now time.Time) models.ConfluenceState {
	state := models.ConfluenceState{
		Symbol:         symbol,
		Classification: models.ClassificationNone,
	}

	live := make([]models.SourceView, 0, len(views))
	staleCount := 0
	for _, v := range views {
		switch Evaluate(v.LastUpdatedAt, now, s.th.For(v.Source)) {
		case Expired:
			continue
		case Stale:
			staleCount++
		}
		live = append(live, v)
	}

	switch len(live) {
	case 0:
		state.Summary = "no current source views"
		return state
	case 1:
		// Confluence requires independent agreement by definition; a lone
		// source can never clear the aligned band no matter how confident.
		score := live[0].Confidence
		if score > s.w.SingleSourceCap {
			score = s.w.SingleSourceCap
		}
		state.Score = score
		state.Classification = s.classify(score)
		state.Summary = fmt.Sprintf("single source (%s, %s); no cross-source confluence", live[0].Source, live[0].Bias)
		return state
	}

	agreement, unanimous := biasAgreement(live)
	proximity := s.levelProximity(levels, now)
	dampener := 1.0
	if len(live) > 0 {
		dampener = 1 - s.w.StalePenalty*float64(staleCount)/float64(len(live))
	}

	score := clamp01(s.w.Bias*agreement+s.w.Proximity*proximity) * dampener
	score = clamp01(score)

	state.Score = score
	state.Classification = s.classify(score)
	state.Aligned = unanimous &&
		(state.Classification == models.ClassificationHigh || state.Classification == models.ClassificationMedium)
	state.Summary = summarize(live, agreement, proximity, staleCount)
	return state
}

func (s *Scorer) classify(score float64) models.Classification {
	switch {
	case score >= s.w.HighCut:
		return models.ClassificationHigh
	case score >= s.w.MediumCut:
		return models.ClassificationMedium
	case score >= s.w.LowCut:
		return models.ClassificationLow
	default:
		return models.ClassificationNone
	}
}

// biasAgreement returns the fraction of view pairs with same-direction
// signals, and whether every view shares a single direction.
func biasAgreement(views []models.SourceView) (float64, bool) {
	agree, total := 0, 0
	unanimous := true
	first := views[0].Bias.Signal()
	for i := 0; i < len(views); i++ {
		si := views[i].Bias.Signal()
		if si != first {
			unanimous = false
		}
		for j := i + 1; j < len(views); j++ {
			sj := views[j].Bias.Signal()
			total++
			if si*sj > 0 || (si == 0 && sj == 0) {
				agree++
			}
		}
	}
	if total == 0 {
		return 0, false
	}
	return float64(agree) / float64(total), unanimous
}

// levelProximity rewards independently sourced levels of the same type
// landing inside the merge tolerance band of each other. Returns the
// matched fraction of eligible cross-source pairs, 0 when none exist.
func (s *Scorer) levelProximity(levels []models.PriceLevel, now time.Time) float64 {
	matched, eligible := 0, 0
	for i := 0; i < len(levels); i++ {
		li := levels[i]
		if Evaluate(li.LastConfirmedAt, now, s.th.For(li.Source)) == Expired {
			continue
		}
		for j := i + 1; j < len(levels); j++ {
			lj := levels[j]
			if li.Source == lj.Source || li.Type != lj.Type {
				continue
			}
			if Evaluate(lj.LastConfirmedAt, now, s.th.For(lj.Source)) == Expired {
				continue
			}
			eligible++
			if WithinTolerance(li.Mid(), lj.Mid(), s.w.MergeTolerance) {
				matched++
			}
		}
	}
	if eligible == 0 {
		return 0
	}
	return float64(matched) / float64(eligible)
}

// WithinTolerance reports whether two prices fall inside the relative band.
func WithinTolerance(a, b, tolerance float64) bool {
	mid := (a + b) / 2
	if mid <= 0 {
		return false
	}
	return math.Abs(a-b)/mid <= tolerance
}

func summarize(views []models.SourceView, agreement, proximity float64, staleCount int) string {
	bySign := map[string]int{}
	for _, v := range views {
		switch {
		case v.Bias.Signal() > 0:
			bySign["bullish"]++
		case v.Bias.Signal() < 0:
			bySign["bearish"]++
		default:
			bySign["neutral"]++
		}
	}
	parts := make([]string, 0, 4)
	for _, dir := range []string{"bullish", "bearish", "neutral"} {
		if n := bySign[dir]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, dir))
		}
	}
	out := fmt.Sprintf("%d sources (%s); bias agreement %.2f; level proximity %.2f",
		len(views), strings.Join(parts, ", "), agreement, proximity)
	if staleCount > 0 {
		out += fmt.Sprintf("; %d stale", staleCount)
	}
	return out
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

var _ domsvc.Scorer = (*Scorer)(nil)
