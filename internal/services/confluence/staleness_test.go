package confluence

import (
	"testing"
	"time"
)

func TestEvaluateBoundaries(t *testing.T) {
	th := Thresholds{Soft: 36 * time.Hour, Hard: 120 * time.Hour}
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		age  time.Duration
		want Freshness
	}{
		{"fresh", time.Hour, Fresh},
		{"just under soft", 36*time.Hour - time.Second, Fresh},
		{"exactly soft", 36 * time.Hour, Stale},
		{"between", 72 * time.Hour, Stale},
		{"exactly hard", 120 * time.Hour, Expired},
		{"past hard", 200 * time.Hour, Expired},
	}
	for _, c := range cases {
		if got := Evaluate(now.Add(-c.age), now, th); got != c.want {
			t.Fatalf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestEvaluateZeroThresholdsNeverExpire(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if got := Evaluate(now.Add(-1000*time.Hour), now, Thresholds{}); got != Fresh {
		t.Fatalf("unbounded thresholds: got %v, want fresh", got)
	}
}

func TestThresholdSetFor(t *testing.T) {
	ts := ThresholdSet{
		Default:   Thresholds{Soft: 36 * time.Hour, Hard: 120 * time.Hour},
		PerSource: map[string]Thresholds{"substack": {Soft: 96 * time.Hour, Hard: 240 * time.Hour}},
	}
	if got := ts.For("substack").Soft; got != 96*time.Hour {
		t.Fatalf("override soft: got %v", got)
	}
	if got := ts.For("tv").Soft; got != 36*time.Hour {
		t.Fatalf("default soft: got %v", got)
	}
}

func TestIsStale(t *testing.T) {
	th := Thresholds{Soft: 36 * time.Hour, Hard: 120 * time.Hour}
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if IsStale(now.Add(-time.Hour), now, th) {
		t.Fatalf("fresh entry flagged stale")
	}
	if !IsStale(now.Add(-48*time.Hour), now, th) {
		t.Fatalf("stale entry not flagged")
	}
}
