package perf

import (
	"testing"

	"github.com/winahq/walnut_agent/internal/entry"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		metric string
		value  float64
		want   Rating
	}{
		{"fcp", 1000, RatingGood},
		{"fcp", 1800, RatingNeedsImprovement},
		{"fcp", 3000, RatingPoor},
		{"lcp", 2499, RatingGood},
		{"lcp", 2500, RatingNeedsImprovement},
		{"lcp", 4000, RatingPoor},
		{"cls", 0.05, RatingGood},
		{"cls", 0.1, RatingNeedsImprovement},
		{"cls", 0.3, RatingPoor},
		{"tbt", 100, RatingGood},
		{"tbt", 600, RatingPoor},
		{"ttfb", 799, RatingGood},
		{"ttfb", 1800, RatingPoor},
	}

	for _, tc := range cases {
		if got := Classify(tc.metric, tc.value); got != tc.want {
			t.Fatalf("Classify(%q, %v) = %q, want %q", tc.metric, tc.value, got, tc.want)
		}
	}
}

func TestComputeNoData(t *testing.T) {
	d := Compute(Snapshot{})
	if d.State != StateNoData {
		t.Fatalf("state = %q, want %q", d.State, StateNoData)
	}
	if d.Score != 0 || d.Rating != "" {
		t.Fatalf("no-data result must carry no rating, got score=%d rating=%q", d.Score, d.Rating)
	}
	if d.FCP.Present || d.LCP.Present {
		t.Fatalf("no-data result must have no present metrics")
	}
}

func TestComputeAllGood(t *testing.T) {
	d := Compute(Snapshot{
		Navigation: entry.NavigationTiming{Response: 120, LoadEvent: 900},
		Paints: []entry.PaintEntry{
			{Name: "first-paint", StartOffset: 200},
			{Name: "first-contentful-paint", StartOffset: 240},
		},
		LCP: 1200,
		CLS: 0.01,
		TBT: 50,
	})

	if d.State != StateMeasured {
		t.Fatalf("state = %q, want %q", d.State, StateMeasured)
	}
	if d.Score != 100 {
		t.Fatalf("score = %d, want 100", d.Score)
	}
	if d.Rating != RatingGood {
		t.Fatalf("rating = %q, want %q", d.Rating, RatingGood)
	}
	if !d.PassesWebVitals {
		t.Fatalf("all-good snapshot must pass web vitals")
	}
	if !d.FCP.Present || d.FCP.Value != 240 {
		t.Fatalf("fcp = %+v, want present with value 240", d.FCP)
	}
}

func TestComputePoorLCPFailsVitals(t *testing.T) {
	d := Compute(Snapshot{
		Navigation: entry.NavigationTiming{Response: 100},
		Paints:     []entry.PaintEntry{{Name: "first-contentful-paint", StartOffset: 500}},
		LCP:        5000,
		CLS:        0.02,
	})

	if d.PassesWebVitals {
		t.Fatalf("poor LCP must fail web vitals")
	}
	if d.LCP.Rating != RatingPoor {
		t.Fatalf("lcp rating = %q, want %q", d.LCP.Rating, RatingPoor)
	}
	if d.Score >= 100 {
		t.Fatalf("score = %d, should be below 100 with a poor metric", d.Score)
	}
}

func TestComputeZeroCLSIsMeasured(t *testing.T) {
	d := Compute(Snapshot{
		Paints: []entry.PaintEntry{{Name: "first-contentful-paint", StartOffset: 300}},
	})

	if !d.CLS.Present {
		t.Fatalf("CLS of zero on a painted page must be a real measurement")
	}
	if d.CLS.Rating != RatingGood {
		t.Fatalf("cls rating = %q, want %q", d.CLS.Rating, RatingGood)
	}
}

func TestComputeNavigationOnly(t *testing.T) {
	// Navigation timing present but no paints: measured, scored on TTFB
	// alone, and web vitals cannot pass because no core metric exists.
	d := Compute(Snapshot{
		Navigation: entry.NavigationTiming{DNS: 5, Response: 300, LoadEvent: 1200},
	})

	if d.State != StateMeasured {
		t.Fatalf("state = %q, want %q", d.State, StateMeasured)
	}
	if !d.TTFB.Present || d.TTFB.Rating != RatingGood {
		t.Fatalf("ttfb = %+v, want present/good", d.TTFB)
	}
	if d.FCP.Present || d.LCP.Present {
		t.Fatalf("paint metrics must be absent without paint entries")
	}
	if d.PassesWebVitals {
		t.Fatalf("vitals cannot pass with no core metric present")
	}
}

func TestComputeResourceTotals(t *testing.T) {
	d := Compute(Snapshot{
		Navigation: entry.NavigationTiming{Response: 100},
		Resources: []entry.ResourceEntry{
			{DecodedSize: 1000},
			{DecodedSize: 2500},
		},
	})

	if d.ResourceCount != 2 || d.ResourceBytes != 3500 {
		t.Fatalf("resource totals = %d/%d, want 2/3500", d.ResourceCount, d.ResourceBytes)
	}
}

func TestComputeIsWholesale(t *testing.T) {
	first := Compute(Snapshot{Navigation: entry.NavigationTiming{Response: 2000}})
	second := Compute(Snapshot{Navigation: entry.NavigationTiming{Response: 100}})

	if first.TTFB.Rating != RatingPoor {
		t.Fatalf("first pass ttfb = %q, want %q", first.TTFB.Rating, RatingPoor)
	}
	if second.TTFB.Rating != RatingGood {
		t.Fatalf("recompute must not carry state from a previous pass, ttfb = %q", second.TTFB.Rating)
	}
}
