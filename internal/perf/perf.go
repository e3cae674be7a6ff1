// Package perf recomputes Web-Vitals-style scoring from a full telemetry
// snapshot. Scoring is a pure function of the snapshot; each collection pass
// replaces the previous result wholesale.
package perf

import (
	"math"
	"strings"

	"github.com/winahq/walnut_agent/internal/entry"
)

// State distinguishes a measured result from the absence of data. A page
// with no navigation timing and no paint entries reports StateNoData, never
// a zero score that could read as measured.
type State string

const (
	StateMeasured State = "measured"
	StateNoData   State = "no_data"
)

// Rating is the standard three-way classification.
type Rating string

const (
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs-improvement"
	RatingPoor             Rating = "poor"
)

// threshold holds the fixed breakpoints for one metric: values below good
// rate good, values at or above poor rate poor.
type threshold struct {
	good float64
	poor float64
}

var thresholds = map[string]threshold{
	"fcp":  {good: 1800, poor: 3000},
	"lcp":  {good: 2500, poor: 4000},
	"cls":  {good: 0.1, poor: 0.25},
	"tbt":  {good: 200, poor: 600},
	"ttfb": {good: 800, poor: 1800},
}

// metric weights for the 0-100 overall score. Absent metrics are excluded
// and the remaining weights renormalized.
var weights = map[string]float64{
	"fcp":  15,
	"lcp":  30,
	"cls":  25,
	"tbt":  20,
	"ttfb": 10,
}

var ratingPoints = map[Rating]float64{
	RatingGood:             1.0,
	RatingNeedsImprovement: 0.5,
	RatingPoor:             0.0,
}

// Classify applies the fixed breakpoints for a named metric.
func Classify(name string, value float64) Rating {
	th, ok := thresholds[name]
	if !ok {
		return RatingNeedsImprovement
	}
	if value < th.good {
		return RatingGood
	}
	if value >= th.poor {
		return RatingPoor
	}
	return RatingNeedsImprovement
}

// Metric is one scored measurement. Present is false when the snapshot had
// no value for it.
type Metric struct {
	Value   float64 `json:"value"`
	Rating  Rating  `json:"rating,omitempty"`
	Present bool    `json:"present"`
}

// Snapshot is the input to a scoring pass: everything the page reported on
// the last collection.
type Snapshot struct {
	Navigation entry.NavigationTiming
	Paints     []entry.PaintEntry
	Resources  []entry.ResourceEntry
	CLS        float64
	TBT        float64
	LCP        float64
}

// Data is the recomputed performance aggregate.
type Data struct {
	State      State                  `json:"state"`
	Navigation entry.NavigationTiming `json:"navigation"`
	Paints     []entry.PaintEntry     `json:"paints,omitempty"`

	FCP  Metric `json:"fcp"`
	LCP  Metric `json:"lcp"`
	CLS  Metric `json:"cls"`
	TBT  Metric `json:"tbt"`
	TTFB Metric `json:"ttfb"`

	ResourceCount int   `json:"resource_count"`
	ResourceBytes int64 `json:"resource_bytes"`

	Score           int    `json:"score"`
	Rating          Rating `json:"rating,omitempty"`
	PassesWebVitals bool   `json:"passes_web_vitals"`
}

// Compute scores a snapshot. It never mutates its input.
func Compute(s Snapshot) Data {
	if s.Navigation.IsZero() && len(s.Paints) == 0 {
		return Data{State: StateNoData}
	}

	d := Data{
		State:      StateMeasured,
		Navigation: s.Navigation,
		Paints:     s.Paints,
	}

	if fcp, ok := paintOffset(s.Paints, "first-contentful-paint"); ok {
		d.FCP = scored("fcp", fcp)
	}
	if s.LCP > 0 {
		d.LCP = scored("lcp", s.LCP)
	}
	// CLS of zero is a real measurement on a stable page, so it is only
	// treated as absent when nothing else was painted either.
	if s.CLS > 0 || len(s.Paints) > 0 {
		d.CLS = scored("cls", s.CLS)
	}
	if s.TBT > 0 || len(s.Paints) > 0 {
		d.TBT = scored("tbt", s.TBT)
	}
	if s.Navigation.Response > 0 {
		d.TTFB = scored("ttfb", s.Navigation.Response)
	}

	for _, r := range s.Resources {
		d.ResourceCount++
		d.ResourceBytes += r.DecodedSize
	}

	d.Score, d.Rating = overallScore(map[string]Metric{
		"fcp": d.FCP, "lcp": d.LCP, "cls": d.CLS, "tbt": d.TBT, "ttfb": d.TTFB,
	})
	d.PassesWebVitals = passesWebVitals(d.LCP, d.CLS, d.TBT)

	return d
}

func scored(name string, value float64) Metric {
	return Metric{Value: value, Rating: Classify(name, value), Present: true}
}

func paintOffset(paints []entry.PaintEntry, name string) (float64, bool) {
	for _, p := range paints {
		if strings.EqualFold(p.Name, name) {
			return p.StartOffset, true
		}
	}
	return 0, false
}

func overallScore(metrics map[string]Metric) (int, Rating) {
	var sum, weightTotal float64
	for name, m := range metrics {
		if !m.Present {
			continue
		}
		w := weights[name]
		sum += ratingPoints[m.Rating] * w
		weightTotal += w
	}
	if weightTotal == 0 {
		return 0, ""
	}

	score := int(math.Round(sum / weightTotal * 100))
	switch {
	case score >= 90:
		return score, RatingGood
	case score >= 50:
		return score, RatingNeedsImprovement
	default:
		return score, RatingPoor
	}
}

// passesWebVitals requires every present core metric to rate good, and at
// least one of them to be present at all.
func passesWebVitals(core ...Metric) bool {
	anyPresent := false
	for _, m := range core {
		if !m.Present {
			continue
		}
		anyPresent = true
		if m.Rating != RatingGood {
			return false
		}
	}
	return anyPresent
}
