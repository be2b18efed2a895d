package ranking

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	freshnessHalfLifeHours = 36.0
	unknownAgeHours        = 9999.0

	qualityLowChars  = 300
	qualityHighChars = 2000
)

// timestampLayouts are tried in order; layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Score computes the composite score of c with the default authority table.
// It never fails: missing or malformed fields degrade to conservative defaults.
func Score(c Candidate, w Weights, now time.Time) ScoredItem {
	return ScoreWith(c, w, now, nil)
}

// ScoreWith is Score with an explicit authority table; nil means DefaultAuthority.
func ScoreWith(c Candidate, w Weights, now time.Time, authority AuthorityTable) ScoredItem {
	if authority == nil {
		authority = DefaultAuthority()
	}

	sim := clamp01(c.Similarity)
	fresh := Freshness(AgeHours(c.PublishedAt, now))
	auth := authority.Lookup(c.Source)
	qual := Quality(c.Text)
	pop := clamp01(c.Popularity)

	total := w.Similarity*sim +
		w.Freshness*fresh +
		w.Authority*auth +
		w.Quality*qual +
		w.Popularity*pop

	return ScoredItem{
		Candidate: c,
		Score:     total,
		Reason:    reason(sim, fresh, auth, qual, pop),
	}
}

func reason(sim, fresh, auth, qual, pop float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "similarity %.2f, freshness %.2f, authority %.2f, quality %.2f", sim, fresh, auth, qual)
	if pop > 0 {
		fmt.Fprintf(&b, ", popularity %.2f", pop)
	}
	return b.String()
}

// AgeHours returns the non-negative age of an ISO-8601 timestamp relative to now.
// Empty or unparseable input yields 9999 hours, so freshness decays to ~0.
func AgeHours(publishedAt string, now time.Time) float64 {
	t, ok := parseTimestamp(publishedAt)
	if !ok {
		return unknownAgeHours
	}
	return math.Max(now.Sub(t).Hours(), 0)
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Freshness is exponential decay with a 36 hour constant.
func Freshness(ageHours float64) float64 {
	return math.Exp(-ageHours / freshnessHalfLifeHours)
}

// Quality scores body length in characters: linear to 0.5 at 300 chars,
// then linear to 1.0 at 2000 chars, flat beyond.
func Quality(text string) float64 {
	n := float64(utf8.RuneCountInString(text))
	switch {
	case n <= qualityLowChars:
		return clamp01(n / qualityLowChars * 0.5)
	case n >= qualityHighChars:
		return 1.0
	default:
		return 0.5 + 0.5*(n-qualityLowChars)/(qualityHighChars-qualityLowChars)
	}
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}
