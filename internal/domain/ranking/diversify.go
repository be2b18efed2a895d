package ranking

import (
	"strings"
	"unicode"
)

const (
	fingerprintRunes   = 48
	defaultSourceShare = 0.4
)

// Fingerprint normalizes a title for near-duplicate detection: lower-cased,
// letters, digits and whitespace only, first 48 characters, trimmed.
func Fingerprint(title string) string {
	var b strings.Builder
	n := 0
	for _, r := range title {
		if n >= fingerprintRunes {
			break
		}
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
		n++
	}
	return strings.TrimSpace(b.String())
}

// MaxPerSource is the pass-one cap on items sharing a source.
func MaxPerSource(topN int, share float64) int {
	return max(1, int(float64(topN)*share))
}

// Diversify selects up to topN items from score-ordered input with the default
// 40% per-source share.
func Diversify(items []ScoredItem, topN int) []ScoredItem {
	return DiversifyShare(items, topN, defaultSourceShare)
}

// DiversifyShare selects up to topN items, never repeating a title fingerprint.
// The first pass also caps each source at MaxPerSource(topN, share); if that
// leaves the quota short, a second pass backfills ignoring the cap.
func DiversifyShare(items []ScoredItem, topN int, share float64) []ScoredItem {
	if topN <= 0 || len(items) == 0 {
		return []ScoredItem{}
	}

	fps := make([]string, len(items))
	for i := range items {
		fps[i] = Fingerprint(items[i].Title)
	}

	limit := MaxPerSource(topN, share)
	out := make([]ScoredItem, 0, min(topN, len(items)))
	seen := make(map[string]struct{}, len(items))
	perSource := make(map[string]int)

	for i := range items {
		if len(out) >= topN {
			break
		}
		if _, dup := seen[fps[i]]; dup {
			continue
		}
		src := strings.TrimSpace(items[i].Source)
		if perSource[src] >= limit {
			continue
		}
		out = append(out, items[i])
		seen[fps[i]] = struct{}{}
		perSource[src]++
	}

	for i := range items {
		if len(out) >= topN {
			break
		}
		if _, dup := seen[fps[i]]; dup {
			continue
		}
		out = append(out, items[i])
		seen[fps[i]] = struct{}{}
	}
	return out
}
