package ranking

import "strings"

// Mode names a ranking preset.
type Mode string

const (
	ModeSimple Mode = "simple"
	ModeRaw    Mode = "raw"
	ModeHybrid Mode = "hybrid"
)

// Modes lists the supported presets.
var Modes = []Mode{ModeSimple, ModeRaw, ModeHybrid}

// Policy is a ranking preset. Modes differ only in data, never in code path.
type Policy struct {
	Mode      Mode
	Weights   Weights
	Authority AuthorityTable // nil means DefaultAuthority

	// Fetch limit is max(topN*CandidateFactor, topN+CandidatePad, CandidateFloor).
	CandidateFactor int
	CandidatePad    int
	CandidateFloor  int

	Diversify   bool
	SourceShare float64 // per-source share of topN in the first diversify pass

	// Passthrough keeps source order and uses raw similarity as the score.
	Passthrough bool
	// Label replaces the per-item component breakdown when set.
	Label string
}

// HybridPolicy is the five-factor scoring with diversification.
func HybridPolicy() Policy {
	return Policy{
		Mode:            ModeHybrid,
		Weights:         DefaultWeights(),
		CandidateFactor: 3,
		CandidatePad:    5,
		Diversify:       true,
		SourceShare:     defaultSourceShare,
	}
}

// SimplePolicy blends similarity and freshness 70/30 without diversification.
func SimplePolicy() Policy {
	return Policy{
		Mode:            ModeSimple,
		Weights:         SimpleWeights(),
		CandidateFactor: 2,
		CandidateFloor:  10,
		Label:           "semantic similarity + freshness",
	}
}

// RawPolicy returns the source's similarity ranking unchanged.
func RawPolicy() Policy {
	return Policy{
		Mode:            ModeRaw,
		CandidateFactor: 1,
		Passthrough:     true,
		Label:           "semantic similarity only (raw)",
	}
}

// PolicyFor returns the preset for mode. The second result is false when
// mode is unknown, in which case the simple preset is returned.
func PolicyFor(mode string) (Policy, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(mode))) {
	case ModeHybrid:
		return HybridPolicy(), true
	case ModeRaw:
		return RawPolicy(), true
	case ModeSimple:
		return SimplePolicy(), true
	default:
		return SimplePolicy(), false
	}
}

// FetchLimit is the number of candidates to request for topN results.
func (p Policy) FetchLimit(topN int) int {
	if topN <= 0 {
		return 0
	}
	factor := max(p.CandidateFactor, 1)
	return max(topN*factor, topN+p.CandidatePad, p.CandidateFloor)
}

// WithWeights returns a copy of p with o applied to its weights.
func (p Policy) WithWeights(o WeightOverrides) Policy {
	if p.Passthrough || o.IsZero() {
		return p
	}
	p.Weights = o.Apply(p.Weights)
	return p
}

// WithAuthority returns a copy of p using table for source authority.
func (p Policy) WithAuthority(table AuthorityTable) Policy {
	p.Authority = table
	return p
}
