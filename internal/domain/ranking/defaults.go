package ranking

import "strings"

// Defaults is the configured ranking behaviour a request falls back to.
type Defaults struct {
	Engine      string
	TopN        int
	Weights     WeightOverrides
	Authority   map[string]float64
	SourceShare float64
}

// Resolve picks the preset for requested, then d.Engine, then simple.
// Configured weights, authority and source share tune hybrid only.
func (d Defaults) Resolve(requested string) Policy {
	mode := strings.TrimSpace(requested)
	if mode == "" {
		mode = d.Engine
	}
	p, _ := PolicyFor(mode)
	if p.Mode != ModeHybrid {
		return p
	}
	p = p.WithWeights(d.Weights)
	if len(d.Authority) > 0 {
		p = p.WithAuthority(DefaultAuthority().Merge(d.Authority))
	}
	if d.SourceShare > 0 {
		p.SourceShare = d.SourceShare
	}
	return p
}

// Limit returns requested capped at maxTopN, or the configured default when
// requested is nil.
func (d Defaults) Limit(requested *int, fallback int) int {
	switch {
	case requested != nil:
		return min(max(*requested, 0), maxTopN)
	case d.TopN > 0:
		return d.TopN
	default:
		return fallback
	}
}

const maxTopN = 100
