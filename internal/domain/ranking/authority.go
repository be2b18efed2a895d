package ranking

import "strings"

const (
	unknownSourceAuthority = 0.9
	emptySourceAuthority   = 0.8
)

// AuthorityTable maps a source name to a trust weight in [0,1].
type AuthorityTable map[string]float64

// DefaultAuthority returns the built-in source table.
func DefaultAuthority() AuthorityTable {
	return AuthorityTable{
		"Example News": 1.0,
		"Example Tech": 0.95,
		"AI Digest":    0.9,
		"Dev Weekly":   0.9,
		"Search Tech":  0.85,
	}
}

// Lookup returns the authority of source. Sources missing from the table
// get 0.9; an empty source gets the more conservative 0.8.
func (t AuthorityTable) Lookup(source string) float64 {
	if strings.TrimSpace(source) == "" {
		return emptySourceAuthority
	}
	v, ok := t[source]
	if !ok {
		v = unknownSourceAuthority
	}
	return clamp01(v)
}

// Merge returns a copy of t with the entries of other added or replaced.
func (t AuthorityTable) Merge(other map[string]float64) AuthorityTable {
	out := make(AuthorityTable, len(t)+len(other))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
