package ranking

// Weights controls the contribution of each component to the composite score.
// Weights conventionally sum to 1.0 but this is not enforced.
type Weights struct {
	Similarity float64 `json:"similarity" koanf:"similarity" validate:"gte=0"`
	Freshness  float64 `json:"freshness" koanf:"freshness" validate:"gte=0"`
	Authority  float64 `json:"authority" koanf:"authority" validate:"gte=0"`
	Quality    float64 `json:"quality" koanf:"quality" validate:"gte=0"`
	Popularity float64 `json:"popularity" koanf:"popularity" validate:"gte=0"`
}

// DefaultWeights returns the hybrid weighting: similarity dominates, recency
// second, with small nudges for source authority, length and popularity.
func DefaultWeights() Weights {
	return Weights{
		Similarity: 0.60,
		Freshness:  0.20,
		Authority:  0.10,
		Quality:    0.05,
		Popularity: 0.05,
	}
}

// SimpleWeights is the two-factor similarity + freshness blend.
func SimpleWeights() Weights {
	return Weights{Similarity: 0.7, Freshness: 0.3}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Similarity + w.Freshness + w.Authority + w.Quality + w.Popularity
}

// IsZero reports whether every weight is zero.
func (w Weights) IsZero() bool {
	return w == Weights{}
}

// WeightOverrides sets individual weights on top of a preset. A nil field
// keeps the preset value; an explicit zero switches the component off.
type WeightOverrides struct {
	Similarity *float64
	Freshness  *float64
	Authority  *float64
	Quality    *float64
	Popularity *float64
}

// IsZero reports whether no field is set.
func (o WeightOverrides) IsZero() bool {
	return o == WeightOverrides{}
}

// Apply returns base with every set field of o replaced.
func (o WeightOverrides) Apply(base Weights) Weights {
	out := base
	for _, f := range []struct {
		dst *float64
		v   *float64
	}{
		{&out.Similarity, o.Similarity},
		{&out.Freshness, o.Freshness},
		{&out.Authority, o.Authority},
		{&out.Quality, o.Quality},
		{&out.Popularity, o.Popularity},
	} {
		if f.v != nil {
			*f.dst = *f.v
		}
	}
	return out
}
