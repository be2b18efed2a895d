package ranking

import "testing"

func TestDefaults_Resolve(t *testing.T) {
	t.Parallel()

	d := Defaults{
		Engine:      "raw",
		Weights:     WeightOverrides{Similarity: weight(0.9), Popularity: weight(0)},
		Authority:   map[string]float64{"Local": 0.3},
		SourceShare: 0.25,
	}

	tests := []struct {
		requested string
		want      Mode
	}{
		{"", ModeRaw},
		{"hybrid", ModeHybrid},
		{" SIMPLE ", ModeSimple},
		{"bogus", ModeSimple},
	}
	for _, tt := range tests {
		if got := d.Resolve(tt.requested).Mode; got != tt.want {
			t.Errorf("Resolve(%q).Mode = %s, want %s", tt.requested, got, tt.want)
		}
	}

	if got := (Defaults{}).Resolve("").Mode; got != ModeSimple {
		t.Errorf("zero Defaults resolve to %s, want simple", got)
	}

	hy := d.Resolve("hybrid")
	if hy.Weights.Similarity != 0.9 || hy.Weights.Freshness != DefaultWeights().Freshness || hy.Weights.Popularity != 0 {
		t.Errorf("hybrid weights = %+v", hy.Weights)
	}
	if hy.SourceShare != 0.25 {
		t.Errorf("source share = %v", hy.SourceShare)
	}
	if hy.Authority.Lookup("Local") != 0.3 || hy.Authority.Lookup("Example News") != 1.0 {
		t.Errorf("authority = %v", hy.Authority)
	}
	if s := d.Resolve("simple"); s.Weights != SimpleWeights() {
		t.Errorf("simple weights changed by config: %+v", s.Weights)
	}
}

func TestDefaults_Limit(t *testing.T) {
	t.Parallel()

	ptr := func(n int) *int { return &n }
	tests := []struct {
		name      string
		d         Defaults
		requested *int
		want      int
	}{
		{"fallback", Defaults{}, nil, 10},
		{"configured", Defaults{TopN: 7}, nil, 7},
		{"explicit", Defaults{TopN: 7}, ptr(3), 3},
		{"explicit zero", Defaults{TopN: 7}, ptr(0), 0},
		{"negative", Defaults{}, ptr(-4), 0},
		{"capped", Defaults{}, ptr(500), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.d.Limit(tt.requested, 10); got != tt.want {
				t.Errorf("Limit = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRecords_SourceOnlyForHybrid(t *testing.T) {
	t.Parallel()

	items := []ScoredItem{{Candidate: Candidate{Title: "t", Source: "BBC"}, Score: 0.4, Reason: "r"}}
	if got := Records(items, SimplePolicy()); got[0].Source != "" {
		t.Errorf("simple record source = %q", got[0].Source)
	}
	got := Records(items, HybridPolicy())
	if got[0].Source != "BBC" || got[0].Score != 0.4 || got[0].Reason != "r" {
		t.Errorf("hybrid record = %+v", got[0])
	}
	if out := Records(nil, RawPolicy()); out == nil || len(out) != 0 {
		t.Errorf("Records(nil) = %#v, want empty slice", out)
	}
}
