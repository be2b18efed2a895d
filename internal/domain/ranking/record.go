package ranking

// Record is the wire form of a recommendation. Source is reported by the
// hybrid engine only.
type Record struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	PublishedAt string  `json:"published_at"`
	Score       float64 `json:"score"`
	Reason      string  `json:"reason"`
	Source      string  `json:"source,omitempty"`
}

// Records converts ranked items for output under policy p.
func Records(items []ScoredItem, p Policy) []Record {
	out := make([]Record, len(items))
	for i, it := range items {
		out[i] = Record{
			Title:       it.Title,
			URL:         it.URL,
			PublishedAt: it.PublishedAt,
			Score:       it.Score,
			Reason:      it.Reason,
		}
		if p.Mode == ModeHybrid {
			out[i].Source = it.Source
		}
	}
	return out
}
