package article

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matiasleandrokruk/newsroom/internal/validation"
)

// LoadDataset reads a JSON or YAML array of documents. The format follows the
// file extension (.yaml/.yml, anything else is JSON). Defaults are applied and
// every document is validated; the first invalid one fails the load.
func LoadDataset(path string) ([]Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("article: read dataset: %w", err)
	}

	var docs []Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &docs)
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		err = dec.Decode(&docs)
	}
	if err != nil {
		return nil, fmt.Errorf("article: parse dataset %s: %w", filepath.Base(path), err)
	}
	return normalizeDocuments(docs)
}

func normalizeDocuments(docs []Document) ([]Document, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyDataset
	}
	out := make([]Document, len(docs))
	for i, d := range docs {
		d.ID = strings.TrimSpace(d.ID)
		d.Title = strings.TrimSpace(d.Title)
		if err := validation.Struct(d); err != nil {
			return nil, fmt.Errorf("article: document %d: %w", i, err)
		}
		out[i] = d.WithDefaults()
	}
	return out, nil
}
