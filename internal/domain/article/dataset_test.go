package article

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDataset_JSONAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "articles.json", `[
		{"id": "a1", "title": "First", "url": "https://x/1", "body": "text", "tags": ["ai"]},
		{"id": "a2", "title": "Second", "url": "https://x/2", "body": "more", "source": "Reuters",
		 "published_at": "2025-03-10T09:00:00Z"}
	]`)

	docs, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len = %d, want 2", len(docs))
	}
	if docs[0].PublishedAt != DefaultPublishedAt || docs[0].Source != DefaultSource {
		t.Errorf("defaults not applied: %+v", docs[0])
	}
	if docs[1].Source != "Reuters" || docs[1].PublishedAt != "2025-03-10T09:00:00Z" {
		t.Errorf("explicit fields overwritten: %+v", docs[1])
	}
	if len(docs[0].Tags) != 1 || docs[1].Tags == nil {
		t.Errorf("tags = %v / %v", docs[0].Tags, docs[1].Tags)
	}
}

func TestLoadDataset_YAML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "articles.yaml", `
- id: y1
  title: From YAML
  url: https://y/1
  body: yaml body
  popularity: 0.4
`)
	docs, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "y1" || docs[0].Popularity != 0.4 {
		t.Errorf("docs = %+v", docs)
	}
}

func TestLoadDataset_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, file, content string
		wantErr             error
		wantMsg             string
	}{
		{"empty array", "e.json", `[]`, ErrEmptyDataset, ""},
		{"missing id", "m.json", `[{"title": "no id"}]`, nil, "document 0"},
		{"negative popularity", "p.json", `[{"id": "x", "title": "t", "popularity": -1}]`, nil, "popularity"},
		{"bad json", "b.json", `{not json`, nil, "parse dataset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadDataset(writeFile(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadDataset_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadDataset(filepath.Join(t.TempDir(), "nope.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestSplitWords(t *testing.T) {
	t.Parallel()

	words := func(n int) string {
		parts := make([]string, n)
		for i := range parts {
			parts[i] = "w"
		}
		return strings.Join(parts, " ")
	}

	tests := []struct {
		name          string
		text          string
		size, overlap int
		wantChunks    int
	}{
		{"empty", "   ", 10, 2, 0},
		{"short", "a b c", 10, 2, 1},
		{"exact", words(10), 10, 2, 1},
		{"two windows", words(15), 10, 2, 2},
		{"overlap clamped", words(12), 4, 9, 9},
		{"600 words default", words(600), DefaultChunkSize, DefaultChunkOverlap, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SplitWords(tt.text, tt.size, tt.overlap)
			if len(got) != tt.wantChunks {
				t.Errorf("chunks = %d, want %d", len(got), tt.wantChunks)
			}
		})
	}
}

func TestSplitWords_Overlap(t *testing.T) {
	t.Parallel()

	got := SplitWords("a b c d e f g", 4, 2)
	want := []string{"a b c d", "c d e f", "e f g"}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}
