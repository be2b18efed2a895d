package article

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/matiasleandrokruk/newsroom/internal/infra/eventbus"
)

func TestIngestService_StoresArticlesAndChunks(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	bus := eventbus.New()
	events := bus.Subscribe(TopicArticleIngested)
	svc := NewIngestService(db, bus)

	n, err := svc.Ingest(context.Background(), sampleDocs())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
	if got := countRows(t, db, `SELECT COUNT(*) FROM article`); got != 3 {
		t.Errorf("articles = %d, want 3", got)
	}
	if got := countRows(t, db, `SELECT COUNT(*) FROM article_chunk WHERE embedding_status = 'pending'`); got != 3 {
		t.Errorf("pending chunks = %d, want 3", got)
	}

	a, err := NewStore(db).GetByDocID(context.Background(), "d3")
	if err != nil {
		t.Fatalf("GetByDocID: %v", err)
	}
	if a.Source != DefaultSource || a.PublishedAt != DefaultPublishedAt {
		t.Errorf("defaults not stored: source=%q published_at=%q", a.Source, a.PublishedAt)
	}

	for i := 0; i < 3; i++ {
		select {
		case evt := <-events:
			p, ok := evt.Payload.(IngestedEvent)
			if !ok || p.ArticleID == "" || p.ChunkCount != 1 {
				t.Errorf("unexpected event payload: %#v", evt.Payload)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("event %d not published", i)
		}
	}
}

func TestIngestService_ReingestUpdatesInPlace(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	svc := NewIngestService(db, eventbus.New(), WithChunking(4, 1))
	ctx := context.Background()
	store := NewStore(db)

	doc := Document{ID: "same", Title: "v1", Body: "one two three four five six seven"}
	if _, err := svc.Ingest(ctx, []Document{doc}); err != nil {
		t.Fatal(err)
	}
	first, err := store.GetByDocID(ctx, "same")
	if err != nil {
		t.Fatal(err)
	}
	if got := countRows(t, db, `SELECT COUNT(*) FROM article_chunk WHERE article_id = ?`, first.ID); got != 2 {
		t.Fatalf("chunks = %d, want 2", got)
	}

	doc.Title = "v2"
	doc.Body = "short body"
	if _, err := svc.Ingest(ctx, []Document{doc}); err != nil {
		t.Fatal(err)
	}
	second, err := store.GetByDocID(ctx, "same")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("article id changed on re-ingest: %s -> %s", first.ID, second.ID)
	}
	if second.Title != "v2" {
		t.Errorf("title = %q, want v2", second.Title)
	}
	if got := countRows(t, db, `SELECT COUNT(*) FROM article`); got != 1 {
		t.Errorf("articles = %d, want 1", got)
	}
	if got := countRows(t, db, `SELECT COUNT(*) FROM article_chunk WHERE article_id = ?`, first.ID); got != 1 {
		t.Errorf("chunks after re-ingest = %d, want 1", got)
	}
	if got := countRows(t, db, `SELECT COUNT(*) FROM article_fts WHERE article_fts MATCH 'seven'`); got != 0 {
		t.Errorf("stale body still indexed")
	}
}

func TestIngestService_EmptyBatch(t *testing.T) {
	t.Parallel()

	svc := NewIngestService(setupTestDB(t), eventbus.New())
	n, err := svc.Ingest(context.Background(), nil)
	if err != nil || n != 0 {
		t.Errorf("Ingest(nil) = %d, %v", n, err)
	}
}

func TestIngestService_MissingIDRollsBack(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	svc := NewIngestService(db, eventbus.New())

	_, err := svc.Ingest(context.Background(), []Document{
		{ID: "ok", Title: "fine"},
		{ID: " ", Title: "broken"},
	})
	if err == nil {
		t.Fatal("expected error for blank id")
	}
	if got := countRows(t, db, `SELECT COUNT(*) FROM article`); got != 0 {
		t.Errorf("articles = %d after failed batch, want 0", got)
	}
}

func TestIngestService_IngestFile(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	svc := NewIngestService(db, eventbus.New())
	path := writeFile(t, "d.json", `[{"id": "f1", "title": "From file", "url": "u", "body": "b"}]`)

	n, err := svc.IngestFile(context.Background(), path)
	if err != nil || n != 1 {
		t.Fatalf("IngestFile = %d, %v", n, err)
	}

	if _, err := svc.IngestFile(context.Background(), writeFile(t, "e.json", `[]`)); !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("err = %v, want ErrEmptyDataset", err)
	}
}

func TestStore_StatsAndRecent(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	if _, err := NewIngestService(db, eventbus.New()).Ingest(ctx, sampleDocs()); err != nil {
		t.Fatal(err)
	}
	store := NewStore(db)

	st, err := store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Articles != 3 || st.Chunks != 3 || st.ChunksPending != 3 || st.ChunksEmbedded != 0 {
		t.Errorf("stats = %+v", st)
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].DocID != "d1" || recent[1].DocID != "d2" {
		ids := make([]string, len(recent))
		for i, a := range recent {
			ids[i] = a.DocID
		}
		t.Errorf("recent = %s, want d1,d2", strings.Join(ids, ","))
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}
}
