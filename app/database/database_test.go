package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lysyi3m/buzz-comb/app/relevance"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "buzz.db"))
	if err != nil {
		t.Fatalf("Expected no error opening database, got: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Expected migrations to apply, got: %v", err)
	}
	return db
}

func testItem(id string, relevanceScore int, rankScore float64, published time.Time) relevance.Item {
	return relevance.Item{
		ID:              id,
		Platform:        "reddit",
		NativeID:        id,
		URL:             "https://reddit.com/" + id,
		Title:           "labubu " + id,
		Author:          "collector",
		AuthorFollowers: 10,
		AuthorVerified:  true,
		Engagement:      relevance.Engagement{Likes: 4, Comments: 2},
		Tags:            []string{"popmart"},
		MatchedKeywords: []string{"labubu"},
		RelevanceScore:  relevanceScore,
		HotScore:        rankScore,
		RankScore:       rankScore,
		Scoring:         relevance.ScoringHotness,
		PublishedAt:     published,
		CollectedAt:     published.Add(time.Hour),
		Raw:             map[string]any{"subreddit": "popmart"},
	}
}

func TestNewConnection_EmptyPath(t *testing.T) {
	if _, err := NewConnection(""); err == nil {
		t.Error("Expected error for empty database path")
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Expected second run to succeed, got: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("Expected clean version 1, got %d (dirty=%v)", version, dirty)
	}
}

func TestTopicRepository_UpsertAndFetchState(t *testing.T) {
	db := newTestDB(t)
	repo := NewTopicRepository(db)

	if err := repo.UpsertTopic("labubu"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := repo.UpsertTopic("labubu"); err != nil {
		t.Fatalf("Expected repeated upsert to succeed, got: %v", err)
	}

	topic, err := repo.GetTopic("labubu")
	if err != nil || topic == nil {
		t.Fatalf("Expected topic, got %v (%v)", topic, err)
	}
	if topic.LastFetchedAt != nil || topic.NextFetchAt != nil {
		t.Errorf("Expected no fetch state yet, got %+v", topic)
	}

	fetched := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	next := fetched.Add(time.Hour)
	if err := repo.UpdateFetchState("labubu", 42, fetched, next); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	topic, err = repo.GetTopic("labubu")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if topic.LastFetchedAt == nil || !topic.LastFetchedAt.Equal(fetched) {
		t.Errorf("Unexpected last fetched at: %v", topic.LastFetchedAt)
	}
	if topic.NextFetchAt == nil || !topic.NextFetchAt.Equal(next) {
		t.Errorf("Unexpected next fetch at: %v", topic.NextFetchAt)
	}
	if topic.LastItemCount != 42 {
		t.Errorf("Expected last item count 42, got %d", topic.LastItemCount)
	}

	if count, _ := repo.GetTopicCount(); count != 1 {
		t.Errorf("Expected 1 topic, got %d", count)
	}
}

func TestTopicRepository_Unknown(t *testing.T) {
	db := newTestDB(t)
	repo := NewTopicRepository(db)

	topic, err := repo.GetTopic("missing")
	if err != nil || topic != nil {
		t.Errorf("Expected nil topic without error, got %v (%v)", topic, err)
	}

	if err := repo.UpdateFetchState("missing", 0, time.Now(), time.Now()); err == nil {
		t.Error("Expected error updating an unknown topic")
	}
}

func TestItemRepository_UpsertAndRankedOrder(t *testing.T) {
	db := newTestDB(t)
	topics := NewTopicRepository(db)
	repo := NewItemRepository(db)

	if err := topics.UpsertTopic("labubu"); err != nil {
		t.Fatal(err)
	}

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	items := []relevance.Item{
		testItem("item1", 5, 1.0, base),
		testItem("item2", 5, 2.0, base),
		testItem("item3", 3, 9.0, base),
		testItem("item4", 3, 9.0, base.Add(time.Hour)),
	}
	if err := repo.UpsertItems("labubu", items); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	ranked, err := repo.GetRankedItems("labubu", 0)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := []string{"item2", "item1", "item4", "item3"}
	if len(ranked) != len(expected) {
		t.Fatalf("Expected %d items, got %d", len(expected), len(ranked))
	}
	for i, id := range expected {
		if ranked[i].ID != id {
			t.Errorf("Expected %s at %d, got %s", id, i, ranked[i].ID)
		}
	}

	limited, err := repo.GetRankedItems("labubu", 2)
	if err != nil || len(limited) != 2 {
		t.Errorf("Expected 2 limited items, got %d (%v)", len(limited), err)
	}
}

func TestItemRepository_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	topics := NewTopicRepository(db)
	repo := NewItemRepository(db)
	topics.UpsertTopic("labubu")

	published := time.Date(2025, 7, 1, 8, 30, 15, 123456789, time.UTC)
	original := testItem("reddit_abc", 2, 3.5, published)
	original.EngagementRate = 0.25

	if err := repo.UpsertItems("labubu", []relevance.Item{original}); err != nil {
		t.Fatal(err)
	}

	items, err := repo.GetAllItems("labubu")
	if err != nil || len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d (%v)", len(items), err)
	}
	got := items[0]

	if !got.PublishedAt.Equal(published) {
		t.Errorf("Expected published at %v, got %v", published, got.PublishedAt)
	}
	if !got.CollectedAt.Equal(original.CollectedAt) {
		t.Errorf("Expected collected at %v, got %v", original.CollectedAt, got.CollectedAt)
	}
	if got.Engagement != original.Engagement {
		t.Errorf("Expected engagement %+v, got %+v", original.Engagement, got.Engagement)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "popmart" {
		t.Errorf("Unexpected tags: %v", got.Tags)
	}
	if len(got.MatchedKeywords) != 1 || got.MatchedKeywords[0] != "labubu" {
		t.Errorf("Unexpected matched keywords: %v", got.MatchedKeywords)
	}
	if got.Raw["subreddit"] != "popmart" {
		t.Errorf("Unexpected raw data: %v", got.Raw)
	}
	if !got.AuthorVerified || got.AuthorFollowers != 10 {
		t.Errorf("Unexpected author fields: %v %d", got.AuthorVerified, got.AuthorFollowers)
	}
	if got.Scoring != relevance.ScoringHotness || got.EngagementRate != 0.25 {
		t.Errorf("Unexpected scoring fields: %s %v", got.Scoring, got.EngagementRate)
	}
}

func TestItemRepository_ReingestRefreshesFields(t *testing.T) {
	db := newTestDB(t)
	topics := NewTopicRepository(db)
	repo := NewItemRepository(db)
	topics.UpsertTopic("labubu")

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	item := testItem("twitter_1", 1, 1.0, base)
	if err := repo.UpsertItems("labubu", []relevance.Item{item}); err != nil {
		t.Fatal(err)
	}

	item.Engagement.Likes = 400
	item.HotScore = 400
	item.RankScore = 400
	if err := repo.UpsertItems("labubu", []relevance.Item{item}); err != nil {
		t.Fatal(err)
	}

	count, _ := repo.GetItemCount("labubu")
	if count != 1 {
		t.Errorf("Expected a single row after re-ingest, got %d", count)
	}

	items, _ := repo.GetAllItems("labubu")
	if items[0].Engagement.Likes != 400 || items[0].RankScore != 400 {
		t.Errorf("Expected refreshed engagement, got %+v", items[0].Engagement)
	}
}

func TestItemRepository_TopicsAreIsolated(t *testing.T) {
	db := newTestDB(t)
	topics := NewTopicRepository(db)
	repo := NewItemRepository(db)
	topics.UpsertTopic("labubu")
	topics.UpsertTopic("molly")

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	repo.UpsertItems("labubu", []relevance.Item{testItem("shared", 1, 1, base)})
	repo.UpsertItems("molly", []relevance.Item{testItem("shared", 1, 1, base)})

	for _, name := range []string{"labubu", "molly"} {
		if count, _ := repo.GetItemCount(name); count != 1 {
			t.Errorf("Expected 1 item for %s, got %d", name, count)
		}
	}
}

func TestItemRepository_DeleteAndPlatformCounts(t *testing.T) {
	db := newTestDB(t)
	topics := NewTopicRepository(db)
	repo := NewItemRepository(db)
	topics.UpsertTopic("labubu")

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	weibo := testItem("weibo_1", 1, 1, base)
	weibo.Platform = "weibo"
	items := []relevance.Item{testItem("reddit_1", 1, 1, base), testItem("reddit_2", 1, 1, base), weibo}
	if err := repo.UpsertItems("labubu", items); err != nil {
		t.Fatal(err)
	}

	counts, err := repo.GetPlatformCounts("labubu")
	if err != nil {
		t.Fatal(err)
	}
	if counts["reddit"] != 2 || counts["weibo"] != 1 {
		t.Errorf("Unexpected platform counts: %v", counts)
	}

	deleted, err := repo.DeleteItems("labubu", []string{"reddit_1", "weibo_1", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted rows, got %d", deleted)
	}

	if count, _ := repo.GetItemCount("labubu"); count != 1 {
		t.Errorf("Expected 1 remaining item, got %d", count)
	}

	if deleted, err := repo.DeleteItems("labubu", nil); err != nil || deleted != 0 {
		t.Errorf("Expected no-op delete, got %d (%v)", deleted, err)
	}
}

func TestItemRepository_SkipsUnreadableRows(t *testing.T) {
	db := newTestDB(t)
	topics := NewTopicRepository(db)
	repo := NewItemRepository(db)
	topics.UpsertTopic("labubu")

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.UpsertItems("labubu", []relevance.Item{testItem("good", 1, 1, base), testItem("bad", 2, 2, base)}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE items SET published_at = ? WHERE id = ?", "55840-11-08T22:13:20.000000000Z", "bad"); err != nil {
		t.Fatal(err)
	}

	ranked, err := repo.GetRankedItems("labubu", 10)
	if err != nil {
		t.Fatalf("Expected ranked query to succeed, got: %v", err)
	}
	if len(ranked) != 1 || ranked[0].ID != "good" {
		t.Errorf("Expected only the readable item, got: %+v", ranked)
	}

	all, err := repo.GetAllItems("labubu")
	if err != nil {
		t.Fatalf("Expected full query to succeed, got: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 readable item, got %d", len(all))
	}
}
