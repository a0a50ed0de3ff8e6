package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lysyi3m/buzz-comb/app/topic"
)

const twitterResponse = `{
	"data": [
		{
			"id": "1800000000000000001",
			"text": "Finally got my #labubu from #PopMart!",
			"author_id": "42",
			"created_at": "2025-07-01T10:00:00.000Z",
			"lang": "en",
			"public_metrics": {"retweet_count": 5, "reply_count": 3, "like_count": 40, "quote_count": 1, "impression_count": 1200}
		}
	],
	"includes": {
		"users": [
			{"id": "42", "username": "toyfan", "verified": true, "public_metrics": {"followers_count": 900}}
		]
	},
	"meta": {"result_count": 1}
}`

func TestTwitterSource_Fetch(t *testing.T) {
	var gotAuth, gotQuery, gotMax string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets/search/recent" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("query")
		gotMax = r.URL.Query().Get("max_results")
		fmt.Fprint(w, twitterResponse)
	}))
	defer srv.Close()

	cfg := topic.TwitterConfig{Enabled: true, QueryKeywords: 2, MaxResults: 50}
	s, err := NewTwitterSource(srv.URL, "secret", []string{"labubu", "pop mart", "lisa"}, cfg, NewFetcher(srv.Client(), "test", nil))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	items, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("Expected bearer token header, got %q", gotAuth)
	}
	if gotQuery != `(labubu OR "pop mart") -is:retweet` {
		t.Errorf("Unexpected query: %q", gotQuery)
	}
	if gotMax != "50" {
		t.Errorf("Expected max_results 50, got %q", gotMax)
	}

	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.NativeID != "1800000000000000001" || item.Platform != PlatformTwitter {
		t.Errorf("Unexpected identity: %s/%s", item.Platform, item.NativeID)
	}
	if item.Engagement.Likes != 40 || item.Engagement.Shares != 6 || item.Engagement.Comments != 3 || item.Engagement.Views != 1200 {
		t.Errorf("Unexpected engagement: %+v", item.Engagement)
	}
	if item.Author != "toyfan" || item.AuthorFollowers != 900 || !item.AuthorVerified {
		t.Errorf("Unexpected author fields: %s %d %v", item.Author, item.AuthorFollowers, item.AuthorVerified)
	}
	if item.URL != "https://twitter.com/toyfan/status/1800000000000000001" {
		t.Errorf("Unexpected URL: %s", item.URL)
	}
	if len(item.Tags) != 2 || item.Tags[0] != "labubu" {
		t.Errorf("Unexpected tags: %v", item.Tags)
	}
	if item.PublishedAt == nil || item.PublishedAt.Hour() != 10 {
		t.Errorf("Expected created_at to be parsed, got %v", item.PublishedAt)
	}
}

func TestTwitterSource_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	s, err := NewTwitterSource(srv.URL, "bad", []string{"labubu"}, topic.TwitterConfig{Enabled: true}, NewFetcher(srv.Client(), "test", nil))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	_, err = s.Fetch(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 status error, got: %v", err)
	}
}

func TestNewTwitterSource_MissingToken(t *testing.T) {
	_, err := NewTwitterSource("", "", []string{"labubu"}, topic.TwitterConfig{}, nil)
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("Expected ErrMissingCredentials, got: %v", err)
	}
}

func TestBuildTwitterQuery(t *testing.T) {
	query := buildTwitterQuery([]string{"labubu", "拉布布", "pop mart"}, 0)
	expected := `(labubu OR 拉布布 OR "pop mart") -is:retweet`
	if query != expected {
		t.Errorf("Expected %q, got %q", expected, query)
	}
}
