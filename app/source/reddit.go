package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/lysyi3m/buzz-comb/app/relevance"
	"github.com/lysyi3m/buzz-comb/app/topic"
)

const (
	DefaultRedditAPIURL   = "https://oauth.reddit.com"
	DefaultRedditTokenURL = "https://www.reddit.com/api/v1/access_token"
)

type RedditCredentials struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	APIURL       string
	TokenURL     string
}

type RedditSource struct {
	apiURL     string
	subreddits []string
	limit      int
	fetcher    *Fetcher
}

type redditListing struct {
	Data struct {
		Children []struct {
			Kind string     `json:"kind"`
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int64   `json:"score"`
	NumComments int64   `json:"num_comments"`
	Subreddit   string  `json:"subreddit"`
}

// NewRedditSource uses the app-only client credentials grant. The base
// client carries timeouts into both token and API requests.
func NewRedditSource(creds RedditCredentials, cfg topic.RedditConfig, base *http.Client, limiter *rate.Limiter) (*RedditSource, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("reddit: %w", ErrMissingCredentials)
	}
	if creds.APIURL == "" {
		creds.APIURL = DefaultRedditAPIURL
	}
	if creds.TokenURL == "" {
		creds.TokenURL = DefaultRedditTokenURL
	}
	if base == nil {
		base = http.DefaultClient
	}

	oauthCfg := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := oauthCfg.Client(tokenCtx)
	client.Timeout = base.Timeout

	return &RedditSource{
		apiURL:     strings.TrimRight(creds.APIURL, "/"),
		subreddits: cfg.Subreddits,
		limit:      cfg.Limit,
		fetcher:    NewFetcher(client, creds.UserAgent, limiter),
	}, nil
}

func (s *RedditSource) Name() string {
	return PlatformReddit
}

// Fetch reads the hot listing of every subreddit. A failing subreddit is
// logged and skipped.
func (s *RedditSource) Fetch(ctx context.Context) ([]relevance.RawItem, error) {
	var items []relevance.RawItem
	failures := 0

	for _, sub := range s.subreddits {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		posts, err := s.fetchSubreddit(ctx, sub)
		if err != nil {
			slog.Warn("Subreddit fetch failed", "source", s.Name(), "subreddit", sub, "error", err)
			failures++
			if failures == len(s.subreddits) {
				return nil, fmt.Errorf("all subreddits failed, last error: %w", err)
			}
			continue
		}
		items = append(items, posts...)
	}

	return items, nil
}

func (s *RedditSource) fetchSubreddit(ctx context.Context, sub string) ([]relevance.RawItem, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(s.limit))
	params.Set("raw_json", "1")

	data, err := s.fetcher.Get(ctx, fmt.Sprintf("%s/r/%s/hot?%s", s.apiURL, url.PathEscape(sub), params.Encode()), nil)
	if err != nil {
		return nil, err
	}

	var listing redditListing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}

	items := make([]relevance.RawItem, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if child.Kind != "" && child.Kind != "t3" {
			continue
		}
		items = append(items, normalizeRedditPost(sub, child.Data))
	}
	return items, nil
}

func normalizeRedditPost(sub string, post redditPost) relevance.RawItem {
	item := relevance.RawItem{
		Platform: PlatformReddit,
		NativeID: post.ID,
		URL:      "https://reddit.com" + post.Permalink,
		Title:    post.Title,
		Summary:  post.Title,
		Body:     post.Selftext,
		Author:   post.Author,
		Engagement: relevance.Engagement{
			// Downvoted posts have negative scores.
			Likes:    max(post.Score, 0),
			Comments: post.NumComments,
		},
		Tags:     []string{sub},
		Language: "en",
		Country:  "Global",
		Category: "Discussion",
		Scoring:  relevance.ScoringHotness,
		Raw: map[string]any{
			"subreddit":     sub,
			"submission_id": post.ID,
			"score":         post.Score,
		},
	}

	if post.Author == "" || post.Author == "[deleted]" {
		item.Author = "Unknown"
	}
	if post.CreatedUTC > 0 {
		sec := int64(post.CreatedUTC)
		published := time.Unix(sec, 0).UTC()
		item.PublishedAt = &published
	}
	if isImageURL(post.URL) {
		item.ImageURLs = []string{post.URL}
	}

	return item
}

func isImageURL(u string) bool {
	for _, ext := range []string{".jpg", ".png", ".gif"} {
		if strings.HasSuffix(strings.ToLower(u), ext) {
			return true
		}
	}
	return false
}
