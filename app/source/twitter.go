package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/buzz-comb/app/relevance"
	"github.com/lysyi3m/buzz-comb/app/topic"
)

const DefaultTwitterBaseURL = "https://api.twitter.com"

type TwitterSource struct {
	baseURL     string
	bearerToken string
	query       string
	maxResults  int
	fetcher     *Fetcher
}

type twitterSearchResponse struct {
	Data     []twitterTweet `json:"data"`
	Includes struct {
		Users []twitterUser `json:"users"`
	} `json:"includes"`
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

type twitterTweet struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	AuthorID      string     `json:"author_id"`
	CreatedAt     *time.Time `json:"created_at"`
	Lang          string     `json:"lang"`
	PublicMetrics struct {
		RetweetCount    int64 `json:"retweet_count"`
		ReplyCount      int64 `json:"reply_count"`
		LikeCount       int64 `json:"like_count"`
		QuoteCount      int64 `json:"quote_count"`
		ImpressionCount int64 `json:"impression_count"`
	} `json:"public_metrics"`
}

type twitterUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Verified      bool   `json:"verified"`
	PublicMetrics struct {
		FollowersCount int64 `json:"followers_count"`
	} `json:"public_metrics"`
}

func NewTwitterSource(baseURL, bearerToken string, vocabulary []string, cfg topic.TwitterConfig, fetcher *Fetcher) (*TwitterSource, error) {
	if bearerToken == "" {
		return nil, fmt.Errorf("twitter: %w", ErrMissingCredentials)
	}
	if baseURL == "" {
		baseURL = DefaultTwitterBaseURL
	}

	return &TwitterSource{
		baseURL:     strings.TrimRight(baseURL, "/"),
		bearerToken: bearerToken,
		query:       buildTwitterQuery(vocabulary, cfg.QueryKeywords),
		maxResults:  clampInt(cfg.MaxResults, 10, 100),
		fetcher:     fetcher,
	}, nil
}

func (s *TwitterSource) Name() string {
	return PlatformTwitter
}

func (s *TwitterSource) Fetch(ctx context.Context) ([]relevance.RawItem, error) {
	params := url.Values{}
	params.Set("query", s.query)
	params.Set("max_results", strconv.Itoa(s.maxResults))
	params.Set("tweet.fields", "author_id,created_at,public_metrics,lang")
	params.Set("expansions", "author_id")
	params.Set("user.fields", "username,verified,public_metrics")

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.bearerToken)

	data, err := s.fetcher.Get(ctx, s.baseURL+"/2/tweets/search/recent?"+params.Encode(), header)
	if err != nil {
		return nil, fmt.Errorf("twitter search: %w", err)
	}

	var resp twitterSearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode twitter response: %w", err)
	}
	if len(resp.Data) == 0 && len(resp.Errors) > 0 {
		return nil, fmt.Errorf("twitter API error: %s: %s", resp.Errors[0].Title, resp.Errors[0].Detail)
	}

	users := make(map[string]twitterUser, len(resp.Includes.Users))
	for _, u := range resp.Includes.Users {
		users[u.ID] = u
	}

	items := make([]relevance.RawItem, 0, len(resp.Data))
	for _, tweet := range resp.Data {
		items = append(items, normalizeTweet(tweet, users[tweet.AuthorID]))
	}
	return items, nil
}

func normalizeTweet(tweet twitterTweet, user twitterUser) relevance.RawItem {
	author := "user_" + tweet.AuthorID
	handle := "user"
	if user.Username != "" {
		author = user.Username
		handle = user.Username
	}

	return relevance.RawItem{
		Platform:        PlatformTwitter,
		NativeID:        tweet.ID,
		URL:             fmt.Sprintf("https://twitter.com/%s/status/%s", handle, tweet.ID),
		Title:           truncate(tweet.Text, 100),
		Summary:         truncate(tweet.Text, 200),
		Body:            tweet.Text,
		Author:          author,
		AuthorID:        tweet.AuthorID,
		AuthorFollowers: user.PublicMetrics.FollowersCount,
		AuthorVerified:  user.Verified,
		PublishedAt:     tweet.CreatedAt,
		Engagement: relevance.Engagement{
			Likes:    tweet.PublicMetrics.LikeCount,
			Shares:   tweet.PublicMetrics.RetweetCount + tweet.PublicMetrics.QuoteCount,
			Comments: tweet.PublicMetrics.ReplyCount,
			Views:    tweet.PublicMetrics.ImpressionCount,
		},
		Tags:     extractHashtags(tweet.Text),
		Language: tweet.Lang,
		Country:  "Unknown",
		Category: "Social",
		Scoring:  relevance.ScoringHotness,
		Raw: map[string]any{
			"tweet_id":  tweet.ID,
			"author_id": tweet.AuthorID,
		},
	}
}

// buildTwitterQuery ORs the first n vocabulary terms and excludes retweets.
func buildTwitterQuery(vocabulary []string, n int) string {
	if n <= 0 || n > len(vocabulary) {
		n = len(vocabulary)
	}

	terms := make([]string, 0, n)
	for _, keyword := range vocabulary[:n] {
		keyword = strings.TrimSpace(keyword)
		if strings.ContainsAny(keyword, " \t") {
			keyword = strconv.Quote(keyword)
		}
		terms = append(terms, keyword)
	}

	return "(" + strings.Join(terms, " OR ") + ") -is:retweet"
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
