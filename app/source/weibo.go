package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/buzz-comb/app/relevance"
	"github.com/lysyi3m/buzz-comb/app/topic"
)

const (
	DefaultWeiboBaseURL = "https://api.weibo.com/2"
	weiboTimeLayout     = "Mon Jan 02 15:04:05 -0700 2006"
	weiboMaxCount       = 50
)

type WeiboSource struct {
	baseURL     string
	accessToken string
	keywords    []string
	maxPages    int
	count       int
	fetcher     *Fetcher
}

type weiboSearchResponse struct {
	Statuses  []weiboStatus `json:"statuses"`
	Error     string        `json:"error"`
	ErrorCode int           `json:"error_code"`
}

type weiboStatus struct {
	ID             int64  `json:"id"`
	IDStr          string `json:"idstr"`
	CreatedAt      string `json:"created_at"`
	Text           string `json:"text"`
	Source         string `json:"source"`
	RepostsCount   int64  `json:"reposts_count"`
	CommentsCount  int64  `json:"comments_count"`
	AttitudesCount int64  `json:"attitudes_count"`
	User           *struct {
		ID             int64  `json:"id"`
		IDStr          string `json:"idstr"`
		ScreenName     string `json:"screen_name"`
		FollowersCount int64  `json:"followers_count"`
		Verified       bool   `json:"verified"`
	} `json:"user"`
	PicURLs []struct {
		ThumbnailPic string `json:"thumbnail_pic"`
	} `json:"pic_urls"`
}

func NewWeiboSource(baseURL, accessToken string, cfg topic.WeiboConfig, fetcher *Fetcher) (*WeiboSource, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("weibo: %w", ErrMissingCredentials)
	}
	if baseURL == "" {
		baseURL = DefaultWeiboBaseURL
	}

	return &WeiboSource{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		keywords:    cfg.Keywords,
		maxPages:    max(cfg.MaxPages, 1),
		count:       clampInt(cfg.Count, 1, weiboMaxCount),
		fetcher:     fetcher,
	}, nil
}

func (s *WeiboSource) Name() string {
	return PlatformWeibo
}

// Fetch pages through the realtime search for every keyword. Paging for a
// keyword stops on an API error or a short page.
func (s *WeiboSource) Fetch(ctx context.Context) ([]relevance.RawItem, error) {
	var items []relevance.RawItem
	var lastErr error
	succeeded := 0

	for _, keyword := range s.keywords {
		for page := 1; page <= s.maxPages; page++ {
			if err := ctx.Err(); err != nil {
				return items, err
			}

			statuses, err := s.search(ctx, keyword, page)
			if err != nil {
				slog.Warn("Weibo search failed", "source", s.Name(), "keyword", keyword, "page", page, "error", err)
				lastErr = err
				break
			}
			succeeded++

			for _, status := range statuses {
				items = append(items, normalizeWeiboStatus(status))
			}

			slog.Debug("Weibo page fetched", "keyword", keyword, "page", page, "statuses", len(statuses))

			if len(statuses) < s.count {
				break
			}
		}
	}

	if succeeded == 0 && lastErr != nil {
		return nil, lastErr
	}

	return items, nil
}

func (s *WeiboSource) search(ctx context.Context, keyword string, page int) ([]weiboStatus, error) {
	params := url.Values{}
	params.Set("access_token", s.accessToken)
	params.Set("q", keyword)
	params.Set("count", strconv.Itoa(s.count))
	params.Set("page", strconv.Itoa(page))
	params.Set("result_type", "1")

	data, err := s.fetcher.Get(ctx, s.baseURL+"/search/statuses.json?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp weiboSearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode weibo response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("weibo API error %d: %s", resp.ErrorCode, resp.Error)
	}

	return resp.Statuses, nil
}

func normalizeWeiboStatus(status weiboStatus) relevance.RawItem {
	id := status.IDStr
	if id == "" && status.ID != 0 {
		id = strconv.FormatInt(status.ID, 10)
	}

	item := relevance.RawItem{
		Platform: PlatformWeibo,
		NativeID: id,
		Title:    truncate(status.Text, 100),
		Summary:  truncate(status.Text, 200),
		Body:     status.Text,
		Author:   "Unknown",
		Engagement: relevance.Engagement{
			Likes:    status.AttitudesCount,
			Shares:   status.RepostsCount,
			Comments: status.CommentsCount,
		},
		Tags:     extractWeiboTopics(status.Text),
		Language: "zh",
		Country:  "CN",
		Category: "Social",
		Scoring:  relevance.ScoringEngagementRate,
		Raw: map[string]any{
			"idstr":  id,
			"source": status.Source,
		},
	}

	if status.User != nil {
		uid := status.User.IDStr
		if uid == "" {
			uid = strconv.FormatInt(status.User.ID, 10)
		}
		item.Author = status.User.ScreenName
		item.AuthorID = uid
		item.AuthorFollowers = status.User.FollowersCount
		item.AuthorVerified = status.User.Verified
		item.URL = fmt.Sprintf("https://weibo.com/%s/%s", uid, id)
	}

	if published, err := time.Parse(weiboTimeLayout, status.CreatedAt); err == nil {
		utc := published.UTC()
		item.PublishedAt = &utc
	}

	for _, pic := range status.PicURLs {
		if pic.ThumbnailPic != "" {
			item.ImageURLs = append(item.ImageURLs, pic.ThumbnailPic)
		}
	}

	return item
}
