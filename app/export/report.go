package export

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/lysyi3m/buzz-comb/app/relevance"
)

const topAuthorLimit = 10

type Report struct {
	Topic                  string                 `json:"topic"`
	GeneratedAt            time.Time              `json:"generated_at"`
	Summary                Summary                `json:"summary"`
	PlatformBreakdown      map[string]int         `json:"platform_breakdown"`
	KeywordAnalysis        []KeywordCount         `json:"keyword_analysis"`
	TopAuthors             []AuthorStats          `json:"top_authors"`
	HourlyDistribution     map[string]int         `json:"hourly_distribution"`
	EngagementDistribution EngagementDistribution `json:"engagement_stats"`
}

type Summary struct {
	TotalPosts               int     `json:"total_posts"`
	TotalShares              int64   `json:"total_shares"`
	TotalComments            int64   `json:"total_comments"`
	TotalLikes               int64   `json:"total_likes"`
	AverageEngagementPerPost float64 `json:"average_engagement_per_post"`
}

type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

type AuthorStats struct {
	AuthorID        string `json:"author_id"`
	Name            string `json:"name"`
	Platform        string `json:"platform"`
	PostsCount      int    `json:"posts_count"`
	TotalEngagement int64  `json:"total_engagement"`
	Followers       int64  `json:"followers"`
	Verified        bool   `json:"verified"`
}

// EngagementDistribution buckets items by engagement rate percentage:
// high > 1.0, medium 0.1 to 1.0, low < 0.1.
type EngagementDistribution struct {
	High   int `json:"high_engagement_posts"`
	Medium int `json:"medium_engagement_posts"`
	Low    int `json:"low_engagement_posts"`
}

// BuildReport aggregates items. Hours are bucketed in loc.
func BuildReport(topicName string, items []relevance.Item, now time.Time, loc *time.Location) Report {
	if loc == nil {
		loc = time.UTC
	}

	report := Report{
		Topic:              topicName,
		GeneratedAt:        now.UTC(),
		PlatformBreakdown:  make(map[string]int),
		KeywordAnalysis:    []KeywordCount{},
		TopAuthors:         []AuthorStats{},
		HourlyDistribution: make(map[string]int),
	}

	keywordCounts := make(map[string]int)
	authors := make(map[string]*AuthorStats)

	for _, item := range items {
		report.Summary.TotalPosts++
		report.Summary.TotalLikes += item.Engagement.Likes
		report.Summary.TotalShares += item.Engagement.Shares
		report.Summary.TotalComments += item.Engagement.Comments

		report.PlatformBreakdown[item.Platform]++

		for _, keyword := range item.MatchedKeywords {
			keywordCounts[keyword]++
		}

		authorKey := item.Platform + ":" + cmp.Or(item.AuthorID, item.Author)
		if cmp.Or(item.AuthorID, item.Author) != "" {
			stats, ok := authors[authorKey]
			if !ok {
				stats = &AuthorStats{
					AuthorID:  item.AuthorID,
					Name:      item.Author,
					Platform:  item.Platform,
					Followers: item.AuthorFollowers,
					Verified:  item.AuthorVerified,
				}
				authors[authorKey] = stats
			}
			stats.PostsCount++
			stats.TotalEngagement += item.Engagement.Interactions()
		}

		if !item.PublishedAt.IsZero() {
			hour := fmt.Sprintf("%02d", item.PublishedAt.In(loc).Hour())
			report.HourlyDistribution[hour]++
		}

		switch {
		case item.EngagementRate > 1.0:
			report.EngagementDistribution.High++
		case item.EngagementRate >= 0.1:
			report.EngagementDistribution.Medium++
		default:
			report.EngagementDistribution.Low++
		}
	}

	if report.Summary.TotalPosts > 0 {
		total := report.Summary.TotalLikes + report.Summary.TotalShares + report.Summary.TotalComments
		avg := float64(total) / float64(report.Summary.TotalPosts)
		report.Summary.AverageEngagementPerPost = math.Round(avg*100) / 100
	}

	for keyword, count := range keywordCounts {
		report.KeywordAnalysis = append(report.KeywordAnalysis, KeywordCount{Keyword: keyword, Count: count})
	}
	slices.SortFunc(report.KeywordAnalysis, func(a, b KeywordCount) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Keyword, b.Keyword))
	})

	for _, stats := range authors {
		report.TopAuthors = append(report.TopAuthors, *stats)
	}
	slices.SortFunc(report.TopAuthors, func(a, b AuthorStats) int {
		return cmp.Or(
			cmp.Compare(b.TotalEngagement, a.TotalEngagement),
			cmp.Compare(a.Platform, b.Platform),
			cmp.Compare(a.Name, b.Name),
		)
	})
	if len(report.TopAuthors) > topAuthorLimit {
		report.TopAuthors = report.TopAuthors[:topAuthorLimit]
	}

	return report
}
