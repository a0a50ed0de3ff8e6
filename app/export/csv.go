package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/buzz-comb/app/relevance"
)

var csvHeader = []string{
	"id",
	"platform",
	"title",
	"author",
	"author_followers",
	"url",
	"published_at",
	"likes",
	"shares",
	"comments",
	"views",
	"relevance_score",
	"matched_keywords",
	"hot_score",
	"engagement_rate",
	"category",
	"language",
	"tags",
}

// CSV renders items with a snake_case header. List fields are joined with "|".
func CSV(items []relevance.Item) ([]byte, error) {
	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	if err := writer.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, item := range items {
		row := []string{
			item.ID,
			item.Platform,
			item.Title,
			item.Author,
			strconv.FormatInt(item.AuthorFollowers, 10),
			item.URL,
			item.PublishedAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(item.Engagement.Likes, 10),
			strconv.FormatInt(item.Engagement.Shares, 10),
			strconv.FormatInt(item.Engagement.Comments, 10),
			strconv.FormatInt(item.Engagement.Views, 10),
			strconv.Itoa(item.RelevanceScore),
			strings.Join(item.MatchedKeywords, "|"),
			strconv.FormatFloat(item.HotScore, 'f', -1, 64),
			strconv.FormatFloat(item.EngagementRate, 'f', -1, 64),
			item.Category,
			item.Language,
			strings.Join(item.Tags, "|"),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}
