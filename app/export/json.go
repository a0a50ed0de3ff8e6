package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lysyi3m/buzz-comb/app/relevance"
)

const exportSource = "buzz_comb"

type Document struct {
	Metadata Metadata  `json:"metadata"`
	Articles []Article `json:"articles"`
}

type Metadata struct {
	ExportTime time.Time `json:"export_time"`
	TotalCount int       `json:"total_count"`
	Source     string    `json:"source"`
	Version    string    `json:"version"`
	Topic      string    `json:"topic"`
}

// Article uses the field names the web frontend consumes.
type Article struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	Content         string               `json:"content"`
	Summary         string               `json:"summary"`
	Author          string               `json:"author"`
	SourceID        string               `json:"sourceId"`
	OriginalURL     string               `json:"originalUrl"`
	PublishedAt     time.Time            `json:"publishedAt"`
	ImageURLs       []string             `json:"imageUrls"`
	Tags            []string             `json:"tags"`
	Category        string               `json:"category"`
	Language        string               `json:"language"`
	Country         string               `json:"country"`
	Platform        string               `json:"platform"`
	EngagementData  relevance.Engagement `json:"engagementData"`
	HotScore        float64              `json:"hotScore"`
	EngagementRate  float64              `json:"engagementRate"`
	RelevanceScore  int                  `json:"relevanceScore"`
	MatchedKeywords []string             `json:"matchedKeywords"`
	CreatedAt       time.Time            `json:"createdAt"`
}

func BuildDocument(topicName, version string, items []relevance.Item, now time.Time) Document {
	articles := make([]Article, 0, len(items))
	for _, item := range items {
		articles = append(articles, toArticle(item))
	}

	return Document{
		Metadata: Metadata{
			ExportTime: now.UTC(),
			TotalCount: len(articles),
			Source:     exportSource,
			Version:    version,
			Topic:      topicName,
		},
		Articles: articles,
	}
}

func toArticle(item relevance.Item) Article {
	return Article{
		ID:              item.ID,
		Title:           item.Title,
		Content:         item.Content,
		Summary:         item.Summary,
		Author:          item.Author,
		SourceID:        item.Platform,
		OriginalURL:     item.URL,
		PublishedAt:     item.PublishedAt.UTC(),
		ImageURLs:       nonNil(item.ImageURLs),
		Tags:            nonNil(item.Tags),
		Category:        item.Category,
		Language:        item.Language,
		Country:         item.Country,
		Platform:        item.Platform,
		EngagementData:  item.Engagement,
		HotScore:        item.HotScore,
		EngagementRate:  item.EngagementRate,
		RelevanceScore:  item.RelevanceScore,
		MatchedKeywords: nonNil(item.MatchedKeywords),
		CreatedAt:       item.CollectedAt.UTC(),
	}
}

// MarshalJSON renders v indented, leaving non-ASCII text and HTML unescaped.
func MarshalJSON(v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return buf.Bytes(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
