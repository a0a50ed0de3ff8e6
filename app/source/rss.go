package source

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/buzz-comb/app/relevance"
	"github.com/lysyi3m/buzz-comb/app/topic"
)

type RSSSource struct {
	feeds          []string
	maxEntries     int
	extractContent bool
	classifier     *relevance.Classifier
	parser         *gofeed.Parser
	extractor      *ContentExtractor
	fetcher        *Fetcher
}

func NewRSSSource(cfg topic.RSSConfig, classifier *relevance.Classifier, extractor *ContentExtractor, fetcher *Fetcher) *RSSSource {
	return &RSSSource{
		feeds:          cfg.Feeds,
		maxEntries:     cfg.MaxEntries,
		extractContent: cfg.ExtractContent,
		classifier:     classifier,
		parser:         gofeed.NewParser(),
		extractor:      extractor,
		fetcher:        fetcher,
	}
}

func (s *RSSSource) Name() string {
	return PlatformRSS
}

// Fetch reads every configured feed. A broken feed is logged and skipped;
// an error is returned only when no feed could be read.
func (s *RSSSource) Fetch(ctx context.Context) ([]relevance.RawItem, error) {
	var items []relevance.RawItem
	var errs []error

	for _, feedURL := range s.feeds {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		feedItems, err := s.fetchFeed(ctx, feedURL)
		if err != nil {
			slog.Warn("RSS feed failed", "source", s.Name(), "feed", feedURL, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", feedURL, err))
			continue
		}
		items = append(items, feedItems...)
	}

	if len(s.feeds) > 0 && len(errs) == len(s.feeds) {
		return nil, errors.Join(errs...)
	}

	return items, nil
}

func (s *RSSSource) fetchFeed(ctx context.Context, feedURL string) ([]relevance.RawItem, error) {
	data, err := s.fetcher.Get(ctx, feedURL, nil)
	if err != nil {
		return nil, err
	}

	feed, err := s.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := feed.Items
	if s.maxEntries > 0 && len(entries) > s.maxEntries {
		entries = entries[:s.maxEntries]
	}

	items := make([]relevance.RawItem, 0, len(entries))
	for _, entry := range entries {
		if entry == nil || entry.Link == "" {
			continue
		}

		// Only related entries are worth an article download.
		related, _ := s.classifier.Run(strings.Join([]string{entry.Title, entry.Description, entry.Content}, " "))
		if !related {
			continue
		}

		item := s.normalizeEntry(feedURL, feed, entry)

		if s.extractContent {
			if err := s.extract(ctx, &item); err != nil {
				slog.Warn("Article extraction failed", "source", s.Name(), "url", entry.Link, "error", err)
				continue
			}
		}

		items = append(items, item)
	}

	return items, nil
}

func (s *RSSSource) normalizeEntry(feedURL string, feed *gofeed.Feed, entry *gofeed.Item) relevance.RawItem {
	item := relevance.RawItem{
		Platform:    PlatformRSS,
		URL:         entry.Link,
		Title:       entry.Title,
		Summary:     entry.Description,
		Body:        entry.Content,
		Author:      extractAuthor(entry),
		PublishedAt: cmp.Or(entry.PublishedParsed, entry.UpdatedParsed),
		Language:    cmp.Or(feed.Language, "en"),
		Country:     "US",
		Category:    "News",
		Tags:        limitTags(entry.Categories),
		Scoring:     relevance.ScoringHotness,
		Raw: map[string]any{
			"feed": feedURL,
			"guid": entry.GUID,
		},
	}

	if entry.Image != nil && entry.Image.URL != "" {
		item.ImageURLs = append(item.ImageURLs, entry.Image.URL)
	}
	for _, enclosure := range entry.Enclosures {
		if enclosure != nil && strings.HasPrefix(enclosure.Type, "image/") {
			item.ImageURLs = append(item.ImageURLs, enclosure.URL)
		}
	}

	return item
}

func (s *RSSSource) extract(ctx context.Context, item *relevance.RawItem) error {
	data, err := s.fetcher.Get(ctx, item.URL, nil)
	if err != nil {
		return err
	}

	article, err := s.extractor.Run(data, item.URL)
	if err != nil {
		return err
	}

	item.Body = article.Text
	if item.Title == "" {
		item.Title = article.Title
	}
	if item.Summary == "" {
		item.Summary = truncate(article.Text, 200)
	}
	return nil
}

func extractAuthor(entry *gofeed.Item) string {
	var names []string
	for _, author := range entry.Authors {
		if author != nil && strings.TrimSpace(author.Name) != "" {
			names = append(names, strings.TrimSpace(author.Name))
		}
	}
	if len(names) == 0 && entry.Author != nil {
		names = append(names, strings.TrimSpace(entry.Author.Name))
	}
	return cmp.Or(strings.Join(names, ", "), "Unknown")
}
