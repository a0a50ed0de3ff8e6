package relevance

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var (
	ErrEmptyVocabulary     = errors.New("vocabulary must contain at least one non-empty keyword")
	ErrInvalidDecayHorizon = errors.New("decay horizon must be positive")
	ErrInvalidScoring      = errors.New("invalid scoring configuration")
)

// Engine runs classify -> score -> dedupe -> sort over one batch of raw items.
// It holds no mutable state and is safe to share.
type Engine struct {
	classifier   *Classifier
	scorer       *Scorer
	deduplicator *Deduplicator
	ranker       *Ranker
	now          func() time.Time
}

func NewEngine(cfg Config) (*Engine, error) {
	classifier, err := NewClassifier(cfg.Vocabulary)
	if err != nil {
		return nil, err
	}

	scorer, err := NewScorer(cfg)
	if err != nil {
		return nil, err
	}

	return &Engine{
		classifier:   classifier,
		scorer:       scorer,
		deduplicator: NewDeduplicator(),
		ranker:       NewRanker(),
		now:          time.Now,
	}, nil
}

// WithClock replaces the collection clock. Used by tests and by rescoring.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	clone := *e
	clone.now = now
	return &clone
}

func (e *Engine) Classifier() *Classifier {
	return e.classifier
}

func (e *Engine) Run(raw []RawItem) *Result {
	now := e.now().UTC()
	result := &Result{Input: len(raw)}

	items := make([]Item, 0, len(raw))
	for i, r := range raw {
		item, err := e.normalize(r, now)
		if err != nil {
			failure := ItemError{Index: i, Platform: r.Platform, Reason: err.Error()}
			result.Failures = append(result.Failures, failure)
			slog.Warn("Skipping malformed item", "index", i, "platform", r.Platform, "error", err)
			continue
		}

		inTopic, matched := e.classifier.Run(item.MatchText)
		if !inTopic {
			result.OffTopic++
			continue
		}
		item.MatchedKeywords = matched
		item.RelevanceScore = len(matched)

		e.scorer.Run(&item, now)
		items = append(items, item)
	}

	items, result.Duplicates = e.deduplicator.Run(items)
	result.Items = e.ranker.Run(items)

	slog.Debug("Relevance engine finished",
		"input", result.Input,
		"kept", len(result.Items),
		"off_topic", result.OffTopic,
		"duplicates", result.Duplicates,
		"failures", len(result.Failures))

	return result
}

// Rescore runs stored items through the pipeline again, e.g. after the
// vocabulary changed. Collection times are preserved.
func (e *Engine) Rescore(stored []Item) *Result {
	raw := make([]RawItem, len(stored))
	collected := make(map[string]time.Time, len(stored))
	for i, item := range stored {
		raw[i] = item.ToRaw()
		collected[item.ID] = item.CollectedAt
	}

	result := e.Run(raw)
	for i := range result.Items {
		if at, ok := collected[result.Items[i].ID]; ok && !at.IsZero() {
			result.Items[i].CollectedAt = at
		}
	}
	return result
}

func (e *Engine) normalize(r RawItem, now time.Time) (Item, error) {
	id, err := ItemID(r.Platform, r.NativeID, r.URL)
	if err != nil {
		return Item{}, err
	}

	if r.Engagement.Likes < 0 || r.Engagement.Shares < 0 || r.Engagement.Comments < 0 || r.Engagement.Views < 0 {
		return Item{}, fmt.Errorf("negative engagement counts for %s", id)
	}

	publishedAt := now
	if plausibleTime(r.PublishedAt, now) {
		publishedAt = r.PublishedAt.UTC()
	}

	scoring := r.Scoring
	if scoring == "" {
		scoring = ScoringHotness
	}

	return Item{
		ID:              id,
		Platform:        r.Platform,
		NativeID:        strings.TrimSpace(r.NativeID),
		URL:             strings.TrimSpace(r.URL),
		Title:           strings.TrimSpace(r.Title),
		Summary:         strings.TrimSpace(r.Summary),
		Content:         strings.TrimSpace(r.Body),
		Author:          r.Author,
		AuthorID:        r.AuthorID,
		AuthorFollowers: r.AuthorFollowers,
		AuthorVerified:  r.AuthorVerified,
		PublishedAt:     publishedAt,
		CollectedAt:     now,
		Engagement:      r.Engagement,
		ImageURLs:       r.ImageURLs,
		Tags:            r.Tags,
		Language:        r.Language,
		Country:         r.Country,
		Category:        r.Category,
		Scoring:         scoring,
		Raw:             r.Raw,
		MatchText:       matchText(r.Title, r.Summary, r.Body),
	}, nil
}

// ToRaw turns a stored item back into the raw shape it was built from.
func (i Item) ToRaw() RawItem {
	publishedAt := i.PublishedAt
	return RawItem{
		Platform:        i.Platform,
		NativeID:        i.NativeID,
		URL:             i.URL,
		Title:           i.Title,
		Summary:         i.Summary,
		Body:            i.Content,
		Author:          i.Author,
		AuthorID:        i.AuthorID,
		AuthorFollowers: i.AuthorFollowers,
		AuthorVerified:  i.AuthorVerified,
		PublishedAt:     &publishedAt,
		Engagement:      i.Engagement,
		ImageURLs:       i.ImageURLs,
		Tags:            i.Tags,
		Language:        i.Language,
		Country:         i.Country,
		Category:        i.Category,
		Scoring:         i.Scoring,
		Raw:             i.Raw,
	}
}

// maxClockSkew bounds how far past the collection time a publish timestamp may be.
const maxClockSkew = time.Hour

// plausibleTime rejects unset timestamps, years that do not fit four digits
// and dates too far in the future, e.g. millisecond epochs read as seconds.
func plausibleTime(t *time.Time, now time.Time) bool {
	if t == nil || t.IsZero() {
		return false
	}
	if year := t.UTC().Year(); year < 1 || year > 9999 {
		return false
	}
	return !t.After(now.Add(maxClockSkew))
}

func matchText(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.Join(nonEmpty, " ")
}
