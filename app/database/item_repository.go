package database

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/buzz-comb/app/relevance"
)

var _ ItemRepository = (*ItemRepo)(nil)

type ItemRepo struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

const itemColumns = `id, platform, native_id, url, title, summary, content, author, author_id,
	author_followers, author_verified, language, country, category, scoring,
	engagement, tags, image_urls, matched_keywords, raw_data,
	relevance_score, hot_score, engagement_rate, rank_score, published_at, collected_at`

// UpsertItems writes the batch in one transaction. Re-ingesting an id
// refreshes every field except created_at.
func (r *ItemRepo) UpsertItems(topicName string, items []relevance.Item) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO items (
			topic, id, platform, native_id, url, title, summary, content, author, author_id,
			author_followers, author_verified, language, country, category, scoring,
			engagement, tags, image_urls, matched_keywords, raw_data,
			relevance_score, hot_score, engagement_rate, rank_score,
			published_at, collected_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (topic, id) DO UPDATE SET
			platform = excluded.platform,
			native_id = excluded.native_id,
			url = excluded.url,
			title = excluded.title,
			summary = excluded.summary,
			content = excluded.content,
			author = excluded.author,
			author_id = excluded.author_id,
			author_followers = excluded.author_followers,
			author_verified = excluded.author_verified,
			language = excluded.language,
			country = excluded.country,
			category = excluded.category,
			scoring = excluded.scoring,
			engagement = excluded.engagement,
			tags = excluded.tags,
			image_urls = excluded.image_urls,
			matched_keywords = excluded.matched_keywords,
			raw_data = excluded.raw_data,
			relevance_score = excluded.relevance_score,
			hot_score = excluded.hot_score,
			engagement_rate = excluded.engagement_rate,
			rank_score = excluded.rank_score,
			published_at = excluded.published_at,
			collected_at = excluded.collected_at,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for _, item := range items {
		encoded, err := encodeJSONColumns(item)
		if err != nil {
			return fmt.Errorf("failed to encode item %s: %w", item.ID, err)
		}

		_, err = stmt.Exec(
			topicName, item.ID, item.Platform, item.NativeID, item.URL, item.Title, item.Summary, item.Content,
			item.Author, item.AuthorID, item.AuthorFollowers, item.AuthorVerified,
			item.Language, item.Country, item.Category, string(item.Scoring),
			encoded.engagement, encoded.tags, encoded.imageURLs, encoded.matchedKeywords, encoded.raw,
			item.RelevanceScore, item.HotScore, item.EngagementRate, item.RankScore,
			formatTime(item.PublishedAt), formatTime(item.CollectedAt), now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert item %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit items: %w", err)
	}

	return nil
}

// GetRankedItems returns items in ranking order.
func (r *ItemRepo) GetRankedItems(topicName string, limit int) ([]relevance.Item, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.queryItems(`
		SELECT `+itemColumns+`
		FROM items
		WHERE topic = ?
		ORDER BY relevance_score DESC, rank_score DESC, published_at DESC
		LIMIT ?
	`, topicName, limit)
}

func (r *ItemRepo) GetAllItems(topicName string) ([]relevance.Item, error) {
	return r.queryItems(`
		SELECT `+itemColumns+`
		FROM items
		WHERE topic = ?
		ORDER BY collected_at, id
	`, topicName)
}

func (r *ItemRepo) GetItemCount(topicName string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM items WHERE topic = ?", topicName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}

func (r *ItemRepo) GetPlatformCounts(topicName string) (map[string]int, error) {
	rows, err := r.db.Query(`
		SELECT platform, COUNT(*)
		FROM items
		WHERE topic = ?
		GROUP BY platform
	`, topicName)
	if err != nil {
		return nil, fmt.Errorf("failed to get platform counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var platform string
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, fmt.Errorf("failed to scan platform count: %w", err)
		}
		counts[platform] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating platform counts: %w", err)
	}

	return counts, nil
}

func (r *ItemRepo) DeleteItems(topicName string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, topicName)
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := r.db.Exec("DELETE FROM items WHERE topic = ? AND id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete items: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(affected), nil
}

func (r *ItemRepo) queryItems(query string, args ...any) ([]relevance.Item, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []relevance.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			// An unreadable row must not hide the rest of the topic.
			slog.Warn("Skipping unreadable item row", "id", item.ID, "error", err)
			continue
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

type jsonColumns struct {
	engagement      string
	tags            string
	imageURLs       string
	matchedKeywords string
	raw             string
}

func encodeJSONColumns(item relevance.Item) (jsonColumns, error) {
	var cols jsonColumns
	var err error

	if cols.engagement, err = marshalColumn(item.Engagement, "{}"); err != nil {
		return cols, err
	}
	if cols.tags, err = marshalColumn(item.Tags, "[]"); err != nil {
		return cols, err
	}
	if cols.imageURLs, err = marshalColumn(item.ImageURLs, "[]"); err != nil {
		return cols, err
	}
	if cols.matchedKeywords, err = marshalColumn(item.MatchedKeywords, "[]"); err != nil {
		return cols, err
	}
	if cols.raw, err = marshalColumn(item.Raw, "{}"); err != nil {
		return cols, err
	}

	return cols, nil
}

func marshalColumn(v any, empty string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

func scanItem(row rowScanner) (relevance.Item, error) {
	var item relevance.Item
	var scoring string
	var cols jsonColumns
	var publishedAt, collectedAt string

	err := row.Scan(
		&item.ID, &item.Platform, &item.NativeID, &item.URL, &item.Title, &item.Summary, &item.Content,
		&item.Author, &item.AuthorID, &item.AuthorFollowers, &item.AuthorVerified,
		&item.Language, &item.Country, &item.Category, &scoring,
		&cols.engagement, &cols.tags, &cols.imageURLs, &cols.matchedKeywords, &cols.raw,
		&item.RelevanceScore, &item.HotScore, &item.EngagementRate, &item.RankScore,
		&publishedAt, &collectedAt,
	)
	if err != nil {
		return item, err
	}

	item.Scoring = relevance.ScoringMode(scoring)

	if err := json.Unmarshal([]byte(cols.engagement), &item.Engagement); err != nil {
		return item, fmt.Errorf("engagement: %w", err)
	}
	if err := json.Unmarshal([]byte(cols.tags), &item.Tags); err != nil {
		return item, fmt.Errorf("tags: %w", err)
	}
	if err := json.Unmarshal([]byte(cols.imageURLs), &item.ImageURLs); err != nil {
		return item, fmt.Errorf("image urls: %w", err)
	}
	if err := json.Unmarshal([]byte(cols.matchedKeywords), &item.MatchedKeywords); err != nil {
		return item, fmt.Errorf("matched keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(cols.raw), &item.Raw); err != nil {
		return item, fmt.Errorf("raw data: %w", err)
	}

	if item.PublishedAt, err = parseTime(publishedAt); err != nil {
		return item, fmt.Errorf("published_at: %w", err)
	}
	if item.CollectedAt, err = parseTime(collectedAt); err != nil {
		return item, fmt.Errorf("collected_at: %w", err)
	}

	return item, nil
}
