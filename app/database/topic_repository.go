package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ TopicRepository = (*TopicRepo)(nil)

type TopicRepo struct {
	db *DB
}

func NewTopicRepository(db *DB) *TopicRepo {
	return &TopicRepo{db: db}
}

// UpsertTopic registers a topic. Existing fetch state is preserved.
func (r *TopicRepo) UpsertTopic(topicName string) error {
	now := formatTime(time.Now())
	_, err := r.db.Exec(`
		INSERT INTO topics (name, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET updated_at = excluded.updated_at
	`, topicName, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert topic: %w", err)
	}
	return nil
}

func (r *TopicRepo) UpdateFetchState(topicName string, itemCount int, fetchedAt, nextFetch time.Time) error {
	result, err := r.db.Exec(`
		UPDATE topics
		SET last_fetched_at = ?, next_fetch_at = ?, last_item_count = ?, updated_at = ?
		WHERE name = ?
	`, formatTime(fetchedAt), formatTime(nextFetch), itemCount, formatTime(time.Now()), topicName)
	if err != nil {
		return fmt.Errorf("failed to update fetch state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("topic '%s' not found", topicName)
	}
	return nil
}

// GetTopic returns nil without error when the topic is unknown.
func (r *TopicRepo) GetTopic(topicName string) (*Topic, error) {
	row := r.db.QueryRow(`
		SELECT name, last_fetched_at, next_fetch_at, last_item_count, created_at, updated_at
		FROM topics
		WHERE name = ?
	`, topicName)

	topic, err := scanTopic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return topic, nil
}

func (r *TopicRepo) GetTopics() ([]Topic, error) {
	rows, err := r.db.Query(`
		SELECT name, last_fetched_at, next_fetch_at, last_item_count, created_at, updated_at
		FROM topics
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get topics: %w", err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic row: %w", err)
		}
		topics = append(topics, *topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topic rows: %w", err)
	}

	return topics, nil
}

func (r *TopicRepo) GetTopicCount() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM topics").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get topic count: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTopic(row rowScanner) (*Topic, error) {
	var topic Topic
	var lastFetched, nextFetch sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&topic.Name, &lastFetched, &nextFetch, &topic.LastItemCount, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if topic.LastFetchedAt, err = parseNullableTime(lastFetched); err != nil {
		return nil, err
	}
	if topic.NextFetchAt, err = parseNullableTime(nextFetch); err != nil {
		return nil, err
	}
	if topic.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if topic.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &topic, nil
}

func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
