package database

import (
	"time"

	"github.com/lysyi3m/buzz-comb/app/relevance"
)

type TopicRepository interface {
	GetTopic(topicName string) (*Topic, error)
	GetTopics() ([]Topic, error)
	GetTopicCount() (int, error)

	UpsertTopic(topicName string) error
	UpdateFetchState(topicName string, itemCount int, fetchedAt, nextFetch time.Time) error
}

type ItemRepository interface {
	GetRankedItems(topicName string, limit int) ([]relevance.Item, error)
	GetAllItems(topicName string) ([]relevance.Item, error)
	GetItemCount(topicName string) (int, error)
	GetPlatformCounts(topicName string) (map[string]int, error)

	UpsertItems(topicName string, items []relevance.Item) error
	DeleteItems(topicName string, ids []string) (int, error)
}
