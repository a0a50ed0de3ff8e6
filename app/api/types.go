package api

import (
	"time"

	"github.com/lysyi3m/buzz-comb/app/cache"
	"github.com/lysyi3m/buzz-comb/app/database"
	"github.com/lysyi3m/buzz-comb/app/tasks"
	"github.com/lysyi3m/buzz-comb/app/topic"
)

type Handler struct {
	configCache *topic.ConfigCache
	topicRepo   database.TopicRepository
	itemRepo    database.ItemRepository
	cache       cache.Store
	scheduler   tasks.TaskSchedulerInterface
	version     string
	baseURL     string
	location    *time.Location
	now         func() time.Time
}

type renderFunc func(topicConfig *topic.Config) ([]byte, error)
