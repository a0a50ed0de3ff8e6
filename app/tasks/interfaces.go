package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/lysyi3m/buzz-comb/app/cache"
	"github.com/lysyi3m/buzz-comb/app/collect"
	"github.com/lysyi3m/buzz-comb/app/database"
	"github.com/lysyi3m/buzz-comb/app/export"
	"github.com/lysyi3m/buzz-comb/app/relevance"
	"github.com/lysyi3m/buzz-comb/app/source"
)

// TaskSchedulerInterface is what the API and binaries use to queue work.
//
//	scheduler, err := NewScheduler(configCache, services, opts)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTopicTask(TaskTypeCollectTopic, "labubu")
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueTopicTask(taskType TaskType, topicName string) error
}

type MetricsRecorder interface {
	collect.Recorder
	ObserveEngine(topic string, result *relevance.Result)
	ObserveTask(taskType string, duration time.Duration, err error)
	SetTopicItems(topic string, count int)
}

// Services holds the dependencies shared by every topic task.
type Services struct {
	TopicRepo     database.TopicRepository
	ItemRepo      database.ItemRepository
	SourceOptions source.Options
	Metrics       MetricsRecorder
	Cache         cache.Store
	Writer        *export.Writer
}

func (s *Services) invalidate(ctx context.Context, topicName string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.InvalidateTopic(ctx, topicName); err != nil {
		slog.Warn("Failed to invalidate export cache", "topic", topicName, "error", err)
	}
}

func (s *Services) refreshItemCount(topicName string) {
	if s.Metrics == nil {
		return
	}
	count, err := s.ItemRepo.GetItemCount(topicName)
	if err != nil {
		slog.Warn("Failed to count topic items", "topic", topicName, "error", err)
		return
	}
	s.Metrics.SetTopicItems(topicName, count)
}
