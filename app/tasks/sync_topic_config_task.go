package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/buzz-comb/app/database"
	"github.com/lysyi3m/buzz-comb/app/topic"
)

type SyncTopicConfigTask struct {
	Task
	TopicConfig *topic.Config
	topicRepo   database.TopicRepository
}

func NewSyncTopicConfigTask(topicConfig *topic.Config, topicRepo database.TopicRepository) *SyncTopicConfigTask {
	return &SyncTopicConfigTask{
		Task:        NewTask(TaskTypeSyncTopicConfig, topicConfig.Name),
		TopicConfig: topicConfig,
		topicRepo:   topicRepo,
	}
}

func (t *SyncTopicConfigTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.topicRepo.UpsertTopic(t.TopicConfig.Name); err != nil {
		return fmt.Errorf("failed to sync topic config to database: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncTopicConfig",
		"topic", t.TopicName,
		"duration", t.GetDuration())

	return nil
}
