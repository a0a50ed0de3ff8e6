package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/buzz-comb/app/export"
	"github.com/lysyi3m/buzz-comb/app/topic"
)

type ExportTopicTask struct {
	Task
	TopicConfig *topic.Config
	services    *Services

	Files *export.Files
}

func NewExportTopicTask(topicConfig *topic.Config, services *Services) *ExportTopicTask {
	return &ExportTopicTask{
		Task:        NewTask(TaskTypeExportTopic, topicConfig.Name),
		TopicConfig: topicConfig,
		services:    services,
	}
}

func (t *ExportTopicTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if t.services.Writer == nil {
		return fmt.Errorf("export writer is not configured")
	}

	items, err := t.services.ItemRepo.GetRankedItems(t.TopicName, t.TopicConfig.Settings.ExportLimit)
	if err != nil {
		return fmt.Errorf("failed to get ranked items: %w", err)
	}

	files, err := t.services.Writer.Run(t.TopicName, items, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write exports: %w", err)
	}
	t.Files = files

	slog.Info("Task completed",
		"type", "ExportTopic",
		"topic", t.TopicName,
		"duration", t.GetDuration(),
		"items", len(items),
		"json", files.JSON)

	return nil
}
