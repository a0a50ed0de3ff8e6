package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/buzz-comb/app/relevance"
	"github.com/lysyi3m/buzz-comb/app/topic"
)

// RescoreTopicTask re-runs the engine over stored items after a vocabulary
// or scoring change. Items that no longer match are deleted.
type RescoreTopicTask struct {
	Task
	TopicConfig *topic.Config
	services    *Services
}

func NewRescoreTopicTask(topicConfig *topic.Config, services *Services) *RescoreTopicTask {
	return &RescoreTopicTask{
		Task:        NewTask(TaskTypeRescoreTopic, topicConfig.Name),
		TopicConfig: topicConfig,
		services:    services,
	}
}

func (t *RescoreTopicTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	engine, err := relevance.NewEngine(t.TopicConfig.EngineConfig())
	if err != nil {
		return fmt.Errorf("failed to build relevance engine: %w", err)
	}

	stored, err := t.services.ItemRepo.GetAllItems(t.TopicName)
	if err != nil {
		return fmt.Errorf("failed to get topic items: %w", err)
	}

	result := engine.Rescore(stored)

	kept := make(map[string]struct{}, len(result.Items))
	for _, item := range result.Items {
		kept[item.ID] = struct{}{}
	}
	var stale []string
	for _, item := range stored {
		if _, ok := kept[item.ID]; !ok {
			stale = append(stale, item.ID)
		}
	}

	if err := t.services.ItemRepo.UpsertItems(t.TopicName, result.Items); err != nil {
		return fmt.Errorf("failed to store rescored items: %w", err)
	}
	deleted, err := t.services.ItemRepo.DeleteItems(t.TopicName, stale)
	if err != nil {
		return fmt.Errorf("failed to delete off-topic items: %w", err)
	}

	t.services.refreshItemCount(t.TopicName)
	t.services.invalidate(ctx, t.TopicName)

	slog.Info("Task completed",
		"type", "RescoreTopic",
		"topic", t.TopicName,
		"duration", t.GetDuration(),
		"rescored", len(result.Items),
		"deleted", deleted)

	return nil
}
