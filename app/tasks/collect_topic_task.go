package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/buzz-comb/app/collect"
	"github.com/lysyi3m/buzz-comb/app/relevance"
	"github.com/lysyi3m/buzz-comb/app/source"
	"github.com/lysyi3m/buzz-comb/app/topic"
)

var ErrAllSourcesFailed = errors.New("all sources failed")

type CollectTopicTask struct {
	Task
	TopicConfig *topic.Config
	services    *Services

	// Populated by Execute.
	Stats  []collect.SourceStats
	Result *relevance.Result
}

func NewCollectTopicTask(topicConfig *topic.Config, services *Services) *CollectTopicTask {
	return &CollectTopicTask{
		Task:        NewTask(TaskTypeCollectTopic, topicConfig.Name),
		TopicConfig: topicConfig,
		services:    services,
	}
}

func (t *CollectTopicTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.TopicConfig.Settings.Enabled {
		slog.Debug("Topic disabled, skipping", "topic", t.TopicName)
		return nil
	}

	engine, err := relevance.NewEngine(t.TopicConfig.EngineConfig())
	if err != nil {
		return fmt.Errorf("failed to build relevance engine: %w", err)
	}

	sources, err := source.Build(t.TopicConfig, engine.Classifier(), t.services.SourceOptions)
	if err != nil {
		return fmt.Errorf("failed to build sources: %w", err)
	}
	if len(sources) == 0 {
		slog.Warn("No sources configured for topic", "topic", t.TopicName)
	}

	raw, stats := collect.NewCollector(t.services.Metrics).Run(ctx, t.TopicName, sources)
	t.Stats = stats

	failed := 0
	for _, s := range stats {
		if s.Err != nil {
			failed++
		}
	}
	if len(stats) > 0 && failed == len(stats) {
		return fmt.Errorf("%w for topic %s", ErrAllSourcesFailed, t.TopicName)
	}

	result := engine.Run(raw)
	t.Result = result
	if t.services.Metrics != nil {
		t.services.Metrics.ObserveEngine(t.TopicName, result)
	}
	for _, failure := range result.Failures {
		slog.Warn("Item skipped", "topic", t.TopicName, "source", failure.Platform, "index", failure.Index, "reason", failure.Reason)
	}

	// Items reference the topic row.
	if err := t.services.TopicRepo.UpsertTopic(t.TopicName); err != nil {
		return fmt.Errorf("failed to ensure topic: %w", err)
	}
	if err := t.services.ItemRepo.UpsertItems(t.TopicName, result.Items); err != nil {
		return fmt.Errorf("failed to store items: %w", err)
	}

	now := time.Now().UTC()
	nextFetch := now.Add(t.TopicConfig.Settings.GetRefreshInterval())
	if err := t.services.TopicRepo.UpdateFetchState(t.TopicName, len(result.Items), now, nextFetch); err != nil {
		return fmt.Errorf("failed to update fetch state: %w", err)
	}

	t.services.refreshItemCount(t.TopicName)
	t.services.invalidate(ctx, t.TopicName)

	slog.Info("Task completed",
		"type", "CollectTopic",
		"topic", t.TopicName,
		"duration", t.GetDuration(),
		"sources", len(stats),
		"failed_sources", failed,
		"total", result.Input,
		"off_topic", result.OffTopic,
		"duplicates", result.Duplicates,
		"stored", len(result.Items))

	return nil
}
