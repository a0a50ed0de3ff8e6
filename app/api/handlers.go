package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/buzz-comb/app/cache"
	"github.com/lysyi3m/buzz-comb/app/database"
	"github.com/lysyi3m/buzz-comb/app/export"
	"github.com/lysyi3m/buzz-comb/app/tasks"
	"github.com/lysyi3m/buzz-comb/app/topic"
)

func NewHandler(configCache *topic.ConfigCache, topicRepo database.TopicRepository,
	itemRepo database.ItemRepository, exportCache cache.Store,
	scheduler tasks.TaskSchedulerInterface, version, baseURL string, location *time.Location) *Handler {
	if exportCache == nil {
		exportCache = cache.Disabled{}
	}
	if location == nil {
		location = time.UTC
	}
	return &Handler{
		configCache: configCache,
		topicRepo:   topicRepo,
		itemRepo:    itemRepo,
		cache:       exportCache,
		scheduler:   scheduler,
		version:     version,
		baseURL:     baseURL,
		location:    location,
		now:         time.Now,
	}
}

func (h *Handler) GetTopicJSON(c *gin.Context) {
	h.serveExport(c, cache.FormatJSON, "application/json; charset=utf-8", func(topicConfig *topic.Config) ([]byte, error) {
		items, err := h.itemRepo.GetRankedItems(topicConfig.Name, topicConfig.Settings.ExportLimit)
		if err != nil {
			return nil, err
		}
		return export.MarshalJSON(export.BuildDocument(topicConfig.Name, h.version, items, h.now()))
	})
}

func (h *Handler) GetTopicCSV(c *gin.Context) {
	h.serveExport(c, cache.FormatCSV, "text/csv; charset=utf-8", func(topicConfig *topic.Config) ([]byte, error) {
		items, err := h.itemRepo.GetRankedItems(topicConfig.Name, topicConfig.Settings.ExportLimit)
		if err != nil {
			return nil, err
		}
		return export.CSV(items)
	})
}

func (h *Handler) GetTopicReport(c *gin.Context) {
	h.serveExport(c, cache.FormatReport, "application/json; charset=utf-8", func(topicConfig *topic.Config) ([]byte, error) {
		items, err := h.itemRepo.GetRankedItems(topicConfig.Name, topicConfig.Settings.ExportLimit)
		if err != nil {
			return nil, err
		}
		return export.MarshalJSON(export.BuildReport(topicConfig.Name, items, h.now(), h.location))
	})
}

func (h *Handler) GetTopicRSS(c *gin.Context) {
	h.serveExport(c, cache.FormatRSS, "application/rss+xml; charset=utf-8", func(topicConfig *topic.Config) ([]byte, error) {
		items, err := h.itemRepo.GetRankedItems(topicConfig.Name, topicConfig.Settings.ExportLimit)
		if err != nil {
			return nil, err
		}
		info := export.FeedInfo{Topic: topicConfig.Name, BaseURL: h.baseURL, Version: h.version}
		return export.RSS(info, items, h.now()), nil
	})
}

func (h *Handler) serveExport(c *gin.Context, format, contentType string, render renderFunc) {
	name := c.Param("name")

	topicConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Debug("Topic configuration not found", "topic", name, "error", err)
		c.Status(http.StatusNotFound)
		return
	}

	ctx := c.Request.Context()

	// The generation is read before rendering; see cache.Store.
	generation, cacheErr := h.cache.Generation(ctx, name)
	if cacheErr != nil {
		slog.Warn("Export cache generation read failed", "topic", name, "error", cacheErr)
	}

	var data []byte
	hit := false
	if cacheErr == nil {
		if data, hit, err = h.cache.Get(ctx, name, generation, format); err != nil {
			slog.Warn("Export cache read failed", "topic", name, "format", format, "error", err)
		}
	}

	if !hit {
		data, err = render(topicConfig)
		if err != nil {
			slog.Error("Export rendering failed", "topic", name, "format", format, "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}
		if cacheErr == nil {
			if err := h.cache.Set(ctx, name, generation, format, data); err != nil {
				slog.Warn("Export cache write failed", "topic", name, "format", format, "error", err)
			}
		}
	}

	c.Header("X-Topic-Name", name)
	c.Header("X-Cache", cacheStatus(hit))
	c.Data(http.StatusOK, contentType, data)
}

func cacheStatus(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK

	health := map[string]any{
		"status":                "healthy",
		"timestamp":             h.now().In(h.location).Format(time.RFC3339),
		"loaded_configurations": h.configCache.GetConfigCount(),
		"cache":                 h.cache.Health(ctx),
	}

	if topicCount, err := h.topicRepo.GetTopicCount(); err == nil {
		health["topics"] = topicCount
	} else {
		slog.Error("Database error", "operation", "get_topic_count", "error", err)
		health["status"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	states, err := h.topicRepo.GetTopics()
	if err != nil {
		slog.Error("Database error", "operation", "get_topics", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	topics := make([]map[string]any, 0, len(states))
	totalItems := 0
	for _, state := range states {
		info := map[string]any{
			"name":            state.Name,
			"last_fetched_at": state.LastFetchedAt,
			"next_fetch_at":   state.NextFetchAt,
			"last_item_count": state.LastItemCount,
		}

		if count, err := h.itemRepo.GetItemCount(state.Name); err == nil {
			info["item_count"] = count
			totalItems += count
		}
		if platforms, err := h.itemRepo.GetPlatformCounts(state.Name); err == nil {
			info["platforms"] = platforms
		}

		topics = append(topics, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"topics":      topics,
		"total_items": totalItems,
		"version":     h.version,
	})
}

func (h *Handler) APIListTopics(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	topics := make([]map[string]any, 0, len(configs))

	for _, topicConfig := range configs {
		topicInfo := map[string]any{
			"name":             topicConfig.Name,
			"enabled":          topicConfig.Settings.Enabled,
			"vocabulary":       len(topicConfig.Vocabulary),
			"refresh_interval": topicConfig.Settings.GetRefreshInterval().String(),
			"export_limit":     topicConfig.Settings.ExportLimit,
			"sources":          enabledSources(topicConfig),
		}

		if state, err := h.topicRepo.GetTopic(topicConfig.Name); err == nil && state != nil {
			topicInfo["last_fetched_at"] = state.LastFetchedAt
			topicInfo["next_fetch_at"] = state.NextFetchAt
			topicInfo["updated_at"] = state.UpdatedAt
		}

		if itemCount, err := h.itemRepo.GetItemCount(topicConfig.Name); err == nil {
			topicInfo["item_count"] = itemCount
		}

		topics = append(topics, topicInfo)
	}

	c.JSON(http.StatusOK, map[string]any{
		"topics": topics,
		"total":  len(topics),
	})
}

func (h *Handler) APIGetTopicDetails(c *gin.Context) {
	name := c.Param("name")

	topicConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Topic configuration not found"})
		return
	}

	details := map[string]any{
		"name":                name,
		"enabled":             topicConfig.Settings.Enabled,
		"vocabulary":          topicConfig.Vocabulary,
		"high_value_keywords": topicConfig.HighValueKeywords,
		"refresh_interval":    topicConfig.Settings.GetRefreshInterval().String(),
		"timeout":             topicConfig.Settings.GetTimeout().String(),
		"scoring":             topicConfig.Scoring,
		"sources":             enabledSources(topicConfig),
	}

	state, err := h.topicRepo.GetTopic(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_topic", "topic", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if state != nil {
		details["database"] = map[string]any{
			"last_fetched_at": state.LastFetchedAt,
			"next_fetch_at":   state.NextFetchAt,
			"last_item_count": state.LastItemCount,
			"created_at":      state.CreatedAt,
			"updated_at":      state.UpdatedAt,
		}
	}

	if platforms, err := h.itemRepo.GetPlatformCounts(name); err == nil {
		details["platforms"] = platforms
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APICollectTopic(c *gin.Context) {
	h.enqueue(c, tasks.TaskTypeCollectTopic)
}

func (h *Handler) APIRescoreTopic(c *gin.Context) {
	h.enqueue(c, tasks.TaskTypeRescoreTopic)
}

func (h *Handler) APIExportTopic(c *gin.Context) {
	h.enqueue(c, tasks.TaskTypeExportTopic)
}

// APIReloadTopic re-reads the topic file, then queues a sync and a rescore
// so stored items follow the new vocabulary.
func (h *Handler) APIReloadTopic(c *gin.Context) {
	name := c.Param("name")

	if _, err := h.configCache.GetConfig(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Topic configuration not found"})
		return
	}

	if _, err := h.configCache.LoadConfig(name); err != nil {
		slog.Error("Error reloading configuration", "topic", name, "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	queued := make([]tasks.TaskType, 0, 2)
	for _, taskType := range []tasks.TaskType{tasks.TaskTypeSyncTopicConfig, tasks.TaskTypeRescoreTopic} {
		if err := h.scheduler.EnqueueTopicTask(taskType, name); err != nil {
			slog.Error("Error enqueueing task", "topic", name, "type", string(taskType), "error", err)
			c.JSON(enqueueStatus(err), gin.H{
				"error":   "Failed to enqueue " + string(taskType) + " task",
				"details": err.Error(),
			})
			return
		}
		queued = append(queued, taskType)
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Configuration reloaded and tasks enqueued successfully",
		"topic":   name,
		"tasks":   queued,
	})
}

func (h *Handler) enqueue(c *gin.Context, taskType tasks.TaskType) {
	name := c.Param("name")

	if err := h.scheduler.EnqueueTopicTask(taskType, name); err != nil {
		slog.Error("Error enqueueing task", "topic", name, "type", string(taskType), "error", err)
		c.JSON(enqueueStatus(err), gin.H{
			"error":   "Failed to enqueue " + string(taskType) + " task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"topic":   name,
		"task":    taskType,
	})
}

func enqueueStatus(err error) int {
	switch {
	case errors.Is(err, topic.ErrTopicNotFound):
		return http.StatusNotFound
	case errors.Is(err, tasks.ErrTaskPending):
		return http.StatusConflict
	case errors.Is(err, tasks.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func enabledSources(topicConfig *topic.Config) []string {
	var sources []string
	if topicConfig.Sources.RSS.Enabled {
		sources = append(sources, "rss:"+strconv.Itoa(len(topicConfig.Sources.RSS.Feeds)))
	}
	if topicConfig.Sources.Twitter.Enabled {
		sources = append(sources, "twitter")
	}
	if topicConfig.Sources.Reddit.Enabled {
		sources = append(sources, "reddit:"+strconv.Itoa(len(topicConfig.Sources.Reddit.Subreddits)))
	}
	if topicConfig.Sources.Weibo.Enabled {
		sources = append(sources, "weibo")
	}
	return sources
}
