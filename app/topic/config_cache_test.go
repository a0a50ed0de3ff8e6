package topic

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/buzz-comb/app/relevance"
)

func writeTopic(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigCacheLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeTopic(t, tempDir, "labubu", `
settings:
  enabled: true
  refresh_interval: 1800
  export_limit: 50

vocabulary:
  - "labubu"
  - "拉布布"
  - "Pop Mart"
  - "Lisa"

high_value_keywords:
  - "lisa"

scoring:
  weights:
    likes: 1
    shares: 3
    comments: 2
    views: 0
  decay_horizon_hours: 72
  precision: 0

sources:
  rss:
    enabled: true
    feeds:
      - "https://hypebeast.com/feed"
  reddit:
    enabled: true
    subreddits: ["popmart", "labubu"]
    limit: 10
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 topic config, got %d", configCache.GetConfigCount())
	}

	topicConfig, err := configCache.GetConfig("labubu")
	if err != nil {
		t.Fatal(err)
	}

	if topicConfig.Name != "labubu" {
		t.Errorf("Expected name 'labubu', got '%s'", topicConfig.Name)
	}
	if topicConfig.Settings.GetRefreshInterval() != 30*time.Minute {
		t.Errorf("Expected refresh interval 30m, got %v", topicConfig.Settings.GetRefreshInterval())
	}
	if topicConfig.Settings.ExportLimit != 50 {
		t.Errorf("Expected export limit 50, got %d", topicConfig.Settings.ExportLimit)
	}
	if len(topicConfig.Sources.Reddit.Subreddits) != 2 || topicConfig.Sources.Reddit.Limit != 10 {
		t.Errorf("Unexpected reddit config: %+v", topicConfig.Sources.Reddit)
	}

	engineConfig := topicConfig.EngineConfig()
	if engineConfig.DecayHorizon != 72*time.Hour {
		t.Errorf("Expected 72h decay horizon, got %v", engineConfig.DecayHorizon)
	}
	if engineConfig.Precision != 0 {
		t.Errorf("Expected explicit precision 0 to be kept, got %d", engineConfig.Precision)
	}
	if engineConfig.Weights.Shares != 3 {
		t.Errorf("Expected shares weight 3, got %v", engineConfig.Weights.Shares)
	}
	if _, err := relevance.NewEngine(engineConfig); err != nil {
		t.Errorf("Expected engine config to be usable, got: %v", err)
	}
}

func TestConfigCacheLoadConfigWithDefaults(t *testing.T) {
	tempDir := t.TempDir()

	writeTopic(t, tempDir, "minimal", `
vocabulary: ["labubu", "pop mart"]
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	topicConfig, err := configCache.GetConfig("minimal")
	if err != nil {
		t.Fatal(err)
	}

	if topicConfig.Settings.RefreshInterval != 3600 {
		t.Errorf("Expected default refresh interval 3600, got %d", topicConfig.Settings.RefreshInterval)
	}
	if topicConfig.Settings.ExportLimit != 500 {
		t.Errorf("Expected default export limit 500, got %d", topicConfig.Settings.ExportLimit)
	}
	if topicConfig.Scoring.Weights != relevance.DefaultWeights() {
		t.Errorf("Expected default weights, got %+v", topicConfig.Scoring.Weights)
	}
	if topicConfig.Sources.RSS.MaxEntries != 10 || topicConfig.Sources.Weibo.Count != 50 {
		t.Errorf("Unexpected source defaults: %+v", topicConfig.Sources)
	}
	if len(topicConfig.Sources.Weibo.Keywords) != 2 {
		t.Errorf("Expected weibo keywords to default to the vocabulary, got %v", topicConfig.Sources.Weibo.Keywords)
	}

	engineConfig := topicConfig.EngineConfig()
	if engineConfig.DecayHorizon != 168*time.Hour || engineConfig.DecayFloor != 0.1 || engineConfig.KeywordBonus != 1.5 || engineConfig.Precision != 2 {
		t.Errorf("Unexpected engine defaults: %+v", engineConfig)
	}
}

func TestConfigCacheInvalidConfigs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{
			name:    "empty vocabulary",
			content: "settings:\n  enabled: true\n",
			errText: "vocabulary must not be empty",
		},
		{
			name:    "blank keyword",
			content: "vocabulary: [\"labubu\", \"  \"]\n",
			errText: "blank vocabulary keyword",
		},
		{
			name:    "unknown high value keyword",
			content: "vocabulary: [\"labubu\"]\nhigh_value_keywords: [\"kaws\"]\n",
			errText: "not in the vocabulary",
		},
		{
			name:    "negative setting",
			content: "vocabulary: [\"labubu\"]\nsettings:\n  timeout: -1\n",
			errText: "timeout must be non-negative",
		},
		{
			name:    "negative horizon",
			content: "vocabulary: [\"labubu\"]\nscoring:\n  decay_horizon_hours: -5\n",
			errText: "decay horizon must be positive",
		},
		{
			name:    "decay floor above one",
			content: "vocabulary: [\"labubu\"]\nscoring:\n  decay_floor: 1.5\n",
			errText: "invalid scoring configuration",
		},
		{
			name:    "negative keyword bonus",
			content: "vocabulary: [\"labubu\"]\nscoring:\n  keyword_bonus: -1\n",
			errText: "invalid scoring configuration",
		},
		{
			name:    "negative precision",
			content: "vocabulary: [\"labubu\"]\nscoring:\n  precision: -1\n",
			errText: "invalid scoring configuration",
		},
		{
			name:    "horizon below one nanosecond",
			content: "vocabulary: [\"labubu\"]\nscoring:\n  decay_horizon_hours: 0.0000000000001\n",
			errText: "scoring: decay horizon must be positive",
		},
		{
			name:    "rss without feeds",
			content: "vocabulary: [\"labubu\"]\nsources:\n  rss:\n    enabled: true\n",
			errText: "without feeds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeTopic(t, tempDir, "broken", tt.content)

			configCache := NewConfigCache(tempDir)
			err := configCache.Run()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("Expected error containing %q, got: %v", tt.errText, err)
			}
		})
	}
}

func TestConfigCacheHighValueKeywordCaseInsensitive(t *testing.T) {
	tempDir := t.TempDir()
	writeTopic(t, tempDir, "case", "vocabulary: [\"Limited Edition\"]\nhigh_value_keywords: [\"limited edition\"]\n")

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatalf("Expected case-insensitive membership, got: %v", err)
	}
}

func TestConfigCacheMissingDirectory(t *testing.T) {
	configCache := NewConfigCache(filepath.Join(t.TempDir(), "missing"))
	if err := configCache.Run(); err != nil {
		t.Errorf("Expected no error for missing directory, got: %v", err)
	}
	if configCache.GetConfigCount() != 0 {
		t.Errorf("Expected no configs, got %d", configCache.GetConfigCount())
	}
}

func TestConfigCacheGetConfigNotFound(t *testing.T) {
	configCache := NewConfigCache(t.TempDir())

	_, err := configCache.GetConfig("nope")
	if !errors.Is(err, ErrTopicNotFound) {
		t.Errorf("Expected ErrTopicNotFound, got: %v", err)
	}
}

func TestConfigCacheGetEnabledConfigs(t *testing.T) {
	tempDir := t.TempDir()
	writeTopic(t, tempDir, "on", "settings:\n  enabled: true\nvocabulary: [\"labubu\"]\n")
	writeTopic(t, tempDir, "off", "settings:\n  enabled: false\nvocabulary: [\"labubu\"]\n")

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	enabled := configCache.GetEnabledConfigs()
	if len(enabled) != 1 {
		t.Fatalf("Expected 1 enabled config, got %d", len(enabled))
	}
	if _, ok := enabled["on"]; !ok {
		t.Errorf("Expected 'on' to be enabled")
	}
	if len(configCache.GetConfigs()) != 2 {
		t.Errorf("Expected 2 configs in total, got %d", len(configCache.GetConfigs()))
	}
}

func TestConfigCacheLoadsBundledTopics(t *testing.T) {
	configCache := NewConfigCache(filepath.Join("..", "..", "topics"))
	if err := configCache.Run(); err != nil {
		t.Fatalf("Expected bundled topic files to be valid, got: %v", err)
	}

	labubu, err := configCache.GetConfig("labubu")
	if err != nil {
		t.Fatal(err)
	}
	if len(labubu.HighValueKeywords) == 0 || !labubu.Sources.RSS.Enabled {
		t.Errorf("Unexpected bundled config: %+v", labubu)
	}
	if _, err := relevance.NewEngine(labubu.EngineConfig()); err != nil {
		t.Errorf("Expected bundled config to build an engine, got: %v", err)
	}
}
