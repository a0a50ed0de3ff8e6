package topic

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/buzz-comb/app/relevance"
)

var ErrTopicNotFound = errors.New("topic not found")

type ConfigCache struct {
	topicsDir string
	cache     map[string]*Config
	mu        sync.RWMutex
}

func NewConfigCache(topicsDir string) *ConfigCache {
	return &ConfigCache{
		topicsDir: topicsDir,
		cache:     make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.topicsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.topicsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		topicName := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(topicName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded", "topic", topicName, "enabled", config.Settings.Enabled, "vocabulary", len(config.Vocabulary))
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(topicName string) (*Config, error) {
	configFile := cc.getConfigFilePath(topicName)
	topicConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	topicConfig.Name = topicName

	if err := validateConfig(topicConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[topicConfig.Name] = topicConfig

	return topicConfig, nil
}

func (cc *ConfigCache) GetConfig(topicName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	topicConfig, ok := cc.cache[topicName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotFound, topicName)
	}
	return topicConfig, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var topicConfig Config
	if err := yaml.Unmarshal(data, &topicConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&topicConfig)

	return &topicConfig, nil
}

func applyDefaults(c *Config) {
	if c.Settings.RefreshInterval == 0 {
		c.Settings.RefreshInterval = 3600
	}
	if c.Settings.ExportLimit == 0 {
		c.Settings.ExportLimit = 500
	}

	if c.Scoring.Weights == (relevance.Weights{}) {
		c.Scoring.Weights = relevance.DefaultWeights()
	}
	if c.Scoring.DecayHorizonHours == 0 {
		c.Scoring.DecayHorizonHours = 168
	}
	if c.Scoring.DecayFloor == 0 {
		c.Scoring.DecayFloor = 0.1
	}
	if c.Scoring.KeywordBonus == 0 {
		c.Scoring.KeywordBonus = 1.5
	}

	if c.Sources.RSS.MaxEntries == 0 {
		c.Sources.RSS.MaxEntries = 10
	}
	if c.Sources.Twitter.QueryKeywords == 0 {
		c.Sources.Twitter.QueryKeywords = 5
	}
	if c.Sources.Twitter.MaxResults == 0 {
		c.Sources.Twitter.MaxResults = 100
	}
	if c.Sources.Reddit.Limit == 0 {
		c.Sources.Reddit.Limit = 25
	}
	if len(c.Sources.Weibo.Keywords) == 0 {
		c.Sources.Weibo.Keywords = c.Vocabulary
	}
	if c.Sources.Weibo.MaxPages == 0 {
		c.Sources.Weibo.MaxPages = 3
	}
	if c.Sources.Weibo.Count == 0 {
		c.Sources.Weibo.Count = 50
	}
}

func validateConfig(topicConfig *Config) error {
	if topicConfig == nil {
		return fmt.Errorf("topicConfig is nil")
	}

	if topicConfig.Name == "" {
		return fmt.Errorf("topic name is required")
	}

	if len(topicConfig.Vocabulary) == 0 {
		return fmt.Errorf("vocabulary must not be empty")
	}

	folder := cases.Fold()
	known := make([]string, 0, len(topicConfig.Vocabulary))
	for i, keyword := range topicConfig.Vocabulary {
		if strings.TrimSpace(keyword) == "" {
			return fmt.Errorf("blank vocabulary keyword at index %d", i)
		}
		known = append(known, folder.String(keyword))
	}

	for _, keyword := range topicConfig.HighValueKeywords {
		if !slices.Contains(known, folder.String(keyword)) {
			return fmt.Errorf("high-value keyword %q is not in the vocabulary", keyword)
		}
	}

	nonNegativeFields := map[string]int{
		"refresh interval":     topicConfig.Settings.RefreshInterval,
		"timeout":              topicConfig.Settings.Timeout,
		"export limit":         topicConfig.Settings.ExportLimit,
		"rss max entries":      topicConfig.Sources.RSS.MaxEntries,
		"twitter max results":  topicConfig.Sources.Twitter.MaxResults,
		"reddit limit":         topicConfig.Sources.Reddit.Limit,
		"weibo max pages":      topicConfig.Sources.Weibo.MaxPages,
		"weibo count":          topicConfig.Sources.Weibo.Count,
		"twitter query length": topicConfig.Sources.Twitter.QueryKeywords,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if topicConfig.Scoring.DecayHorizonHours <= 0 {
		return fmt.Errorf("decay horizon must be positive")
	}

	weights := topicConfig.Scoring.Weights
	if weights.Likes < 0 || weights.Shares < 0 || weights.Comments < 0 || weights.Views < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}

	if topicConfig.Sources.RSS.Enabled && len(topicConfig.Sources.RSS.Feeds) == 0 {
		return fmt.Errorf("rss source is enabled without feeds")
	}
	if topicConfig.Sources.Reddit.Enabled && len(topicConfig.Sources.Reddit.Subreddits) == 0 {
		return fmt.Errorf("reddit source is enabled without subreddits")
	}

	// Whatever the engine rejects would otherwise fail every collect.
	if _, err := relevance.NewEngine(topicConfig.EngineConfig()); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(topicName string) string {
	return filepath.Join(cc.topicsDir, topicName+".yml")
}
