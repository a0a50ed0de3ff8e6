package topic

import (
	"time"

	"github.com/lysyi3m/buzz-comb/app/relevance"
)

type Config struct {
	Name              string        // Derived from filename (without .yml extension)
	Settings          Settings      `yaml:"settings"`
	Vocabulary        []string      `yaml:"vocabulary"`
	HighValueKeywords []string      `yaml:"high_value_keywords"`
	Scoring           ScoringConfig `yaml:"scoring"`
	Sources           SourcesConfig `yaml:"sources"`
}

type Settings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	Timeout         int  `yaml:"timeout"`          // seconds, per HTTP request; 0 keeps the process default
	ExportLimit     int  `yaml:"export_limit"`
}

type ScoringConfig struct {
	Weights           relevance.Weights `yaml:"weights"`
	DecayHorizonHours float64           `yaml:"decay_horizon_hours"`
	DecayFloor        float64           `yaml:"decay_floor"`
	KeywordBonus      float64           `yaml:"keyword_bonus"`
	Precision         *int              `yaml:"precision"`
}

type SourcesConfig struct {
	RSS     RSSConfig     `yaml:"rss"`
	Twitter TwitterConfig `yaml:"twitter"`
	Reddit  RedditConfig  `yaml:"reddit"`
	Weibo   WeiboConfig   `yaml:"weibo"`
}

type RSSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Feeds          []string `yaml:"feeds"`
	MaxEntries     int      `yaml:"max_entries"`
	ExtractContent bool     `yaml:"extract_content"`
}

type TwitterConfig struct {
	Enabled       bool `yaml:"enabled"`
	QueryKeywords int  `yaml:"query_keywords"`
	MaxResults    int  `yaml:"max_results"`
}

type RedditConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Subreddits []string `yaml:"subreddits"`
	Limit      int      `yaml:"limit"`
}

type WeiboConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Keywords []string `yaml:"keywords"` // defaults to the vocabulary
	MaxPages int      `yaml:"max_pages"`
	Count    int      `yaml:"count"`
}

func (c *Config) EngineConfig() relevance.Config {
	precision := 2
	if c.Scoring.Precision != nil {
		precision = *c.Scoring.Precision
	}

	return relevance.Config{
		Vocabulary:        c.Vocabulary,
		HighValueKeywords: c.HighValueKeywords,
		Weights:           c.Scoring.Weights,
		DecayHorizon:      time.Duration(c.Scoring.DecayHorizonHours * float64(time.Hour)),
		DecayFloor:        c.Scoring.DecayFloor,
		KeywordBonus:      c.Scoring.KeywordBonus,
		Precision:         precision,
	}
}

func (s *Settings) GetRefreshInterval() time.Duration {
	if s.RefreshInterval <= 0 {
		return 3600 * time.Second
	}
	return time.Duration(s.RefreshInterval) * time.Second
}

func (s *Settings) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}
