package relevance

import (
	"time"
)

type ScoringMode string

const (
	ScoringHotness        ScoringMode = "hotness"
	ScoringEngagementRate ScoringMode = "engagement_rate"
)

type Engagement struct {
	Likes    int64 `json:"likes"`
	Shares   int64 `json:"shares"`
	Comments int64 `json:"comments"`
	Views    int64 `json:"views"`
}

// Interactions is the sum used by the engagement rate; views are not interactions.
func (e Engagement) Interactions() int64 {
	return e.Likes + e.Shares + e.Comments
}

// RawItem is what a source adapter hands to the engine. Every field is optional
// except that either NativeID or URL must be present to derive an identity.
type RawItem struct {
	Platform        string
	NativeID        string
	URL             string
	Title           string
	Summary         string
	Body            string
	Author          string
	AuthorID        string
	AuthorFollowers int64
	AuthorVerified  bool
	PublishedAt     *time.Time
	Engagement      Engagement
	ImageURLs       []string
	Tags            []string
	Language        string
	Country         string
	Category        string
	Scoring         ScoringMode
	Raw             map[string]any
}

type Item struct {
	ID              string
	Platform        string
	NativeID        string
	URL             string
	Title           string
	Summary         string
	Content         string
	Author          string
	AuthorID        string
	AuthorFollowers int64
	AuthorVerified  bool
	PublishedAt     time.Time
	CollectedAt     time.Time
	Engagement      Engagement
	ImageURLs       []string
	Tags            []string
	Language        string
	Country         string
	Category        string
	Scoring         ScoringMode
	Raw             map[string]any

	MatchText       string
	MatchedKeywords []string
	RelevanceScore  int
	HotScore        float64
	EngagementRate  float64
	RankScore       float64
}

type Weights struct {
	Likes    float64 `yaml:"likes"`
	Shares   float64 `yaml:"shares"`
	Comments float64 `yaml:"comments"`
	Views    float64 `yaml:"views"`
}

// Config is everything the engine needs; nothing is read from package state.
type Config struct {
	Vocabulary        []string
	HighValueKeywords []string
	Weights           Weights
	DecayHorizon      time.Duration
	DecayFloor        float64
	KeywordBonus      float64
	Precision         int
}

func DefaultWeights() Weights {
	return Weights{Likes: 1.0, Shares: 2.0, Comments: 1.5, Views: 0.01}
}

func DefaultConfig(vocabulary, highValue []string) Config {
	return Config{
		Vocabulary:        vocabulary,
		HighValueKeywords: highValue,
		Weights:           DefaultWeights(),
		DecayHorizon:      168 * time.Hour,
		DecayFloor:        0.1,
		KeywordBonus:      1.5,
		Precision:         2,
	}
}

type ItemError struct {
	Index    int
	Platform string
	Reason   string
}

func (e ItemError) Error() string {
	return e.Reason
}

type Result struct {
	Items      []Item
	Input      int
	OffTopic   int
	Duplicates int
	Failures   []ItemError
}
