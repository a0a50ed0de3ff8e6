package relevance

import (
	"math"
	"time"
)

type Scorer struct {
	weights      Weights
	horizon      time.Duration
	floor        float64
	bonus        float64
	highValue    []string
	precisionPow float64
}

func NewScorer(cfg Config) (*Scorer, error) {
	if cfg.DecayHorizon <= 0 {
		return nil, ErrInvalidDecayHorizon
	}
	if cfg.DecayFloor <= 0 || cfg.DecayFloor > 1 {
		return nil, ErrInvalidScoring
	}
	if cfg.Precision < 0 || cfg.KeywordBonus <= 0 {
		return nil, ErrInvalidScoring
	}

	return &Scorer{
		weights:      cfg.Weights,
		horizon:      cfg.DecayHorizon,
		floor:        cfg.DecayFloor,
		bonus:        cfg.KeywordBonus,
		highValue:    cfg.HighValueKeywords,
		precisionPow: math.Pow(10, float64(cfg.Precision)),
	}, nil
}

// Run fills HotScore, EngagementRate and RankScore relative to now.
func (s *Scorer) Run(item *Item, now time.Time) {
	item.HotScore = s.HotScore(item, now)
	item.EngagementRate = EngagementRate(item.Engagement, item.AuthorFollowers)

	if item.Scoring == ScoringEngagementRate {
		item.RankScore = item.EngagementRate
	} else {
		item.RankScore = item.HotScore
	}
}

func (s *Scorer) HotScore(item *Item, now time.Time) float64 {
	base := s.Base(item.Engagement)
	recency := s.Recency(item.PublishedAt, now)
	bonus := 1.0
	if containsAny(item.MatchText, s.highValue) {
		bonus = s.bonus
	}

	return math.Round(base*recency*bonus*s.precisionPow) / s.precisionPow
}

func (s *Scorer) Base(e Engagement) float64 {
	return float64(e.Likes)*s.weights.Likes +
		float64(e.Shares)*s.weights.Shares +
		float64(e.Comments)*s.weights.Comments +
		float64(e.Views)*s.weights.Views
}

// Recency decays linearly from 1.0 to the floor over the horizon and stays at
// the floor afterwards.
func (s *Scorer) Recency(publishedAt, now time.Time) float64 {
	age := now.Sub(publishedAt)
	if age <= 0 {
		return 1.0
	}
	factor := 1 - age.Hours()/s.horizon.Hours()
	return math.Max(s.floor, math.Min(1.0, factor))
}

// EngagementRate is interactions per follower as a percentage; zero followers
// rate as 0.
func EngagementRate(e Engagement, followers int64) float64 {
	if followers <= 0 {
		return 0.0
	}
	return float64(e.Interactions()) / float64(followers) * 100
}
