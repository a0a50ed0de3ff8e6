package collect

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/buzz-comb/app/relevance"
	"github.com/lysyi3m/buzz-comb/app/source"
)

type SourceStats struct {
	Source   string
	Items    int
	Duration time.Duration
	Err      error
}

// Recorder receives one observation per source run.
type Recorder interface {
	ObserveSource(topic, source string, items int, duration time.Duration, err error)
}

type Collector struct {
	recorder Recorder
}

func NewCollector(recorder Recorder) *Collector {
	return &Collector{recorder: recorder}
}

// Run fetches every source concurrently. Results are concatenated in source
// order regardless of completion order; a failed source contributes nothing.
func (c *Collector) Run(ctx context.Context, topic string, sources []source.Source) ([]relevance.RawItem, []SourceStats) {
	slots := make([][]relevance.RawItem, len(sources))
	stats := make([]SourceStats, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			start := time.Now()
			items, err := src.Fetch(ctx)
			duration := time.Since(start)

			stats[i] = SourceStats{Source: src.Name(), Items: len(items), Duration: duration, Err: err}
			if err != nil {
				slog.Error("Source failed", "topic", topic, "source", src.Name(), "duration", duration, "error", err)
				stats[i].Items = 0
				return nil
			}

			slots[i] = items
			slog.Debug("Source fetched", "topic", topic, "source", src.Name(), "items", len(items), "duration", duration)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, slot := range slots {
		total += len(slot)
	}
	raw := make([]relevance.RawItem, 0, total)
	for i, slot := range slots {
		raw = append(raw, slot...)
		if c.recorder != nil {
			c.recorder.ObserveSource(topic, stats[i].Source, stats[i].Items, stats[i].Duration, stats[i].Err)
		}
	}

	return raw, stats
}
