package collect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/buzz-comb/app/relevance"
	"github.com/lysyi3m/buzz-comb/app/source"
)

type fakeSource struct {
	name  string
	delay time.Duration
	items []relevance.RawItem
	err   error
}

func (f *fakeSource) Name() string {
	return f.name
}

func (f *fakeSource) Fetch(ctx context.Context) ([]relevance.RawItem, error) {
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return f.items, f.err
}

type fakeRecorder struct {
	mu           sync.Mutex
	observations []string
	failures     int
}

func (r *fakeRecorder) ObserveSource(topic, source string, items int, duration time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, topic+"/"+source)
	if err != nil {
		r.failures++
	}
}

func rawItem(platform, id string) relevance.RawItem {
	return relevance.RawItem{Platform: platform, NativeID: id, Title: "labubu"}
}

func TestCollector_Run_SourceOrderNotCompletionOrder(t *testing.T) {
	recorder := &fakeRecorder{}
	collector := NewCollector(recorder)

	sources := []source.Source{
		&fakeSource{name: "news_rss", delay: 30 * time.Millisecond, items: []relevance.RawItem{rawItem("news_rss", "1"), rawItem("news_rss", "2")}},
		&fakeSource{name: "twitter", delay: 0, items: []relevance.RawItem{rawItem("twitter", "3")}},
		&fakeSource{name: "reddit", delay: 10 * time.Millisecond, items: []relevance.RawItem{rawItem("reddit", "4")}},
	}

	raw, stats := collector.Run(context.Background(), "labubu", sources)

	expected := []string{"1", "2", "3", "4"}
	if len(raw) != len(expected) {
		t.Fatalf("Expected %d items, got %d", len(expected), len(raw))
	}
	for i, id := range expected {
		if raw[i].NativeID != id {
			t.Errorf("Expected native id %s at %d, got %s", id, i, raw[i].NativeID)
		}
	}

	if len(stats) != 3 || stats[0].Items != 2 || stats[1].Items != 1 || stats[2].Items != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if len(recorder.observations) != 3 || recorder.observations[0] != "labubu/news_rss" {
		t.Errorf("Unexpected observations: %v", recorder.observations)
	}
}

func TestCollector_Run_FailedSourceIsIsolated(t *testing.T) {
	recorder := &fakeRecorder{}
	collector := NewCollector(recorder)

	sources := []source.Source{
		&fakeSource{name: "twitter", items: []relevance.RawItem{rawItem("twitter", "partial")}, err: errors.New("rate limited")},
		&fakeSource{name: "weibo", items: []relevance.RawItem{rawItem("weibo", "9")}},
	}

	raw, stats := collector.Run(context.Background(), "labubu", sources)

	if len(raw) != 1 || raw[0].NativeID != "9" {
		t.Fatalf("Expected only the weibo item, got %+v", raw)
	}
	if stats[0].Err == nil || stats[0].Items != 0 {
		t.Errorf("Expected failed source stats, got %+v", stats[0])
	}
	if recorder.failures != 1 {
		t.Errorf("Expected 1 recorded failure, got %d", recorder.failures)
	}
}

func TestCollector_Run_NoSources(t *testing.T) {
	collector := NewCollector(nil)

	raw, stats := collector.Run(context.Background(), "labubu", nil)

	if len(raw) != 0 || len(stats) != 0 {
		t.Errorf("Expected nothing, got %d items and %d stats", len(raw), len(stats))
	}
}
