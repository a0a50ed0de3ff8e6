package tasks

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/buzz-comb/app/database"
	"github.com/lysyi3m/buzz-comb/app/relevance"
	"github.com/lysyi3m/buzz-comb/app/topic"
)

type fakeTopicRepo struct {
	mu     sync.Mutex
	topics map[string]*database.Topic
}

func newFakeTopicRepo() *fakeTopicRepo {
	return &fakeTopicRepo{topics: make(map[string]*database.Topic)}
}

func (r *fakeTopicRepo) GetTopic(name string) (*database.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.topics[name]
	if !ok {
		return nil, nil
	}
	clone := *t
	return &clone, nil
}

func (r *fakeTopicRepo) GetTopics() ([]database.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []database.Topic
	for _, t := range r.topics {
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTopicRepo) GetTopicCount() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics), nil
}

func (r *fakeTopicRepo) UpsertTopic(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.topics[name]; !ok {
		r.topics[name] = &database.Topic{Name: name, CreatedAt: time.Now()}
	}
	return nil
}

func (r *fakeTopicRepo) UpdateFetchState(name string, itemCount int, fetchedAt, nextFetch time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.topics[name]
	if !ok {
		t = &database.Topic{Name: name}
		r.topics[name] = t
	}
	t.LastItemCount = itemCount
	t.LastFetchedAt = &fetchedAt
	t.NextFetchAt = &nextFetch
	return nil
}

type fakeItemRepo struct {
	mu    sync.Mutex
	items map[string][]relevance.Item

	lastLimit int
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[string][]relevance.Item)}
}

func (r *fakeItemRepo) GetRankedItems(topicName string, limit int) ([]relevance.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLimit = limit
	items := slices.Clone(r.items[topicName])
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *fakeItemRepo) GetAllItems(topicName string) ([]relevance.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items[topicName]), nil
}

func (r *fakeItemRepo) GetItemCount(topicName string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items[topicName]), nil
}

func (r *fakeItemRepo) GetPlatformCounts(topicName string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, item := range r.items[topicName] {
		counts[item.Platform]++
	}
	return counts, nil
}

func (r *fakeItemRepo) UpsertItems(topicName string, items []relevance.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		idx := slices.IndexFunc(r.items[topicName], func(existing relevance.Item) bool { return existing.ID == item.ID })
		if idx >= 0 {
			r.items[topicName][idx] = item
		} else {
			r.items[topicName] = append(r.items[topicName], item)
		}
	}
	return nil
}

func (r *fakeItemRepo) DeleteItems(topicName string, ids []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.items[topicName])
	r.items[topicName] = slices.DeleteFunc(r.items[topicName], func(item relevance.Item) bool {
		return slices.Contains(ids, item.ID)
	})
	return before - len(r.items[topicName]), nil
}

type fakeMetrics struct {
	mu         sync.Mutex
	sources    []string
	engineRuns int
	tasks      map[string]int
	topicItems map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{tasks: make(map[string]int), topicItems: make(map[string]int)}
}

func (m *fakeMetrics) ObserveSource(topic, source string, items int, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, source)
}

func (m *fakeMetrics) ObserveEngine(topic string, result *relevance.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engineRuns++
}

func (m *fakeMetrics) ObserveTask(taskType string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[taskType]++
}

func (m *fakeMetrics) SetTopicItems(topic string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topicItems[topic] = count
}

type fakeCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (c *fakeCache) Generation(context.Context, string) (int64, error) { return 0, nil }
func (c *fakeCache) Get(context.Context, string, int64, string) ([]byte, bool, error) {
	return nil, false, nil
}
func (c *fakeCache) Set(context.Context, string, int64, string, []byte) error { return nil }
func (c *fakeCache) Health(context.Context) map[string]any                    { return nil }

func (c *fakeCache) InvalidateTopic(_ context.Context, topicName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, topicName)
	return nil
}

func loadTopic(t *testing.T, name, content string) (*topic.ConfigCache, *topic.Config) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	configCache := topic.NewConfigCache(dir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}
	topicConfig, err := configCache.GetConfig(name)
	if err != nil {
		t.Fatal(err)
	}
	return configCache, topicConfig
}
