package tasks

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

type TaskType string

const (
	TaskTypeSyncTopicConfig TaskType = "sync_topic_config"
	TaskTypeCollectTopic    TaskType = "collect_topic"
	TaskTypeRescoreTopic    TaskType = "rescore_topic"
	TaskTypeExportTopic     TaskType = "export_topic"
)

const (
	DefaultMaxRetries = 3
)

// TaskInterface is one unit of topic work run by a scheduler worker. The
// scheduler keys tasks by type and topic name, and retries a failed task
// until CanRetry reports false.
type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetTopicName() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	Start()
	GetDuration() time.Duration
}

// Task carries the bookkeeping shared by every topic task.
type Task struct {
	ID         string
	Type       TaskType
	TopicName  string
	RetryCount int
	MaxRetries int
	StartedAt  *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetTopicName() string {
	return t.TopicName
}

func (t *Task) GetRetryCount() int {
	return t.RetryCount
}

func (t *Task) GetMaxRetries() int {
	return t.MaxRetries
}

func (t *Task) IncrementRetryCount() {
	t.RetryCount++
}

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

var taskSeq atomic.Uint64

// NewTask returns the base of a task for one topic. IDs read as
// <type>/<topic>/<sequence> so log lines of one run are easy to follow.
func NewTask(taskType TaskType, topicName string) Task {
	return Task{
		ID:         fmt.Sprintf("%s/%s/%d", taskType, topicName, taskSeq.Add(1)),
		Type:       taskType,
		TopicName:  topicName,
		RetryCount: 0,
		MaxRetries: DefaultMaxRetries,
	}
}

// retryDelay doubles from one second and is capped at 30s.
func retryDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	delay := time.Duration(1<<uint(min(retryCount-1, 5))) * time.Second
	return min(delay, 30*time.Second)
}
