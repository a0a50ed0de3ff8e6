package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lysyi3m/buzz-comb/app/topic"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

var (
	ErrQueueFull   = errors.New("task queue is full")
	ErrTaskPending = errors.New("task already queued or running for topic")
)

// taskKey identifies a unit of work: at most one task per type and topic
// is queued or running at any time.
type taskKey struct {
	taskType  TaskType
	topicName string
}

type SchedulerOptions struct {
	Interval       time.Duration
	WorkerCount    int
	ExportSchedule string // cron spec, empty disables scheduled exports
	Location       *time.Location
	TaskTimeout    time.Duration
}

type Scheduler struct {
	configCache *topic.ConfigCache
	services    *Services
	interval    time.Duration
	workerCount int
	taskTimeout time.Duration
	cron        *cron.Cron
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu       sync.Mutex
	inFlight map[taskKey]struct{}
}

func NewScheduler(configCache *topic.ConfigCache, services *Services, opts SchedulerOptions) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		configCache: configCache,
		services:    services,
		interval:    opts.Interval,
		workerCount: max(opts.WorkerCount, 1),
		taskTimeout: opts.TaskTimeout,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
		inFlight:    make(map[taskKey]struct{}),
	}
	if s.interval <= 0 {
		s.interval = time.Minute
	}
	if s.taskTimeout <= 0 {
		s.taskTimeout = 5 * time.Minute
	}

	location := opts.Location
	if location == nil {
		location = time.UTC
	}
	s.cron = cron.New(cron.WithLocation(location))

	if opts.ExportSchedule != "" {
		if _, err := s.cron.AddFunc(opts.ExportSchedule, s.enqueueExports); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid export schedule %q: %w", opts.ExportSchedule, err)
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	for i := range s.workerCount {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

// EnqueueTask queues a task unless one of the same type is already queued,
// running or waiting for a retry for that topic.
func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	key := taskKey{taskType: task.GetType(), topicName: task.GetTopicName()}

	s.mu.Lock()
	if _, ok := s.inFlight[key]; ok {
		s.mu.Unlock()
		return ErrTaskPending
	}
	s.inFlight[key] = struct{}{}
	s.mu.Unlock()

	if err := s.push(task); err != nil {
		s.release(task)
		return err
	}
	return nil
}

func (s *Scheduler) release(task TaskInterface) {
	s.mu.Lock()
	delete(s.inFlight, taskKey{taskType: task.GetType(), topicName: task.GetTopicName()})
	s.mu.Unlock()
}

func (s *Scheduler) push(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return ErrQueueFull
	}
}

// EnqueueTopicTask builds a task of the given type for a configured topic.
func (s *Scheduler) EnqueueTopicTask(taskType TaskType, topicName string) error {
	topicConfig, err := s.configCache.GetConfig(topicName)
	if err != nil {
		return err
	}

	task, err := s.newTopicTask(taskType, topicConfig)
	if err != nil {
		return err
	}
	return s.EnqueueTask(task)
}

func (s *Scheduler) newTopicTask(taskType TaskType, topicConfig *topic.Config) (TaskInterface, error) {
	switch taskType {
	case TaskTypeSyncTopicConfig:
		return NewSyncTopicConfigTask(topicConfig, s.services.TopicRepo), nil
	case TaskTypeCollectTopic:
		return NewCollectTopicTask(topicConfig, s.services), nil
	case TaskTypeRescoreTopic:
		return NewRescoreTopicTask(topicConfig, s.services), nil
	case TaskTypeExportTopic:
		return NewExportTopicTask(topicConfig, s.services), nil
	default:
		return nil, fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	topicConfigs := s.configCache.GetConfigs()
	if len(topicConfigs) == 0 {
		slog.Debug("No topic configurations found")
		return
	}

	slog.Debug("Processing topic configurations", "count", len(topicConfigs))

	for _, topicConfig := range topicConfigs {
		syncTask := NewSyncTopicConfigTask(topicConfig, s.services.TopicRepo)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncTopicConfigTask", "topic", topicConfig.Name, "error", err)
			continue
		}

		if !topicConfig.Settings.Enabled {
			slog.Debug("Topic disabled, skipping CollectTopicTask", "topic", topicConfig.Name)
			continue
		}

		collectTask := NewCollectTopicTask(topicConfig, s.services)
		if err := s.EnqueueTask(collectTask); err != nil {
			slog.Warn("Failed to enqueue CollectTopicTask", "topic", topicConfig.Name, "error", err)
		}
	}
}

func (s *Scheduler) enqueueTasks() {
	now := time.Now().UTC()
	for _, topicConfig := range s.dueTopics(now) {
		collectTask := NewCollectTopicTask(topicConfig, s.services)
		if err := s.EnqueueTask(collectTask); err != nil {
			if errors.Is(err, ErrTaskPending) {
				slog.Debug("CollectTopicTask still pending, skipping", "topic", topicConfig.Name)
				continue
			}
			slog.Warn("Failed to enqueue CollectTopicTask", "topic", topicConfig.Name, "error", err)
		}
	}
}

// dueTopics returns enabled topics whose next fetch time has passed.
// Topics never fetched are due.
func (s *Scheduler) dueTopics(now time.Time) []*topic.Config {
	topicConfigs := s.configCache.GetEnabledConfigs()
	if len(topicConfigs) == 0 {
		slog.Debug("No enabled topic configurations found")
		return nil
	}

	var due []*topic.Config
	for _, topicConfig := range topicConfigs {
		state, err := s.services.TopicRepo.GetTopic(topicConfig.Name)
		if err != nil {
			slog.Warn("Failed to get topic from database, skipping", "topic", topicConfig.Name, "error", err)
			continue
		}
		if state == nil {
			slog.Warn("Topic not found in database, skipping", "topic", topicConfig.Name)
			continue
		}

		if state.NextFetchAt != nil && state.NextFetchAt.After(now) {
			slog.Debug("Topic not due for refresh yet", "topic", topicConfig.Name, "next_fetch_at", state.NextFetchAt)
			continue
		}
		due = append(due, topicConfig)
	}
	return due
}

func (s *Scheduler) enqueueExports() {
	for _, topicConfig := range s.configCache.GetEnabledConfigs() {
		exportTask := NewExportTopicTask(topicConfig, s.services)
		if err := s.EnqueueTask(exportTask); err != nil {
			slog.Warn("Failed to enqueue ExportTopicTask", "topic", topicConfig.Name, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)

	if s.services.Metrics != nil {
		s.services.Metrics.ObserveTask(string(task.GetType()), task.GetDuration(), err)
	}

	if err == nil {
		s.release(task)
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "topic", task.GetTopicName(), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "topic", task.GetTopicName(), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		s.release(task)
		return
	}

	task.IncrementRetryCount()
	delay := retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "topic", task.GetTopicName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", delay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			s.release(task)
		case <-timer.C:
			// The task keeps its slot while waiting, so retries bypass EnqueueTask.
			if retryErr := s.push(task); retryErr != nil {
				s.release(task)
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
