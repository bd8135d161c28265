// Package scheduler 在 gocron/v2 之上维护具名定时任务.
//
// 每个任务按名称注册，记录运行状态、最近一次成功与失败次数，
// 运行耗时与结果写入 Prometheus 指标，并为每次运行开启一个 span.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/metrics"
	"github.com/yeisme/docvault/pkg/tracing"
)

// ErrJobNotFound 任务不存在.
var ErrJobNotFound = errors.New("job not found")

// JobStatus 任务状态.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled"
	StatusRunning   JobStatus = "running"
	StatusStopped   JobStatus = "stopped"
	StatusError     JobStatus = "error"
)

// JobFunc 任务函数，返回的错误记入任务状态.
type JobFunc func(ctx context.Context) error

// JobInfo 任务信息.
type JobInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CronExpr    string    `json:"cron_expr"`
	NextRun     time.Time `json:"next_run"`
	LastRun     time.Time `json:"last_run"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	Status      JobStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	Runs        int       `json:"runs"`
	Failures    int       `json:"failures"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type entry struct {
	job  gocron.Job
	info JobInfo
}

// Scheduler 具名定时任务调度器.
type Scheduler struct {
	cron   gocron.Scheduler
	jobs   map[string]*entry
	mu     sync.RWMutex
	logger *zerolog.Logger
}

// NewScheduler 创建调度器，需调用 Start 后任务才会运行.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		cron:   s,
		jobs:   make(map[string]*entry),
		logger: log.Logger(),
	}, nil
}

// AddCron 按 cron 表达式注册任务.同名任务同一时刻只运行一个实例.
func (s *Scheduler) AddCron(name string, cronExpr string, fn JobFunc, ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job with name %s already exists", name)
	}

	j, err := s.cron.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(s.wrap(name, fn), ctx),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}

	now := time.Now()
	s.jobs[name] = &entry{
		job: j,
		info: JobInfo{
			ID:        j.ID().String(),
			Name:      name,
			CronExpr:  cronExpr,
			Status:    StatusScheduled,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	s.logger.Info().Str("job", name).Str("cron", cronExpr).Msg("Added cron job")

	return nil
}

func (s *Scheduler) wrap(name string, fn JobFunc) func(ctx context.Context) {
	return func(ctx context.Context) {
		ctx, span := tracing.StartSpan(ctx, "job."+name)
		defer span.End()

		start := time.Now()
		s.mark(name, StatusRunning)

		err := invoke(ctx, name, fn)

		metrics.SchedulerJobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		result := "ok"
		if err != nil {
			result = "error"

			span.RecordError(err)
			s.logger.Error().Err(err).Str("job", name).Msg("Job failed")
		}

		metrics.SchedulerJobRuns.WithLabelValues(name, result).Inc()
		s.finish(name, start, err)
	}
}

func invoke(ctx context.Context, name string, fn JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job %s: %v", name, r)
		}
	}()

	return fn(ctx)
}

func (s *Scheduler) mark(name string, status JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.jobs[name]; ok {
		e.info.Status = status
		e.info.UpdatedAt = time.Now()
	}
}

func (s *Scheduler) finish(name string, start time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[name]
	if !ok {
		return
	}

	now := time.Now()
	e.info.LastRun = start
	e.info.Runs++
	e.info.UpdatedAt = now

	if err != nil {
		e.info.Status = StatusError
		e.info.Error = err.Error()
		e.info.Failures++

		return
	}

	e.info.Status = StatusScheduled
	e.info.Error = ""
	e.info.LastSuccess = now
}

// RunNow 立即运行一次任务，不影响原有调度.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	e, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return e.job.RunNow()
}

// Job 返回单个任务的信息.
func (s *Scheduler) Job(name string) (JobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[name]
	if !ok {
		return JobInfo{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return snapshot(e), nil
}

// Jobs 按名称排序返回所有任务信息.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, e := range s.jobs {
		out = append(out, snapshot(e))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// snapshot 读取时补上下次运行时间.
func snapshot(e *entry) JobInfo {
	info := e.info
	if next, err := e.job.NextRun(); err == nil {
		info.NextRun = next
	}

	return info
}

// Remove 按名称移除任务.
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	if err := s.cron.RemoveJob(e.job.ID()); err != nil {
		return err
	}

	delete(s.jobs, name)

	s.logger.Info().Str("job", name).Msg("Removed job")

	return nil
}

// StopJobs 停止所有任务的调度，已注册的任务保留.
func (s *Scheduler) StopJobs() error {
	if err := s.cron.StopJobs(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.jobs {
		e.info.Status = StatusStopped
		e.info.UpdatedAt = time.Now()
	}

	return nil
}

// JobsWaitingInQueue 排队等待运行的任务数.
func (s *Scheduler) JobsWaitingInQueue() int {
	return s.cron.JobsWaitingInQueue()
}

// Start 启动调度器.
func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("Starting scheduler")
	s.cron.Start()
}

// Stop 停止调度器并等待运行中的任务结束.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("Stopping scheduler")

	return s.cron.Shutdown()
}
