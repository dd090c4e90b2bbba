package executor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// JobStatus 后台命令状态
type JobStatus int

const (
	JobRunning JobStatus = iota
	JobDone
)

func (s JobStatus) String() string {
	if s == JobDone {
		return "Done"
	}
	return "Running"
}

// Job 一条以 & 结尾的后台管道
type Job struct {
	ID        int
	Cmd       string
	StartTime time.Time

	mu       sync.Mutex
	status   JobStatus
	exitCode int
	err      error
	done     chan struct{}
}

// Status 返回状态和退出码
func (j *Job) Status() (JobStatus, int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status, j.exitCode
}

// Err 返回后台管道启动或执行时的错误
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Done 后台管道结束时关闭
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// JobTable 记录仍在运行或尚未被收取的后台管道
type JobTable struct {
	mu     sync.Mutex
	jobs   map[int]*Job
	nextID int
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewJobTable 创建后台管道表
func NewJobTable(logger *slog.Logger) *JobTable {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &JobTable{
		jobs:   make(map[int]*Job),
		nextID: 1,
		logger: logger,
	}
}

// Start 在新的 goroutine 中运行 run，不等待它结束
// run 使用的 context 不会随 ctx 取消，后台命令在前台被中断后继续运行
func (t *JobTable) Start(ctx context.Context, cmd string, run func(context.Context) (int, error)) *Job {
	t.mu.Lock()
	job := &Job{
		ID:        t.nextID,
		Cmd:       cmd,
		StartTime: time.Now(),
		done:      make(chan struct{}),
	}
	t.jobs[job.ID] = job
	t.nextID++
	t.mu.Unlock()

	t.logger.Debug("启动后台命令", "id", job.ID, "cmd", cmd)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		code, err := run(context.WithoutCancel(ctx))

		job.mu.Lock()
		job.status = JobDone
		job.exitCode = code
		job.err = err
		job.mu.Unlock()
		close(job.done)

		t.logger.Debug("后台命令结束", "id", job.ID, "code", code, "error", err)
	}()
	return job
}

// Reap 移除并返回已结束的后台管道，按编号排序
func (t *JobTable) Reap() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	var done []*Job
	for id := 1; id < t.nextID; id++ {
		job, ok := t.jobs[id]
		if !ok {
			continue
		}
		if status, _ := job.Status(); status == JobDone {
			done = append(done, job)
			delete(t.jobs, id)
		}
	}
	return done
}

// Running 返回仍在运行的后台管道数量
func (t *JobTable) Running() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, job := range t.jobs {
		if status, _ := job.Status(); status == JobRunning {
			n++
		}
	}
	return n
}

// Wait 等待所有后台管道结束
func (t *JobTable) Wait() {
	t.wg.Wait()
}
