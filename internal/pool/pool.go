// Package pool 后台任务队列：固定数量的 worker 依次消费，队列满时拒绝新任务
package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"opushelper/internal/logger"
)

// Job 队列中的任务
type Job func(ctx context.Context)

// Stats 队列统计
type Stats struct {
	Queued    int
	Capacity  int
	Submitted int64
	Dropped   int64
}

// Pool 任务队列
type Pool struct {
	queue   chan Job
	workers int
	log     logger.Logger

	submitted atomic.Int64
	dropped   atomic.Int64

	// mu 保护以下字段与 cancel，pending 归零时广播 idle
	mu      sync.Mutex
	idle    *sync.Cond
	pending int
	stopped bool

	startOnce sync.Once
	cancel    context.CancelFunc
}

// New 创建任务队列。
// workers 为并发 worker 数，小于 1 时取 1；queueCap 为 0 时取 workers*8。
func New(workers, queueCap int, log logger.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueCap <= 0 {
		queueCap = workers * 8
	}
	if log == nil {
		log = logger.NewNop()
	}
	p := &Pool{
		queue:   make(chan Job, queueCap),
		workers: workers,
		log:     log,
	}
	p.idle = sync.NewCond(&p.mu)
	return p
}

// Start 启动 worker，重复调用或 Stop 之后调用无效果。任务收到的 ctx 在 Stop 后取消。
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.stopped {
			return
		}
		ctx, p.cancel = context.WithCancel(ctx)
		for i := 0; i < p.workers; i++ {
			go p.worker(ctx)
		}
	})
}

// Stop 停止 worker，队列中未执行的任务被丢弃，之后的 Submit 一律拒绝
func (p *Pool) Stop() {
	p.mu.Lock()
	p.stopped = true
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	// 未启动时没有 worker 负责清空队列
	p.drain()
}

func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case job := <-p.queue:
			p.run(ctx, job)
		}
	}
}

func (p *Pool) run(ctx context.Context, job Job) {
	defer p.done()
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("后台任务异常退出", "panic", r)
		}
	}()
	job(ctx)
}

// drain 丢弃剩余任务，保证 Wait 返回
func (p *Pool) drain() {
	for {
		select {
		case <-p.queue:
			p.dropped.Add(1)
			p.done()
		default:
			return
		}
	}
}

// done 标记一个已接受的任务结束
func (p *Pool) done() {
	p.mu.Lock()
	p.pending--
	if p.pending == 0 {
		p.idle.Broadcast()
	}
	p.mu.Unlock()
}

// Submit 提交任务，队列已满或已 Stop 时返回 false
func (p *Pool) Submit(job Job) bool {
	p.submitted.Add(1)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		p.dropped.Add(1)
		p.log.Warn("任务队列已停止，任务被拒绝")
		return false
	}
	select {
	case p.queue <- job:
		p.pending++
		return true
	default:
		dropped := p.dropped.Add(1)
		p.log.Warn("任务队列已满，任务被丢弃", "queueCap", cap(p.queue), "dropped", dropped)
		return false
	}
}

// Wait 等待所有已接受的任务结束
func (p *Pool) Wait() {
	p.mu.Lock()
	for p.pending > 0 {
		p.idle.Wait()
	}
	p.mu.Unlock()
}

// Stats 返回统计信息
func (p *Pool) Stats() Stats {
	return Stats{
		Queued:    len(p.queue),
		Capacity:  cap(p.queue),
		Submitted: p.submitted.Load(),
		Dropped:   p.dropped.Load(),
	}
}
