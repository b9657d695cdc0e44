package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is the unit of work a poller runs on every tick
type Task func(ctx context.Context)

// Poller runs a task on a fixed interval until stopped. Every tick runs the
// task in its own goroutine, so a slow task never delays the next tick.
type Poller struct {
	name     string
	interval time.Duration
	task     Task
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	loopWg   sync.WaitGroup
	taskWg   sync.WaitGroup
	mu       sync.Mutex
	stopped  bool
}

// NewPoller creates a poller. It does nothing until Start is called.
func NewPoller(name string, interval time.Duration, task Task, logger *zap.Logger) (*Poller, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poller %s: non-positive interval %s", name, interval)
	}
	if task == nil {
		return nil, fmt.Errorf("poller %s: nil task", name)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.Named(name),
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins the tick loop
func (p *Poller) Start() {
	p.logger.Info("starting poller", zap.Duration("interval", p.interval))

	p.loopWg.Add(1)
	go func() {
		defer p.loopWg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.Trigger()
			case <-p.stopChan:
				return
			}
		}
	}()
}

// Trigger runs the task once, outside the tick schedule
func (p *Poller) Trigger() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}

	p.taskWg.Add(1)
	go func() {
		defer p.taskWg.Done()
		p.task(p.ctx)
	}()
}

// Stop halts the tick loop, cancels running tasks and waits for them
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.logger.Info("stopping poller")

	close(p.stopChan)
	p.loopWg.Wait()
	p.cancel()
	p.taskWg.Wait()

	p.logger.Info("poller stopped")
}
