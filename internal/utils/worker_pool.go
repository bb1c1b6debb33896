package utils

import (
	"log"
	"sync"
)

// WorkerPool is a bounded goroutine pool. The send path uses it to dispatch
// post-commit side effects (fanout, read-cursor advance, bot notify) without
// spawning a goroutine per request.
type WorkerPool struct {
	jobs    chan func()
	workers int
	wg      sync.WaitGroup
	quit    chan struct{}
	once    sync.Once
}

func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &WorkerPool{
		jobs:    make(chan func(), queueSize),
		workers: workers,
		quit:    make(chan struct{}),
	}
}

func (p *WorkerPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case job := <-p.jobs:
					// Recover so a panicking task cannot take the worker down.
					func() {
						defer func() {
							if r := recover(); r != nil {
								log.Printf("worker %d recovered from panic: %v", id, r)
							}
						}()
						job()
					}()
				case <-p.quit:
					return
				}
			}
		}(i)
	}
}

// Submit enqueues a task. Blocks when the queue is full so bursts queue up
// instead of being dropped.
func (p *WorkerPool) Submit(job func()) {
	p.jobs <- job
}

func (p *WorkerPool) Stop() {
	p.once.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}
