// Package workqueue provides bounded batch submission on top of the kernel
// package's Queue and Future, for device drivers that want to fan work out
// across goroutines without allocating per-job channels.
//
// Grounded on microbatch.Batcher's jobCh/batchCh ping/pong submission
// protocol, with kernel.Queue substituted for microbatch's unbounded Go
// channel (a driver's job backlog is bounded on real hardware, unlike a
// host batching library's), and golang.org/x/sync/errgroup standing in for
// microbatch's own runningBatchCh semaphore: an errgroup.Group with
// SetLimit(maxConcurrency) runs up to maxConcurrency batches' Process
// calls concurrently, each dispatched from the run loop as soon as it is
// drained rather than waiting for the previous batch to finish.
package workqueue

import (
	"context"

	"golang.org/x/sync/errgroup"

	kernel "github.com/SARP-UW/titan-sub004"
)

// Processor runs a batch of jobs. Any error is propagated to every Result
// in that batch.
type Processor[Job any] func(ctx context.Context, jobs []Job) error

// Batcher accepts jobs into a kernel.Queue-backed FIFO and flushes them
// to Processor in batches of up to maxSize. The run loop drains whatever is
// queued as soon as it finds it, without waiting for maxSize jobs to
// accumulate; only when the queue is empty does it sleep for interval
// before looking again.
type Batcher[Job any] struct {
	k         *kernel.Kernel
	queue     *kernel.Queue[entry[Job]]
	processor Processor[Job]
	maxSize   int
	interval  kernel.Tick

	group errgroup.Group // SetLimit(maxConcurrency); one Go call per flushed batch

	done chan struct{}
	stop chan struct{}
}

type entry[Job any] struct {
	job    Job
	result *kernel.Future[error]
}

// Result is returned by Submit; Wait blocks until the owning batch has been
// processed.
type Result[Job any] struct {
	Job    Job
	future *kernel.Future[error]
	k      *kernel.Kernel
}

// Wait blocks (yield-polling, per kernel.Future.Await) until this job's
// batch has run, returning any error the Processor reported.
func (r Result[Job]) Wait(timeout kernel.Tick) error {
	var err error
	if waitErr := r.future.Await(r.k, &err, timeout); waitErr != nil {
		return waitErr
	}
	return err
}

// New constructs a Batcher with a power-of-two capacity backlog queue.
func New[Job any](k *kernel.Kernel, capacity, maxSize, maxConcurrency int, interval kernel.Tick, processor Processor[Job]) (*Batcher[Job], error) {
	q, err := kernel.NewQueue[entry[Job]](capacity)
	if err != nil {
		return nil, err
	}
	if maxSize <= 0 {
		maxSize = 16
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	b := &Batcher[Job]{
		k:         k,
		queue:     q,
		processor: processor,
		maxSize:   maxSize,
		interval:  interval,
		done:      make(chan struct{}),
		stop:      make(chan struct{}),
	}
	b.group.SetLimit(maxConcurrency)
	go b.run()
	return b, nil
}

// Submit enqueues a job, failing with kernel's CodeNoMem if the backlog
// queue is full.
func (b *Batcher[Job]) Submit(job Job) (Result[Job], error) {
	f := kernel.NewFuture[error]()
	if err := b.queue.Push(b.k, entry[Job]{job: job, result: f}); err != nil {
		return Result[Job]{}, err
	}
	return Result[Job]{Job: job, future: f, k: b.k}, nil
}

// Close stops the run loop, then waits for every already-dispatched batch
// to finish processing. The run loop is waited on first so no further
// group.Go call can race with group.Wait below.
func (b *Batcher[Job]) Close() {
	close(b.stop)
	<-b.done
	_ = b.group.Wait()
}

func (b *Batcher[Job]) run() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		default:
		}

		batch := b.drain()
		if len(batch) == 0 {
			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				select {
				case <-b.stop:
					cancel()
				case <-ctx.Done():
				}
			}()
			b.k.Clock().Sleep(ctx, b.interval)
			cancel()
			continue
		}
		// Go blocks here once maxConcurrency batches are already in
		// flight, bounding fan-out the same way microbatch's buffered
		// runningBatchCh admission does, but it returns as soon as a
		// slot frees up rather than waiting for this particular batch.
		b.group.Go(func() error {
			b.flush(batch)
			return nil
		})
	}
}

func (b *Batcher[Job]) drain() []entry[Job] {
	var batch []entry[Job]
	for len(batch) < b.maxSize {
		var e entry[Job]
		if err := b.queue.Pop(b.k, &e); err != nil {
			break
		}
		batch = append(batch, e)
	}
	return batch
}

// flush runs one batch's Processor call and resolves every job's Result.
// Called concurrently with other flush calls up to maxConcurrency at once.
func (b *Batcher[Job]) flush(batch []entry[Job]) {
	jobs := make([]Job, len(batch))
	for i, e := range batch {
		jobs[i] = e.job
	}

	err := b.processor(context.Background(), jobs)

	for _, e := range batch {
		_ = e.result.Set(b.k, err)
	}
}
