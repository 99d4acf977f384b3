package kernel

import "context"

// Future is a single-shot write, multi-reader poll-await primitive,
// grounded on microbatch.batcherState's single-close done
// channel plus JobResult.Wait — adapted here to the tick-timeout poll loop
// every other blocking primitive in this package uses, since an internal
// Go channel close can't carry a tick-valued timeout on its own.
type Future[E any] struct {
	handleBase
	edit  editLock
	ready bool
	val   E
}

// NewFuture allocates an unset Future.
func NewFuture[E any]() *Future[E] {
	f := &Future[E]{}
	f.stamp()
	return f
}

// Valid reports whether f is a live handle.
func (f *Future[E]) Valid() bool {
	return f != nil && validHandle(f.current(), &f.handleBase)
}

// Set stores val and marks the future ready. Per the resolved
// open question, a second call is a silent no-op: first write wins.
func (f *Future[E]) Set(k *Kernel, val E) error {
	const op = "Future.Set"
	if !f.Valid() {
		return newErr(op, CodeInvalidArg, "invalid future handle")
	}
	if !f.edit.lock(k.clock, k.clock.Now(), k.ticks(k.cfg.ThreadTimeout)) {
		return newErr(op, CodeInternal, "edit-lock acquisition timed out")
	}
	defer f.edit.unlock()

	if f.ready {
		return nil
	}
	f.val = val
	f.ready = true
	return nil
}

// Await polls for readiness, copying the value to *dst and returning nil
// once set; otherwise it yield-polls up to timeout before reporting
// CodeTimeout.
func (f *Future[E]) Await(k *Kernel, dst *E, timeout Tick) error {
	const op = "Future.Await"
	if !f.Valid() {
		return newErr(op, CodeInvalidArg, "invalid future handle")
	}
	if timeout < 0 {
		return newErr(op, CodeInvalidArg, "negative timeout")
	}

	start := k.clock.Now()
	for {
		if f.edit.lock(k.clock, k.clock.Now(), k.ticks(k.cfg.ThreadTimeout)) {
			if f.ready {
				*dst = f.val
				f.edit.unlock()
				return nil
			}
			f.edit.unlock()
		}
		if elapsedSince(k.clock, start) > timeout {
			return newErr(op, CodeTimeout, "future await timed out")
		}
		if CurrentCoreSafe() < 0 || InInterrupt() {
			k.clock.Sleep(context.Background(), 1)
		} else {
			k.Yield()
		}
	}
}

// Destroy invalidates f's handle.
func (f *Future[E]) Destroy() error {
	const op = "Future.Destroy"
	if !f.Valid() {
		return newErr(op, CodeInvalidArg, "invalid future handle")
	}
	f.invalidate()
	return nil
}
