package kernel

// Semaphore is a counting permit bounded by a fixed capacity. Built on the
// same CAS-spin edit-lock as Mutex/Critlock rather than
// golang.org/x/sync/semaphore.Weighted, whose Acquire/Release have no
// "fail when release exceeds capacity" semantics and cancel via
// context.Context instead of the tick-timeout poll loop every other
// primitive in this package shares (see DESIGN.md).
type Semaphore struct {
	handleBase
	edit     editLock
	count    int32
	capacity int32
}

// NewSemaphore allocates a Semaphore with the given capacity and initial
// permit count.
func (k *Kernel) NewSemaphore(capacity, initial int32) *Semaphore {
	s := &Semaphore{capacity: capacity, count: initial}
	s.stamp()
	return s
}

// Valid reports whether s is a live handle.
func (s *Semaphore) Valid() bool {
	return s != nil && validHandle(s.current(), &s.handleBase)
}

// Acquire decrements the permit count, blocking (via yield-poll) up to
// timeout if it is currently zero.
func (s *Semaphore) Acquire(k *Kernel, timeout Tick) error {
	const op = "Semaphore.Acquire"
	if !s.Valid() {
		return newErr(op, CodeInvalidArg, "invalid semaphore handle")
	}
	if timeout < 0 {
		return newErr(op, CodeInvalidArg, "negative timeout")
	}

	start := k.clock.Now()
	for {
		if s.edit.lock(k.clock, k.clock.Now(), k.ticks(k.cfg.ThreadTimeout)) {
			if s.count > 0 {
				s.count--
				s.edit.unlock()
				return nil
			}
			s.edit.unlock()
		}
		if elapsedSince(k.clock, start) > timeout {
			return newErr(op, CodeTimeout, "semaphore acquisition timed out")
		}
		k.Yield()
	}
}

// Release increments the permit count. Fails with CodeInvalidState if doing
// so would exceed capacity.
func (s *Semaphore) Release(k *Kernel) error {
	const op = "Semaphore.Release"
	if !s.Valid() {
		return newErr(op, CodeInvalidArg, "invalid semaphore handle")
	}
	if !s.edit.lock(k.clock, k.clock.Now(), k.ticks(k.cfg.ThreadTimeout)) {
		return newErr(op, CodeInternal, "edit-lock acquisition timed out")
	}
	defer s.edit.unlock()

	if s.count >= s.capacity {
		return newErr(op, CodeInvalidState, "release would exceed semaphore capacity")
	}
	s.count++
	return nil
}

// Destroy invalidates s's handle.
func (s *Semaphore) Destroy() error {
	const op = "Semaphore.Destroy"
	if !s.Valid() {
		return newErr(op, CodeInvalidArg, "invalid semaphore handle")
	}
	s.invalidate()
	return nil
}
