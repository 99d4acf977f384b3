package kernel

import "runtime"

// Critlock is a combined interrupt-disabler and atomic spin lock with a
// validated handle. It is used directly by the scheduler
// to serialize registry mutations, and is available standalone for any code
// path that must serialize against the calling core's own critical section.
type Critlock struct {
	handleBase
	lock Word
}

// NewCritlock allocates a new, unlocked Critlock.
func (k *Kernel) NewCritlock() *Critlock {
	c := &Critlock{}
	c.stamp()
	return c
}

// Valid reports whether c is a live handle, per the uniform validity rule
// every primitive in this package shares.
func (c *Critlock) Valid() bool {
	return c != nil && validHandle(c.current(), &c.handleBase)
}

// Acquire enters a local critical section, then CAS-spins the lock word
// until it is won or timeout elapses, yielding between attempts. Each
// failed attempt briefly exits the critical section so the core is not
// left permanently non-preemptible while spinning. Callers not bound to a
// core (e.g. a setup goroutine that never ran Core.Bind) have no critical
// section to enter and simply CAS-spin on the lock word directly.
func (c *Critlock) Acquire(k *Kernel, timeout Tick) error {
	const op = "Critlock.Acquire"
	if !c.Valid() {
		return newErr(op, CodeInvalidArg, "invalid critlock handle")
	}
	if timeout < 0 {
		return newErr(op, CodeInvalidArg, "negative timeout")
	}

	core := CurrentCoreSafe()
	start := k.clock.Now()
	if core >= 0 {
		k.enterCriticalCore(core)
	}
	for {
		var expected uint32
		if c.lock.CompareAndExchange(&expected, 1) {
			return nil
		}
		if core >= 0 {
			k.exitCriticalCore(core)
		}
		if elapsedSince(k.clock, start) > timeout {
			return newErr(op, CodeTimeout, "critlock acquisition timed out")
		}
		runtime.Gosched()
		if core >= 0 {
			k.enterCriticalCore(core)
		}
	}
}

// Release unlocks c, which must be held by the calling core, and exits the
// critical section Acquire entered, if any.
func (c *Critlock) Release(k *Kernel) error {
	const op = "Critlock.Release"
	if !c.Valid() {
		return newErr(op, CodeInvalidArg, "invalid critlock handle")
	}
	var expected uint32 = 1
	if !c.lock.CompareAndExchange(&expected, 0) {
		return newErr(op, CodeInvalidState, "critlock not held")
	}
	if core := CurrentCoreSafe(); core >= 0 {
		k.exitCriticalCore(core)
	}
	return nil
}

// Destroy invalidates c's handle. Forbidden while locked.
func (c *Critlock) Destroy() error {
	const op = "Critlock.Destroy"
	if !c.Valid() {
		return newErr(op, CodeInvalidArg, "invalid critlock handle")
	}
	if c.lock.Load() != 0 {
		return newErr(op, CodeInvalidState, "critlock destroyed while locked")
	}
	c.invalidate()
	return nil
}
