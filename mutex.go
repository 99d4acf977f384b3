package kernel

// Mutex is an owner-tracking blocking lock, normal or recursive. Its own
// edit-lock is a CAS-spin field rather than a Critlock, so acquiring or
// releasing a Mutex never disables (simulated) interrupts on the holder.
type Mutex struct {
	handleBase
	edit      editLock
	recursive bool
	owner     int32
	lockCount int32
}

// NewMutex allocates an unlocked Mutex.
func (k *Kernel) NewMutex(recursive bool) *Mutex {
	m := &Mutex{owner: invalidID, recursive: recursive}
	m.stamp()
	return m
}

// Valid reports whether m is a live handle.
func (m *Mutex) Valid() bool {
	return m != nil && validHandle(m.current(), &m.handleBase)
}

// Acquire locks m, blocking (via yield-poll) up to timeout. Calling from
// interrupt context always fails with CodeInvalidOp.
func (m *Mutex) Acquire(k *Kernel, timeout Tick) error {
	const op = "Mutex.Acquire"
	if !m.Valid() {
		return newErr(op, CodeInvalidArg, "invalid mutex handle")
	}
	if timeout < 0 {
		return newErr(op, CodeInvalidArg, "negative timeout")
	}
	if InInterrupt() {
		return newErr(op, CodeInvalidOp, "cannot acquire a mutex from interrupt context")
	}

	tid := currentThreadID(k)

	if !m.edit.lock(k.clock, k.clock.Now(), k.ticks(k.cfg.ThreadTimeout)) {
		return newErr(op, CodeInternal, "edit-lock acquisition timed out")
	}
	if m.lockCount > 0 && m.owner == tid {
		if !m.recursive {
			m.edit.unlock()
			return newErr(op, CodeInvalidState, "mutex already held by current thread")
		}
		m.lockCount++
		m.edit.unlock()
		return nil
	}
	m.edit.unlock()

	start := k.clock.Now()
	for {
		if m.edit.lock(k.clock, k.clock.Now(), k.ticks(k.cfg.ThreadTimeout)) {
			if m.lockCount == 0 {
				m.owner = tid
				m.lockCount = 1
				m.edit.unlock()
				return nil
			}
			m.edit.unlock()
		}
		if elapsedSince(k.clock, start) > timeout {
			return newErr(op, CodeTimeout, "mutex acquisition timed out")
		}
		k.Yield()
	}
}

// Release unlocks m. Must be called by the current owner.
func (m *Mutex) Release(k *Kernel) error {
	const op = "Mutex.Release"
	if !m.Valid() {
		return newErr(op, CodeInvalidArg, "invalid mutex handle")
	}
	tid := currentThreadID(k)

	if !m.edit.lock(k.clock, k.clock.Now(), k.ticks(k.cfg.ThreadTimeout)) {
		return newErr(op, CodeInternal, "edit-lock acquisition timed out")
	}
	defer m.edit.unlock()

	if m.owner != tid {
		return newErr(op, CodeInvalidState, "release called by non-owner")
	}
	if m.recursive {
		m.lockCount--
		if m.lockCount == 0 {
			m.owner = invalidID
		}
	} else {
		m.owner = invalidID
		m.lockCount = 0
	}
	return nil
}

// Destroy invalidates m's handle. Forbidden while locked.
func (m *Mutex) Destroy() error {
	const op = "Mutex.Destroy"
	if !m.Valid() {
		return newErr(op, CodeInvalidArg, "invalid mutex handle")
	}
	if m.lockCount != 0 {
		return newErr(op, CodeInvalidState, "mutex destroyed while locked")
	}
	m.invalidate()
	return nil
}
