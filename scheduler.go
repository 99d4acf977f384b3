package kernel

import "runtime"

// Core is one of the two per-core dispatchers. Each runs its own
// independent scheduling loop over the shared registry, picking only among
// threads created on itself — a core-affinity rule this module adds, since
// a thread has no well-defined way to migrate between two genuinely,
// physically parallel cores (see DESIGN.md).
type Core struct {
	k    *Kernel
	id   CoreID
	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newCore(k *Kernel, id CoreID) *Core {
	c := &Core{
		k:    k,
		id:   id,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go c.run()
	return c
}

// Bind declares that the calling goroutine represents core c from now on,
// for the purposes of CurrentCore/InInterrupt/RunInterrupt. Only needed by
// code that issues kernel calls outside of a dispatcher loop or a thread's
// own entry function, such as a simulated interrupt source.
func (c *Core) Bind() { bindCore(c.id) }

// poke wakes the dispatcher loop for an immediate reschedule pass, used
// after create/destroy/suspend/resume/priority changes that might change
// the scheduling outcome. Non-blocking: a pending wake is enough.
func (c *Core) poke() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Core) stopLoop() {
	close(c.stop)
	<-c.done
}

// run is the dispatcher loop: the Go analogue of the hardware's
// reschedule-exception handler, invoked here on every wake instead of a
// hardware timer/supervisor-call pend.
func (c *Core) run() {
	defer close(c.done)
	for {
		// Re-assert ownership of this core's identity slot: a thread's
		// backing goroutine claims it while running (so CurrentCore/
		// yieldCore work from inside thread code), so the dispatcher must
		// reclaim it each time it regains control.
		bindCore(c.id)

		select {
		case <-c.stop:
			return
		default:
		}

		winner := c.schedule()
		if winner == nil {
			// No READY thread: the idle-halt state.
			select {
			case <-c.stop:
				return
			case <-c.wake:
			}
			continue
		}

		if !winner.started {
			winner.started = true
			go c.runThread(winner)
		}
		winner.resume <- struct{}{}
		<-winner.yielded

		select {
		case <-c.stop:
			return
		default:
		}
	}
}

// runThread is the goroutine backing one TCB for its entire lifetime: it
// blocks on resume, runs the entry function exactly once, then ends. If
// entry calls Exit, Exit itself marks the TCB STOPPED and ends the
// goroutine via runtime.Goexit, so the bookkeeping below only runs for an
// entry that returns on its own without calling Exit.
func (c *Core) runThread(t *TCB) {
	<-t.resume
	bindCore(c.id)
	func() {
		defer func() { recover() }() // entry panics still release the core
		t.entry(t.arg)
	}()
	c.k.reg.withLock(c.k, c.k.ticks(c.k.cfg.ThreadTimeout), func() error {
		t.state = ThreadStopped
		c.k.reg.current[c.id] = nil
		return nil
	})
	t.yielded <- struct{}{}
}

// schedule runs one weighted-round-robin pass over this core's threads,
// and returns the winning TCB (nil if none is READY).
func (c *Core) schedule() *TCB {
	k := c.k
	var winner *TCB

	_ = k.reg.withLock(k, k.ticks(k.cfg.ThreadTimeout), func() error {
		if prev := k.reg.current[c.id]; prev != nil && prev.state == ThreadRunning {
			prev.state = ThreadReady
		}
		k.reg.current[c.id] = nil

		k.reg.live(func(t *TCB) {
			if t.core != c.id {
				return
			}
			if !t.guardIntact() {
				t.state = ThreadStopped
				return
			}
			if t.state == ThreadReady {
				t.schedCount += uint64(t.priority)
			}
		})

		var best *TCB
		for _, t := range k.reg.threads {
			if t == nil || t.core != c.id || t.state != ThreadReady {
				continue
			}
			if best == nil || t.schedCount > best.schedCount {
				best = t
			}
		}

		if best != nil {
			best.state = ThreadRunning
			best.schedCount = 0
			k.reg.current[c.id] = best
			winner = best
		}
		return nil
	})

	return winner
}

// Create allocates a thread pinned to core. entry runs
// on its own goroutine once that core's scheduler first selects it. Unlike
// most other operations in this package, Create takes its core explicitly
// rather than inferring CurrentCore(): there is no specified way for a thread
// migration protocol for two genuinely parallel cores, so placement must be
// the caller's decision, made once at creation (see DESIGN.md).
func (k *Kernel) Create(core CoreID, entry func(arg any), arg any, stackSize int, priority int32) (Handle, error) {
	const op = "Create"
	if entry == nil {
		return InvalidHandle, newErr(op, CodeInvalidArg, "nil entry function")
	}
	if stackSize < k.reg.minStack {
		return InvalidHandle, newErr(op, CodeInvalidArg, "stack size below minimum")
	}
	if priority < 1 || int(priority) > k.reg.maxPrio {
		return InvalidHandle, newErr(op, CodeInvalidArg, "priority out of range")
	}
	if core < 0 || core >= numCores {
		return InvalidHandle, newErr(op, CodeInvalidArg, "invalid core id")
	}

	t := newTCB(core, entry, arg, stackSize, priority)

	err := k.reg.withLock(k, k.ticks(k.cfg.ThreadTimeout), func() error {
		return k.reg.insert(t)
	})
	if err != nil {
		if kerr, ok := err.(*Error); ok {
			traceError(op, kerr)
		}
		return InvalidHandle, err
	}
	k.cores[core].poke()
	traceCoreEvent(core, op, t.current(), "thread created")
	return Handle{id: t.current(), tcb: t}, nil
}

// Destroy removes a STOPPED thread from the registry and invalidates its
// handle.
func (k *Kernel) Destroy(h Handle) error {
	const op = "Destroy"
	if !h.Valid() {
		return newErr(op, CodeInvalidArg, "invalid thread handle")
	}
	id := h.tcb.current()
	core := h.tcb.core
	err := k.reg.withLock(k, k.ticks(k.cfg.ThreadTimeout), func() error {
		if h.tcb.state != ThreadStopped {
			return newErr(op, CodeInvalidState, "thread is not stopped")
		}
		k.reg.remove(h.tcb)
		h.tcb.invalidate()
		return nil
	})
	if err != nil {
		if kerr, ok := err.(*Error); ok {
			traceError(op, kerr)
		}
		return err
	}
	traceCoreEvent(core, op, id, "thread destroyed")
	return nil
}

// Suspend pauses a READY or RUNNING thread. Suspending self while the
// calling core holds an open critical or exclusive section fails with
// CodeInvalidState, since the scheduler could never resume it.
func (k *Kernel) Suspend(h Handle) error {
	const op = "Suspend"
	if !h.Valid() {
		return newErr(op, CodeInvalidArg, "invalid thread handle")
	}
	callerCore := CurrentCoreSafe()
	self := callerCore >= 0 && h.tcb == k.reg.current[callerCore]
	if self && (k.isCriticalCore(h.tcb.core) || k.excl.State(h.tcb.core) != ExclOutside) {
		return newErr(op, CodeInvalidState, "cannot suspend self inside critical or exclusive section")
	}

	err := k.reg.withLock(k, k.ticks(k.cfg.ThreadTimeout), func() error {
		if h.tcb.state != ThreadReady && h.tcb.state != ThreadRunning {
			return newErr(op, CodeInvalidState, "thread is not ready or running")
		}
		h.tcb.state = ThreadSuspended
		return nil
	})
	if err != nil {
		if kerr, ok := err.(*Error); ok {
			traceError(op, kerr)
		}
		return err
	}
	traceCoreEvent(h.tcb.core, op, h.tcb.current(), "thread suspended")
	if self {
		k.yieldCore(h.tcb)
	} else {
		k.cores[h.tcb.core].poke()
	}
	return nil
}

// Resume marks a SUSPENDED thread READY.
func (k *Kernel) Resume(h Handle) error {
	const op = "Resume"
	if !h.Valid() {
		return newErr(op, CodeInvalidArg, "invalid thread handle")
	}
	err := k.reg.withLock(k, k.ticks(k.cfg.ThreadTimeout), func() error {
		if h.tcb.state != ThreadSuspended {
			return newErr(op, CodeInvalidState, "thread is not suspended")
		}
		h.tcb.state = ThreadReady
		return nil
	})
	if err != nil {
		if kerr, ok := err.(*Error); ok {
			traceError(op, kerr)
		}
		return err
	}
	traceCoreEvent(h.tcb.core, op, h.tcb.current(), "thread resumed")
	k.cores[h.tcb.core].poke()
	return nil
}

// SetPriority overrides a thread's scheduling priority.
func (k *Kernel) SetPriority(h Handle, priority int32) error {
	const op = "SetPriority"
	if !h.Valid() {
		return newErr(op, CodeInvalidArg, "invalid thread handle")
	}
	if priority < 1 || int(priority) > k.reg.maxPrio {
		return newErr(op, CodeInvalidArg, "priority out of range")
	}
	return k.reg.withLock(k, k.ticks(k.cfg.ThreadTimeout), func() error {
		h.tcb.priority = priority
		return nil
	})
}

// GetPriority returns a thread's current priority.
func (k *Kernel) GetPriority(h Handle) (int32, error) {
	if !h.Valid() {
		return 0, newErr("GetPriority", CodeInvalidArg, "invalid thread handle")
	}
	return h.tcb.priority, nil
}

// GetState returns a thread's current scheduling state.
func (k *Kernel) GetState(h Handle) (ThreadState, error) {
	if !h.Valid() {
		return 0, newErr("GetState", CodeInvalidArg, "invalid thread handle")
	}
	return h.tcb.state, nil
}

// GetStackSize returns a thread's stack region size in bytes.
func (k *Kernel) GetStackSize(h Handle) (int, error) {
	if !h.Valid() {
		return 0, newErr("GetStackSize", CodeInvalidArg, "invalid thread handle")
	}
	return h.tcb.stackSize, nil
}

// GetStackUsage returns a coarse high-water-mark estimate of stack bytes
// used, beyond the guard word.
func (k *Kernel) GetStackUsage(h Handle) (int, error) {
	if !h.Valid() {
		return 0, newErr("GetStackUsage", CodeInvalidArg, "invalid thread handle")
	}
	return h.tcb.stackUsage(), nil
}

// OverflowCheck reports whether a thread's stack guard has been clobbered.
func (k *Kernel) OverflowCheck(h Handle) (bool, error) {
	if !h.Valid() {
		return false, newErr("OverflowCheck", CodeInvalidArg, "invalid thread handle")
	}
	return !h.tcb.guardIntact(), nil
}

// Yield triggers a reschedule of the calling core. It is a no-op from
// interrupt context or while any critical or exclusive section is open.
func (k *Kernel) Yield() {
	core := CurrentCoreSafe()
	if core < 0 || InInterrupt() || k.isCriticalCore(core) || k.excl.State(core) != ExclOutside {
		return
	}
	cur := k.reg.current[core]
	if cur == nil {
		runtime.Gosched()
		return
	}
	k.yieldCore(cur)
}

// yieldCore hands control from thread t's goroutine back to its core's
// dispatcher and blocks until the dispatcher resumes it again.
func (k *Kernel) yieldCore(t *TCB) {
	t.yielded <- struct{}{}
	<-t.resume
	bindCore(t.core)
}

// Exit terminates the calling thread. From a thread context it marks
// itself STOPPED, hands control back to the dispatcher, and never returns
// to the entry function — runtime.Goexit unwinds the thread's backing
// goroutine through its deferred calls and ends it there, rather than
// parking it on a resume channel schedule() will never signal again.
// From interrupt context it is documented as a non-recoverable
// self-annihilation, modeled here as a panic recovered by runThread's
// defer, since Go has no equivalent of a bare exception-return.
func (k *Kernel) Exit() {
	core := CurrentCoreSafe()
	if core < 0 {
		return
	}
	k.resetCriticalCore(core)
	k.excl.counter[core].Store(0)
	k.excl.setState(core, ExclOutside)

	if InInterrupt() {
		panic("kernel: Exit called from interrupt context")
	}

	cur := k.reg.current[core]
	if cur == nil {
		return
	}
	for {
		err := k.reg.withLock(k, k.ticks(k.cfg.ThreadTimeout), func() error {
			cur.state = ThreadStopped
			k.reg.current[core] = nil
			return nil
		})
		if err == nil {
			break
		}
	}
	cur.yielded <- struct{}{}
	runtime.Goexit()
}

// CurrentThread returns a handle to the thread currently running on the
// calling core, or InvalidHandle from interrupt context or when called
// from a non-thread goroutine.
func (k *Kernel) CurrentThread() Handle {
	core := CurrentCoreSafe()
	if core < 0 || InInterrupt() {
		return InvalidHandle
	}
	t := k.reg.current[core]
	if t == nil {
		return InvalidHandle
	}
	return Handle{id: t.current(), tcb: t}
}

// CurrentCoreSafe is CurrentCore, but returns -1 instead of panicking when
// the calling goroutine was never bound to a core (e.g. a test harness
// goroutine that hasn't called Core.Bind).
func CurrentCoreSafe() CoreID {
	gid := goroutineID()
	for i := CoreID(0); i < numCores; i++ {
		if coreRegistry.goroutineID[i].Load() == gid {
			return i
		}
	}
	return -1
}

// currentThreadID returns the id of the thread currently running on the
// calling core, or invalidID if the calling goroutine isn't a thread (e.g.
// a core's own dispatcher, or a test goroutine that never bound a core).
func currentThreadID(k *Kernel) int32 {
	core := CurrentCoreSafe()
	if core < 0 {
		return invalidID
	}
	t := k.reg.current[core]
	if t == nil {
		return invalidID
	}
	return t.current()
}
