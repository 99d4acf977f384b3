package kernel

import (
	"context"
	"sync/atomic"
)

// ExclusiveState names the per-core state machine's
// closing paragraph, exposed for introspection in tests.
type ExclusiveState int32

const (
	ExclOutside ExclusiveState = iota
	ExclEntering
	ExclAckWait
	ExclInside
	ExclExiting
	ExclAborted
)

func (s ExclusiveState) String() string {
	switch s {
	case ExclOutside:
		return "OUTSIDE"
	case ExclEntering:
		return "ENTERING"
	case ExclAckWait:
		return "ENTER_ACK_WAIT"
	case ExclInside:
		return "INSIDE"
	case ExclExiting:
		return "EXITING"
	case ExclAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// exclusiveState is the cross-core rendezvous: each core's
// own counter (this_x from its own perspective, alt_x from the other's),
// one shared edit-lock serializing mutation of both counters, and a pair of
// buffered channels standing in for the hardware "send-event" inter-core
// signal, each driven by a dedicated update-handler goroutine.
type exclusiveState struct {
	k       *Kernel
	counter [numCores]Word // counter[c] is core c's this_x, as seen by c
	lock    editLock
	signal  [numCores]chan struct{} // signal[c] wakes core c's update handler
	state   [numCores]atomic.Int32
	done    chan struct{}
}

func (x *exclusiveState) init(k *Kernel) {
	x.k = k
	x.done = make(chan struct{})
	for c := CoreID(0); c < numCores; c++ {
		x.signal[c] = make(chan struct{}, 1)
		x.state[c].Store(int32(ExclOutside))
		go x.updateHandler(c)
	}
}

func (x *exclusiveState) stop() {
	close(x.done)
}

func (x *exclusiveState) setState(c CoreID, s ExclusiveState) {
	x.state[c].Store(int32(s))
}

// State reports core c's current exclusive-section state.
func (x *exclusiveState) State(c CoreID) ExclusiveState {
	return ExclusiveState(x.state[c].Load())
}

func other(c CoreID) CoreID { return 1 - c }

// ExclusiveEnter runs the entry protocol for the calling core.
func (k *Kernel) ExclusiveEnter() error {
	const op = "ExclusiveEnter"
	x := &k.excl
	c := CurrentCore()
	o := other(c)

	k.EnterCritical()
	x.setState(c, ExclEntering)

	start := k.clock.Now()
	if !x.lock.lock(k.clock, start, k.ticks(k.cfg.ExclSectionLockTimeout)) {
		x.setState(c, ExclAborted)
		k.ExitCritical()
		return newErr(op, CodeInternal, "edit-lock acquisition timed out")
	}

	if int32(x.counter[o].Load()) > 0 {
		x.counter[c].Store(uint32(int32(-1)))
		x.lock.unlock()
		x.setState(c, ExclAckWait)

		sectionStart := k.clock.Now()
		for {
			x.lock.lock(k.clock, k.clock.Now(), k.ticks(k.cfg.ExclSectionLockTimeout))
			if int32(x.counter[o].Load()) <= 0 {
				x.lock.unlock()
				break
			}
			x.lock.unlock()
			if elapsedSince(k.clock, sectionStart) > k.ticks(k.cfg.ExclSectionTimeout) {
				x.crashRecoveryReset()
				x.setState(c, ExclAborted)
				k.ExitCritical()
				kerr := newErr(op, CodeTimeout, "section timeout waiting for peer to yield")
				traceError(op, kerr)
				return kerr
			}
			k.clock.Sleep(context.Background(), 1)
		}

		if !x.lock.lock(k.clock, k.clock.Now(), k.ticks(k.cfg.ExclSectionLockTimeout)) {
			x.setState(c, ExclAborted)
			k.ExitCritical()
			return newErr(op, CodeInternal, "edit-lock re-acquisition timed out")
		}
	}

	if int32(x.counter[c].Load()) == -1 {
		x.counter[c].Store(0)
	}
	x.counter[c].FetchAdd(1)

	select {
	case x.signal[o] <- struct{}{}:
	default:
	}

	ackStart := k.clock.Now()
	for {
		if int32(x.counter[o].Load()) == -1 {
			break
		}
		if elapsedSince(k.clock, ackStart) > k.ticks(k.cfg.ExclSectionAckTimeout) {
			x.lock.unlock()
			x.crashRecoveryReset()
			x.setState(c, ExclAborted)
			k.ExitCritical()
			kerr := newErr(op, CodeTimeout, "ack timeout waiting for peer acknowledgment")
			traceError(op, kerr)
			return kerr
		}
		x.lock.unlock()
		k.clock.Sleep(context.Background(), 1)
		x.lock.lock(k.clock, k.clock.Now(), k.ticks(k.cfg.ExclSectionLockTimeout))
	}

	x.lock.unlock()
	x.setState(c, ExclInside)
	k.ExitCritical()
	return nil
}

// ExclusiveExit runs the exit protocol for the calling core.
func (k *Kernel) ExclusiveExit() error {
	const op = "ExclusiveExit"
	x := &k.excl
	c := CurrentCore()

	k.EnterCritical()
	x.setState(c, ExclExiting)

	start := k.clock.Now()
	if !x.lock.lock(k.clock, start, k.ticks(k.cfg.ExclSectionLockTimeout)) {
		k.ExitCritical()
		return newErr(op, CodeInternal, "edit-lock acquisition timed out")
	}
	defer x.lock.unlock()

	if int32(x.counter[c].Load()) <= 0 {
		k.ExitCritical()
		return newErr(op, CodeInternal, "exit called while not inside exclusive section")
	}
	x.counter[c].FetchSub(1)
	x.setState(c, ExclOutside)
	k.ExitCritical()
	return nil
}

// crashRecoveryReset hard-resets both counters to 0 and releases the
// edit-lock, per the deliberate liveness-over-mutual-exclusion
// failure policy: on any timeout, assume the peer has hung or crashed.
func (x *exclusiveState) crashRecoveryReset() {
	x.counter[Primary].Store(0)
	x.counter[Secondary].Store(0)
	x.lock.unlock()
}

// updateHandler is the receiving side of the rendezvous: on each inter-core
// signal, inside a critical section with the edit-lock held, if this core's
// counter is 0 and the peer's is positive, acknowledge by setting -1 and
// wait for the peer to return to 0.
func (x *exclusiveState) updateHandler(c CoreID) {
	o := other(c)
	for {
		select {
		case <-x.done:
			return
		case <-x.signal[c]:
		}

		x.k.enterCriticalCore(c)
		start := x.k.clock.Now()
		if !x.lock.lock(x.k.clock, start, x.k.ticks(x.k.cfg.ExclSectionLockTimeout)) {
			x.k.exitCriticalCore(c)
			continue
		}

		if int32(x.counter[c].Load()) == 0 && int32(x.counter[o].Load()) > 0 {
			x.counter[c].Store(uint32(int32(-1)))
			x.lock.unlock()

			pollStart := x.k.clock.Now()
			for {
				x.lock.lock(x.k.clock, x.k.clock.Now(), x.k.ticks(x.k.cfg.ExclSectionLockTimeout))
				if int32(x.counter[o].Load()) == 0 {
					x.lock.unlock()
					break
				}
				x.lock.unlock()
				if elapsedSince(x.k.clock, pollStart) > x.k.ticks(x.k.cfg.ExclSectionTimeout) {
					x.lock.lock(x.k.clock, x.k.clock.Now(), x.k.ticks(x.k.cfg.ExclSectionLockTimeout))
					x.crashRecoveryReset()
					break
				}
				x.k.clock.Sleep(context.Background(), 1)
			}

			if int32(x.counter[c].Load()) == -1 {
				x.lock.lock(x.k.clock, x.k.clock.Now(), x.k.ticks(x.k.cfg.ExclSectionLockTimeout))
				x.counter[c].Store(0)
				x.lock.unlock()
			}
		} else {
			x.lock.unlock()
		}

		x.k.exitCriticalCore(c)
	}
}
