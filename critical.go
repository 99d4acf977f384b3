package kernel

import (
	"sync"

	"golang.org/x/sys/cpu"
)

// criticalState is a per-core nested critical-section counter. It is
// cache-line padded with cpu.CacheLinePad fore and aft of the payload so the
// two cores' counters never share a cache line, the same false-sharing
// concern eventloop.FastState addresses with hand-rolled byte-array filler
// fields — here upgraded to the dedicated golang.org/x/sys/cpu helper.
type criticalState struct {
	_     cpu.CacheLinePad
	depth Word
	gate  sync.Mutex
	_     cpu.CacheLinePad
}

// EnterCritical increments the calling core's nesting depth, disabling
// (simulated) preemption on that core for the first nested entry and doing
// nothing further on subsequent ones. It cannot fail.
func (k *Kernel) EnterCritical() { k.enterCriticalCore(CurrentCore()) }

// ExitCritical decrements the calling core's nesting depth, re-enabling
// preemption once it returns to zero. Exiting past zero is clamped at zero
// rather than going negative.
func (k *Kernel) ExitCritical() { k.exitCriticalCore(CurrentCore()) }

// ResetCritical unconditionally clears the calling core's nesting depth to
// zero, releasing the gate if it was held. Used during crash recovery.
func (k *Kernel) ResetCritical() { k.resetCriticalCore(CurrentCore()) }

// IsCritical reports whether the calling core currently has any open
// critical section.
func (k *Kernel) IsCritical() bool { return k.isCriticalCore(CurrentCore()) }

// The core-parameterized variants below back the CurrentCore()-inferring
// public API above, and are also used directly by code such as the
// exclusive-section update handler, which runs on a dedicated goroutine
// that is never itself bound to a core.

func (k *Kernel) enterCriticalCore(c CoreID) {
	cs := &k.critical[c]
	if cs.depth.FetchAdd(1) == 0 {
		cs.gate.Lock()
	}
}

func (k *Kernel) exitCriticalCore(c CoreID) {
	cs := &k.critical[c]
	for {
		cur := cs.depth.Load()
		if cur == 0 {
			return
		}
		var expected = cur
		if cs.depth.CompareAndExchange(&expected, cur-1) {
			if cur-1 == 0 {
				cs.gate.Unlock()
			}
			return
		}
	}
}

func (k *Kernel) resetCriticalCore(c CoreID) {
	cs := &k.critical[c]
	if cs.depth.Exchange(0) != 0 {
		cs.gate.Unlock()
	}
}

func (k *Kernel) isCriticalCore(c CoreID) bool {
	return k.critical[c].depth.Load() != 0
}
