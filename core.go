package kernel

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
)

// CoreID identifies one of the two physical cores this kernel simulates:
// Primary stands in for the CM7 application core, Secondary for the CM4
// real-time core.
type CoreID int32

const (
	Primary CoreID = iota
	Secondary

	numCores = 2
)

func (c CoreID) String() string {
	switch c {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return "core(" + strconv.Itoa(int(c)) + ")"
	}
}

// coreRegistry records which goroutine is currently "executing as" each
// core, and whether that core is inside a simulated interrupt. A real
// Cortex-M reads a CPU-ID MMIO register and an interrupt-active status bit;
// this package has neither, so CurrentCore/InInterrupt resolve from
// goroutine identity instead (grounded on the unretrieved
// github.com/joeycumines/goroutineid module's implied purpose, reimplemented
// in-house — see DESIGN.md).
var coreRegistry struct {
	goroutineID [numCores]atomic.Int64 // 0 means unbound
	interrupt   [numCores]atomic.Bool
}

// goroutineID returns the calling goroutine's runtime id, parsed out of the
// "goroutine NNN [...]" header runtime.Stack always produces. This is the
// same approach every "what goroutine am I" helper in the wider Go ecosystem
// takes in the absence of a supported runtime API.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// bindCore records that the calling goroutine is now executing as core c.
// A Core's dispatcher reasserts this at the top of every scheduling pass,
// and a thread's backing goroutine reasserts it every time it is resumed:
// the two goroutines take turns "being" the core, so whichever one holds
// control must keep the registry pointed at itself.
func bindCore(c CoreID) {
	coreRegistry.goroutineID[c].Store(goroutineID())
}

// CurrentCore reports which core the calling goroutine is executing as. It
// panics if called from a goroutine that was never bound to a core by a
// Core dispatcher — there is no hardware-equivalent fallback, the same way
// reading the CPU-ID register from an unscheduled context would be
// meaningless on real silicon.
func CurrentCore() CoreID {
	gid := goroutineID()
	for i := CoreID(0); i < numCores; i++ {
		if coreRegistry.goroutineID[i].Load() == gid {
			return i
		}
	}
	panic("kernel: CurrentCore called from a goroutine not bound to any core")
}

// InInterrupt reports whether the calling core is currently executing a
// simulated interrupt handler, i.e. is inside a RunInterrupt callback.
func InInterrupt() bool {
	return coreRegistry.interrupt[CurrentCore()].Load()
}

// RunInterrupt runs fn as a simulated interrupt handler on the calling
// core: InInterrupt reports true for its duration, matching the
// "operations behave differently when invoked from interrupt context"
// contract. fn must not block indefinitely; there is no preemption here,
// only the flag other operations consult.
func RunInterrupt(fn func()) {
	c := CurrentCore()
	coreRegistry.interrupt[c].Store(true)
	defer coreRegistry.interrupt[c].Store(false)
	fn()
}
