package kernel

import (
	"sync"
	"time"
)

// Kernel is the top-level owner of every subsystem this package provides: the two
// cores' critical-section counters, the cross-core exclusive section, the
// thread registry, and the clock every timeout is measured against. A
// process normally constructs exactly one, the same way a flight computer
// boots exactly one kernel image across its two cores.
type Kernel struct {
	cfg      Config
	clock    Clock
	critical [numCores]criticalState
	excl     exclusiveState
	reg      registry
	cores    [numCores]*Core

	closeOnce sync.Once
}

// New constructs a Kernel from DefaultConfig overridden by opts, and starts
// both cores' dispatcher loops, each pinned to its own goroutine. Code
// outside a kernel thread (e.g. a simulated interrupt source) that needs
// CurrentCore()-dependent operations to resolve must first call
// (*Core).Bind from the goroutine that is to represent that core.
func New(opts ...Option) *Kernel {
	cfg := resolveOptions(DefaultConfig(), opts)
	return NewWithConfig(cfg)
}

// NewWithConfig is New, with a fully-resolved Config (e.g. loaded via
// LoadConfig) instead of DefaultConfig-plus-Options.
func NewWithConfig(cfg Config) *Kernel {
	k := &Kernel{
		cfg:   cfg,
		clock: NewSystemClock(cfg.TickResolution),
	}
	k.reg.init(cfg)
	k.excl.init(k)
	for i := CoreID(0); i < numCores; i++ {
		k.cores[i] = newCore(k, i)
	}
	return k
}

// Config returns the resolved configuration this kernel was built with.
func (k *Kernel) Config() Config { return k.cfg }

// Clock returns the time source this kernel measures every timeout
// against.
func (k *Kernel) Clock() Clock { return k.clock }

// Core returns the dispatcher for the given core.
func (k *Kernel) Core(id CoreID) *Core { return k.cores[id] }

// ticks converts a wall-clock Config timeout (e.g. ThreadTimeout) into the
// Tick count every blocking primitive's poll loop compares against,
// scaled by this kernel's TickResolution. Config keeps its timeouts as
// time.Duration so a TOML file can say "100ms" rather than a raw tick
// count tied to a particular resolution.
func (k *Kernel) ticks(d time.Duration) Tick {
	res := k.cfg.TickResolution
	if res <= 0 {
		res = time.Millisecond
	}
	return Tick(d / res)
}

// Close stops both cores' dispatcher loops. A Kernel cannot be restarted
// after Close; construct a new one instead.
func (k *Kernel) Close() {
	k.closeOnce.Do(func() {
		for _, c := range k.cores {
			c.stopLoop()
		}
		k.excl.stop()
	})
}
