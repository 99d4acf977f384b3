// Package kernel implements the concurrency and scheduling substrate of a
// dual-core (primary/secondary) real-time flight-computer microkernel: a
// per-core weighted round-robin thread scheduler, a nested critical-section
// facility, a cross-core exclusive-section rendezvous, and a family of
// handle-validated synchronization primitives (critlock, mutex, semaphore,
// queue, future) built on top of those two.
//
// There is no hardware here. The two cores, their interrupt controller, and
// the exception-return context-switch trampoline a real Cortex-M7/M4 pair
// would use are all simulated: a Core is a goroutine dispatcher, identified
// by a goroutine-id oracle rather than a CPU-ID register, and a Thread's
// "context switch" is a channel rendezvous between that dispatcher and the
// thread's backing goroutine rather than a register save/restore. Every
// primitive's caller-visible contract — handle validity, state machine,
// timeout semantics, error taxonomy — matches the hardware specification
// exactly; only the mechanism by which it is achieved differs.
//
// Every synchronization primitive's backing memory is allocated by its own
// New* constructor rather than supplied by the caller, the one deliberate
// departure from the hardware specification's caller-owned-memory model:
// Go gives no portable way to place a value at a caller-chosen address, and
// the resulting heap allocation is a one-time cost at Create/New time, not
// on any scheduling hot path.
package kernel
