package kernel

// registry is the fixed-capacity global thread table: a
// slice of TCB pointers (nil = empty slot) serialized by a single scheduler
// critlock, plus one "current thread" slot per core.
type registry struct {
	lock     *Critlock
	threads  []*TCB
	maxPrio  int
	minStack int

	current [numCores]*TCB
}

func (r *registry) init(cfg Config) {
	r.lock = &Critlock{}
	r.lock.stamp()
	r.threads = make([]*TCB, cfg.MaxThreads)
	r.maxPrio = cfg.MaxThreadPriority
	r.minStack = cfg.MinStackSize
}

// withLock runs fn with the scheduler critlock held, bounded by timeout.
func (r *registry) withLock(k *Kernel, timeout Tick, fn func() error) error {
	if err := r.lock.Acquire(k, timeout); err != nil {
		return err
	}
	defer r.lock.Release(k)
	return fn()
}

// insert installs t into the first empty slot, failing with CodeNoMem if
// the registry is full. Caller must hold the scheduler critlock.
func (r *registry) insert(t *TCB) error {
	for i, slot := range r.threads {
		if slot == nil {
			r.threads[i] = t
			return nil
		}
	}
	return newErr("registry.insert", CodeNoMem, "thread registry full")
}

// remove clears t's slot. Caller must hold the scheduler critlock.
func (r *registry) remove(t *TCB) {
	for i, slot := range r.threads {
		if slot == t {
			r.threads[i] = nil
			return
		}
	}
}

// live calls fn for every occupied slot. Caller must hold the scheduler
// critlock.
func (r *registry) live(fn func(*TCB)) {
	for _, slot := range r.threads {
		if slot != nil {
			fn(slot)
		}
	}
}
