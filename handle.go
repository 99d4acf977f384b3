package kernel

import "sync/atomic"

// nextHandleID allocates the process-wide monotonic id stamped into every
// primitive's backing memory at creation, per the uniform handle shape used
// throughout this package: {id, backing memory}. A handle is valid iff
// id >= 0 and the backing memory's own stamped id still equals it; Destroy
// invalidates every outstanding handle by setting the backing id to -1.
var nextHandleID atomic.Int64

// invalidID is stamped into a primitive's backing memory by Destroy. It is
// also the id of every primitive type's distinguished INVALID constant.
const invalidID int32 = -1

func allocID() int32 {
	// IDs start at 1 so the zero value of a handle struct is never
	// confused with a freshly allocated one.
	return int32(nextHandleID.Add(1))
}

// handleBase is embedded in every primitive's backing struct. It is never
// accessed by callers directly; each primitive exposes its own typed Handle
// and Valid method built on top of it.
type handleBase struct {
	id atomic.Int32
}

func (h *handleBase) stamp() int32 {
	id := allocID()
	h.id.Store(id)
	return id
}

func (h *handleBase) invalidate() {
	h.id.Store(invalidID)
}

func (h *handleBase) current() int32 {
	return h.id.Load()
}

// validHandle reports whether id is non-negative and still matches the
// backing memory's own stamped id, per spec: handle valid iff
// id >= 0 && handle != nil && *handle.id == handle.id.
func validHandle(id int32, h *handleBase) bool {
	return id >= 0 && h != nil && h.current() == id
}
