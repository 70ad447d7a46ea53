package event

import "sync/atomic"

// IDAllocator hands out window identities. The zero value is ready to use and
// its first identity is 1. Identities are never handed out twice.
type IDAllocator struct {
	last atomic.Uint32
}

// Next returns a fresh identity.
func (a *IDAllocator) Next() WindowID {
	return WindowID(a.last.Add(1))
}

// Reserve makes sure identities up to and including id are never returned by
// Next. Used for identities that appear in the stream without having been
// allocated here.
func (a *IDAllocator) Reserve(id WindowID) {
	for {
		cur := a.last.Load()
		if uint32(id) <= cur {
			return
		}
		if a.last.CompareAndSwap(cur, uint32(id)) {
			return
		}
	}
}
