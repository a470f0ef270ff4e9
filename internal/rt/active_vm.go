package rt

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// VMHandle is the minimal surface the runtime bridge needs from a VM to
// service an extern's call-back into IL (resolving a function, invoking
// it). internal/vm.VM satisfies it; kept as an interface here so rt never
// imports vm and creates a cycle (vm imports rt for the extern registry).
type VMHandle interface {
	CallFunction(name string, args []any) (any, error)
	CurrentContext() TrapContext
}

// activeVMs maps each goroutine to the VM currently executing on it. A
// goroutine ID is not exposed by the runtime package, so it is recovered
// from the goroutine's own stack trace header the same way several
// goroutine-local-storage shims in the ecosystem do; it is only ever used
// to scope ActiveVM/WithActiveVM to the calling goroutine, never persisted
// or compared across processes.
var (
	activeVMsMu sync.RWMutex
	activeVMs   = map[int64]VMHandle{}
)

func goroutineID() int64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if i := bytes.IndexByte(buf, ' '); i >= 0 {
		buf = buf[:i]
	}
	id, _ := strconv.ParseInt(string(buf), 10, 64)
	return id
}

// ActiveVM returns the VM bound to the calling goroutine, or nil if none is
// active (an extern called outside of any VM's call stack).
func ActiveVM() VMHandle {
	activeVMsMu.RLock()
	defer activeVMsMu.RUnlock()
	return activeVMs[goroutineID()]
}

// WithActiveVM binds v as the active VM for the calling goroutine for the
// duration of fn, restoring the previous binding (nil, in practice, since
// VMs do not nest on one goroutine) afterward even if fn panics.
func WithActiveVM(v VMHandle, fn func()) {
	id := goroutineID()
	activeVMsMu.Lock()
	prev, had := activeVMs[id]
	activeVMs[id] = v
	activeVMsMu.Unlock()

	defer func() {
		activeVMsMu.Lock()
		if had {
			activeVMs[id] = prev
		} else {
			delete(activeVMs, id)
		}
		activeVMsMu.Unlock()
	}()

	fn()
}
