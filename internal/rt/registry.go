// Package rt is the runtime bridge: the extern registry host functions
// register into, the per-call trap context stack, and the thread-local
// active-VM guard that lets an extern call back into the VM safely.
package rt

import (
	"fmt"
	"sync"

	"github.com/viperlang/ilc/internal/il"
)

// HostFunc is a host-implemented extern. Arguments and the return value are
// boxed as il.Value so the VM's call path stays uniform regardless of the
// extern's actual Go signature.
type HostFunc func(args []il.Value) (il.Value, error)

// ExternDesc describes one registered extern: its name, declared signature,
// and host implementation.
type ExternDesc struct {
	Name    string
	Params  []il.Type
	RetType il.Type
	Fn      HostFunc
}

// Registry is the process-wide table of externs the VM dispatches `call` to
// when the callee has no IL body (every function whose name only appears in
// a module's `extern` declarations resolves here).
type Registry struct {
	mu      sync.RWMutex
	externs map[string]ExternDesc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{externs: map[string]ExternDesc{}}
}

// Register adds desc, overwriting any previous registration under the same
// name (tests commonly stub an extern this way).
func (r *Registry) Register(desc ExternDesc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.externs[desc.Name] = desc
}

// Lookup returns the extern registered under name, if any.
func (r *Registry) Lookup(name string) (ExternDesc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.externs[name]
	return d, ok
}

// Invoke calls the named extern with args, validating arity before handing
// off to the host function.
func (r *Registry) Invoke(name string, args []il.Value) (il.Value, error) {
	desc, ok := r.Lookup(name)
	if !ok {
		return il.Value{}, fmt.Errorf("rt: extern %q is not registered", name)
	}
	if len(args) != len(desc.Params) {
		return il.Value{}, fmt.Errorf("rt: extern %q called with %d argument(s), expected %d", name, len(args), len(desc.Params))
	}
	return desc.Fn(args)
}
