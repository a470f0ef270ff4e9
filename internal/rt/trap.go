package rt

// TrapContext identifies where a trap occurred: the function and block
// being executed and the source location of the triggering instruction.
type TrapContext struct {
	Func  string
	Block string
	Line  uint32
	Col   uint32
}

// TrapInfo is the captured result of a trap: the message the runtime or an
// extern raised, plus the context it raised it from.
type TrapInfo struct {
	Message string
	Context TrapContext
}

// Trap builds a TrapInfo from msg and the innermost context on ctxStack, the
// way `trap`/`trap.from_err` and any host-raised error populate the VM's
// lastTrap field.
func Trap(msg string, ctxStack *ContextStack) TrapInfo {
	return TrapInfo{Message: msg, Context: ctxStack.Current()}
}
