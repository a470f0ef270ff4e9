package il

import "github.com/viperlang/ilc/internal/source"

// Version is the `il <major>.<minor>[.<patch>]` header directive. Patch is
// optional on input; it is always emitted on output once set.
type Version struct {
	Major, Minor, Patch int
	HasPatch            bool
}

// Extern declares a host function callable via `call @name(...)`. It is
// resolved either against another module-local Function or against the
// runtime bridge's extern registry (internal/rt) at VM execution time.
type Extern struct {
	Name    string
	Params  []Type
	RetType Type
}

// Global is a module-scoped named string payload. Bytes may contain
// embedded zero bytes; Const marks string-literal globals produced by the
// lowerer's interning table (internal/lower).
type Global struct {
	Name  string
	Const bool
	Bytes []byte
}

// BlockParam is a typed name at a block's entry; it is the IL's phi
// equivalent, receiving one value per incoming branch.
type BlockParam struct {
	Name string
	Ty   Type
	ID   uint32
}

// BranchTarget names a destination block together with the argument values
// supplied to its parameters along that edge.
type BranchTarget struct {
	Label string
	Args  []Value
}

// Instr is a single IL instruction: an opcode, zero or one typed result,
// operands, optional branch targets, optional EH labels, and a source loc.
type Instr struct {
	Op       Opcode
	Result   *Value // nil when Op's result type is Void
	ResultID uint32 // valid iff Result != nil; also Result.ID
	Operands []Value

	// Targets holds the branch destinations in the canonical order
	// (cbr: [then, else]; switch.i32: [case0, case1, ..., default]).
	Targets []BranchTarget

	// CaseValues holds the discrete i32 labels for switch.i32, one per
	// entry in Targets[:len(Targets)-1] (the final target is the default).
	CaseValues []int32

	// Labels holds text labels for EH markers (eh.push's handler label,
	// resume.label's target label).
	Labels []string

	Loc source.Loc
}

// IsTerminator reports whether this instruction ends its block.
func (i *Instr) IsTerminator() bool { return i.Op.IsTerminator() }

// BasicBlock is a labelled, parameterized, ordered instruction list.
type BasicBlock struct {
	Label      string
	Params     []BlockParam
	Instrs     []Instr
	Terminated bool
}

// Function owns an ordered list of basic blocks; Blocks[0] is the entry.
type Function struct {
	Name    string
	Params  []Type
	RetType Type
	Blocks  []*BasicBlock
}

// Entry returns the function's entry block, or nil if it has none yet.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// BlockByLabel looks up a block by its unique label.
func (f *Function) BlockByLabel(label string) *BasicBlock {
	for _, b := range f.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}

// Module owns externs, globals, and functions, each unique-named within its
// own category, plus the version directive that must open the text form.
type Module struct {
	Version Version
	Externs []Extern
	Globals []Global
	Funcs   []*Function
}

func (m *Module) ExternByName(name string) *Extern {
	for i := range m.Externs {
		if m.Externs[i].Name == name {
			return &m.Externs[i]
		}
	}
	return nil
}

func (m *Module) GlobalByName(name string) *Global {
	for i := range m.Globals {
		if m.Globals[i].Name == name {
			return &m.Globals[i]
		}
	}
	return nil
}

func (m *Module) FuncByName(name string) *Function {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}
