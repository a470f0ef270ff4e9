package il

import "fmt"

// ValueKind discriminates the operand forms a Value may take.
type ValueKind int

const (
	ConstIntKind ValueKind = iota
	ConstFloatKind
	ConstStrKind // reference to a module-level string global
	TempKind     // SSA temporary, defined exactly once
	GlobalKind   // reference to a module-level global's address
	BlockParamKind
)

// Value is a typed IL operand: a constant, an SSA temporary, a global
// reference, or a block parameter. Every Value carries exactly one Type.
type Value struct {
	Kind ValueKind
	Ty   Type

	IntVal   int64   // ConstIntKind
	FloatVal float64 // ConstFloatKind
	Sym      string  // ConstStrKind / GlobalKind: global name; TempKind/BlockParamKind: SSA name

	// ID is the parser/builder-assigned numeric SSA id for Temp/BlockParam
	// values; it is what dominance and liveness analyses key on.
	ID uint32
}

func ConstInt(ty Type, v int64) Value    { return Value{Kind: ConstIntKind, Ty: ty, IntVal: v} }
func ConstFloat(v float64) Value         { return Value{Kind: ConstFloatKind, Ty: F64, FloatVal: v} }
func ConstStrRef(global string) Value    { return Value{Kind: ConstStrKind, Ty: Str, Sym: global} }
func GlobalRef(ty Type, name string) Value {
	return Value{Kind: GlobalKind, Ty: ty, Sym: name}
}
func Temp(ty Type, name string, id uint32) Value {
	return Value{Kind: TempKind, Ty: ty, Sym: name, ID: id}
}
func BlockParam(ty Type, name string, id uint32) Value {
	return Value{Kind: BlockParamKind, Ty: ty, Sym: name, ID: id}
}

func (v Value) IsSSA() bool { return v.Kind == TempKind || v.Kind == BlockParamKind }

func (v Value) String() string {
	switch v.Kind {
	case ConstIntKind:
		return fmt.Sprintf("%d", v.IntVal)
	case ConstFloatKind:
		return formatFloat(v.FloatVal)
	case ConstStrKind:
		return "@" + v.Sym
	case GlobalKind:
		return "@" + v.Sym
	case TempKind, BlockParamKind:
		return "%" + v.Sym
	default:
		return "<?>"
	}
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
