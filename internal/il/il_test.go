package il

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeStringAndFromNameRoundTrip(t *testing.T) {
	for _, ty := range []Type{Void, I1, I16, I32, I64, F64, Str, Ptr, Error, ResumeTok} {
		got, ok := TypeFromName(ty.String())
		assert.True(t, ok, "TypeFromName(%q) should succeed", ty.String())
		assert.Equal(t, ty, got)
	}
}

func TestTypeFromNameRejectsUnknown(t *testing.T) {
	_, ok := TypeFromName("not_a_type")
	assert.False(t, ok)
}

func TestTypeIsInt(t *testing.T) {
	for _, ty := range []Type{I1, I16, I32, I64} {
		assert.True(t, ty.IsInt(), "%v should be an int type", ty)
	}
	for _, ty := range []Type{Void, F64, Str, Ptr, Error, ResumeTok} {
		assert.False(t, ty.IsInt(), "%v should not be an int type", ty)
	}
}

func TestOpcodeStringAndFromNameRoundTrip(t *testing.T) {
	for _, op := range []Opcode{OpAdd, OpSub, OpICmpEq, OpCall, OpEHPush, OpResumeLabel} {
		got, ok := OpcodeFromName(op.String())
		assert.True(t, ok, "OpcodeFromName(%q) should succeed", op.String())
		assert.Equal(t, op, got)
	}
}

func TestOpcodeFromNameRejectsUnknown(t *testing.T) {
	_, ok := OpcodeFromName("not_an_opcode")
	assert.False(t, ok)
}

func TestOpcodeStringInvalidFallsBack(t *testing.T) {
	assert.Equal(t, "invalid", Opcode(-1).String())
}

func TestOpcodeIsTerminator(t *testing.T) {
	for _, op := range []Opcode{OpRet, OpBr, OpCBr, OpSwitchI32, OpTrap, OpResumeSame} {
		assert.True(t, op.IsTerminator(), "%v should be a terminator", op)
	}
	for _, op := range []Opcode{OpAdd, OpCall, OpLoad, OpStore} {
		assert.False(t, op.IsTerminator(), "%v should not be a terminator", op)
	}
}

func TestValueConstructorsSetKindAndType(t *testing.T) {
	assert.Equal(t, ConstIntKind, ConstInt(I64, 5).Kind)
	assert.Equal(t, I64, ConstInt(I64, 5).Ty)
	assert.Equal(t, int64(5), ConstInt(I64, 5).IntVal)

	f := ConstFloat(3.5)
	assert.Equal(t, ConstFloatKind, f.Kind)
	assert.Equal(t, F64, f.Ty)
	assert.Equal(t, 3.5, f.FloatVal)

	s := ConstStrRef("greeting")
	assert.Equal(t, ConstStrKind, s.Kind)
	assert.Equal(t, "greeting", s.Sym)

	g := GlobalRef(Ptr, "table")
	assert.Equal(t, GlobalKind, g.Kind)
	assert.Equal(t, Ptr, g.Ty)

	tmp := Temp(I32, "t0", 7)
	assert.True(t, tmp.IsSSA())
	assert.Equal(t, uint32(7), tmp.ID)

	bp := BlockParam(I32, "p0", 9)
	assert.True(t, bp.IsSSA())
	assert.False(t, ConstInt(I64, 1).IsSSA())
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "5", ConstInt(I64, 5).String())
	assert.Equal(t, "@greeting", ConstStrRef("greeting").String())
	assert.Equal(t, "@table", GlobalRef(Ptr, "table").String())
	assert.Equal(t, "%t0", Temp(I32, "t0", 1).String())
	assert.Equal(t, "%p0", BlockParam(I32, "p0", 2).String())
}
