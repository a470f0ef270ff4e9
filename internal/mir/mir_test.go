package mir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegStringGPR(t *testing.T) {
	assert.Equal(t, "x0", Reg{Class: GPR, Num: 0}.String())
	assert.Equal(t, "x30", Reg{Class: GPR, Num: 30}.String())
	assert.Equal(t, "sp", Reg{Class: GPR, Num: 31}.String())
}

func TestRegStringFPR(t *testing.T) {
	assert.Equal(t, "v0", Reg{Class: FPR, Num: 0}.String())
	assert.Equal(t, "v31", Reg{Class: FPR, Num: 31}.String())
}

func TestRegStringOutOfRangeFallsBack(t *testing.T) {
	assert.Equal(t, "x?", Reg{Class: GPR, Num: 99}.String())
	assert.Equal(t, "v?", Reg{Class: FPR, Num: 99}.String())
}

func TestCondString(t *testing.T) {
	assert.Equal(t, "eq", CondEQ.String())
	assert.Equal(t, "ne", CondNE.String())
	assert.Equal(t, "hs", CondHS.String())
}

func TestCondStringOutOfRangeFallsBackToAlways(t *testing.T) {
	assert.Equal(t, "al", Cond(99).String())
}

func TestRegEqualityIsByValue(t *testing.T) {
	a := Reg{Class: GPR, Num: 3}
	b := Reg{Class: GPR, Num: 3}
	c := Reg{Class: FPR, Num: 3}
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
