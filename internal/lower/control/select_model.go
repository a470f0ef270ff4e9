// Package control implements frontend-agnostic control-flow lowering:
// SELECT CASE / match dispatch, and the structured-loop and try/catch
// skeletons every frontend needs built from IL blocks and branches.
package control

import "github.com/viperlang/ilc/internal/source"

// RelOp is a SELECT CASE relational-comparison arm's operator
// (e.g. `CASE IS > 10`).
type RelOp int

const (
	RelLT RelOp = iota
	RelLE
	RelEQ
	RelGE
	RelGT
)

// NumericLabel is a single exact-value numeric CASE label.
type NumericLabel struct {
	Value    int32
	ArmIndex int
	Loc      source.Loc
}

// NumericRange is a `CASE lo TO hi` numeric arm.
type NumericRange struct {
	Lo, Hi   int32
	ArmIndex int
	Loc      source.Loc
}

// NumericRelation is a `CASE IS <op> rhs` numeric arm.
type NumericRelation struct {
	Op       RelOp
	RHS      int32
	ArmIndex int
	Loc      source.Loc
}

// StringLabel is a single exact-value string CASE label.
type StringLabel struct {
	Value    string
	ArmIndex int
	Loc      source.Loc
}

// SelectModel is the normalized, dispatch-ready shape of a SELECT CASE
// statement, independent of whatever AST node the frontend used to build
// it. Mirrors the original implementation's SelectModel one field at a
// time: numeric exact labels, numeric ranges, numeric relations, string
// labels, and whether a CASE ELSE arm is present.
type SelectModel struct {
	NumericLabels     []NumericLabel
	NumericRanges     []NumericRange
	NumericRelations  []NumericRelation
	StringLabels      []StringLabel
	HasCaseElse       bool
	HasNumericRanges  bool
	ElseArmIndex      int
	ArmCount          int
}

// DiagSelectCaseLabelRange is emitted when a numeric CASE label's literal
// value does not fit in a 32-bit signed integer (the switch.i32 dispatch's
// selector width). The raw out-of-range value is carried in the message
// text so a diagnostic consumer never has to re-parse the source to learn
// what was rejected.
const DiagSelectCaseLabelRange = "select.case.label_range"

// NarrowToI32 validates that value fits in an int32, returning it narrowed
// on success. On failure it returns a diagnostic that names the original
// 64-bit value verbatim, matching the original implementation's
// narrowToI32.
func NarrowToI32(value int64, loc source.Loc) (int32, *source.Diag) {
	if value < -2147483648 || value > 2147483647 {
		d := source.Errorf(DiagSelectCaseLabelRange, source.Range{Start: loc, End: loc},
			"CASE label %d is out of range for a 32-bit selector", value)
		return 0, &d
	}
	return int32(value), nil
}

// SelectModelBuilder accumulates CASE arms into a SelectModel, narrowing
// and diagnosing as it goes so callers only need to feed it raw parsed arm
// data in source order.
type SelectModelBuilder struct {
	model SelectModel
	diags []source.Diag
}

// NewSelectModelBuilder returns an empty builder; ArmCount grows as arms are
// added.
func NewSelectModelBuilder() *SelectModelBuilder {
	return &SelectModelBuilder{}
}

// AddNumericLabel records an exact-value numeric CASE label, narrowing its
// raw value to int32 and emitting DiagSelectCaseLabelRange on overflow.
func (b *SelectModelBuilder) AddNumericLabel(raw int64, armIndex int, loc source.Loc) {
	v, diag := NarrowToI32(raw, loc)
	if diag != nil {
		b.diags = append(b.diags, *diag)
		return
	}
	b.model.NumericLabels = append(b.model.NumericLabels, NumericLabel{Value: v, ArmIndex: armIndex, Loc: loc})
	b.model.ArmCount = max(b.model.ArmCount, armIndex+1)
}

// AddNumericRange records a `CASE lo TO hi` arm.
func (b *SelectModelBuilder) AddNumericRange(loRaw, hiRaw int64, armIndex int, loc source.Loc) {
	lo, loDiag := NarrowToI32(loRaw, loc)
	hi, hiDiag := NarrowToI32(hiRaw, loc)
	if loDiag != nil {
		b.diags = append(b.diags, *loDiag)
	}
	if hiDiag != nil {
		b.diags = append(b.diags, *hiDiag)
	}
	if loDiag != nil || hiDiag != nil {
		return
	}
	b.model.NumericRanges = append(b.model.NumericRanges, NumericRange{Lo: lo, Hi: hi, ArmIndex: armIndex, Loc: loc})
	b.model.HasNumericRanges = true
	b.model.ArmCount = max(b.model.ArmCount, armIndex+1)
}

// AddNumericRelation records a `CASE IS <op> rhs` arm.
func (b *SelectModelBuilder) AddNumericRelation(op RelOp, rhsRaw int64, armIndex int, loc source.Loc) {
	rhs, diag := NarrowToI32(rhsRaw, loc)
	if diag != nil {
		b.diags = append(b.diags, *diag)
		return
	}
	b.model.NumericRelations = append(b.model.NumericRelations, NumericRelation{Op: op, RHS: rhs, ArmIndex: armIndex, Loc: loc})
	b.model.ArmCount = max(b.model.ArmCount, armIndex+1)
}

// AddStringLabel records an exact-value string CASE label.
func (b *SelectModelBuilder) AddStringLabel(value string, armIndex int, loc source.Loc) {
	b.model.StringLabels = append(b.model.StringLabels, StringLabel{Value: value, ArmIndex: armIndex, Loc: loc})
	b.model.ArmCount = max(b.model.ArmCount, armIndex+1)
}

// SetCaseElse marks the statement as having a CASE ELSE arm at armIndex.
func (b *SelectModelBuilder) SetCaseElse(armIndex int) {
	b.model.HasCaseElse = true
	b.model.ElseArmIndex = armIndex
	b.model.ArmCount = max(b.model.ArmCount, armIndex+1)
}

// Build finalizes the model and returns any diagnostics accumulated along
// the way (out-of-range labels are dropped from the model, not fatal to
// building it).
func (b *SelectModelBuilder) Build() (SelectModel, []source.Diag) {
	return b.model, b.diags
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
