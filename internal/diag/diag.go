// Package diag is the wire-format layer over internal/source.Diag: it
// encodes a diagnostic for JSON output the way the teacher's
// internal/errors package encodes a Report, with a stable schema, phase
// tag, and deterministic marshaling via internal/diagschema.
package diag

import (
	"github.com/viperlang/ilc/internal/diagschema"
	"github.com/viperlang/ilc/internal/source"
)

// Phase names a pipeline stage, used both for display and as the Phase
// field of Encoded.
type Phase string

const (
	PhaseParse    Phase = "parse"
	PhaseVerify   Phase = "verify"
	PhaseLower    Phase = "lower"
	PhaseSemantic Phase = "semantic"
	PhaseTrap     Phase = "trap"
)

// Fix is an optional suggested remediation, mirroring the teacher's
// errors.Fix shape.
type Fix struct {
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}

// Encoded is the canonical structured diagnostic emitted by every stage of
// the toolchain (parser, verifier, lowerer, VM trap).
type Encoded struct {
	Schema  string `json:"schema"`
	SID     string `json:"sid,omitempty"`
	Phase   Phase  `json:"phase"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Fix     *Fix   `json:"fix,omitempty"`
	Context any    `json:"context,omitempty"`
	Loc     string `json:"loc,omitempty"`
}

// ToJSON renders e with deterministic (sorted) key order.
func (e Encoded) ToJSON() (string, error) {
	data, err := diagschema.MarshalDeterministic(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func encode(phase Phase, d source.Diag, fs *source.FileSet) Encoded {
	e := Encoded{
		Schema:  diagschema.DiagV1,
		Phase:   phase,
		Code:    d.Code,
		Message: d.Message,
	}
	if fs != nil && d.Range.Start.Valid() {
		e.Loc = fs.String(d.Range.Start)
	}
	return e
}

// NewParse encodes a diagnostic produced by internal/ilio's parser.
func NewParse(d source.Diag, fs *source.FileSet) Encoded { return encode(PhaseParse, d, fs) }

// NewVerify encodes a diagnostic produced by internal/ilverify.
func NewVerify(d source.Diag, fs *source.FileSet) Encoded { return encode(PhaseVerify, d, fs) }

// NewLower encodes a diagnostic produced by internal/lower or
// internal/lower/control.
func NewLower(d source.Diag, fs *source.FileSet) Encoded { return encode(PhaseLower, d, fs) }

// NewSemantic encodes a diagnostic that is neither a parse nor a structural
// verify failure (e.g. V3000 private-member-access checks).
func NewSemantic(d source.Diag, fs *source.FileSet) Encoded { return encode(PhaseSemantic, d, fs) }

// NewTrap encodes a VM trap as a diagnostic, for tooling that wants traps
// and compile-time diagnostics in one uniform stream.
func NewTrap(message string, funcName, block string) Encoded {
	return Encoded{
		Schema:  diagschema.TrapV1,
		Phase:   PhaseTrap,
		Code:    "trap.runtime",
		Message: message,
		Context: map[string]string{"func": funcName, "block": block},
	}
}

// EncodeAll converts a batch of source.Diag produced in phase into Encoded
// values, preserving order.
func EncodeAll(phase Phase, diags []source.Diag, fs *source.FileSet) []Encoded {
	out := make([]Encoded, len(diags))
	for i, d := range diags {
		out[i] = encode(phase, d, fs)
	}
	return out
}
