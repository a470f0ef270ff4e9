package ilio

import "github.com/viperlang/ilc/internal/source"

// pendingBranch records a forward reference to a block label whose
// parameter count cannot be validated until the block itself is parsed.
// Mirrors ParserState::PendingBr from the original C++ parser state.
type pendingBranch struct {
	label string
	args  int
	loc   source.Loc
}

// parserState is the mutable context threaded through the recursive-descent
// parser, mirroring the original implementation's ParserState: current
// module/function/block, the SSA-name-to-id map, the running next-id
// counter, the most recent `.loc` directive, expected block parameter
// counts (for forward branches), and the list of unresolved forward
// branches collected for a final validation pass.
type parserState struct {
	fileID uint32
	fs     *source.FileSet

	tempIDs         map[string]uint32
	nextTemp        uint32
	curLoc          source.Loc
	blockParamCount map[string]int
	pendingBrs      []pendingBranch
	sawVersion      bool

	diags []source.Diag
}

func newParserState(fs *source.FileSet, fileID uint32) *parserState {
	return &parserState{
		fileID:          fileID,
		fs:              fs,
		tempIDs:         make(map[string]uint32),
		blockParamCount: make(map[string]int),
	}
}

func (ps *parserState) resetFunctionScope() {
	ps.tempIDs = make(map[string]uint32)
	ps.nextTemp = 0
	ps.blockParamCount = make(map[string]int)
	ps.pendingBrs = nil
}

func (ps *parserState) idFor(name string) uint32 {
	if id, ok := ps.tempIDs[name]; ok {
		return id
	}
	ps.nextTemp++
	id := ps.nextTemp
	ps.tempIDs[name] = id
	return id
}

func (ps *parserState) errorf(loc source.Loc, code, format string, args ...any) {
	ps.diags = append(ps.diags, source.Errorf(code, source.Range{Start: loc, End: loc}, format, args...))
}
