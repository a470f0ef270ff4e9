package ilio

import (
	"fmt"

	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/source"
)

func (p *Parser) parseFunc() (*il.Function, bool) {
	p.advance() // 'func'
	if !p.at(tokGlobal) {
		p.state.errorf(p.loc(), "parse.func.name", "expected @name after 'func'")
		p.skipToNewline()
		return nil, false
	}
	name := p.advance().text
	params := p.parseTypeParenList()
	ret := il.Void
	if p.at(tokArrow) {
		p.advance()
		ret = p.parseType()
	}
	p.expect(tokLBrace, "parse.func.lbrace", "'{'")
	p.skipNewlines()

	fn := &il.Function{Name: name, Params: params, RetType: ret}
	p.state.resetFunctionScope()
	p.defs = map[string]il.Value{}

	b := il.NewBuilder(fn)
	for !p.at(tokRBrace) && !p.at(tokEOF) {
		label, blockParams, ok := p.tryParseBlockHeader()
		if !ok {
			p.state.errorf(p.loc(), "parse.func.block_expected", "expected a block label")
			p.skipToNewline()
			p.skipNewlines()
			continue
		}
		blk := b.NewBlock(label, blockParams...)
		p.state.blockParamCount[label] = len(blockParams)
		for _, bp := range blockParams {
			p.defs[bp.Name] = il.BlockParam(bp.Ty, bp.Name, bp.ID)
		}
		p.skipNewlines()
		p.parseBlockBody(b, blk, fn)
	}
	p.expect(tokRBrace, "parse.func.rbrace", "'}'")

	p.resolvePendingBranches(fn)
	return fn, true
}

// tryParseBlockHeader attempts to parse `label[(%p: Ty, ...)]:` at the
// current position. On success it returns the label and parsed params and
// leaves the cursor just past the newline that follows the ':'. On
// failure it restores the lexer/token state exactly.
func (p *Parser) tryParseBlockHeader() (string, []il.BlockParam, bool) {
	if !p.at(tokIdent) {
		return "", nil, false
	}
	savedLx := *p.lx
	savedTok := p.tok

	label := p.advance().text
	var params []il.BlockParam
	if p.at(tokLParen) {
		p.advance()
		for !p.at(tokRParen) && !p.at(tokEOF) {
			if !p.at(tokTemp) {
				*p.lx = savedLx
				p.tok = savedTok
				return "", nil, false
			}
			pname := p.advance().text
			if !p.at(tokColon) {
				*p.lx = savedLx
				p.tok = savedTok
				return "", nil, false
			}
			p.advance()
			ty := p.parseType()
			params = append(params, il.BlockParam{Name: pname, Ty: ty, ID: p.state.idFor(pname)})
			if p.at(tokComma) {
				p.advance()
				continue
			}
			break
		}
		if !p.at(tokRParen) {
			*p.lx = savedLx
			p.tok = savedTok
			return "", nil, false
		}
		p.advance()
	}
	if !p.at(tokColon) {
		*p.lx = savedLx
		p.tok = savedTok
		return "", nil, false
	}
	p.advance()
	return label, params, true
}

func (p *Parser) parseBlockBody(b *il.Builder, blk *il.BasicBlock, fn *il.Function) {
	for {
		p.skipNewlines()
		if p.at(tokRBrace) || p.at(tokEOF) {
			return
		}
		if _, _, isHeader := p.peekIsBlockHeader(); isHeader {
			return
		}
		if p.at(tokDot) {
			p.parseLocDirective()
			continue
		}
		p.parseInstr(b, blk, fn)
	}
}

// peekIsBlockHeader looks ahead without consuming to decide whether the
// parser has reached the next block rather than another instruction.
func (p *Parser) peekIsBlockHeader() (string, []il.BlockParam, bool) {
	savedLx := *p.lx
	savedTok := p.tok
	label, params, ok := p.tryParseBlockHeader()
	*p.lx = savedLx
	p.tok = savedTok
	return label, params, ok
}

func (p *Parser) parseLocDirective() {
	p.advance() // '.'
	if !p.atIdent("loc") {
		p.state.errorf(p.loc(), "parse.loc.keyword", "expected 'loc' after '.'")
		p.skipToNewline()
		return
	}
	p.advance()
	// file:line:col, lexed as ident(file) ':' int ':' int — but our lexer
	// treats bare words as idents and ':' as its own token.
	file := ""
	if p.at(tokIdent) {
		file = p.advance().text
	}
	line, col := 0, 0
	if p.at(tokColon) {
		p.advance()
		if p.at(tokInt) {
			line = int(parseSignedInt(p.advance().text))
		}
	}
	if p.at(tokColon) {
		p.advance()
		if p.at(tokInt) {
			col = int(parseSignedInt(p.advance().text))
		}
	}
	fileID := p.state.fileID
	if file != "" {
		fileID = p.state.fs.Intern(file)
	}
	p.state.curLoc = source.Loc{FileID: fileID, Line: uint32(line), Col: uint32(col)}
	p.skipToNewline()
}

func (p *Parser) resolvePendingBranches(fn *il.Function) {
	for _, pb := range p.state.pendingBrs {
		expected, ok := p.state.blockParamCount[pb.label]
		if !ok {
			p.state.errorf(pb.loc, "parse.branch.unknown_label", "branch to undefined label %q", pb.label)
			continue
		}
		if expected != pb.args {
			p.state.errorf(pb.loc, "parse.branch.arity", fmt.Sprintf("branch to %%%s supplies %d argument(s), block declares %d parameter(s)", pb.label, pb.args, expected))
		}
	}
}
