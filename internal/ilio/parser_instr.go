package ilio

import (
	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/source"
)

// parseInstr parses a single instruction line and emits it into blk via the
// builder. Malformed instructions are reported and skipped to the next
// newline so that later lines can still be checked (parse errors do not
// abort the whole parse).
func (p *Parser) parseInstr(b *il.Builder, blk *il.BasicBlock, fn *il.Function) {
	loc := p.state.curLoc
	if loc.FileID == 0 {
		loc = p.loc()
	}

	var resultName string
	hasResult := false
	if p.at(tokTemp) {
		savedLx := *p.lx
		savedTok := p.tok
		name := p.advance().text
		if p.at(tokEquals) {
			p.advance()
			resultName = name
			hasResult = true
		} else {
			*p.lx = savedLx
			p.tok = savedTok
		}
	}

	if !p.at(tokIdent) {
		p.state.errorf(loc, "parse.instr.opcode_expected", "expected an opcode")
		p.skipToNewline()
		return
	}
	mnemonic := p.advance().text
	op, ok := il.OpcodeFromName(mnemonic)
	if !ok {
		p.state.errorf(loc, "parse.instr.unknown_opcode", "unknown opcode %q", mnemonic)
		p.skipToNewline()
		return
	}

	instr := il.Instr{Op: op, Loc: p.state.curLoc}

	switch op {
	case il.OpAdd, il.OpSub, il.OpMul, il.OpSDiv, il.OpSDivChk0, il.OpUDiv, il.OpUDivChk0,
		il.OpSRem, il.OpURem, il.OpAnd, il.OpOr, il.OpXor, il.OpShl, il.OpLShr, il.OpAShr, il.OpIAddOvf:
		ty := p.parseType()
		lhs := p.parseOperand(ty)
		p.expectComma()
		rhs := p.parseOperand(ty)
		instr.Operands = []il.Value{lhs, rhs}
		p.setResult(&instr, ty, resultName, hasResult, b)

	case il.OpICmpEq, il.OpICmpNe, il.OpSCmpLT, il.OpSCmpLE, il.OpSCmpGT, il.OpSCmpGE,
		il.OpUCmpLT, il.OpUCmpLE, il.OpUCmpGT, il.OpUCmpGE,
		il.OpFCmpEq, il.OpFCmpNe, il.OpFCmpLT, il.OpFCmpLE, il.OpFCmpGT, il.OpFCmpGE:
		ty := p.parseType()
		lhs := p.parseOperand(ty)
		p.expectComma()
		rhs := p.parseOperand(ty)
		instr.Operands = []il.Value{lhs, rhs}
		p.setResult(&instr, il.I1, resultName, hasResult, b)

	case il.OpSIToFP, il.OpFPToSI, il.OpTrunc1, il.OpZExt1, il.OpSExt, il.OpTrunc:
		ty := p.parseType()
		src := p.parseOperand(il.Void)
		instr.Operands = []il.Value{src}
		p.setResult(&instr, ty, resultName, hasResult, b)

	case il.OpAlloca:
		n := p.parseOperand(il.I64)
		instr.Operands = []il.Value{n}
		p.setResult(&instr, il.Ptr, resultName, hasResult, b)

	case il.OpLoad:
		ty := p.parseType()
		p.expectComma()
		ptr := p.parseOperand(il.Ptr)
		instr.Operands = []il.Value{ptr}
		p.setResult(&instr, ty, resultName, hasResult, b)

	case il.OpStore:
		ty := p.parseType()
		p.expectComma()
		val := p.parseOperand(ty)
		p.expectComma()
		ptr := p.parseOperand(il.Ptr)
		instr.Operands = []il.Value{val, ptr}
		b.Emit(instr)
		p.skipToNewline()
		return

	case il.OpConstStr:
		if !p.at(tokGlobal) {
			p.state.errorf(p.loc(), "parse.instr.const_str_global", "expected @global in const_str")
		} else {
			instr.Operands = []il.Value{il.ConstStrRef(p.advance().text)}
		}
		p.setResult(&instr, il.Str, resultName, hasResult, b)

	case il.OpConstInt:
		ty := p.parseType()
		v := p.parseOperand(ty)
		instr.Operands = []il.Value{v}
		p.setResult(&instr, ty, resultName, hasResult, b)

	case il.OpGlobalAddr:
		if !p.at(tokGlobal) {
			p.state.errorf(p.loc(), "parse.instr.global_addr_name", "expected @global in global_addr")
		} else {
			instr.Operands = []il.Value{il.GlobalRef(il.Ptr, p.advance().text)}
		}
		p.setResult(&instr, il.Ptr, resultName, hasResult, b)

	case il.OpBr:
		tgt := p.parseBranchTarget()
		instr.Targets = []il.BranchTarget{tgt}
		b.Emit(instr)
		p.recordPendingBranch(tgt, loc)
		p.skipToNewline()
		return

	case il.OpCBr:
		cond := p.parseOperand(il.I1)
		p.expectComma()
		thenT := p.parseBranchTarget()
		p.expectComma()
		elseT := p.parseBranchTarget()
		instr.Operands = []il.Value{cond}
		instr.Targets = []il.BranchTarget{thenT, elseT}
		b.Emit(instr)
		p.recordPendingBranch(thenT, loc)
		p.recordPendingBranch(elseT, loc)
		p.skipToNewline()
		return

	case il.OpSwitchI32:
		sel := p.parseOperand(il.I32)
		instr.Operands = []il.Value{sel}
		for p.at(tokComma) {
			p.advance()
			if p.atIdent("default") {
				p.advance()
				p.expectArrow()
				tgt := p.parseBranchTarget()
				instr.Targets = append(instr.Targets, tgt)
				p.recordPendingBranch(tgt, loc)
				break
			}
			var caseVal int32
			if p.at(tokInt) {
				caseVal = int32(parseSignedInt(p.advance().text))
			}
			p.expectArrow()
			tgt := p.parseBranchTarget()
			instr.CaseValues = append(instr.CaseValues, caseVal)
			instr.Targets = append(instr.Targets, tgt)
			p.recordPendingBranch(tgt, loc)
		}
		b.Emit(instr)
		p.skipToNewline()
		return

	case il.OpRet:
		if !p.at(tokNewline) && !p.at(tokEOF) && !p.at(tokRBrace) {
			v := p.parseOperand(fn.RetType)
			instr.Operands = []il.Value{v}
		}
		b.Emit(instr)
		p.skipToNewline()
		return

	case il.OpCall:
		if !p.at(tokGlobal) {
			p.state.errorf(p.loc(), "parse.instr.call_target", "expected @function in call")
			p.skipToNewline()
			return
		}
		callee := p.advance().text
		instr.Operands = append([]il.Value{il.GlobalRef(il.Ptr, callee)}, p.parseArgList()...)
		p.setResult(&instr, p.resultTypeOfCallee(callee), resultName, hasResult, b)

	case il.OpCallIndirect:
		fnVal := p.parseOperand(il.Ptr)
		var args []il.Value
		if p.at(tokLParen) {
			args = p.parseArgList()
		}
		instr.Operands = append([]il.Value{fnVal}, args...)
		ty := il.I64
		if hasResult {
			ty = il.I64 // no signature to resolve against; the verifier does not check call.indirect
		}
		p.setResult(&instr, ty, resultName, hasResult, b)

	case il.OpEHPush:
		if !p.at(tokLabelRef) {
			p.state.errorf(p.loc(), "parse.instr.eh_push_label", "expected ^handler in eh.push")
		} else {
			instr.Labels = []string{p.advance().text}
		}
		b.Emit(instr)
		p.skipToNewline()
		return

	case il.OpEHPop, il.OpEHEntry, il.OpTrap:
		b.Emit(instr)
		p.skipToNewline()
		return

	case il.OpTrapFromErr:
		ty := p.parseType()
		code := p.parseOperand(ty)
		instr.Operands = []il.Value{code}
		b.Emit(instr)
		p.skipToNewline()
		return

	case il.OpResumeSame, il.OpResumeNext:
		tok := p.parseOperand(il.ResumeTok)
		instr.Operands = []il.Value{tok}
		b.Emit(instr)
		p.skipToNewline()
		return

	case il.OpResumeLabel:
		tok := p.parseOperand(il.ResumeTok)
		p.expectComma()
		if !p.at(tokLabelRef) {
			p.state.errorf(p.loc(), "parse.instr.resume_label_target", "expected ^label in resume.label")
		} else {
			instr.Labels = []string{p.advance().text}
		}
		instr.Operands = []il.Value{tok}
		b.Emit(instr)
		p.skipToNewline()
		return

	default:
		p.state.errorf(loc, "parse.instr.unhandled_opcode", "opcode %q not supported by the parser", mnemonic)
		p.skipToNewline()
		return
	}

	p.skipToNewline()
}

func (p *Parser) resultTypeOfCallee(name string) il.Type {
	// The callee's return type is resolved definitively by the verifier
	// (which has the whole module); here we default to I64 for scalar
	// calls and refine nothing further, matching the parser's "partial
	// constructs are discarded on failure, otherwise best-effort" policy.
	return il.I64
}

func (p *Parser) setResult(instr *il.Instr, ty il.Type, name string, has bool, b *il.Builder) {
	if !has {
		b.Emit(*instr)
		return
	}
	id := p.state.idFor(name)
	v := il.Temp(ty, name, id)
	instr.Result = &v
	instr.ResultID = id
	b.Emit(*instr)
	p.defs[name] = v
}

func (p *Parser) expectComma() {
	if p.at(tokComma) {
		p.advance()
		return
	}
	p.state.errorf(p.loc(), "parse.instr.comma_expected", "expected ','")
}

func (p *Parser) expectArrow() {
	if p.at(tokArrow) {
		p.advance()
		return
	}
	p.state.errorf(p.loc(), "parse.instr.arrow_expected", "expected '->'")
}

func (p *Parser) parseArgList() []il.Value {
	var args []il.Value
	p.expect(tokLParen, "parse.call.lparen", "'('")
	for !p.at(tokRParen) && !p.at(tokEOF) {
		args = append(args, p.parseOperand(il.Void))
		if p.at(tokComma) {
			p.advance()
			continue
		}
		break
	}
	p.expect(tokRParen, "parse.call.rparen", "')'")
	return args
}

func (p *Parser) parseBranchTarget() il.BranchTarget {
	if !p.at(tokLabelRef) {
		p.state.errorf(p.loc(), "parse.branch.target", "expected ^label")
		return il.BranchTarget{}
	}
	label := p.advance().text
	var args []il.Value
	if p.at(tokLParen) {
		args = p.parseArgList()
	}
	return il.BranchTarget{Label: label, Args: args}
}

func (p *Parser) recordPendingBranch(tgt il.BranchTarget, loc source.Loc) {
	p.state.pendingBrs = append(p.state.pendingBrs, pendingBranch{
		label: tgt.Label,
		args:  len(tgt.Args),
		loc:   loc,
	})
}

// parseOperand resolves one operand: a literal, or a reference to a known
// SSA/global name. hintTy is used to type bare integer/float literals when
// their own type isn't otherwise discoverable.
func (p *Parser) parseOperand(hintTy il.Type) il.Value {
	switch p.tok.kind {
	case tokInt:
		v := parseSignedInt(p.advance().text)
		ty := hintTy
		if ty == il.Void {
			ty = il.I64
		}
		return il.ConstInt(ty, v)
	case tokFloat:
		v := parseFloatLiteral(p.advance().text)
		return il.ConstFloat(v)
	case tokString:
		return il.ConstStrRef(p.advance().text)
	case tokTemp:
		name := p.advance().text
		if v, ok := p.defs[name]; ok {
			return v
		}
		v := il.Temp(hintTy, name, p.state.idFor(name))
		return v
	case tokGlobal:
		name := p.advance().text
		ty := hintTy
		if ty == il.Void {
			ty = il.Ptr
		}
		return il.GlobalRef(ty, name)
	default:
		p.state.errorf(p.loc(), "parse.operand.expected", "expected an operand")
		return il.Value{}
	}
}
