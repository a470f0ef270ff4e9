package ilio

import (
	"strconv"

	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/source"
)

// Parser converts IL text into an in-memory Module. A Parser instance is
// single-use: the package-level Parse and ParseWithFileSet each construct
// one per document with New and run it to completion.
type Parser struct {
	lx    *lexer
	tok   token
	state *parserState

	// defs maps a visible SSA name to its materialised Value within the
	// function currently being parsed; cleared by resetFunctionScope.
	defs map[string]il.Value
}

// New creates a parser over text, attributing diagnostics to filename.
func New(text, filename string, fs *source.FileSet) *Parser {
	fileID := fs.Intern(filename)
	p := &Parser{lx: newLexer(text), state: newParserState(fs, fileID)}
	p.advance()
	return p
}

// Parse runs the parser to completion. On any error, diags is non-empty and
// the returned module should be discarded; diagnostics carry stable codes
// from the `parse.*` family.
func Parse(text, filename string) (*il.Module, []source.Diag) {
	fs := source.NewFileSet()
	mod, diags, _ := ParseWithFileSet(text, filename, fs)
	return mod, diags
}

// ParseWithFileSet behaves like Parse but attributes diagnostics to the
// caller's own FileSet, so a driver that wants to render "file:line:col"
// locations (the CLI, the REPL) can resolve them afterward.
func ParseWithFileSet(text, filename string, fs *source.FileSet) (*il.Module, []source.Diag, *Parser) {
	p := New(text, filename, fs)
	mod := p.parseModule()
	if source.HasErrors(p.state.diags) {
		return nil, p.state.diags, p
	}
	return mod, p.state.diags, p
}

func (p *Parser) loc() source.Loc {
	return source.Loc{FileID: p.state.fileID, Line: p.tok.line, Col: p.tok.col}
}

func (p *Parser) advance() token {
	prev := p.tok
	p.tok = p.lx.next()
	return prev
}

func (p *Parser) skipNewlines() {
	for p.tok.kind == tokNewline {
		p.advance()
	}
}

func (p *Parser) at(k tokenKind) bool { return p.tok.kind == k }

func (p *Parser) atIdent(name string) bool {
	return p.tok.kind == tokIdent && p.tok.text == name
}

func (p *Parser) expect(k tokenKind, code, what string) token {
	if p.tok.kind != k {
		p.state.errorf(p.loc(), code, "expected %s", what)
		return p.tok
	}
	return p.advance()
}

func (p *Parser) parseModule() *il.Module {
	mod := &il.Module{}
	p.skipNewlines()

	if !p.atIdent("il") {
		p.state.errorf(p.loc(), "parse.module.version_missing", "expected 'il' version directive")
		return mod
	}
	p.advance()
	mod.Version = p.parseVersion()
	p.state.sawVersion = true
	p.skipNewlines()

	for !p.at(tokEOF) {
		switch {
		case p.atIdent("extern"):
			if ext, ok := p.parseExtern(); ok {
				mod.Externs = append(mod.Externs, ext)
			}
		case p.atIdent("global"):
			if g, ok := p.parseGlobal(); ok {
				mod.Globals = append(mod.Globals, g)
			}
		case p.atIdent("func"):
			if fn, ok := p.parseFunc(); ok {
				mod.Funcs = append(mod.Funcs, fn)
			}
		default:
			p.state.errorf(p.loc(), "parse.module.unexpected", "unexpected token %q at module scope", p.tok.text)
			p.advance()
		}
		p.skipNewlines()
	}

	p.checkDuplicateNames(mod)
	return mod
}

func (p *Parser) checkDuplicateNames(mod *il.Module) {
	seen := map[string]bool{}
	for _, e := range mod.Externs {
		if seen["extern:"+e.Name] {
			p.state.errorf(source.Loc{}, "parse.module.duplicate_name", "duplicate extern name %q", e.Name)
		}
		seen["extern:"+e.Name] = true
	}
	seen = map[string]bool{}
	for _, g := range mod.Globals {
		if seen["global:"+g.Name] {
			p.state.errorf(source.Loc{}, "parse.module.duplicate_name", "duplicate global name %q", g.Name)
		}
		seen["global:"+g.Name] = true
	}
	seen = map[string]bool{}
	for _, f := range mod.Funcs {
		if seen["func:"+f.Name] {
			p.state.errorf(source.Loc{}, "parse.module.duplicate_name", "duplicate function name %q", f.Name)
		}
		seen["func:"+f.Name] = true
	}
}

// parseVersion reads the `<major>.<minor>[.<patch>]` directive. The lexer
// hands this back as a single tokInt ("1") or tokFloat ("0.2" / "0.2.0")
// token since '.' is a number-continuation character; split it here.
func (p *Parser) parseVersion() il.Version {
	if !p.at(tokInt) && !p.at(tokFloat) {
		p.state.errorf(p.loc(), "parse.module.version_malformed", "malformed version directive")
		return il.Version{}
	}
	text := p.advance().text
	parts := splitDots(text)
	v := il.Version{}
	if len(parts) > 0 {
		v.Major = atoiSafe(parts[0])
	}
	if len(parts) > 1 {
		v.Minor = atoiSafe(parts[1])
	}
	if len(parts) > 2 {
		v.Patch = atoiSafe(parts[2])
		v.HasPatch = true
	}
	p.skipToNewline()
	return v
}

func splitDots(s string) []string {
	var parts []string
	cur := ""
	for _, c := range s {
		if c == '.' {
			parts = append(parts, cur)
			cur = ""
			continue
		}
		cur += string(c)
	}
	parts = append(parts, cur)
	return parts
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func (p *Parser) parseExtern() (il.Extern, bool) {
	p.advance() // 'extern'
	if !p.at(tokGlobal) {
		p.state.errorf(p.loc(), "parse.extern.name", "expected @name after 'extern'")
		p.skipToNewline()
		return il.Extern{}, false
	}
	name := p.advance().text
	params := p.parseTypeParenList()
	ret := il.Void
	if p.at(tokArrow) {
		p.advance()
		ret = p.parseType()
	}
	p.skipToNewline()
	return il.Extern{Name: name, Params: params, RetType: ret}, true
}

func (p *Parser) parseGlobal() (il.Global, bool) {
	p.advance() // 'global'
	isConst := false
	if p.atIdent("const") {
		isConst = true
		p.advance()
	}
	ty := p.parseType()
	_ = ty // globals are textually str-typed payloads; ty is consumed for forward compatibility
	if !p.at(tokGlobal) {
		p.state.errorf(p.loc(), "parse.global.name", "expected @name in global declaration")
		p.skipToNewline()
		return il.Global{}, false
	}
	name := p.advance().text
	if !p.at(tokEquals) {
		p.state.errorf(p.loc(), "parse.global.equals", "expected '=' in global declaration")
		p.skipToNewline()
		return il.Global{}, false
	}
	p.advance()
	if !p.at(tokString) {
		p.state.errorf(p.loc(), "parse.global.string", "expected string literal in global declaration")
		p.skipToNewline()
		return il.Global{}, false
	}
	bytes := []byte(p.advance().text)
	p.skipToNewline()
	return il.Global{Name: name, Const: isConst, Bytes: bytes}, true
}

func (p *Parser) parseTypeParenList() []il.Type {
	var types []il.Type
	p.expect(tokLParen, "parse.type_list.lparen", "'('")
	for !p.at(tokRParen) && !p.at(tokEOF) {
		types = append(types, p.parseType())
		if p.at(tokComma) {
			p.advance()
			continue
		}
		break
	}
	p.expect(tokRParen, "parse.type_list.rparen", "')'")
	return types
}

func (p *Parser) parseType() il.Type {
	if !p.at(tokIdent) {
		p.state.errorf(p.loc(), "parse.type.expected", "expected type name")
		return il.Void
	}
	ty, ok := il.TypeFromName(p.tok.text)
	if !ok {
		p.state.errorf(p.loc(), "parse.type.unknown", "unknown type %q", p.tok.text)
		p.advance()
		return il.Void
	}
	p.advance()
	return ty
}

func (p *Parser) skipToNewline() {
	for !p.at(tokNewline) && !p.at(tokEOF) {
		p.advance()
	}
	if p.at(tokNewline) {
		p.advance()
	}
}

func parseSignedInt(text string) int64 {
	v, _ := strconv.ParseInt(text, 10, 64)
	return v
}

func parseFloatLiteral(text string) float64 {
	v, _ := strconv.ParseFloat(text, 64)
	return v
}
