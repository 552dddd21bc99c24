package frontend

import (
	"fmt"

	"github.com/sogcc/sog/pkg/ir"
	"github.com/sogcc/sog/pkg/mode"
	"github.com/sogcc/sog/pkg/op"
	"github.com/sogcc/sog/pkg/tarval"
)

// memVarID is the Builder variable ID reserved for the function's
// threaded memory side-effect edge; every other local/parameter gets
// an ID starting from 1.
const memVarID = 0

// Program is every function parsed out of one source unit, each
// already a complete, sealed *ir.Graph ready for pkg/passmgr.
type Program struct {
	Functions map[string]*ir.Graph
	Order     []string
}

// signature records a declared function's arity for call-site
// checking during the single parsing pass (forward references and
// mutual recursion both work since signatures are collected before
// any body is parsed).
type signature struct {
	params []string
}

// Parse builds a Program from source text. intMode is the integer
// mode every local variable, literal, and arithmetic op uses — the
// language has exactly one scalar type.
func Parse(src string, intMode *mode.Mode) (*Program, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, intMode: intMode, sigs: map[string]signature{}}
	if err := p.collectSignatures(); err != nil {
		return nil, err
	}
	prog := &Program{Functions: map[string]*ir.Graph{}}
	p.pos = 0
	for p.peek().Kind != TokEOF {
		name, g, err := p.parseFuncDecl()
		if err != nil {
			return nil, err
		}
		prog.Functions[name] = g
		prog.Order = append(prog.Order, name)
	}
	return prog, nil
}

func tokenize(src string) ([]Token, error) {
	lex := NewLexer(src)
	var toks []Token
	for {
		t, err := lex.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.Kind == TokEOF {
			return toks, nil
		}
	}
}

type parser struct {
	toks    []Token
	pos     int
	intMode *mode.Mode
	sigs    map[string]signature

	g       *ir.Graph
	b       *ir.Builder
	vars    map[string]int
	nextVar int
	cur     *ir.Node // current block being appended to
}

func (p *parser) peek() Token  { return p.toks[p.pos] }
func (p *parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k TokenKind, what string) (Token, error) {
	if p.peek().Kind != k {
		return Token{}, fmt.Errorf("frontend: expected %s at offset %d, got %q", what, p.peek().Pos, p.peek().Text)
	}
	return p.advance(), nil
}

// collectSignatures does a lightweight pre-pass recording every
// function's parameter list so call sites anywhere in the source
// (including before the callee's own declaration) resolve correctly.
func (p *parser) collectSignatures() error {
	depth := 0
	for i := 0; i < len(p.toks); i++ {
		t := p.toks[i]
		switch t.Kind {
		case TokLBrace:
			depth++
		case TokRBrace:
			depth--
		case TokFunc:
			if depth != 0 {
				continue
			}
			if i+1 >= len(p.toks) || p.toks[i+1].Kind != TokIdent {
				return fmt.Errorf("frontend: expected function name after 'func' at offset %d", t.Pos)
			}
			name := p.toks[i+1].Text
			var params []string
			j := i + 2
			if j < len(p.toks) && p.toks[j].Kind == TokLParen {
				j++
				for j < len(p.toks) && p.toks[j].Kind != TokRParen {
					if p.toks[j].Kind == TokIdent {
						params = append(params, p.toks[j].Text)
					}
					j++
				}
			}
			p.sigs[name] = signature{params: params}
		}
	}
	return nil
}

func (p *parser) parseFuncDecl() (string, *ir.Graph, error) {
	if _, err := p.expect(TokFunc, "'func'"); err != nil {
		return "", nil, err
	}
	nameTok, err := p.expect(TokIdent, "function name")
	if err != nil {
		return "", nil, err
	}
	name := nameTok.Text

	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return "", nil, err
	}
	var params []string
	for p.peek().Kind != TokRParen {
		t, err := p.expect(TokIdent, "parameter name")
		if err != nil {
			return "", nil, err
		}
		params = append(params, t.Text)
		if p.peek().Kind == TokComma {
			p.advance()
		}
	}
	if _, err := p.expect(TokRParen, "')'"); err != nil {
		return "", nil, err
	}

	p.g = ir.NewGraph(name)
	p.b = ir.NewBuilder(p.g)
	p.vars = map[string]int{}
	p.nextVar = 1

	entryJmp := p.g.NewNode(op.Jmp, mode.X, p.g.StartBlock)
	entry := p.g.NewBlock(entryJmp)
	p.b.SealBlock(entry)
	p.cur = entry

	initialMem := p.g.NewProj(p.g.Start, mode.M, 0)
	p.b.WriteVariable(entry, memVarID, initialMem)
	for i, paramName := range params {
		id := p.declareVar(paramName)
		argProj := p.g.NewProj(p.g.Start, p.intMode, i+1)
		p.b.WriteVariable(entry, id, argProj)
	}

	if _, err := p.expect(TokLBrace, "'{'"); err != nil {
		return "", nil, err
	}
	for p.peek().Kind != TokRBrace {
		if err := p.parseStmt(); err != nil {
			return "", nil, err
		}
	}
	if _, err := p.expect(TokRBrace, "'}'"); err != nil {
		return "", nil, err
	}

	// A function falling off its closing brace without an explicit
	// return yields 0, the same default-zero-value convention the
	// language's single scalar type makes unambiguous.
	if p.cur != nil {
		p.emitReturn(p.g.NewConst(tarval.FromInt64(p.intMode, 0)))
	}
	p.b.SealBlock(p.g.EndBlock)

	return name, p.g, nil
}

func (p *parser) declareVar(name string) int {
	id := p.nextVar
	p.nextVar++
	p.vars[name] = id
	return id
}

func (p *parser) emitReturn(value *ir.Node) {
	ret := p.g.NewDynamicNode(op.Return, mode.X, p.cur)
	ret.AppendIn(p.b.ReadVariable(p.cur, memVarID, mode.M))
	ret.AppendIn(value)
	p.g.EndBlock.AppendIn(ret)
	p.cur = nil // block is terminated; no further statements attach to it
}

func (p *parser) parseStmt() error {
	if p.cur == nil {
		// Dead code after a return; skip it rather than attach
		// further nodes to an already-terminated block.
		return p.skipStmt()
	}
	switch p.peek().Kind {
	case TokIf:
		return p.parseIf()
	case TokWhile:
		return p.parseWhile()
	case TokReturn:
		return p.parseReturn()
	case TokLBrace:
		return p.parseBlockStmts()
	case TokIdent:
		if p.toks[p.pos+1].Kind == TokAssign {
			return p.parseAssign()
		}
		_, err := p.parseExpr()
		if err != nil {
			return err
		}
		_, err = p.expect(TokSemi, "';'")
		return err
	default:
		return fmt.Errorf("frontend: unexpected token %q at offset %d", p.peek().Text, p.peek().Pos)
	}
}

// skipStmt discards one statement's tokens without building IR for
// it, used only for unreachable code following a return.
func (p *parser) skipStmt() error {
	depth := 0
	for {
		switch p.peek().Kind {
		case TokEOF:
			return fmt.Errorf("frontend: unexpected end of input")
		case TokLBrace:
			depth++
			p.advance()
		case TokRBrace:
			if depth == 0 {
				return nil
			}
			depth--
			p.advance()
		case TokSemi:
			p.advance()
			if depth == 0 {
				return nil
			}
		default:
			p.advance()
		}
	}
}

func (p *parser) parseBlockStmts() error {
	if _, err := p.expect(TokLBrace, "'{'"); err != nil {
		return err
	}
	for p.peek().Kind != TokRBrace {
		if err := p.parseStmt(); err != nil {
			return err
		}
	}
	_, err := p.expect(TokRBrace, "'}'")
	return err
}

func (p *parser) parseAssign() error {
	nameTok, _ := p.expect(TokIdent, "identifier")
	if _, err := p.expect(TokAssign, "'='"); err != nil {
		return err
	}
	value, err := p.parseExpr()
	if err != nil {
		return err
	}
	if _, err := p.expect(TokSemi, "';'"); err != nil {
		return err
	}
	id, ok := p.vars[nameTok.Text]
	if !ok {
		id = p.declareVar(nameTok.Text)
	}
	p.b.WriteVariable(p.cur, id, value)
	return nil
}

func (p *parser) parseReturn() error {
	p.advance() // 'return'
	var value *ir.Node
	if p.peek().Kind == TokSemi {
		value = p.g.NewConst(tarval.FromInt64(p.intMode, 0))
	} else {
		v, err := p.parseExpr()
		if err != nil {
			return err
		}
		value = v
	}
	if _, err := p.expect(TokSemi, "';'"); err != nil {
		return err
	}
	p.emitReturn(value)
	return nil
}

// parseIf lowers to Cond/Proj/merge-block, sealing the then/else
// blocks immediately (exactly one predecessor each) and the merge
// block once both arms have finished.
func (p *parser) parseIf() error {
	p.advance() // 'if'
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return err
	}
	cond, err := p.parseCondition()
	if err != nil {
		return err
	}
	if _, err := p.expect(TokRParen, "')'"); err != nil {
		return err
	}

	condBlock := p.cur
	condNode := p.g.NewNode(op.Cond, mode.T, condBlock, cond)
	trueProj := p.g.NewProj(condNode, mode.X, 1)
	falseProj := p.g.NewProj(condNode, mode.X, 0)

	thenBlock := p.g.NewBlock(trueProj)
	p.b.SealBlock(thenBlock)
	p.cur = thenBlock
	if err := p.parseBlockStmts(); err != nil {
		return err
	}
	thenEnd := p.cur

	var elseEnd *ir.Node
	elseBlock := p.g.NewBlock(falseProj)
	p.b.SealBlock(elseBlock)
	if p.peek().Kind == TokElse {
		p.advance()
		p.cur = elseBlock
		if err := p.parseBlockStmts(); err != nil {
			return err
		}
		elseEnd = p.cur
	} else {
		elseEnd = elseBlock
	}

	var preds []*ir.Node
	if thenEnd != nil {
		preds = append(preds, p.g.NewNode(op.Jmp, mode.X, thenEnd))
	}
	if elseEnd != nil {
		preds = append(preds, p.g.NewNode(op.Jmp, mode.X, elseEnd))
	}
	if len(preds) == 0 {
		// Both arms returned; nothing falls through to a merge block.
		p.cur = nil
		return nil
	}
	merge := p.g.NewBlock(preds...)
	p.b.SealBlock(merge)
	p.cur = merge
	return nil
}

// parseWhile lowers to a loop header block left unsealed until the
// body's back-edge is known, matching the Builder's block-maturation
// protocol for loop headers.
func (p *parser) parseWhile() error {
	p.advance() // 'while'
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return err
	}

	preheaderJmp := p.g.NewNode(op.Jmp, mode.X, p.cur)
	header := p.g.NewBlock(preheaderJmp) // unsealed: back-edge pending

	p.cur = header
	cond, err := p.parseCondition()
	if err != nil {
		return err
	}
	if _, err := p.expect(TokRParen, "')'"); err != nil {
		return err
	}

	condNode := p.g.NewNode(op.Cond, mode.T, header, cond)
	trueProj := p.g.NewProj(condNode, mode.X, 1)
	falseProj := p.g.NewProj(condNode, mode.X, 0)

	body := p.g.NewBlock(trueProj)
	p.b.SealBlock(body)
	p.cur = body
	if err := p.parseBlockStmts(); err != nil {
		return err
	}
	if p.cur != nil {
		backJmp := p.g.NewNode(op.Jmp, mode.X, p.cur)
		header.AppendIn(backJmp)
	}
	p.b.SealBlock(header)

	after := p.g.NewBlock(falseProj)
	p.b.SealBlock(after)
	p.cur = after
	return nil
}

// parseCondition parses an expression in boolean-selector position:
// a comparison already yields mode.B directly; any other expression
// is truthiness-tested against zero.
func (p *parser) parseCondition() (*ir.Node, error) {
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if v.Mode == mode.B {
		return v, nil
	}
	zero := p.g.NewConst(tarval.FromInt64(p.intMode, 0))
	return p.g.NewCmp(p.cur, v, zero, tarval.NotEqual), nil
}

func (p *parser) parseExpr() (*ir.Node, error) { return p.parseComparison() }

func (p *parser) parseComparison() (*ir.Node, error) {
	lhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	var rel tarval.Relation
	switch p.peek().Kind {
	case TokEq:
		rel = tarval.Equal
	case TokNe:
		rel = tarval.NotEqual
	case TokLt:
		rel = tarval.Less
	case TokLe:
		rel = tarval.LessEqual
	case TokGt:
		rel = tarval.Greater
	case TokGe:
		rel = tarval.GreaterEqual
	default:
		return lhs, nil
	}
	p.advance()
	rhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return p.g.NewCmp(p.cur, lhs, rhs, rel), nil
}

func (p *parser) parseAdditive() (*ir.Node, error) {
	lhs, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == TokPlus || p.peek().Kind == TokMinus {
		isAdd := p.peek().Kind == TokPlus
		p.advance()
		rhs, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if isAdd {
			lhs = p.g.NewNode(op.Add, p.intMode, p.cur, lhs, rhs)
		} else {
			lhs = p.g.NewNode(op.Sub, p.intMode, p.cur, lhs, rhs)
		}
	}
	return lhs, nil
}

func (p *parser) parseTerm() (*ir.Node, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var code op.Code
		switch p.peek().Kind {
		case TokStar:
			code = op.Mul
		case TokSlash:
			code = op.Div
		case TokPercent:
			code = op.Mod
		case TokAmp:
			code = op.And
		case TokPipe:
			code = op.Or
		case TokCaret:
			code = op.Xor
		default:
			return lhs, nil
		}
		p.advance()
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		switch code {
		case op.Div, op.Mod:
			// Div/Mod are fragile (may trap on divide-by-zero),
			// fixed-arity (memory, dividend, divisor), and produce a
			// tuple; the demo front end only needs the result
			// projection and doesn't model the exception edge.
			mem := p.b.ReadVariable(p.cur, memVarID, mode.M)
			n := p.g.NewNode(code, mode.T, p.cur, mem, lhs, rhs)
			newMem := p.g.NewProj(n, mode.M, 0)
			p.b.WriteVariable(p.cur, memVarID, newMem)
			lhs = p.g.NewProj(n, p.intMode, 1)
		default:
			lhs = p.g.NewNode(code, p.intMode, p.cur, lhs, rhs)
		}
	}
}

func (p *parser) parseUnary() (*ir.Node, error) {
	switch p.peek().Kind {
	case TokMinus:
		p.advance()
		v, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return p.g.NewNode(op.Minus, p.intMode, p.cur, v), nil
	case TokBang:
		p.advance()
		v, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		zero := p.g.NewConst(tarval.FromInt64(p.intMode, 0))
		return p.g.NewCmp(p.cur, v, zero, tarval.Equal), nil
	default:
		return p.parsePrimary()
	}
}

func (p *parser) parsePrimary() (*ir.Node, error) {
	switch p.peek().Kind {
	case TokInt:
		t := p.advance()
		return p.g.NewConst(tarval.FromInt64(p.intMode, t.IntValue)), nil
	case TokLParen:
		p.advance()
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		_, err = p.expect(TokRParen, "')'")
		return v, err
	case TokIdent:
		t := p.advance()
		if p.peek().Kind == TokLParen {
			return p.parseCall(t.Text)
		}
		id, ok := p.vars[t.Text]
		if !ok {
			return nil, fmt.Errorf("frontend: undeclared variable %q at offset %d", t.Text, t.Pos)
		}
		return p.b.ReadVariable(p.cur, id, p.intMode), nil
	}
	return nil, fmt.Errorf("frontend: unexpected token %q at offset %d", p.peek().Text, p.peek().Pos)
}

func (p *parser) parseCall(name string) (*ir.Node, error) {
	sig, ok := p.sigs[name]
	if !ok {
		return nil, fmt.Errorf("frontend: call to undeclared function %q", name)
	}
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return nil, err
	}
	var args []*ir.Node
	for p.peek().Kind != TokRParen {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.peek().Kind == TokComma {
			p.advance()
		}
	}
	if _, err := p.expect(TokRParen, "')'"); err != nil {
		return nil, err
	}
	if len(args) != len(sig.params) {
		return nil, fmt.Errorf("frontend: %q expects %d argument(s), got %d", name, len(sig.params), len(args))
	}

	callee := p.g.NewSymConst(mode.PCode, name)
	call := p.g.NewDynamicNode(op.Call, mode.T, p.cur)
	call.Attr = &ir.CallAttr{NumResults: 1}
	call.AppendIn(p.b.ReadVariable(p.cur, memVarID, mode.M))
	call.AppendIn(callee)
	for _, a := range args {
		call.AppendIn(a)
	}
	newMem := p.g.NewProj(call, mode.M, 0)
	p.b.WriteVariable(p.cur, memVarID, newMem)
	return p.g.NewProj(call, p.intMode, 1), nil
}
