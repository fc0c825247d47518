/*
File    : miniscript-go/parser/parser_expressions.go
*/
package parser

// Expression parsing: the operator-precedence chain
//
//	function -> or -> and -> not -> isa -> comparisons -> addSub
//	  -> multDiv -> unaryMinus -> new -> addressOf -> power
//	  -> callExpr -> map -> list -> quantity -> atom
//
// Each level parses its operands with the next level and emits TAC for
// its own operators. Operands are "fully evaluated" before use: a bare
// variable or member reference becomes a zero-argument call, which is
// how zero-arg functions get invoked by name (suppressed by @ and for
// self/super).

import (
	"strconv"

	"github.com/miniscript-lang/miniscript-go/lexer"
	"github.com/miniscript-lang/miniscript-go/mserror"
	"github.com/miniscript-lang/miniscript-go/tac"
)

// parseExpr parses one expression in value position.
func (p *Parser) parseExpr(tokens *lexer.Lexer) (tac.Value, error) {
	return p.parseExprExt(tokens, false, false)
}

// parseExprExt parses one expression. asLval keeps the final lookup
// uncompiled so it can become an assignment target; statementStart
// enables the command-statement minus disambiguation.
func (p *Parser) parseExprExt(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	return p.parseFunction(tokens, asLval, statementStart)
}

// nextTemp allocates a fresh temporary in the current target.
func (p *Parser) nextTemp() *tac.ValTemp {
	t := tac.NewValTemp(p.output.NextTempNum)
	p.output.NextTempNum++
	return t
}

// fullyEvaluate turns a variable or sequence-element reference into the
// result of calling it with zero arguments, so zero-arg functions run
// when referenced by name. @-protected references, self, and super stay
// raw (the latter two get special runtime handling).
func (p *Parser) fullyEvaluate(val tac.Value) (tac.Value, error) {
	switch v := val.(type) {
	case *tac.ValVar:
		if v.NoInvoke || v.Identifier == "super" || v.Identifier == "self" {
			return val, nil
		}
		temp := p.nextTemp()
		p.output.Add(tac.NewLine(temp, tac.CallFunctionA, v, tac.NumberZero))
		return temp, nil
	case *tac.ValSeqElem:
		if v.NoInvoke {
			return val, nil
		}
		temp := p.nextTemp()
		p.output.Add(tac.NewLine(temp, tac.CallFunctionA, v, tac.NumberZero))
		return temp, nil
	}
	return val, nil
}

// allowLineBreak skips end-of-line tokens; called after binary
// operators, commas, and open brackets, where a line break is legal.
//
// Hitting a line break while a function literal is pending means its
// body starts here, in the middle of the enclosing expression (e.g. a
// function inside a map literal); the body is parsed on the spot, up
// through its `end function`.
func (p *Parser) allowLineBreak(tokens *lexer.Lexer) error {
	for {
		peek, err := tokens.Peek()
		if err != nil {
			return err
		}
		if peek.Type != lexer.EOL_TYPE {
			return nil
		}
		if _, err := tokens.Dequeue(); err != nil {
			return err
		}
		if p.pendingState != nil {
			if err := p.parsePendingFunctionBody(tokens); err != nil {
				return err
			}
		}
	}
}

// parsePendingFunctionBody pushes the pending function state and parses
// statements into it until the matching `end function` pops it (or the
// tokens run out, leaving the body open for more input).
func (p *Parser) parsePendingFunctionBody(tokens *lexer.Lexer) error {
	depth := len(p.outputStack)
	p.output = p.pendingState
	p.outputStack = append(p.outputStack, p.output)
	p.pendingState = nil
	for len(p.outputStack) > depth && !tokens.AtEnd() {
		peek, err := tokens.Peek()
		if err != nil {
			return err
		}
		if peek.Type == lexer.EOL_TYPE {
			if _, err := tokens.Dequeue(); err != nil {
				return err
			}
			continue
		}
		location := mserror.NewSourceLoc(p.ErrorContext, tokens.LineNum)
		if peek.Type == lexer.KEYWORD_TYPE && peek.Text == "end function" {
			if _, err := tokens.Dequeue(); err != nil {
				return err
			}
			p.sealFunction()
			continue
		}
		state := p.output
		outputStart := len(state.Code)
		if err := p.parseStatement(tokens, false); err != nil {
			return mserror.EnsureLocation(err, location)
		}
		for i := outputStart; i < len(state.Code); i++ {
			state.Code[i].Location = location
		}
	}
	return nil
}

// requireToken dequeues the next token, which must have the given type
// (and text, when non-empty).
func (p *Parser) requireToken(tokens *lexer.Lexer, tokType lexer.TokenType, text string) (lexer.Token, error) {
	tok, err := tokens.Dequeue()
	if err != nil {
		return tok, err
	}
	if tok.Type != tokType || (text != "" && tok.Text != text) {
		expected := string(tokType)
		if text != "" {
			expected = text
		}
		return tok, mserror.NewCompilerError("got %s where %s is required", tok, expected)
	}
	return tok, nil
}

// requireEitherToken dequeues the next token, which must match one of
// two types.
func (p *Parser) requireEitherToken(tokens *lexer.Lexer, type1, type2 lexer.TokenType) (lexer.Token, error) {
	tok, err := tokens.Dequeue()
	if err != nil {
		return tok, err
	}
	if tok.Type != type1 && tok.Type != type2 {
		return tok, mserror.NewCompilerError("got %s where %s or %s is required", tok, type1, type2)
	}
	return tok, nil
}

// parseFunction handles function literals:
//
//	function(a, b=1)
//	  ...body...
//	end function
//
// The body compiles into its own ParseState, which becomes the
// compilation target at the end of the current statement (pushing it
// immediately would swallow the rest of the statement's code).
func (p *Parser) parseFunction(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	peek, err := tokens.Peek()
	if err != nil {
		return nil, err
	}
	if peek.Type != lexer.KEYWORD_TYPE || peek.Text != "function" {
		return p.parseOr(tokens, asLval, statementStart)
	}
	if _, err := tokens.Dequeue(); err != nil {
		return nil, err
	}

	fn := tac.NewFunction()
	peek, err = tokens.Peek()
	if err != nil {
		return nil, err
	}
	if peek.Type == lexer.LEFT_PAREN {
		if _, err := tokens.Dequeue(); err != nil {
			return nil, err
		}
		for {
			peek, err = tokens.Peek()
			if err != nil {
				return nil, err
			}
			if peek.Type == lexer.RIGHT_PAREN {
				break
			}
			id, err := tokens.Dequeue()
			if err != nil {
				return nil, err
			}
			if id.Type != lexer.IDENTIFIER_TYPE {
				return nil, mserror.NewCompilerError("got %s where an identifier is required", id)
			}
			var defaultValue tac.Value
			peek, err = tokens.Peek()
			if err != nil {
				return nil, err
			}
			if peek.Type == lexer.OP_ASSIGN {
				if _, err := tokens.Dequeue(); err != nil {
					return nil, err
				}
				defaultValue, err = p.parseExpr(tokens)
				if err != nil {
					return nil, err
				}
				switch defaultValue.(type) {
				case *tac.ValNumber, *tac.ValString, nil:
					// literal defaults only
				default:
					return nil, mserror.NewCompilerError(
						"default value for '%s' must be a simple literal", id.Text)
				}
			}
			fn.Parameters = append(fn.Parameters, tac.Param{Name: id.Text, DefaultValue: defaultValue})
			peek, err = tokens.Peek()
			if err != nil {
				return nil, err
			}
			if peek.Type == lexer.RIGHT_PAREN {
				break
			}
			if _, err := p.requireToken(tokens, lexer.COMMA_DELIM, ""); err != nil {
				return nil, err
			}
		}
		if _, err := p.requireToken(tokens, lexer.RIGHT_PAREN, ""); err != nil {
			return nil, err
		}
	}

	// The body parses into its own target, pushed at statement end.
	if p.pendingState != nil {
		return nil, mserror.NewCompilerError("can't start two functions in one statement")
	}
	pending := NewParseState()
	pending.NextTempNum = 1 // (temp 0 is reserved for the return value)
	pending.function = fn
	p.pendingState = pending

	valFunc := tac.NewValFunction(fn)
	p.output.Add(tac.NewLine(nil, tac.BindAssignA, valFunc, nil))
	return valFunc, nil
}

// parseOr handles `a or b` with short-circuiting: a truly-true left side
// jumps straight to a constant 1, leaving fuzzy intermediates to combine
// arithmetically.
func (p *Parser) parseOr(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	val, err := p.parseAnd(tokens, asLval, statementStart)
	if err != nil {
		return nil, err
	}
	var jumpLines []*tac.Line
	for {
		peek, err := tokens.Peek()
		if err != nil {
			return nil, err
		}
		if peek.Type != lexer.KEYWORD_TYPE || peek.Text != "or" {
			break
		}
		if _, err := tokens.Dequeue(); err != nil {
			return nil, err
		}
		val, err = p.fullyEvaluate(val)
		if err != nil {
			return nil, err
		}
		if err := p.allowLineBreak(tokens); err != nil {
			return nil, err
		}

		// Short-circuit on integer truth only; GotoAifB would collapse
		// fuzzy intermediate values.
		jump := tac.NewLine(nil, tac.GotoAifTrulyB, nil, val)
		p.output.Add(jump)
		jumpLines = append(jumpLines, jump)

		opB, err := p.parseAnd(tokens, false, false)
		if err != nil {
			return nil, err
		}
		opB, err = p.fullyEvaluate(opB)
		if err != nil {
			return nil, err
		}
		temp := p.nextTemp()
		p.output.Add(tac.NewLine(temp, tac.AOrB, val, opB))
		val = temp
	}

	// Any short-circuit jumps land on a constant 1; straight-line code
	// hops over it.
	if jumpLines != nil {
		p.output.Add(tac.NewLine(nil, tac.GotoA, tac.NewValNumber(float64(len(p.output.Code)+2)), nil))
		p.output.Add(tac.NewLine(val, tac.AssignA, tac.NumberOne, nil))
		target := tac.NewValNumber(float64(len(p.output.Code) - 1))
		for _, jump := range jumpLines {
			jump.RhsA = target
		}
	}
	return val, nil
}

// parseAnd mirrors parseOr with a short-circuit constant of 0.
func (p *Parser) parseAnd(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	val, err := p.parseNot(tokens, asLval, statementStart)
	if err != nil {
		return nil, err
	}
	var jumpLines []*tac.Line
	for {
		peek, err := tokens.Peek()
		if err != nil {
			return nil, err
		}
		if peek.Type != lexer.KEYWORD_TYPE || peek.Text != "and" {
			break
		}
		if _, err := tokens.Dequeue(); err != nil {
			return nil, err
		}
		val, err = p.fullyEvaluate(val)
		if err != nil {
			return nil, err
		}
		if err := p.allowLineBreak(tokens); err != nil {
			return nil, err
		}

		jump := tac.NewLine(nil, tac.GotoAifNotB, nil, val)
		p.output.Add(jump)
		jumpLines = append(jumpLines, jump)

		opB, err := p.parseNot(tokens, false, false)
		if err != nil {
			return nil, err
		}
		opB, err = p.fullyEvaluate(opB)
		if err != nil {
			return nil, err
		}
		temp := p.nextTemp()
		p.output.Add(tac.NewLine(temp, tac.AAndB, val, opB))
		val = temp
	}
	if jumpLines != nil {
		p.output.Add(tac.NewLine(nil, tac.GotoA, tac.NewValNumber(float64(len(p.output.Code)+2)), nil))
		p.output.Add(tac.NewLine(val, tac.AssignA, tac.NumberZero, nil))
		target := tac.NewValNumber(float64(len(p.output.Code) - 1))
		for _, jump := range jumpLines {
			jump.RhsA = target
		}
	}
	return val, nil
}

// parseNot handles the unary `not`.
func (p *Parser) parseNot(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	peek, err := tokens.Peek()
	if err != nil {
		return nil, err
	}
	if peek.Type != lexer.KEYWORD_TYPE || peek.Text != "not" {
		return p.parseIsA(tokens, asLval, statementStart)
	}
	if _, err := tokens.Dequeue(); err != nil {
		return nil, err
	}
	if err := p.allowLineBreak(tokens); err != nil {
		return nil, err
	}
	val, err := p.parseIsA(tokens, false, false)
	if err != nil {
		return nil, err
	}
	val, err = p.fullyEvaluate(val)
	if err != nil {
		return nil, err
	}
	temp := p.nextTemp()
	p.output.Add(tac.NewLine(temp, tac.NotA, val, nil))
	return temp, nil
}

// parseIsA handles the `isa` type-check operator.
func (p *Parser) parseIsA(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	val, err := p.parseComparisons(tokens, asLval, statementStart)
	if err != nil {
		return nil, err
	}
	peek, err := tokens.Peek()
	if err != nil {
		return nil, err
	}
	if peek.Type == lexer.KEYWORD_TYPE && peek.Text == "isa" {
		if _, err := tokens.Dequeue(); err != nil {
			return nil, err
		}
		if err := p.allowLineBreak(tokens); err != nil {
			return nil, err
		}
		val, err = p.fullyEvaluate(val)
		if err != nil {
			return nil, err
		}
		opB, err := p.parseComparisons(tokens, false, false)
		if err != nil {
			return nil, err
		}
		opB, err = p.fullyEvaluate(opB)
		if err != nil {
			return nil, err
		}
		temp := p.nextTemp()
		p.output.Add(tac.NewLine(temp, tac.AisaB, val, opB))
		val = temp
	}
	return val, nil
}

// comparisonOp maps a comparison token to its opcode (Noop otherwise).
func comparisonOp(t lexer.TokenType) tac.Opcode {
	switch t {
	case lexer.OP_EQUAL:
		return tac.AEqualB
	case lexer.OP_NOT_EQUAL:
		return tac.ANotEqualB
	case lexer.OP_GREATER:
		return tac.AGreaterThanB
	case lexer.OP_GREAT_EQUAL:
		return tac.AGreatOrEqualB
	case lexer.OP_LESSER:
		return tac.ALessThanB
	case lexer.OP_LESS_EQUAL:
		return tac.ALessOrEqualB
	}
	return tac.Noop
}

// parseComparisons handles comparison operators, including chains like
// `a < b < c`, which multiply together so every link must hold.
func (p *Parser) parseComparisons(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	val, err := p.parseAddSub(tokens, asLval, statementStart)
	if err != nil {
		return nil, err
	}
	opA := val
	firstComparison := true
	for {
		peek, err := tokens.Peek()
		if err != nil {
			return nil, err
		}
		opcode := comparisonOp(peek.Type)
		if opcode == tac.Noop {
			break
		}
		if _, err := tokens.Dequeue(); err != nil {
			return nil, err
		}
		opA, err = p.fullyEvaluate(opA)
		if err != nil {
			return nil, err
		}
		if err := p.allowLineBreak(tokens); err != nil {
			return nil, err
		}
		opB, err := p.parseAddSub(tokens, false, false)
		if err != nil {
			return nil, err
		}
		opB, err = p.fullyEvaluate(opB)
		if err != nil {
			return nil, err
		}
		temp := p.nextTemp()
		p.output.Add(tac.NewLine(temp, opcode, opA, opB))
		if firstComparison {
			firstComparison = false
		} else {
			// Chain: multiply this link with the accumulated result.
			chained := p.nextTemp()
			p.output.Add(tac.NewLine(chained, tac.ATimesB, val, temp))
			temp = chained
		}
		val = temp
		opA = opB
	}
	return val, nil
}

// parseAddSub handles + and -. At the start of a command statement,
// `print -x` must read as a unary minus argument, not subtraction: a
// minus preceded by whitespace but not followed by it ends the loop.
func (p *Parser) parseAddSub(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	val, err := p.parseMultDiv(tokens, asLval, statementStart)
	if err != nil {
		return nil, err
	}
	for {
		tok, err := tokens.Peek()
		if err != nil {
			return nil, err
		}
		isBinary := tok.Type == lexer.OP_PLUS ||
			(tok.Type == lexer.OP_MINUS &&
				(!statementStart || !tok.AfterSpace || tokens.IsAtWhitespace()))
		if !isBinary {
			break
		}
		if _, err := tokens.Dequeue(); err != nil {
			return nil, err
		}
		val, err = p.fullyEvaluate(val)
		if err != nil {
			return nil, err
		}
		if err := p.allowLineBreak(tokens); err != nil {
			return nil, err
		}
		opB, err := p.parseMultDiv(tokens, false, false)
		if err != nil {
			return nil, err
		}
		opB, err = p.fullyEvaluate(opB)
		if err != nil {
			return nil, err
		}
		op := tac.APlusB
		if tok.Type == lexer.OP_MINUS {
			op = tac.AMinusB
		}
		temp := p.nextTemp()
		p.output.Add(tac.NewLine(temp, op, val, opB))
		val = temp
	}
	return val, nil
}

// parseMultDiv handles *, /, and %.
func (p *Parser) parseMultDiv(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	val, err := p.parseUnaryMinus(tokens, asLval, statementStart)
	if err != nil {
		return nil, err
	}
	for {
		tok, err := tokens.Peek()
		if err != nil {
			return nil, err
		}
		var op tac.Opcode
		switch tok.Type {
		case lexer.OP_TIMES:
			op = tac.ATimesB
		case lexer.OP_DIVIDE:
			op = tac.ADividedByB
		case lexer.OP_MOD:
			op = tac.AModB
		default:
			return val, nil
		}
		if _, err := tokens.Dequeue(); err != nil {
			return nil, err
		}
		val, err = p.fullyEvaluate(val)
		if err != nil {
			return nil, err
		}
		if err := p.allowLineBreak(tokens); err != nil {
			return nil, err
		}
		opB, err := p.parseUnaryMinus(tokens, false, false)
		if err != nil {
			return nil, err
		}
		opB, err = p.fullyEvaluate(opB)
		if err != nil {
			return nil, err
		}
		temp := p.nextTemp()
		p.output.Add(tac.NewLine(temp, op, val, opB))
		val = temp
	}
}

// parseUnaryMinus handles a leading minus. A negated numeric literal is
// folded at parse time; anything else subtracts from zero.
func (p *Parser) parseUnaryMinus(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	peek, err := tokens.Peek()
	if err != nil {
		return nil, err
	}
	if peek.Type != lexer.OP_MINUS {
		return p.parseNew(tokens, asLval, statementStart)
	}
	if _, err := tokens.Dequeue(); err != nil {
		return nil, err
	}
	if err := p.allowLineBreak(tokens); err != nil {
		return nil, err
	}
	val, err := p.parseNew(tokens, false, false)
	if err != nil {
		return nil, err
	}
	if n, ok := val.(*tac.ValNumber); ok {
		// Fold the negation (never mutate: number constants are shared).
		return tac.NewValNumber(-n.Value), nil
	}
	val, err = p.fullyEvaluate(val)
	if err != nil {
		return nil, err
	}
	temp := p.nextTemp()
	p.output.Add(tac.NewLine(temp, tac.AMinusB, tac.NumberZero, val))
	return temp, nil
}

// parseNew handles `new X`: at runtime, a fresh map is created with its
// __isa pointing at X. CopyA (not AssignA) ensures each execution makes
// a distinct instance.
func (p *Parser) parseNew(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	peek, err := tokens.Peek()
	if err != nil {
		return nil, err
	}
	if peek.Type != lexer.KEYWORD_TYPE || peek.Text != "new" {
		return p.parseAddressOf(tokens, asLval, statementStart)
	}
	if _, err := tokens.Dequeue(); err != nil {
		return nil, err
	}
	isa, err := p.parseAddressOf(tokens, false, false)
	if err != nil {
		return nil, err
	}
	m := tac.NewValMap()
	m.Set(tac.MagicIsA, isa)
	result := p.nextTemp()
	p.output.Add(tac.NewLine(result, tac.CopyA, m, nil))
	return result, nil
}

// parseAddressOf handles the @ marker, which suppresses the automatic
// zero-argument invocation of the reference it precedes.
func (p *Parser) parseAddressOf(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	peek, err := tokens.Peek()
	if err != nil {
		return nil, err
	}
	if peek.Type != lexer.ADDRESS_OF {
		return p.parsePower(tokens, asLval, statementStart)
	}
	if _, err := tokens.Dequeue(); err != nil {
		return nil, err
	}
	val, err := p.parsePower(tokens, true, statementStart)
	if err != nil {
		return nil, err
	}
	switch v := val.(type) {
	case *tac.ValVar:
		v.NoInvoke = true
	case *tac.ValSeqElem:
		v.NoInvoke = true
	}
	return val, nil
}

// parsePower handles the ^ operator.
func (p *Parser) parsePower(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	val, err := p.parseCallExpr(tokens, asLval, statementStart)
	if err != nil {
		return nil, err
	}
	for {
		peek, err := tokens.Peek()
		if err != nil {
			return nil, err
		}
		if peek.Type != lexer.OP_POWER {
			return val, nil
		}
		if _, err := tokens.Dequeue(); err != nil {
			return nil, err
		}
		val, err = p.fullyEvaluate(val)
		if err != nil {
			return nil, err
		}
		if err := p.allowLineBreak(tokens); err != nil {
			return nil, err
		}
		opB, err := p.parseCallExpr(tokens, false, false)
		if err != nil {
			return nil, err
		}
		opB, err = p.fullyEvaluate(opB)
		if err != nil {
			return nil, err
		}
		temp := p.nextTemp()
		p.output.Add(tac.NewLine(temp, tac.APowB, val, opB))
		val = temp
	}
}

// parseCallExpr handles the postfix forms: dotted member access,
// indexing and slicing, and argument lists. Parens and brackets bind
// only when they follow with no whitespace.
func (p *Parser) parseCallExpr(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	val, err := p.parseMap(tokens, asLval, statementStart)
	if err != nil {
		return nil, err
	}
	for {
		peek, err := tokens.Peek()
		if err != nil {
			return nil, err
		}
		switch {
		case peek.Type == lexer.DOT_OP:
			if _, err := tokens.Dequeue(); err != nil {
				return nil, err
			}
			if err := p.allowLineBreak(tokens); err != nil {
				return nil, err
			}
			nextIdent, err := p.requireToken(tokens, lexer.IDENTIFIER_TYPE, "")
			if err != nil {
				return nil, err
			}
			// Chaining: invoke the part so far, then look up the member
			// on the result.
			val, err = p.fullyEvaluate(val)
			if err != nil {
				return nil, err
			}
			val = tac.NewValSeqElem(val, tac.NewValString(nextIdent.Text))
			peek, err = tokens.Peek()
			if err != nil {
				return nil, err
			}
			if peek.Type == lexer.LEFT_PAREN && !peek.AfterSpace {
				val, err = p.parseCallArgs(tokens, val)
				if err != nil {
					return nil, err
				}
			}

		case peek.Type == lexer.LEFT_SQUARE && !peek.AfterSpace:
			if _, err := tokens.Dequeue(); err != nil {
				return nil, err
			}
			if err := p.allowLineBreak(tokens); err != nil {
				return nil, err
			}
			val, err = p.fullyEvaluate(val)
			if err != nil {
				return nil, err
			}
			val, err = p.parseIndexOrSlice(tokens, val, statementStart)
			if err != nil {
				return nil, err
			}

		case peek.Type == lexer.LEFT_PAREN && !peek.AfterSpace && isCallable(val):
			val, err = p.parseCallArgs(tokens, val)
			if err != nil {
				return nil, err
			}

		default:
			return val, nil
		}
	}
}

// isCallable reports whether a parsed value may take an argument list.
func isCallable(val tac.Value) bool {
	switch v := val.(type) {
	case *tac.ValVar:
		return !v.NoInvoke
	case *tac.ValSeqElem:
		return !v.NoInvoke
	}
	return false
}

// parseIndexOrSlice compiles the inside of `val[...]`: a plain index, or
// a slice with any of the from/to parts omitted. The opening bracket is
// already consumed.
func (p *Parser) parseIndexOrSlice(tokens *lexer.Lexer, val tac.Value, statementStart bool) (tac.Value, error) {
	peek, err := tokens.Peek()
	if err != nil {
		return nil, err
	}
	if peek.Type == lexer.COLON_DELIM { // e.g. foo[:4]
		if _, err := tokens.Dequeue(); err != nil {
			return nil, err
		}
		if err := p.allowLineBreak(tokens); err != nil {
			return nil, err
		}
		var index2 tac.Value
		peek, err = tokens.Peek()
		if err != nil {
			return nil, err
		}
		if peek.Type != lexer.RIGHT_SQUARE {
			index2, err = p.parseExpr(tokens)
			if err != nil {
				return nil, err
			}
			index2, err = p.fullyEvaluate(index2)
			if err != nil {
				return nil, err
			}
		}
		temp := p.nextTemp()
		p.output.Code = tac.CompileSlice(p.output.Code, val, nil, index2, temp.TempNum)
		if _, err := p.requireToken(tokens, lexer.RIGHT_SQUARE, ""); err != nil {
			return nil, err
		}
		return temp, nil
	}

	index, err := p.parseExpr(tokens)
	if err != nil {
		return nil, err
	}
	index, err = p.fullyEvaluate(index)
	if err != nil {
		return nil, err
	}
	peek, err = tokens.Peek()
	if err != nil {
		return nil, err
	}
	if peek.Type == lexer.COLON_DELIM { // e.g. foo[2:4] or foo[2:]
		if _, err := tokens.Dequeue(); err != nil {
			return nil, err
		}
		if err := p.allowLineBreak(tokens); err != nil {
			return nil, err
		}
		var index2 tac.Value
		peek, err = tokens.Peek()
		if err != nil {
			return nil, err
		}
		if peek.Type != lexer.RIGHT_SQUARE {
			index2, err = p.parseExpr(tokens)
			if err != nil {
				return nil, err
			}
			index2, err = p.fullyEvaluate(index2)
			if err != nil {
				return nil, err
			}
		}
		temp := p.nextTemp()
		p.output.Code = tac.CompileSlice(p.output.Code, val, index, index2, temp.TempNum)
		val = temp
	} else if statementStart {
		// At the start of a statement, keep the last lookup uncompiled:
		// it may turn out to be an assignment target. Any previous
		// lookup in the chain compiles now.
		if vs, ok := val.(*tac.ValSeqElem); ok {
			temp := p.nextTemp()
			p.output.Add(tac.NewLine(temp, tac.ElemBofA, vs.Sequence, vs.Index))
			val = temp
		}
		val = tac.NewValSeqElem(val, index)
	} else {
		// Anywhere else, compile the lookup right away.
		temp := p.nextTemp()
		p.output.Add(tac.NewLine(temp, tac.ElemBofA, val, index))
		val = temp
	}
	if _, err := p.requireToken(tokens, lexer.RIGHT_SQUARE, ""); err != nil {
		return nil, err
	}
	return val, nil
}

// parseCallArgs compiles a parenthesized argument list applied to
// funcRef, returning the temp holding the call result.
func (p *Parser) parseCallArgs(tokens *lexer.Lexer, funcRef tac.Value) (tac.Value, error) {
	if _, err := p.requireToken(tokens, lexer.LEFT_PAREN, ""); err != nil {
		return nil, err
	}
	argCount := 0
	peek, err := tokens.Peek()
	if err != nil {
		return nil, err
	}
	if peek.Type == lexer.RIGHT_PAREN {
		if _, err := tokens.Dequeue(); err != nil {
			return nil, err
		}
	} else {
		for {
			if err := p.allowLineBreak(tokens); err != nil {
				return nil, err
			}
			arg, err := p.parseExpr(tokens)
			if err != nil {
				return nil, err
			}
			arg, err = p.fullyEvaluate(arg)
			if err != nil {
				return nil, err
			}
			p.output.Add(tac.NewLine(nil, tac.PushParam, arg, nil))
			argCount++
			if err := p.allowLineBreak(tokens); err != nil {
				return nil, err
			}
			tok, err := p.requireEitherToken(tokens, lexer.COMMA_DELIM, lexer.RIGHT_PAREN)
			if err != nil {
				return nil, err
			}
			if tok.Type == lexer.RIGHT_PAREN {
				break
			}
		}
	}
	result := p.nextTemp()
	p.output.Add(tac.NewLine(result, tac.CallFunctionA, funcRef, tac.NewValNumber(float64(argCount))))
	return result, nil
}

// parseMap handles map literals `{key: value, ...}`. The literal value
// holds unevaluated operands; CopyA makes a fresh evaluated map each
// time the line runs.
func (p *Parser) parseMap(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	peek, err := tokens.Peek()
	if err != nil {
		return nil, err
	}
	if peek.Type != lexer.LEFT_CURLY {
		return p.parseList(tokens, asLval, statementStart)
	}
	if _, err := tokens.Dequeue(); err != nil {
		return nil, err
	}
	m := tac.NewValMap()
	for {
		if err := p.allowLineBreak(tokens); err != nil {
			return nil, err
		}
		peek, err = tokens.Peek()
		if err != nil {
			return nil, err
		}
		if peek.Type == lexer.RIGHT_CURLY { // empty map, or trailing comma
			if _, err := tokens.Dequeue(); err != nil {
				return nil, err
			}
			break
		}
		key, err := p.parseExpr(tokens)
		if err != nil {
			return nil, err
		}
		// A bare identifier key reads as a string: {greet: f} is
		// {"greet": f}, not a lookup of a greet variable.
		if kv, ok := key.(*tac.ValVar); ok {
			key = tac.NewValString(kv.Identifier)
		}
		if _, err := p.requireToken(tokens, lexer.COLON_DELIM, ""); err != nil {
			return nil, err
		}
		if err := p.allowLineBreak(tokens); err != nil {
			return nil, err
		}
		value, err := p.parseExpr(tokens)
		if err != nil {
			return nil, err
		}
		value, err = p.fullyEvaluate(value)
		if err != nil {
			return nil, err
		}
		m.Set(key, value)
		if err := p.allowLineBreak(tokens); err != nil {
			return nil, err
		}
		tok, err := p.requireEitherToken(tokens, lexer.COMMA_DELIM, lexer.RIGHT_CURLY)
		if err != nil {
			return nil, err
		}
		if tok.Type == lexer.RIGHT_CURLY {
			break
		}
	}
	result := p.nextTemp()
	p.output.Add(tac.NewLine(result, tac.CopyA, m, nil))
	return result, nil
}

// parseList handles list literals `[a, b, ...]`, compiled like map
// literals via CopyA.
func (p *Parser) parseList(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	peek, err := tokens.Peek()
	if err != nil {
		return nil, err
	}
	if peek.Type != lexer.LEFT_SQUARE {
		return p.parseQuantity(tokens, asLval, statementStart)
	}
	if _, err := tokens.Dequeue(); err != nil {
		return nil, err
	}
	list := tac.NewValList()
	for {
		if err := p.allowLineBreak(tokens); err != nil {
			return nil, err
		}
		peek, err = tokens.Peek()
		if err != nil {
			return nil, err
		}
		if peek.Type == lexer.RIGHT_SQUARE { // empty list, or trailing comma
			if _, err := tokens.Dequeue(); err != nil {
				return nil, err
			}
			break
		}
		elem, err := p.parseExpr(tokens)
		if err != nil {
			return nil, err
		}
		elem, err = p.fullyEvaluate(elem)
		if err != nil {
			return nil, err
		}
		list.Values = append(list.Values, elem)
		if err := p.allowLineBreak(tokens); err != nil {
			return nil, err
		}
		tok, err := p.requireEitherToken(tokens, lexer.COMMA_DELIM, lexer.RIGHT_SQUARE)
		if err != nil {
			return nil, err
		}
		if tok.Type == lexer.RIGHT_SQUARE {
			break
		}
	}
	result := p.nextTemp()
	p.output.Add(tac.NewLine(result, tac.CopyA, list, nil))
	return result, nil
}

// parseQuantity handles parenthesized subexpressions.
func (p *Parser) parseQuantity(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	peek, err := tokens.Peek()
	if err != nil {
		return nil, err
	}
	if peek.Type != lexer.LEFT_PAREN {
		return p.parseAtom(tokens, asLval, statementStart)
	}
	if _, err := tokens.Dequeue(); err != nil {
		return nil, err
	}
	if err := p.allowLineBreak(tokens); err != nil {
		return nil, err
	}
	val, err := p.parseExpr(tokens)
	if err != nil {
		return nil, err
	}
	if _, err := p.requireToken(tokens, lexer.RIGHT_PAREN, ""); err != nil {
		return nil, err
	}
	return val, nil
}

// parseAtom handles the leaves: literals, identifiers, and the keyword
// constants null/true/false.
func (p *Parser) parseAtom(tokens *lexer.Lexer, asLval, statementStart bool) (tac.Value, error) {
	tok, err := tokens.Dequeue()
	if err != nil {
		return nil, err
	}
	switch tok.Type {
	case lexer.NUMBER_TYPE:
		d, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, mserror.NewCompilerError("invalid numeric literal: %s", tok.Text)
		}
		return tac.NewValNumber(d), nil
	case lexer.STRING_TYPE:
		return tac.NewValString(tok.Text), nil
	case lexer.IDENTIFIER_TYPE:
		return tac.NewValVar(tok.Text), nil
	case lexer.KEYWORD_TYPE:
		switch tok.Text {
		case "null":
			return nil, nil
		case "true":
			return tac.NumberOne, nil
		case "false":
			return tac.NumberZero, nil
		}
	}
	return nil, mserror.NewCompilerError(
		"got %s where number, string, or identifier is required", tok)
}
