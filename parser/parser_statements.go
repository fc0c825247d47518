/*
File    : miniscript-go/parser/parser_statements.go
*/
package parser

// Statement parsing: the keyword statements (if/while/for and their
// terminators, break, continue, return) and the assignment/command
// statement, including the in-place assignment optimization.

import (
	"github.com/miniscript-lang/miniscript-go/lexer"
	"github.com/miniscript-lang/miniscript-go/mserror"
	"github.com/miniscript-lang/miniscript-go/tac"
)

// parseStatement compiles one statement. With allowExtra set (single
// line `if c then stmt`), the statement need not consume the rest of the
// line.
func (p *Parser) parseStatement(tokens *lexer.Lexer, allowExtra bool) error {
	peek, err := tokens.Peek()
	if err != nil {
		return err
	}
	if peek.Type == lexer.KEYWORD_TYPE && !isExpressionKeyword(peek.Text) {
		keyword, err := tokens.Dequeue()
		if err != nil {
			return err
		}
		if err := p.parseKeywordStatement(tokens, keyword); err != nil {
			return err
		}
	} else {
		if err := p.parseAssignment(tokens, allowExtra); err != nil {
			return err
		}
	}

	// A statement should consume everything to the end of the line.
	if !allowExtra {
		if _, err := p.requireToken(tokens, lexer.EOL_TYPE, ""); err != nil {
			return err
		}
	}

	// If a function() expression appeared in this statement, its body
	// becomes the compilation target now that the statement is done.
	if p.pendingState != nil {
		p.output = p.pendingState
		p.outputStack = append(p.outputStack, p.output)
		p.pendingState = nil
	}
	return nil
}

// isExpressionKeyword reports keywords that may legally START an
// expression statement rather than a keyword statement.
func isExpressionKeyword(text string) bool {
	switch text {
	case "not", "new", "null", "true", "false", "function":
		return true
	}
	return false
}

// parseKeywordStatement compiles a statement introduced by a (dequeued)
// keyword token.
func (p *Parser) parseKeywordStatement(tokens *lexer.Lexer, keyword lexer.Token) error {
	output := p.output
	switch keyword.Text {
	case "return":
		var returnValue tac.Value
		peek, err := tokens.Peek()
		if err != nil {
			return err
		}
		if peek.Type != lexer.EOL_TYPE &&
			!(peek.Type == lexer.KEYWORD_TYPE && (peek.Text == "else" || peek.Text == "else if")) {
			returnValue, err = p.parseExpr(tokens)
			if err != nil {
				return err
			}
			returnValue, err = p.fullyEvaluate(returnValue)
			if err != nil {
				return err
			}
		}
		output.Add(tac.NewLine(tac.NewValTemp(0), tac.ReturnA, returnValue, nil))
		return nil

	case "if":
		condition, err := p.parseExpr(tokens)
		if err != nil {
			return err
		}
		condition, err = p.fullyEvaluate(condition)
		if err != nil {
			return err
		}
		if _, err := p.requireToken(tokens, lexer.KEYWORD_TYPE, "then"); err != nil {
			return err
		}
		// Emit the conditional branch with a target to be patched when
		// the matching else / end if arrives. The if:MARK sentinel
		// bounds this block's patches.
		output.Add(tac.NewLine(nil, tac.GotoAifNotB, nil, condition))
		output.AddBackpatch("if:MARK")
		output.AddBackpatch("else")

		// The special one-statement if: anything after "then" on the
		// same line is the body (with an optional single-statement
		// else), and the block closes at end of line.
		peek, err := tokens.Peek()
		if err != nil {
			return err
		}
		if peek.Type != lexer.EOL_TYPE {
			if err := p.parseStatement(tokens, true); err != nil {
				return err
			}
			peek, err = tokens.Peek()
			if err != nil {
				return err
			}
			if peek.Type == lexer.KEYWORD_TYPE && peek.Text == "else" {
				if _, err := tokens.Dequeue(); err != nil {
					return err
				}
				if err := p.startElseClause(); err != nil {
					return err
				}
				if err := p.parseStatement(tokens, true); err != nil {
					return err
				}
			}
			return output.PatchIfBlock()
		}
		return nil

	case "else":
		return p.startElseClause()

	case "else if":
		if err := p.startElseClause(); err != nil {
			return err
		}
		condition, err := p.parseExpr(tokens)
		if err != nil {
			return err
		}
		condition, err = p.fullyEvaluate(condition)
		if err != nil {
			return err
		}
		if _, err := p.requireToken(tokens, lexer.KEYWORD_TYPE, "then"); err != nil {
			return err
		}
		output.Add(tac.NewLine(nil, tac.GotoAifNotB, nil, condition))
		output.AddBackpatch("else")
		return nil

	case "end if":
		// We may have an open else block or not, and one "end if" jump
		// per else-if clause; PatchIfBlock sorts all of that out.
		return output.PatchIfBlock()

	case "while":
		// Note the current line, so the loop end can jump back to it.
		output.AddJumpPoint("while")
		condition, err := p.parseExpr(tokens)
		if err != nil {
			return err
		}
		condition, err = p.fullyEvaluate(condition)
		if err != nil {
			return err
		}
		output.Add(tac.NewLine(nil, tac.GotoAifNotB, nil, condition))
		output.AddBackpatch("end while")
		return nil

	case "end while":
		// Unconditional jump back to the loop top, then patch the
		// forward branch (and any breaks) to just past it.
		jump, err := output.CloseJumpPoint("while")
		if err != nil {
			return err
		}
		output.Add(tac.NewLine(nil, tac.GotoA, tac.NewValNumber(float64(jump.LineNum)), nil))
		return output.Patch("end while", true, 0)

	case "for":
		return p.parseForStatement(tokens)

	case "end for":
		jump, err := output.CloseJumpPoint("for")
		if err != nil {
			return err
		}
		output.Add(tac.NewLine(nil, tac.GotoA, tac.NewValNumber(float64(jump.LineNum)), nil))
		return output.Patch("end for", true, 0)

	case "break":
		if len(output.JumpPoints) == 0 {
			return mserror.NewCompilerError("'break' without open loop block")
		}
		output.Add(tac.NewLine(nil, tac.GotoA, nil, nil))
		output.AddBackpatch("break")
		return nil

	case "continue":
		if len(output.JumpPoints) == 0 {
			return mserror.NewCompilerError("'continue' without open loop block")
		}
		jump := output.JumpPoints[len(output.JumpPoints)-1]
		output.Add(tac.NewLine(nil, tac.GotoA, tac.NewValNumber(float64(jump.LineNum)), nil))
		return nil

	default:
		return mserror.NewCompilerError("unexpected keyword '%s' at start of line", keyword.Text)
	}
}

// parseForStatement lowers `for v in expr` into an index counter, a
// bounds check, and an iterator-element fetch, re-checking the sequence
// length each pass.
func (p *Parser) parseForStatement(tokens *lexer.Lexer) error {
	output := p.output
	loopVarTok, err := p.requireToken(tokens, lexer.IDENTIFIER_TYPE, "")
	if err != nil {
		return err
	}
	loopVar := tac.NewValVar(loopVarTok.Text)
	if _, err := p.requireToken(tokens, lexer.KEYWORD_TYPE, "in"); err != nil {
		return err
	}
	stuff, err := p.parseExpr(tokens)
	if err != nil {
		return err
	}
	stuff, err = p.fullyEvaluate(stuff)
	if err != nil {
		return err
	}

	// Index variable, initialized to -1 and incremented at the loop top.
	idxVar := tac.NewValVar("__" + loopVarTok.Text + "_idx")
	output.Add(tac.NewLine(idxVar, tac.AssignA, tac.NewValNumber(-1), nil))

	output.AddJumpPoint("for")
	output.Add(tac.NewLine(idxVar, tac.APlusB, idxVar, tac.NumberOne))
	sizeOfSeq := tac.NewValTemp(output.NextTempNum)
	output.NextTempNum++
	output.Add(tac.NewLine(sizeOfSeq, tac.LengthOfA, stuff, nil))
	isTooBig := tac.NewValTemp(output.NextTempNum)
	output.NextTempNum++
	output.Add(tac.NewLine(isTooBig, tac.AGreatOrEqualB, idxVar, sizeOfSeq))
	output.Add(tac.NewLine(nil, tac.GotoAifB, nil, isTooBig))
	output.AddBackpatch("end for")

	// Fetch the current element into the loop variable.
	output.Add(tac.NewLine(loopVar, tac.ElemBofIterA, stuff, idxVar))
	return nil
}

// startElseClause ends an if (or else-if) arm: emit the jump over the
// upcoming else code, patch the open conditional branch to land just
// past it, and leave the new jump waiting for "end if".
func (p *Parser) startElseClause() error {
	p.output.Add(tac.NewLine(nil, tac.GotoA, nil, nil))
	if err := p.output.Patch("else", false, 0); err != nil {
		return err
	}
	p.output.AddBackpatch("end if")
	return nil
}

// parseAssignment compiles a non-keyword statement: an assignment, a
// bare expression (stored as the implicit result), or a command-style
// call (`print 6*7`, `f 1, 2`).
func (p *Parser) parseAssignment(tokens *lexer.Lexer, allowExtra bool) error {
	output := p.output
	expr, err := p.parseExprExt(tokens, true, true)
	if err != nil {
		return err
	}
	peek, err := tokens.Peek()
	if err != nil {
		return err
	}

	// Bare expression: store the implicit result.
	if peek.Type == lexer.EOL_TYPE ||
		(peek.Type == lexer.KEYWORD_TYPE && peek.Text == "else") {
		rhs, err := p.fullyEvaluate(expr)
		if err != nil {
			return err
		}
		output.Add(tac.NewLine(nil, tac.AssignImplicit, rhs, nil))
		return nil
	}

	if peek.Type != lexer.OP_ASSIGN {
		// A command statement: the rest of the line is arguments.
		return p.parseCommandCall(tokens, expr)
	}
	if _, err := tokens.Dequeue(); err != nil { // skip '='
		return err
	}
	if err := p.allowLineBreak(tokens); err != nil {
		return err
	}
	lhs := expr
	rhs, err := p.parseExpr(tokens)
	if err != nil {
		return err
	}
	rhs, err = p.fullyEvaluate(rhs)
	if err != nil {
		return err
	}

	// Optimization: if the last line assigned into the temp that is our
	// RHS, just retarget that line at our LHS — but never when
	// something jumps to the next line (short-circuit evaluation does
	// that), since the retargeted line would then be skipped.
	if rt, ok := rhs.(*tac.ValTemp); ok && len(output.Code) > 0 &&
		!output.IsJumpTarget(len(output.Code)) {
		line := output.Code[len(output.Code)-1]
		if lt, ok := line.LHS.(*tac.ValTemp); ok && lt.TempNum == rt.TempNum {
			line.LHS = lhs
			return nil
		}
	}
	// Likewise if the last line created and bound a function, retarget
	// it instead of adding a second assignment.
	if _, ok := rhs.(*tac.ValFunction); ok && len(output.Code) > 0 {
		line := output.Code[len(output.Code)-1]
		if line.Op == tac.BindAssignA {
			line.LHS = lhs
			return nil
		}
	}
	output.Add(tac.NewLine(lhs, tac.AssignA, rhs, nil))
	return nil
}

// parseCommandCall compiles `funcRef arg1, arg2, ...` — a call statement
// without parentheses; its result becomes the implicit result.
func (p *Parser) parseCommandCall(tokens *lexer.Lexer, funcRef tac.Value) error {
	output := p.output
	argCount := 0
	for {
		arg, err := p.parseExpr(tokens)
		if err != nil {
			return err
		}
		arg, err = p.fullyEvaluate(arg)
		if err != nil {
			return err
		}
		output.Add(tac.NewLine(nil, tac.PushParam, arg, nil))
		argCount++
		peek, err := tokens.Peek()
		if err != nil {
			return err
		}
		if peek.Type == lexer.EOL_TYPE {
			break
		}
		if peek.Type == lexer.KEYWORD_TYPE && peek.Text == "else" {
			break
		}
		if peek.Type == lexer.COMMA_DELIM {
			if _, err := tokens.Dequeue(); err != nil {
				return err
			}
			if err := p.allowLineBreak(tokens); err != nil {
				return err
			}
			continue
		}
		return mserror.NewCompilerError("got %s where comma or end of line is required", peek)
	}
	result := tac.NewValTemp(output.NextTempNum)
	output.NextTempNum++
	output.Add(tac.NewLine(result, tac.CallFunctionA, funcRef, tac.NewValNumber(float64(argCount))))
	output.Add(tac.NewLine(nil, tac.AssignImplicit, result, nil))
	return nil
}
