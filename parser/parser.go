/*
File    : miniscript-go/parser/parser.go
*/

// Package parser implements the MiniScript compiler front half: a
// recursive-descent, operator-precedence parser that consumes tokens and
// emits three-address code directly — there is no AST. Forward jumps
// (if/while/for, break, short-circuit logic) are emitted with unknown
// targets and fixed up by a back-patch table when the matching block
// terminator arrives.
//
// The parser also carries the REPL support: incomplete input (an open
// block, a pending function body, or a line ending in a binary operator)
// is detected and buffered so the host can prompt for more.
package parser

import (
	"github.com/miniscript-lang/miniscript-go/lexer"
	"github.com/miniscript-lang/miniscript-go/mserror"
	"github.com/miniscript-lang/miniscript-go/tac"
)

// BackPatch records a forward jump whose target was unknown when it was
// emitted: the index of the jump line, and the block terminator that
// will supply the target.
type BackPatch struct {
	LineNum    int    // index of the line to patch
	WaitingFor string // e.g. "end if", "else", "end while", "break"
}

// JumpPoint marks a backward-jump target (a loop header), so continue
// and the loop terminator know where to go.
type JumpPoint struct {
	LineNum int
	Keyword string // "while" or "for"
}

// ParseState is one compilation target: the global program, or one
// function body. The parser keeps a stack of these; the top is where
// code is being emitted.
type ParseState struct {
	Code        []*tac.Line
	BackPatches []BackPatch
	JumpPoints  []JumpPoint
	NextTempNum int // temp 0 is reserved for the return value

	// function is the function this state is the body of (nil for the
	// global state); its code is attached when the body is sealed.
	function *tac.Function
}

// NewParseState creates an empty compilation target.
func NewParseState() *ParseState {
	return &ParseState{}
}

// Add appends one line of code.
func (ps *ParseState) Add(line *tac.Line) {
	ps.Code = append(ps.Code, line)
}

// AddBackpatch records that the most recently emitted line is waiting
// for the given block terminator.
func (ps *ParseState) AddBackpatch(waitingFor string) {
	ps.BackPatches = append(ps.BackPatches, BackPatch{LineNum: len(ps.Code) - 1, WaitingFor: waitingFor})
}

// AddJumpPoint marks the next line to be emitted as a loop header.
func (ps *ParseState) AddJumpPoint(keyword string) {
	ps.JumpPoints = append(ps.JumpPoints, JumpPoint{LineNum: len(ps.Code), Keyword: keyword})
}

// CloseJumpPoint pops the innermost jump point, which must belong to the
// given keyword.
func (ps *ParseState) CloseJumpPoint(keyword string) (JumpPoint, error) {
	last := len(ps.JumpPoints) - 1
	if last < 0 || ps.JumpPoints[last].Keyword != keyword {
		return JumpPoint{}, mserror.NewCompilerError("'end %s' without matching '%s'", keyword, keyword)
	}
	result := ps.JumpPoints[last]
	ps.JumpPoints = ps.JumpPoints[:last]
	return result, nil
}

// IsJumpTarget reports whether any emitted jump (or open loop header)
// targets the given line number. The assignment optimization must not
// rewrite a line that something jumps to.
func (ps *ParseState) IsJumpTarget(lineNum int) bool {
	for _, line := range ps.Code {
		switch line.Op {
		case tac.GotoA, tac.GotoAifB, tac.GotoAifNotB, tac.GotoAifTrulyB:
			if n, ok := line.RhsA.(*tac.ValNumber); ok && int(n.Value) == lineNum {
				return true
			}
		}
	}
	for _, jp := range ps.JumpPoints {
		if jp.LineNum == lineNum {
			return true
		}
	}
	return false
}

// Patch fills in forward jumps waiting for the given terminator, walking
// the back-patch list from newest to oldest. With alsoBreak set, any
// pending "break" patches encountered on the way are pointed at the same
// target (loop terminators do this). An unexpected entry means the
// source has mismatched block openers/closers.
func (ps *ParseState) Patch(keywordFound string, alsoBreak bool, reservingLines int) error {
	target := tac.NewValNumber(float64(len(ps.Code) + reservingLines))
	done := false
	for idx := len(ps.BackPatches) - 1; idx >= 0 && !done; idx-- {
		bp := ps.BackPatches[idx]
		patchIt := false
		switch {
		case bp.WaitingFor == keywordFound:
			patchIt = true
			done = true
		case bp.WaitingFor == "break":
			// Not the expected terminator, but break patches are always
			// acceptable here; whether we patch them depends on the call.
			patchIt = alsoBreak
		default:
			return mserror.NewCompilerError("'%s' skips expected '%s'", keywordFound, bp.WaitingFor)
		}
		if patchIt {
			ps.Code[bp.LineNum].RhsA = target
			ps.BackPatches = append(ps.BackPatches[:idx], ps.BackPatches[idx+1:]...)
		}
	}
	if !done {
		return mserror.NewCompilerError("'%s' without matching block opener", keywordFound)
	}
	return nil
}

// PatchIfBlock closes an if block: walk the back-patches down to the
// special "if:MARK" sentinel, patching every pending "else" and "end if"
// to the current position. Break patches in between belong to an
// enclosing loop and are left alone.
func (ps *ParseState) PatchIfBlock() error {
	target := tac.NewValNumber(float64(len(ps.Code)))
	for idx := len(ps.BackPatches) - 1; idx >= 0; idx-- {
		bp := ps.BackPatches[idx]
		switch bp.WaitingFor {
		case "if:MARK":
			ps.BackPatches = append(ps.BackPatches[:idx], ps.BackPatches[idx+1:]...)
			return nil
		case "end if", "else":
			ps.Code[bp.LineNum].RhsA = target
			ps.BackPatches = append(ps.BackPatches[:idx], ps.BackPatches[idx+1:]...)
		case "break":
			// an enclosing loop's business; skip it
		default:
			return mserror.NewCompilerError("'end if' without matching 'if'")
		}
	}
	return mserror.NewCompilerError("'end if' without matching 'if'")
}

// Parser holds all compilation state across (possibly incremental)
// Parse calls.
type Parser struct {
	// ErrorContext names the source being parsed in error messages
	// (usually a file name).
	ErrorContext string

	// PartialInput buffers REPL input that ended mid-expression.
	PartialInput string

	outputStack  []*ParseState
	output       *ParseState
	pendingState *ParseState
}

// NewParser creates a parser with a fresh global compilation target.
func NewParser() *Parser {
	p := &Parser{}
	p.Reset()
	return p
}

// Reset discards all parser state, including compiled global code.
func (p *Parser) Reset() {
	p.output = NewParseState()
	p.outputStack = []*ParseState{p.output}
	p.pendingState = nil
	p.PartialInput = ""
}

// PartialReset abandons incomplete blocks and buffered input, but keeps
// the already-compiled global code. The REPL calls this after an error.
func (p *Parser) PartialReset() {
	p.outputStack = p.outputStack[:1]
	p.output = p.outputStack[0]
	p.output.BackPatches = nil
	p.output.JumpPoints = nil
	p.output.NextTempNum = 0
	p.PartialInput = ""
	p.pendingState = nil
}

// GlobalCode returns the global program compiled so far. Incremental
// parses append to it; callers holding a machine over this code should
// re-fetch after each Parse.
func (p *Parser) GlobalCode() []*tac.Line {
	return p.outputStack[0].Code
}

// ClearGlobalCode drops the compiled global program (the REPL does this
// together with the machine's ClearCodeAndTemps once both are idle).
func (p *Parser) ClearGlobalCode() {
	p.outputStack[0].Code = nil
}

// NeedMoreInput reports whether parsing stopped in an incomplete state:
// buffered partial input, an open function body, or an unterminated
// block.
func (p *Parser) NeedMoreInput() bool {
	if p.PartialInput != "" {
		return true
	}
	if len(p.outputStack) > 1 {
		return true
	}
	return len(p.output.BackPatches) > 0
}

// EndsWithLineContinuation reports whether the source's last token
// signals that the line continues: a binary operator, an open bracket, a
// comma, colon, dot, or the assignment operator. A lexing failure in the
// source reports false, so a real Parse gets to raise the error.
func EndsWithLineContinuation(source string) bool {
	lastTok := lexer.LastToken(source)
	switch lastTok.Type {
	case lexer.OP_ASSIGN, lexer.OP_PLUS, lexer.OP_MINUS, lexer.OP_TIMES,
		lexer.OP_DIVIDE, lexer.OP_MOD, lexer.OP_POWER, lexer.OP_EQUAL,
		lexer.OP_NOT_EQUAL, lexer.OP_GREATER, lexer.OP_GREAT_EQUAL,
		lexer.OP_LESSER, lexer.OP_LESS_EQUAL, lexer.LEFT_PAREN,
		lexer.LEFT_SQUARE, lexer.LEFT_CURLY, lexer.COMMA_DELIM,
		lexer.DOT_OP, lexer.COLON_DELIM, lexer.ADDRESS_OF:
		return true
	case lexer.KEYWORD_TYPE:
		switch lastTok.Text {
		case "and", "or", "isa", "not", "new", "in":
			return true
		}
	}
	return false
}

// Parse compiles source, appending to the global program. In REPL mode a
// line that obviously continues is buffered and no code is emitted; the
// next Parse call picks the buffer up. Outside REPL mode, ending with an
// open block is a compiler error.
func (p *Parser) Parse(source string, replMode bool) error {
	if replMode {
		if EndsWithLineContinuation(source) {
			p.PartialInput += lexer.TrimComment(source) + " "
			return nil
		}
	}
	tokens := lexer.NewLexer(p.PartialInput + source)
	p.PartialInput = ""
	if err := p.parseMultipleLines(tokens); err != nil {
		return err
	}
	if !replMode && p.NeedMoreInput() {
		// Whoops: the source ran out with a block still open.
		return p.openBlockError(tokens.LineNum + 1)
	}
	return nil
}

// openBlockError describes which block was left open at end of input.
func (p *Parser) openBlockError(lineNum int) error {
	if len(p.outputStack) > 1 {
		return mserror.NewCompilerErrorAt(p.ErrorContext, lineNum,
			"'function' without matching 'end function'")
	}
	for idx := len(p.output.BackPatches) - 1; idx >= 0; idx-- {
		switch p.output.BackPatches[idx].WaitingFor {
		case "end for":
			return mserror.NewCompilerErrorAt(p.ErrorContext, lineNum,
				"'for' without matching 'end for'")
		case "end while":
			return mserror.NewCompilerErrorAt(p.ErrorContext, lineNum,
				"'while' without matching 'end while'")
		case "else", "end if", "if:MARK":
			return mserror.NewCompilerErrorAt(p.ErrorContext, lineNum,
				"'if' without matching 'end if'")
		}
	}
	return mserror.NewCompilerErrorAt(p.ErrorContext, lineNum, "unmatched block opener")
}

// CreateVM builds a machine whose global context runs the compiled
// global program.
func (p *Parser) CreateVM(standardOutput tac.TextOutputMethod) *tac.Machine {
	return tac.NewMachine(tac.NewContext(p.GlobalCode()), standardOutput)
}

// parseMultipleLines is the statement loop: skip blank lines, pop the
// compilation target at "end function", and stamp every emitted line
// with its source location.
func (p *Parser) parseMultipleLines(tokens *lexer.Lexer) error {
	for !tokens.AtEnd() {
		peek, err := tokens.Peek()
		if err != nil {
			return mserror.EnsureLocation(err, mserror.NewSourceLoc(p.ErrorContext, tokens.LineNum))
		}
		if peek.Type == lexer.EOL_TYPE {
			if _, err := tokens.Dequeue(); err != nil {
				return err
			}
			continue
		}
		location := mserror.NewSourceLoc(p.ErrorContext, tokens.LineNum)

		// "end function" pops back out to the enclosing target.
		if peek.Type == lexer.KEYWORD_TYPE && peek.Text == "end function" {
			if _, err := tokens.Dequeue(); err != nil {
				return err
			}
			if len(p.outputStack) < 2 {
				return mserror.NewCompilerErrorAt(p.ErrorContext, tokens.LineNum,
					"'end function' without matching block starter")
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

// sealFunction closes the current function body: its code is attached to
// the Function object and the parser resumes the enclosing target.
func (p *Parser) sealFunction() {
	finished := p.outputStack[len(p.outputStack)-1]
	if finished.function != nil {
		finished.function.Code = finished.Code
	}
	p.outputStack = p.outputStack[:len(p.outputStack)-1]
	p.output = p.outputStack[len(p.outputStack)-1]
}
