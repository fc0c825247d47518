/*
File    : miniscript-go/mserror/mserror.go
*/

// Package mserror defines the error kinds raised by the MiniScript
// pipeline: lexer errors (malformed tokens), compiler errors (syntax and
// block-structure problems found at parse time), and runtime errors
// (everything the TAC evaluator and intrinsics can raise).
//
// Every error optionally carries a SourceLoc naming the compilation
// context (usually a file name) and a 1-based line number. The machine
// fills the location in while unwinding if the raising site did not.
package mserror

import "fmt"

// SourceLoc identifies a source position for error reporting.
type SourceLoc struct {
	Context string // name of the source being parsed/executed (file name, "")
	LineNum int    // 1-based line number
}

// NewSourceLoc builds a location record.
func NewSourceLoc(context string, lineNum int) *SourceLoc {
	return &SourceLoc{Context: context, LineNum: lineNum}
}

// String formats the location the way it appears in error descriptions,
// e.g. "[demo.ms line 12]" or "[line 12]" when no context name is known.
func (loc *SourceLoc) String() string {
	if loc == nil {
		return ""
	}
	if loc.Context == "" {
		return fmt.Sprintf("[line %d]", loc.LineNum)
	}
	return fmt.Sprintf("[%s line %d]", loc.Context, loc.LineNum)
}

// Error is the interface implemented by all MiniScript error kinds.
// It extends the standard error interface with a user-facing description
// and a settable source location.
type Error interface {
	error
	// Description returns the full user-facing message, including the
	// error-kind prefix and the source location when known.
	Description() string
	// Location returns the attached source location, or nil.
	Location() *SourceLoc
	// SetLocation attaches a source location if none is present.
	SetLocation(loc *SourceLoc)
}

// baseError carries the message and location shared by all kinds.
type baseError struct {
	Message string
	Loc     *SourceLoc
}

func (e *baseError) Error() string          { return e.Message }
func (e *baseError) Location() *SourceLoc   { return e.Loc }
func (e *baseError) SetLocation(l *SourceLoc) {
	if e.Loc == nil {
		e.Loc = l
	}
}

func (e *baseError) describe(kind string) string {
	if e.Loc == nil {
		return kind + ": " + e.Message
	}
	return kind + ": " + e.Message + " " + e.Loc.String()
}

// LexerError reports a malformed token (unterminated string, bad numeric
// literal, unrecognized character).
type LexerError struct{ baseError }

// NewLexerError creates a LexerError with a formatted message.
func NewLexerError(format string, a ...interface{}) *LexerError {
	return &LexerError{baseError{Message: fmt.Sprintf(format, a...)}}
}

// Description implements Error.
func (e *LexerError) Description() string { return e.describe("Lexer Error") }

// CompilerError reports a parse-time problem: bad syntax, mismatched block
// openers/closers, a misplaced break or continue.
type CompilerError struct{ baseError }

// NewCompilerError creates a CompilerError with a formatted message.
func NewCompilerError(format string, a ...interface{}) *CompilerError {
	return &CompilerError{baseError{Message: fmt.Sprintf(format, a...)}}
}

// NewCompilerErrorAt creates a CompilerError already carrying a location.
func NewCompilerErrorAt(context string, lineNum int, format string, a ...interface{}) *CompilerError {
	e := NewCompilerError(format, a...)
	e.Loc = NewSourceLoc(context, lineNum)
	return e
}

// Description implements Error.
func (e *CompilerError) Description() string { return e.describe("Compiler Error") }

// RuntimeError reports a problem raised while the machine executes TAC.
type RuntimeError struct{ baseError }

// NewRuntimeError creates a RuntimeError with a formatted message.
func NewRuntimeError(format string, a ...interface{}) *RuntimeError {
	return &RuntimeError{baseError{Message: fmt.Sprintf(format, a...)}}
}

// Description implements Error.
func (e *RuntimeError) Description() string { return e.describe("Runtime Error") }

// The helpers below build the specific runtime failures the evaluator and
// intrinsics raise. They all return *RuntimeError so callers can wrap or
// rethrow uniformly.

// UndefinedIdentifier reports use of a name with no binding anywhere in
// the resolution chain.
func UndefinedIdentifier(name string) *RuntimeError {
	return NewRuntimeError("Undefined Identifier: '%s' is unknown in this context", name)
}

// KeyError reports a map lookup that failed after walking the full
// prototype chain.
func KeyError(key string) *RuntimeError {
	return NewRuntimeError("Key Not Found: '%s' not found in map", key)
}

// IndexError reports an out-of-range list or string index.
func IndexError(index, minOK, maxOK int, desc string) *RuntimeError {
	return NewRuntimeError("Index Error (%s %d out of range (%d to %d))", desc, index, minOK, maxOK)
}

// TypeError reports an operation applied to operands of the wrong type.
func TypeError(format string, a ...interface{}) *RuntimeError {
	return NewRuntimeError("Type Error: "+format, a...)
}

// TooManyArguments reports a call with more arguments than parameters.
func TooManyArguments() *RuntimeError {
	return NewRuntimeError("Too Many Arguments")
}

// LimitExceeded reports a blown resource limit (string/list size,
// argument stack depth, __isa chain depth).
func LimitExceeded(what string) *RuntimeError {
	return NewRuntimeError("Limit Exceeded: %s", what)
}

// EnsureLocation attaches loc to err if err is a MiniScript error with no
// location yet. It returns err unchanged either way.
func EnsureLocation(err error, loc *SourceLoc) error {
	if me, ok := err.(Error); ok && me.Location() == nil && loc != nil {
		me.SetLocation(loc)
	}
	return err
}

// Describe returns the user-facing description for any error: MiniScript
// errors use their Description, anything else is treated as a runtime
// error.
func Describe(err error) string {
	if me, ok := err.(Error); ok {
		return me.Description()
	}
	return "Runtime Error: " + err.Error()
}
