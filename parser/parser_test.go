/*
File    : miniscript-go/parser/parser_test.go
*/
package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniscript-lang/miniscript-go/tac"
)

// dump parses source and returns the disassembly of the global program.
func dump(t *testing.T, src string) []string {
	t.Helper()
	p := NewParser()
	require.NoError(t, p.Parse(src, false))
	lines := p.GlobalCode()
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = line.String()
	}
	return out
}

func TestParse_SimpleAssignment(t *testing.T) {
	got := dump(t, "x = 42")
	want := []string{"x := 42"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TAC mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_CommandStatement(t *testing.T) {
	got := dump(t, "print 6*7")
	want := []string{
		"_0 := 6 * 7",
		"push param _0",
		"_1 := call print with 1 args",
		"_ := _1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TAC mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_AssignmentOptimization(t *testing.T) {
	// The temp of the last arithmetic line is retargeted to the LHS
	// instead of emitting a separate assignment.
	got := dump(t, "x = 1 + 2")
	want := []string{"x := 1 + 2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TAC mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_WhileLoop(t *testing.T) {
	got := dump(t, "while x\nx = x - 1\nend while")
	want := []string{
		"_0 := call x with 0 args",
		"goto 5 if not _0",
		"_1 := call x with 0 args",
		"x := _1 - 1",
		"goto 0",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TAC mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_IfBlock(t *testing.T) {
	got := dump(t, "if x then\nprint 1\nend if")
	want := []string{
		"_0 := call x with 0 args",
		"goto 5 if not _0",
		"push param 1",
		"_1 := call print with 1 args",
		"_ := _1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TAC mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_ShortCircuitAnd(t *testing.T) {
	// The short-circuit jump must bypass the RHS and land on the
	// constant-0 line; the straight-line path hops over it. And the
	// final assignment must NOT be folded into the constant line,
	// because that line is a jump target.
	got := dump(t, "a = x and y")
	want := []string{
		"_0 := call x with 0 args",
		"goto 5 if not _0",
		"_1 := call y with 0 args",
		"_2 := _0 and _1",
		"goto 6",
		"_2 := 0",
		"a := _2",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TAC mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_ShortCircuitOrUsesTrulyJump(t *testing.T) {
	got := dump(t, "a = x or y")
	want := []string{
		"_0 := call x with 0 args",
		"goto 5 if truly _0",
		"_1 := call y with 0 args",
		"_2 := _0 or _1",
		"goto 6",
		"_2 := 1",
		"a := _2",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TAC mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_ForLoopLowering(t *testing.T) {
	got := dump(t, "for i in x\nend for")
	want := []string{
		"_0 := call x with 0 args",
		"__i_idx := -1",
		"__i_idx := __i_idx + 1",
		"_1 = len(_0)",
		"_2 := __i_idx >= _1",
		"goto 8 if _2",
		"i = _0 iter __i_idx",
		"goto 2",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TAC mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_FunctionLiteral(t *testing.T) {
	p := NewParser()
	require.NoError(t, p.Parse("f = function(x)\nreturn x*3\nend function", false))
	require.Len(t, p.GlobalCode(), 1)
	line := p.GlobalCode()[0]
	assert.Equal(t, tac.BindAssignA, line.Op)
	assert.Equal(t, "f", line.LHS.(*tac.ValVar).Identifier)

	fn := line.RhsA.(*tac.ValFunction).Function
	require.Len(t, fn.Parameters, 1)
	assert.Equal(t, "x", fn.Parameters[0].Name)
	// Body: _1 := call x 0; _2 := _1 * 3; _0 := _2; return
	require.NotEmpty(t, fn.Code)
	last := fn.Code[len(fn.Code)-1]
	assert.Equal(t, tac.ReturnA, last.Op)
	assert.Equal(t, 0, last.LHS.(*tac.ValTemp).TempNum)
}

func TestParse_AddressOfSuppressesInvoke(t *testing.T) {
	got := dump(t, "f = @g")
	want := []string{"f := @g"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TAC mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_NewUsesCopy(t *testing.T) {
	p := NewParser()
	require.NoError(t, p.Parse("a = new B", false))
	code := p.GlobalCode()
	// A single CopyA (retargeted at `a`) of a literal map whose __isa
	// slot references B; the copy runs fresh on every execution.
	require.Len(t, code, 1)
	assert.Equal(t, tac.CopyA, code[0].Op)
	assert.Equal(t, "a", code[0].LHS.(*tac.ValVar).Identifier)
	m := code[0].RhsA.(*tac.ValMap)
	isa, found := m.Get(tac.MagicIsA)
	require.True(t, found)
	assert.Equal(t, "B", isa.(*tac.ValVar).Identifier)
}

func TestParse_SliceCompilesToIntrinsicCall(t *testing.T) {
	got := dump(t, "b = a[1:3]")
	want := []string{
		"_0 := call a with 0 args",
		"push param _0",
		"push param 1",
		"push param 3",
		"b := call FUNCTION(seq, from=0, to) with 3 args",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TAC mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_SingleLineIf(t *testing.T) {
	got := dump(t, "if x then y = 1 else y = 2")
	want := []string{
		"_0 := call x with 0 args",
		"goto 4 if not _0",
		"y := 1",
		"goto 5",
		"y := 2",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TAC mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"end if":              "'end if' without matching 'if'",
		"end while":           "without matching",
		"break":               "'break' without open loop block",
		"continue":            "'continue' without open loop block",
		"if x then\nend while":    "without matching",
		"while x\nif y then\nend while": "skips expected",
		"x = )":               "is required",
		"while x":             "'while' without matching 'end while'",
		"f = function(x)":     "'function' without matching 'end function'",
	}
	for src, wantSubstr := range tests {
		p := NewParser()
		err := p.Parse(src, false)
		require.Error(t, err, "source: %s", src)
		assert.Contains(t, err.Error(), wantSubstr, "source: %s", src)
	}
}

func TestParse_ReplContinuation(t *testing.T) {
	p := NewParser()
	// A line ending in a binary operator is buffered, not compiled.
	require.NoError(t, p.Parse("x = 1 +", true))
	assert.True(t, p.NeedMoreInput())
	assert.Empty(t, p.GlobalCode())
	require.NoError(t, p.Parse("2", true))
	assert.False(t, p.NeedMoreInput())
	got := []string{}
	for _, line := range p.GlobalCode() {
		got = append(got, line.String())
	}
	if diff := cmp.Diff([]string{"x := 1 + 2"}, got); diff != "" {
		t.Errorf("TAC mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_ReplOpenBlock(t *testing.T) {
	p := NewParser()
	require.NoError(t, p.Parse("while x", true))
	assert.True(t, p.NeedMoreInput())
	require.NoError(t, p.Parse("x = x - 1", true))
	assert.True(t, p.NeedMoreInput())
	require.NoError(t, p.Parse("end while", true))
	assert.False(t, p.NeedMoreInput())
}

func TestEndsWithLineContinuation(t *testing.T) {
	partial := []string{"x = 1 +", "f(a,", "y = ", "a and", "m = {", "l = [", "obj.", "x or"}
	for _, src := range partial {
		assert.True(t, EndsWithLineContinuation(src), "source: %s", src)
	}
	complete := []string{"x = 1", "print y", "while x", `s = "a+"`, "x = 1 // y +"}
	for _, src := range complete {
		assert.False(t, EndsWithLineContinuation(src), "source: %s", src)
	}
}

func TestPartialReset_KeepsGlobalCode(t *testing.T) {
	p := NewParser()
	require.NoError(t, p.Parse("x = 1", false))
	require.NoError(t, p.Parse("while x", true))
	assert.True(t, p.NeedMoreInput())
	p.PartialReset()
	assert.False(t, p.NeedMoreInput())
	assert.NotEmpty(t, p.GlobalCode())
}
