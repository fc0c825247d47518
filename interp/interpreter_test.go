/*
File    : miniscript-go/interp/interpreter_test.go
*/
package interp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniscript-lang/miniscript-go/tac"
)

// runSource compiles and runs a script, returning everything it printed.
// Any lexer/compiler/runtime error fails the test.
func runSource(t *testing.T, src string) []string {
	t.Helper()
	out := []string{}
	i := NewInterpreter(src,
		func(s string) { out = append(out, s) },
		func(s string) { t.Fatalf("script error: %s", s) })
	require.NoError(t, i.Compile())
	require.NoError(t, i.RunUntilDone(60, false))
	require.True(t, i.Done())
	return out
}

func TestScenario_PrintArithmetic(t *testing.T) {
	assert.Equal(t, []string{"42"}, runSource(t, "print 6*7"))
}

func TestScenario_FunctionCall(t *testing.T) {
	src := "f = function(x); return x*3; end function; print f(14)"
	assert.Equal(t, []string{"42"}, runSource(t, src))
}

func TestScenario_SortInPlace(t *testing.T) {
	src := "a = [5,3,4,1,2]; a.sort; print a"
	assert.Equal(t, []string{"[1, 2, 3, 4, 5]"}, runSource(t, src))
}

func TestScenario_IndexOf(t *testing.T) {
	src := `s = "Hello World"; print s.indexOf("o"); print s.indexOf("o", 4); print s.indexOf("o", 7)`
	assert.Equal(t, []string{"4", "7", "null"}, runSource(t, src))
}

func TestScenario_PrototypeMethod(t *testing.T) {
	src := `c = {}; c.__isa = {greet: function(); print "hi " + self.name; end function}; c.name = "x"; c.greet`
	assert.Equal(t, []string{"hi x"}, runSource(t, src))
}

func TestScenario_ShortCircuitSkipsCall(t *testing.T) {
	src := "n = 0; f = function(); n = n + 1; return 1; end function; print false and f(); print n"
	assert.Equal(t, []string{"0", "0"}, runSource(t, src))
}

func TestShortCircuit_OrPreservesFuzzyValues(t *testing.T) {
	// 0.3 or 0.4 -> |0.3 + 0.4 - 0.12| = 0.58; the truly-true jump must
	// not fire on the fuzzy 0.3.
	assert.Equal(t, []string{"0.58"}, runSource(t, "print 0.3 or 0.4"))
	assert.Equal(t, []string{"0.12"}, runSource(t, "print 0.3 and 0.4"))
	// A truly-true left side short-circuits to exactly 1.
	assert.Equal(t, []string{"1"}, runSource(t, "print 1 or 0.5"))
}

func TestClosure_SharesDefiningEnvironment(t *testing.T) {
	src := `make = function()
  n = 1
  f = function()
    return n
  end function
  n = 2
  return @f
end function
g = make
print g`
	// The closure shares the defining frame's variables map, so the
	// mutation after capture is visible.
	assert.Equal(t, []string{"2"}, runSource(t, src))
}

func TestClosure_CounterThroughOuter(t *testing.T) {
	src := `counter = function()
  n = 0
  inc = function()
    outer.n = outer.n + 1
    return outer.n
  end function
  return @inc
end function
c = counter
print c
print c`
	assert.Equal(t, []string{"1", "2"}, runSource(t, src))
}

func TestLoops_BreakContinue(t *testing.T) {
	src := `total = 0
for i in range(1, 5)
  if i == 3 then continue
  if i == 5 then break
  total = total + i
end for
print total`
	assert.Equal(t, []string{"7"}, runSource(t, src))
}

func TestLoops_WhileCountdown(t *testing.T) {
	src := `x = 3
while x
  print x
  x = x - 1
end while`
	assert.Equal(t, []string{"3", "2", "1"}, runSource(t, src))
}

func TestLoops_MapIterationOrder(t *testing.T) {
	src := `m = {"a": 1, "b": 2}
for kv in m
  print kv.key + "=" + str(kv.value)
end for`
	assert.Equal(t, []string{"a=1", "b=2"}, runSource(t, src))
}

func TestStringsAndContainers(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`print "ab" * 3`, "ababab"},
		{`print "hello!" - "!"`, "hello"},
		{`print "a" + 1`, "a1"},
		{`print null + "x"`, "x"},
		{`print [1, 2] + [3]`, "[1, 2, 3]"},
		{`print {"a": 1} + {"b": 2}`, `{"a": 1, "b": 2}`},
		{`print "abc"[1]`, "b"},
		{`print "abc"[-1]`, "c"},
		{`print [10, 20, 30][1:]`, "[20, 30]"},
		{`print [10, 20, 30][:-1]`, "[10, 20]"},
		{`print 1/3`, "0.333333"},
		{`print 2^10`, "1024"},
		{`print 10 % 3`, "1"},
		{`print "x" == "x"`, "1"},
		{`print [1, [2]] == [1, [2]]`, "1"},
		{`print not ""`, "1"},
	}
	for _, test := range tests {
		assert.Equal(t, []string{test.want}, runSource(t, test.src), "source: %s", test.src)
	}
}

func TestIsaOperator(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"print 5 isa number", "1"},
		{`print "x" isa string`, "1"},
		{"print [] isa list", "1"},
		{"print {} isa map", "1"},
		{"print 5 isa string", "0"},
		{"print null isa map", "0"},
	}
	for _, test := range tests {
		assert.Equal(t, []string{test.want}, runSource(t, test.src), "source: %s", test.src)
	}

	src := `Shape = {}
s = new Shape
print s isa Shape
print s isa map
print {} isa Shape`
	assert.Equal(t, []string{"1", "1", "0"}, runSource(t, src))
}

func TestSuper_KeepsSelf(t *testing.T) {
	src := `Animal = {}
Animal.speak = function()
  return "generic " + self.kind
end function
Dog = new Animal
Dog.speak = function()
  return "dog says " + super.speak
end function
d = new Dog
d.kind = "beagle"
print d.speak`
	assert.Equal(t, []string{"dog says generic beagle"}, runSource(t, src))
}

func TestListAliasing(t *testing.T) {
	src := `a = [1, 2]
b = a
b.push 3
print a`
	assert.Equal(t, []string{"[1, 2, 3]"}, runSource(t, src))
}

func TestLiteralsMakeFreshContainers(t *testing.T) {
	// Each execution of a list literal yields a distinct list: pushing
	// into it must not leak into the next iteration.
	src := `for i in range(1, 2)
  l = []
  l.push i
  print l
end for`
	assert.Equal(t, []string{"[1]", "[2]"}, runSource(t, src))
}

func TestSelfParameterSkipsSlot(t *testing.T) {
	// A method declaring a leading self parameter gets the receiver
	// there, with positional args following.
	src := `obj = {}
obj.scale = function(self, k)
  return self.base * k
end function
obj.base = 7
print obj.scale(6)`
	assert.Equal(t, []string{"42"}, runSource(t, src))
}

func TestDefaultParameters(t *testing.T) {
	src := `f = function(a, b=10)
  return a + b
end function
print f(1)
print f(1, 2)`
	assert.Equal(t, []string{"11", "3"}, runSource(t, src))
}

func TestTooManyArguments(t *testing.T) {
	errs := []string{}
	i := NewInterpreter("f = function(a); return a; end function; f 1, 2",
		func(s string) {}, func(s string) { errs = append(errs, s) })
	require.NoError(t, i.Compile())
	require.Error(t, i.RunUntilDone(60, false))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Too Many Arguments")
}

func TestRuntimeErrorReporting(t *testing.T) {
	errs := []string{}
	i := NewInterpreter("y = 1\nprint nope",
		func(s string) {}, func(s string) { errs = append(errs, s) })
	require.NoError(t, i.Compile())
	require.Error(t, i.RunUntilDone(60, false))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Runtime Error")
	assert.Contains(t, errs[0], "Undefined Identifier")
	assert.Contains(t, errs[0], "line 2")
	assert.True(t, i.Done())
}

func TestCompileErrorReporting(t *testing.T) {
	errs := []string{}
	i := NewInterpreter("if x then\n", func(s string) {}, func(s string) { errs = append(errs, s) })
	require.Error(t, i.Compile())
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Compiler Error")
}

func TestWait_PartialResultResumes(t *testing.T) {
	out := []string{}
	i := NewInterpreter("wait 0.02\nprint \"done\"",
		func(s string) { out = append(out, s) },
		func(s string) { t.Fatalf("script error: %s", s) })
	require.NoError(t, i.Compile())
	start := time.Now()
	// With returnEarly, each run slice hands control back while the
	// intrinsic is mid-wait; repeated calls resume the same line.
	for !i.Done() {
		require.NoError(t, i.RunUntilDone(10, true))
	}
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, []string{"done"}, out)
}

func TestYield_SuspendsRun(t *testing.T) {
	out := []string{}
	i := NewInterpreter("yield\nprint \"after\"",
		func(s string) { out = append(out, s) },
		func(s string) { t.Fatalf("script error: %s", s) })
	require.NoError(t, i.Compile())
	require.NoError(t, i.RunUntilDone(60, false))
	assert.Empty(t, out)
	assert.False(t, i.Done())
	require.NoError(t, i.RunUntilDone(60, false))
	assert.Equal(t, []string{"after"}, out)
	assert.True(t, i.Done())
}

func TestTimeLimit_ReturnsWithoutError(t *testing.T) {
	i := NewInterpreter("while 1\nend while", func(s string) {}, func(s string) {
		t.Fatalf("unexpected error: %s", s)
	})
	require.NoError(t, i.Compile())
	require.NoError(t, i.RunUntilDone(0.05, false))
	assert.False(t, i.Done())
	i.Stop()
	assert.True(t, i.Done())
}

func TestGlobalValues(t *testing.T) {
	i := NewInterpreter("y = x * 2", func(s string) {}, nil)
	require.NoError(t, i.Compile())
	require.NoError(t, i.SetGlobalValue("x", tac.NewValNumber(21)))
	require.NoError(t, i.RunUntilDone(60, false))
	y := i.GetGlobalValue("y")
	require.NotNil(t, y)
	assert.Equal(t, 42.0, y.DoubleValue())
	assert.Nil(t, i.GetGlobalValue("undefined_thing"))
}

func TestRestart_RunsAgain(t *testing.T) {
	out := []string{}
	i := NewInterpreter("print \"hi\"", func(s string) { out = append(out, s) }, nil)
	require.NoError(t, i.RunUntilDone(60, false))
	i.Restart()
	require.NoError(t, i.RunUntilDone(60, false))
	assert.Equal(t, []string{"hi", "hi"}, out)
}

// replSession is a little harness around Interpreter.REPL that captures
// the three output channels separately.
type replSession struct {
	i        *Interpreter
	out      []string
	implicit []string
	errs     []string
}

func newReplSession() *replSession {
	s := &replSession{}
	s.i = NewInterpreter("",
		func(line string) { s.out = append(s.out, line) },
		func(line string) { s.errs = append(s.errs, line) })
	s.i.ImplicitOutput = func(line string) { s.implicit = append(s.implicit, line) }
	return s
}

func (s *replSession) enter(lines ...string) {
	for _, line := range lines {
		s.i.REPL(line, 60)
	}
}

func TestREPL_ImplicitResults(t *testing.T) {
	s := newReplSession()
	s.enter("6*7")
	assert.Equal(t, []string{"42"}, s.implicit)
	s.enter("x = 3", "x + 1")
	assert.Equal(t, []string{"42", "4"}, s.implicit)
	assert.Empty(t, s.errs)
}

func TestREPL_MultiLineFunction(t *testing.T) {
	s := newReplSession()
	s.enter("f = function(a)")
	assert.True(t, s.i.NeedMoreInput())
	s.enter("return a*2", "end function")
	assert.False(t, s.i.NeedMoreInput())
	s.enter("f(21)")
	assert.Equal(t, []string{"42"}, s.implicit)
	assert.Empty(t, s.errs)
}

func TestREPL_LineContinuation(t *testing.T) {
	s := newReplSession()
	s.enter("x = 1 +")
	assert.True(t, s.i.NeedMoreInput())
	s.enter("2", "x")
	assert.Equal(t, []string{"3"}, s.implicit)
}

func TestREPL_RecoversAfterError(t *testing.T) {
	s := newReplSession()
	s.enter("print nope")
	require.Len(t, s.errs, 1)
	assert.Contains(t, s.errs[0], "Undefined Identifier")
	// The session keeps working afterward.
	s.enter("1 + 1")
	assert.Equal(t, []string{"2"}, s.implicit)

	s.enter("x = ]")
	require.Len(t, s.errs, 2)
	assert.Contains(t, s.errs[1], "Compiler Error")
	s.enter("2 + 2")
	assert.Equal(t, []string{"2", "4"}, s.implicit)
}

func TestREPL_StatePersistsAcrossLines(t *testing.T) {
	s := newReplSession()
	s.enter("count = 0",
		"bump = function()",
		"globals.count = globals.count + 1",
		"end function",
		"bump", "bump", "count")
	assert.Equal(t, []string{"2"}, s.implicit)
	assert.Empty(t, s.errs)
}

func TestVersionIntrinsicKeys(t *testing.T) {
	src := `v = version
print v.miniscript == ""
print v.hasIndex("buildDate")
print v.hasIndex("host")
print v.hasIndex("hostName")
print v.hasIndex("hostInfo")`
	assert.Equal(t, []string{"0", "1", "1", "1", "1"}, runSource(t, src))
}

func TestLocalsGlobalsOuter(t *testing.T) {
	src := `x = 1
f = function()
  x = 2
  print x
  print globals.x
  locals.x = 3
  print x
end function
f
print x`
	assert.Equal(t, []string{"2", "1", "3", "1"}, runSource(t, src))
}

func TestAssignToGlobalsIsError(t *testing.T) {
	errs := []string{}
	i := NewInterpreter("globals = 1", func(s string) {}, func(s string) { errs = append(errs, s) })
	require.NoError(t, i.Compile())
	require.Error(t, i.RunUntilDone(60, false))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "can't assign to globals")
}
