/*
File    : miniscript-go/tac/intrinsics.go
*/
package tac

// This file holds the intrinsic-function machinery: the registry mapping
// names to numeric ids, the Result protocol (including partial results
// for long-running intrinsics like wait), and the lazily built type maps
// that serve as prototypes for the primitive types.
//
// The registry is process-wide state, initialized once on first use and
// alive for the life of the process.

import (
	"sync"

	"github.com/miniscript-lang/miniscript-go/mserror"
)

// Host identity, surfaced through the `version` intrinsic. Embedding
// hosts set these before running any script.
var (
	// LanguageVersion is the language version this runtime implements.
	LanguageVersion = "1.6.2"
	// BuildDate is the build date string reported by `version`.
	BuildDate = "unknown"
	// HostVersion is the host application's version number.
	HostVersion = 1.0
	// HostName names the host application.
	HostName = ""
	// HostInfo carries extra host details (a URL, usually).
	HostInfo = ""
)

// Result is what an intrinsic returns. Done means the work is complete
// and ResultValue is the answer; a not-done result carries in-progress
// state, and the machine re-invokes the same intrinsic with it on the
// next step until it reports done.
type Result struct {
	Done        bool
	ResultValue Value
}

// Canonical shared results.
var (
	ResultNull        = &Result{Done: true}
	ResultTrue        = &Result{Done: true, ResultValue: NumberOne}
	ResultFalse       = &Result{Done: true, ResultValue: NumberZero}
	ResultEmptyString = &Result{Done: true, ResultValue: EmptyString}
	ResultWaiting     = &Result{Done: false}
)

// NewResult wraps a finished value.
func NewResult(v Value) *Result { return &Result{Done: true, ResultValue: v} }

// NumberResult wraps a finished number.
func NumberResult(f float64) *Result { return NewResult(NewValNumber(f)) }

// StringResult wraps a finished string.
func StringResult(s string) *Result { return NewResult(NewValString(s)) }

// IntrinsicCode is the implementation signature of an intrinsic: it
// receives the call frame (parameters are bound as locals, the receiver
// as self) and the prior partial result, if any.
type IntrinsicCode func(ctx *Context, partial *Result) (*Result, error)

// Intrinsic is one registered built-in function. Each gets a numeric id
// (its dispatch index) and a little wrapper Function whose single TAC
// line is CallIntrinsicA, providing a local-variable frame for the
// parameters.
type Intrinsic struct {
	Name string
	Code IntrinsicCode

	id          int
	function    *Function
	valFunction *ValFunction
}

var (
	intrinsicsOnce   sync.Once
	allIntrinsics    = []*Intrinsic{nil} // index 0 unused; ids start at 1
	intrinsicsByName = map[string]*Intrinsic{}
)

// CreateIntrinsic registers a new intrinsic under the given name and
// returns its handle for parameter and code setup. Registering during
// host startup (before any script runs) is the expected pattern.
func CreateIntrinsic(name string) *Intrinsic {
	result := &Intrinsic{
		Name:     name,
		id:       len(allIntrinsics),
		function: NewFunction(),
	}
	result.valFunction = NewValFunction(result.function)
	allIntrinsics = append(allIntrinsics, result)
	intrinsicsByName[name] = result
	return result
}

// AddParam declares a parameter with an optional default value.
func (i *Intrinsic) AddParam(name string, defaultValue Value) {
	i.function.Parameters = append(i.function.Parameters, Param{Name: name, DefaultValue: defaultValue})
}

// AddNumberParam declares a numeric parameter with a default.
func (i *Intrinsic) AddNumberParam(name string, defaultValue float64) {
	i.AddParam(name, NewValNumber(defaultValue))
}

// AddStringParam declares a string parameter with a default.
func (i *Intrinsic) AddStringParam(name, defaultValue string) {
	i.AddParam(name, NewValString(defaultValue))
}

// GetFunc returns the wrapper function value for this intrinsic, lazily
// attaching the one-line CallIntrinsicA body.
func (i *Intrinsic) GetFunc() *ValFunction {
	if i.function.Code == nil {
		i.function.Code = []*Line{
			NewLine(NewValTemp(0), CallIntrinsicA, NewValNumber(float64(i.id)), nil),
		}
	}
	return i.valFunction
}

// IntrinsicByName finds a registered intrinsic, or nil. The built-in set
// is installed on first call.
func IntrinsicByName(name string) *Intrinsic {
	initIfNeeded()
	return intrinsicsByName[name]
}

// execIntrinsic dispatches CallIntrinsicA by numeric id.
func execIntrinsic(id int, ctx *Context, partial *Result) (*Result, error) {
	if id <= 0 || id >= len(allIntrinsics) {
		return nil, mserror.NewRuntimeError("invalid intrinsic id %d", id)
	}
	return allIntrinsics[id].Code(ctx, partial)
}

// intrinsicShortName reverse-maps an intrinsic wrapper function to its
// registered name ("" if value is not an intrinsic function).
func intrinsicShortName(v Value) string {
	fv, ok := v.(*ValFunction)
	if !ok {
		return ""
	}
	for _, i := range allIntrinsics[1:] {
		if i.function == fv.Function {
			return i.Name
		}
	}
	return ""
}

// The lazily built prototype maps for the primitive types, plus the
// version map. Use the exported accessors; the raw vars are only touched
// during initialization.
var (
	listTypeMap     *ValMap
	stringTypeMap   *ValMap
	mapTypeMap      *ValMap
	numberTypeMap   *ValMap
	functionTypeMap *ValMap
	versionMap      *ValMap
)

// ListType returns the prototype map for lists (`list` in the language).
func ListType() *ValMap { initIfNeeded(); return listTypeMap }

// StringType returns the prototype map for strings.
func StringType() *ValMap { initIfNeeded(); return stringTypeMap }

// MapType returns the prototype map for maps.
func MapType() *ValMap { initIfNeeded(); return mapTypeMap }

// NumberType returns the prototype map for numbers.
func NumberType() *ValMap { initIfNeeded(); return numberTypeMap }

// FunctionType returns the prototype map for function references.
func FunctionType() *ValMap { initIfNeeded(); return functionTypeMap }

// VersionMap returns the map served by the `version` intrinsic.
func VersionMap() *ValMap { initIfNeeded(); return versionMap }

// initIfNeeded installs the built-in intrinsics and type maps exactly
// once per process.
func initIfNeeded() {
	intrinsicsOnce.Do(func() {
		initCoreIntrinsics()
		initMathIntrinsics()
		initStringIntrinsics()
		initCollectionIntrinsics()
		buildTypeMaps()
	})
}

// protoFunc fetches an intrinsic's wrapper during type-map construction
// (initialization has not finished, so the public lookup is off-limits).
func protoFunc(name string) *ValFunction {
	return intrinsicsByName[name].GetFunc()
}

// buildTypeMaps assembles the primitive-type prototype maps and the
// version map. Runs once, at the tail of intrinsic initialization.
func buildTypeMaps() {
	listTypeMap = NewValMap()
	for _, name := range []string{
		"hasIndex", "indexes", "indexOf", "insert", "join", "len", "pop",
		"pull", "push", "shuffle", "sort", "sum", "remove", "replace", "values",
	} {
		listTypeMap.SetString(name, protoFunc(name))
	}

	stringTypeMap = NewValMap()
	for _, name := range []string{
		"hasIndex", "indexes", "indexOf", "insert", "code", "len", "lower",
		"val", "remove", "replace", "split", "upper", "values",
	} {
		stringTypeMap.SetString(name, protoFunc(name))
	}

	mapTypeMap = NewValMap()
	for _, name := range []string{
		"hasIndex", "indexes", "indexOf", "len", "pop", "pull", "push",
		"shuffle", "sum", "remove", "replace", "values",
	} {
		mapTypeMap.SetString(name, protoFunc(name))
	}

	numberTypeMap = NewValMap()
	functionTypeMap = NewValMap()

	versionMap = NewValMap()
	versionMap.SetString("miniscript", NewValString(LanguageVersion))
	versionMap.SetString("buildDate", NewValString(BuildDate))
	versionMap.SetString("host", NewValNumber(HostVersion))
	versionMap.SetString("hostName", NewValString(HostName))
	versionMap.SetString("hostInfo", NewValString(HostInfo))
}

// CompileSlice appends the TAC lines for a slice expression
// (seq[from:to]) to code: the three arguments are pushed and the slice
// intrinsic is called, leaving its result in the given temporary.
func CompileSlice(code []*Line, seq, fromIdx, toIdx Value, resultTempNum int) []*Line {
	code = append(code, NewLine(nil, PushParam, seq, nil))
	if fromIdx == nil {
		fromIdx = NumberZero
	}
	code = append(code, NewLine(nil, PushParam, fromIdx, nil))
	code = append(code, NewLine(nil, PushParam, toIdx, nil))
	fn := IntrinsicByName("slice").GetFunc()
	code = append(code, NewLine(NewValTemp(resultTempNum), CallFunctionA, fn, NewValNumber(3)))
	return code
}
