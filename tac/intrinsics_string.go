/*
File    : miniscript-go/tac/intrinsics_string.go
*/
package tac

// String intrinsics: character conversions, case mapping, and splitting.

import (
	"strings"

	"github.com/miniscript-lang/miniscript-go/mserror"
)

// initStringIntrinsics registers char, code, lower, upper, and split.
func initStringIntrinsics() {
	// char(codePoint=65): one-character string for a Unicode code point
	f := CreateIntrinsic("char")
	f.AddNumberParam("codePoint", 65)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		return StringResult(string(rune(ctx.GetLocalInt("codePoint")))), nil
	}

	// code(self): Unicode code point of the first character
	f = CreateIntrinsic("code")
	f.AddParam("self", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		self := ctx.SelfValue()
		if self == nil {
			return NumberResult(0), nil
		}
		s := self.ToString(ctx.VM())
		if s == "" {
			return NumberResult(0), nil
		}
		runes := []rune(s)
		return NumberResult(float64(runes[0])), nil
	}

	// lower(self) / upper(self): case-mapped copy for strings; any other
	// type passes through unchanged.
	f = CreateIntrinsic("lower")
	f.AddParam("self", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		if s, ok := ctx.SelfValue().(*ValString); ok {
			return StringResult(strings.ToLower(s.Value)), nil
		}
		return NewResult(ctx.SelfValue()), nil
	}

	f = CreateIntrinsic("upper")
	f.AddParam("self", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		if s, ok := ctx.SelfValue().(*ValString); ok {
			return StringResult(strings.ToUpper(s.Value)), nil
		}
		return NewResult(ctx.SelfValue()), nil
	}

	// split(self, delim=" ", maxCount=-1): split a string into a list of
	// pieces. maxCount bounds the number of results; the final piece
	// carries the unsplit remainder.
	f = CreateIntrinsic("split")
	f.AddParam("self", nil)
	f.AddStringParam("delim", " ")
	f.AddNumberParam("maxCount", -1)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		self, ok := ctx.SelfValue().(*ValString)
		if !ok {
			return nil, mserror.TypeError("split requires a string")
		}
		delim := ctx.GetLocalString("delim")
		if delim == "" {
			return nil, mserror.NewRuntimeError("split: delimiter must not be empty")
		}
		maxCount := ctx.GetLocalInt("maxCount")
		result := NewValList()
		s := self.Value
		for maxCount < 0 || len(result.Values) < maxCount-1 {
			idx := strings.Index(s, delim)
			if idx < 0 {
				break
			}
			result.Values = append(result.Values, NewValString(s[:idx]))
			s = s[idx+len(delim):]
		}
		result.Values = append(result.Values, NewValString(s))
		return NewResult(result), nil
	}
}
