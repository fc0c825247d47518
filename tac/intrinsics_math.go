/*
File    : miniscript-go/tac/intrinsics_math.go
*/
package tac

// Math intrinsics: the usual trigonometry, rounding, and bit-twiddling
// helpers, all working on IEEE-754 doubles.

import "math"

// initMathIntrinsics registers the numeric intrinsic set.
func initMathIntrinsics() {
	// Simple one-argument math functions share a registration helper.
	mathFunc := func(name string, fn func(x float64) float64) {
		f := CreateIntrinsic(name)
		f.AddNumberParam("x", 0)
		f.Code = func(ctx *Context, partial *Result) (*Result, error) {
			return NumberResult(fn(ctx.GetLocalDouble("x"))), nil
		}
	}

	mathFunc("abs", math.Abs)
	mathFunc("acos", math.Acos)
	mathFunc("asin", math.Asin)
	mathFunc("ceil", math.Ceil)
	mathFunc("cos", math.Cos)
	mathFunc("floor", math.Floor)
	mathFunc("sin", math.Sin)
	mathFunc("sqrt", math.Sqrt)
	mathFunc("tan", math.Tan)
	mathFunc("sign", func(x float64) float64 {
		if x > 0 {
			return 1
		}
		if x < 0 {
			return -1
		}
		return 0
	})

	// atan(y=0, x=1): with the default x this is plain arctangent, with
	// an explicit x it is the two-argument form.
	f := CreateIntrinsic("atan")
	f.AddNumberParam("y", 0)
	f.AddNumberParam("x", 1)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		y := ctx.GetLocalDouble("y")
		x := ctx.GetLocalDouble("x")
		if x == 1.0 {
			return NumberResult(math.Atan(y)), nil
		}
		return NumberResult(math.Atan2(y, x)), nil
	}

	// log(x=0, base=10); a base within rounding distance of e means the
	// natural log, computed directly for precision.
	f = CreateIntrinsic("log")
	f.AddNumberParam("x", 0)
	f.AddNumberParam("base", 10)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		x := ctx.GetLocalDouble("x")
		base := ctx.GetLocalDouble("base")
		if math.Abs(base-math.E) < 0.000001 {
			return NumberResult(math.Log(x)), nil
		}
		return NumberResult(math.Log(x) / math.Log(base)), nil
	}

	// round(x, decimalPlaces=0)
	f = CreateIntrinsic("round")
	f.AddNumberParam("x", 0)
	f.AddNumberParam("decimalPlaces", 0)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		x := ctx.GetLocalDouble("x")
		places := ctx.GetLocalInt("decimalPlaces")
		factor := math.Pow(10, float64(places))
		return NumberResult(math.Round(x*factor) / factor), nil
	}

	// pi
	f = CreateIntrinsic("pi")
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		return NumberResult(math.Pi), nil
	}

	// Bitwise operators work on the integer value of their operands.
	bitFunc := func(name string, fn func(i, j int64) int64) {
		f := CreateIntrinsic(name)
		f.AddNumberParam("i", 0)
		f.AddNumberParam("j", 0)
		f.Code = func(ctx *Context, partial *Result) (*Result, error) {
			i := int64(ctx.GetLocalDouble("i"))
			j := int64(ctx.GetLocalDouble("j"))
			return NumberResult(float64(fn(i, j))), nil
		}
	}
	bitFunc("bitAnd", func(i, j int64) int64 { return i & j })
	bitFunc("bitOr", func(i, j int64) int64 { return i | j })
	bitFunc("bitXor", func(i, j int64) int64 { return i ^ j })
}
