/*
File    : miniscript-go/tac/intrinsics_core.go
*/
package tac

// Core intrinsics: output, conversion, hashing, timing, cooperative
// scheduling, and the type/version maps.

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// randGenerator is the shared random source for rnd and shuffle, seeded
// lazily from the clock (or explicitly through rnd's seed parameter).
var randGenerator *rand.Rand

func getRand() *rand.Rand {
	if randGenerator == nil {
		randGenerator = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return randGenerator
}

// initCoreIntrinsics registers print, str, val, hash, time, wait, yield,
// rnd, version, funcRef, and the four type intrinsics.
func initCoreIntrinsics() {
	// print(s="")
	f := CreateIntrinsic("print")
	f.AddParam("s", EmptyString)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		ctx.VM().StandardOutput(ToStringOf(ctx.VM(), ctx.GetLocal("s")))
		return ResultNull, nil
	}

	// str(x="")
	f = CreateIntrinsic("str")
	f.AddParam("x", EmptyString)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		return StringResult(ToStringOf(ctx.VM(), ctx.GetLocal("x"))), nil
	}

	// val(self=0): number from a string (0 if unparseable)
	f = CreateIntrinsic("val")
	f.AddNumberParam("self", 0)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		switch v := ctx.SelfValue().(type) {
		case *ValNumber:
			return NewResult(v), nil
		case *ValString:
			d, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
			if err != nil {
				return NumberResult(0), nil
			}
			return NumberResult(d), nil
		default:
			return ResultNull, nil
		}
	}

	// hash(obj)
	f = CreateIntrinsic("hash")
	f.AddParam("obj", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		return NumberResult(float64(HashOf(ctx.GetLocal("obj"), DefaultEqualityDepth))), nil
	}

	// time: seconds since this machine started running
	f = CreateIntrinsic("time")
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		return NumberResult(ctx.VM().RunTime()), nil
	}

	// wait(seconds=1): a partial-result intrinsic. The first invocation
	// stores the wake-up time as its in-progress state; each following
	// step checks the clock until it passes.
	f = CreateIntrinsic("wait")
	f.AddNumberParam("seconds", 1)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		now := ctx.VM().RunTime()
		if partial == nil {
			wakeTime := now + ctx.GetLocalDouble("seconds")
			return &Result{Done: false, ResultValue: NewValNumber(wakeTime)}, nil
		}
		if now >= DoubleValueOf(partial.ResultValue) {
			return ResultNull, nil
		}
		return partial, nil
	}

	// yield: give up the rest of this run slice
	f = CreateIntrinsic("yield")
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		ctx.VM().yielding = true
		return ResultNull, nil
	}

	// rnd(seed): pseudorandom number in [0,1); a seed reseeds the shared
	// generator deterministically
	f = CreateIntrinsic("rnd")
	f.AddParam("seed", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		if seed := ctx.GetLocal("seed"); seed != nil {
			randGenerator = rand.New(rand.NewSource(int64(IntValueOf(seed))))
		}
		return NumberResult(getRand().Float64()), nil
	}

	// version: map of language/host identity strings
	f = CreateIntrinsic("version")
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		return NewResult(VersionMap()), nil
	}

	// funcRef: the function prototype map
	f = CreateIntrinsic("funcRef")
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		return NewResult(FunctionType()), nil
	}

	// list, map, number, string: the primitive-type prototype maps
	f = CreateIntrinsic("list")
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		return NewResult(ListType()), nil
	}
	f = CreateIntrinsic("map")
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		return NewResult(MapType()), nil
	}
	f = CreateIntrinsic("number")
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		return NewResult(NumberType()), nil
	}
	f = CreateIntrinsic("string")
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		return NewResult(StringType()), nil
	}
}
