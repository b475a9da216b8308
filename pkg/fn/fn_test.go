package fn

import (
	"context"
	"errors"
	"strconv"
	"testing"
)

func TestResult_OkErr(t *testing.T) {
	r := Ok(3)
	if !r.IsOk() || r.IsErr() {
		t.Error("Ok should be ok")
	}
	if v, err := r.Unwrap(); v != 3 || err != nil {
		t.Errorf("unexpected unwrap: %v %v", v, err)
	}

	e := Err[int](errors.New("boom"))
	if e.IsOk() {
		t.Error("Err should not be ok")
	}
	if got := e.UnwrapOr(7); got != 7 {
		t.Errorf("expected fallback 7, got %d", got)
	}
}

func TestFromPair(t *testing.T) {
	if r := FromPair(1, nil); r.IsErr() {
		t.Error("nil error should be Ok")
	}
	if r := FromPair(0, errors.New("x")); r.IsOk() {
		t.Error("non-nil error should be Err")
	}
}

func TestThen_ShortCircuits(t *testing.T) {
	toStr := func(_ context.Context, i int) Result[string] { return Ok(strconv.Itoa(i)) }
	fail := func(_ context.Context, i int) Result[string] { return Errf[string]("bad %d", i) }
	double := func(_ context.Context, s string) Result[string] { return Ok(s + s) }

	v, err := Then(toStr, double)(context.Background(), 4).Unwrap()
	if err != nil || v != "44" {
		t.Errorf("unexpected: %q %v", v, err)
	}

	second := false
	spy := func(_ context.Context, s string) Result[string] { second = true; return Ok(s) }
	if r := Then(fail, spy)(context.Background(), 1); r.IsOk() {
		t.Error("expected error result")
	}
	if second {
		t.Error("second stage must not run after a failure")
	}
}

func TestTapStage(t *testing.T) {
	seen := 0
	tap := TapStage(func(_ context.Context, i int) { seen = i })
	if r := tap(context.Background(), 9); r.IsErr() {
		t.Fatal("tap should not fail")
	}
	if seen != 9 {
		t.Errorf("tap side effect missing, seen=%d", seen)
	}
}

func TestTracedStage_PassesThrough(t *testing.T) {
	st := TracedStage("test", func(_ context.Context, i int) Result[int] { return Ok(i * 2) })
	v, err := st(context.Background(), 5).Unwrap()
	if err != nil || v != 10 {
		t.Errorf("unexpected: %d %v", v, err)
	}

	failing := TracedStage("fail", func(_ context.Context, _ int) Result[int] {
		return Errf[int]("nope")
	})
	if r := failing(context.Background(), 1); r.IsOk() {
		t.Error("expected error result")
	}
}
