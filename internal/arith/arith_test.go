package arith

import (
	"math"
	"testing"
)

func TestCheckedAdd(t *testing.T) {
	cases := []struct {
		name    string
		a, b    uint64
		want    uint64
		wantOk  bool
		wantErr Code
	}{
		{"simple", 2, 3, 5, true, 0},
		{"zero", 0, 0, 0, true, 0},
		{"overflow", math.MaxUint64, 1, 0, false, Overflow},
		{"max minus one plus one", math.MaxUint64 - 1, 1, math.MaxUint64, true, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, code := CheckedAdd(tc.a, tc.b)
			if ok != tc.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOk)
			}
			if ok && got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
			if !ok && code != tc.wantErr {
				t.Fatalf("code = %v, want %v", code, tc.wantErr)
			}
		})
	}
}

func TestMulDivWide(t *testing.T) {
	cases := []struct {
		name         string
		a, b, div    uint64
		want         uint64
		wantOk       bool
		wantErr      Code
	}{
		{"scenario1 A", 2_000_000_000, 10_000_000_000, 5_000_000_000, 4_000_000_000, true, 0},
		{"scenario1 B", 3_000_000_000, 10_000_000_000, 5_000_000_000, 6_000_000_000, true, 0},
		{"scenario2 C", 5_000_000_000, 10_000_000_000, 5_000_000_000, 10_000_000_000, true, 0},
		{"divide by zero", 5, 10, 0, 0, false, DivideByZero},
		{"zero divisor distinct from overflow", 1, 1, 0, 0, false, DivideByZero},
		{"large stake wide multiply", 1 << 63, 2, 1, 0, false, Overflow},
		{"floor division residue", 7, 10, 3, 23, true, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, code := MulDivWide(tc.a, tc.b, tc.div)
			if ok != tc.wantOk {
				t.Fatalf("ok = %v, want %v (got=%d code=%v)", ok, tc.wantOk, got, code)
			}
			if ok && got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
			if !ok && code != tc.wantErr {
				t.Fatalf("code = %v, want %v", code, tc.wantErr)
			}
		})
	}
}

func TestMulWideNoOverflow(t *testing.T) {
	// Two max uint64 values multiplied must never panic or lose bits; this
	// is the "stake * total_pool exceeds 2^64" boundary from the spec.
	w := MulWide(math.MaxUint64, math.MaxUint64)
	if w.Hi == 0 && w.Lo == 0 {
		t.Fatal("expected non-zero wide product")
	}
}

func TestDivWideOverflowGuard(t *testing.T) {
	// Numerator whose high word is >= divisor cannot produce a 64-bit
	// quotient; DivWide must report Overflow rather than panicking via
	// bits.Div64's internal divide overflow.
	num := Wide128{Hi: 5, Lo: 0}
	_, ok, code := DivWide(num, 3)
	if ok {
		t.Fatal("expected overflow, got ok")
	}
	if code != Overflow {
		t.Fatalf("code = %v, want Overflow", code)
	}
}
