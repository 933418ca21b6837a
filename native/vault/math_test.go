package vault

import (
	"math/big"
	"testing"
)

func TestMulDivRounding(t *testing.T) {
	a := big.NewInt(10)
	num := big.NewInt(10)
	den := big.NewInt(3)

	down := mulDiv(a, num, den, RoundDown)
	if down.Cmp(big.NewInt(33)) != 0 {
		t.Fatalf("unexpected floor result: got %s want 33", down)
	}
	up := mulDiv(a, num, den, RoundUp)
	if up.Cmp(big.NewInt(34)) != 0 {
		t.Fatalf("unexpected ceil result: got %s want 34", up)
	}

	exact := mulDiv(big.NewInt(9), num, den, RoundUp)
	if exact.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("exact division must not round up: got %s want 30", exact)
	}
}

func TestMulDivDegenerateInputs(t *testing.T) {
	if got := mulDiv(nil, ray, ray, RoundDown); got.Sign() != 0 {
		t.Fatalf("nil multiplicand should yield zero, got %s", got)
	}
	if got := mulDiv(big.NewInt(0), ray, ray, RoundUp); got.Sign() != 0 {
		t.Fatalf("zero amount should yield zero, got %s", got)
	}
	if got := mulDiv(big.NewInt(5), ray, big.NewInt(0), RoundDown); got.Sign() != 0 {
		t.Fatalf("zero denominator should yield zero, got %s", got)
	}
}

func TestCheckedWordOverflow(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	if _, err := checkedWord(max); err != nil {
		t.Fatalf("2^256-1 must fit: %v", err)
	}
	over := new(big.Int).Add(max, big.NewInt(1))
	if _, err := checkedWord(over); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow for 2^256, got %v", err)
	}
	if _, err := checkedWord(big.NewInt(-1)); err != ErrOverflow {
		t.Fatalf("negative values must not pass the width check, got %v", err)
	}
}

func TestRatePerSecondFromBps(t *testing.T) {
	if got := ratePerSecondFromBps(0); got.Sign() != 0 {
		t.Fatalf("zero rate should yield zero, got %s", got)
	}

	// floor(floor(1000 * 1e27 / 10000) / 31536000)
	annual := new(big.Int).Mul(big.NewInt(1000), ray)
	annual.Quo(annual, basisPoints)
	want := annual.Quo(annual, big.NewInt(secondsPerYear))
	if got := ratePerSecondFromBps(1000); got.Cmp(want) != 0 {
		t.Fatalf("unexpected per-second rate: got %s want %s", got, want)
	}

	// Per-second accrual over a full year reproduces the annual rate to
	// within the flooring remainder.
	recovered := new(big.Int).Mul(ratePerSecondFromBps(1000), big.NewInt(secondsPerYear))
	tenth := new(big.Int).Quo(ray, big.NewInt(10))
	diff := new(big.Int).Sub(tenth, recovered)
	if diff.Sign() < 0 || diff.Cmp(big.NewInt(secondsPerYear)) >= 0 {
		t.Fatalf("per-second flooring drifted too far: diff %s", diff)
	}
}
