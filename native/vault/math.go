package vault

import (
	"math/big"

	"github.com/holiman/uint256"
)

var (
	basisPoints = big.NewInt(10_000)
	ray         = mustBigInt("1000000000000000000000000000") // 1e27 precision
)

// secondsPerYear is the accrual period baseline: 365 days of wall-clock time.
const secondsPerYear = 31_536_000

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// Rounding selects the direction applied when a conversion does not divide
// evenly. Every call site must choose the direction that favours the vault.
type Rounding uint8

const (
	// RoundDown truncates toward zero.
	RoundDown Rounding = iota
	// RoundUp rounds away from zero for any non-zero remainder.
	RoundUp
)

// mulDiv computes a*num/den at full precision with the requested rounding.
// Nil or non-positive inputs and a zero denominator all collapse to zero so
// callers never divide by zero.
func mulDiv(a, num, den *big.Int, rounding Rounding) *big.Int {
	if a == nil || a.Sign() <= 0 || num == nil || num.Sign() <= 0 || den == nil || den.Sign() == 0 {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, num)
	quo, rem := new(big.Int).QuoRem(product, den, new(big.Int))
	if rounding == RoundUp && rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return quo
}

// checkedWord verifies the value fits the 256-bit storage width used for
// balances and the accrual index. The original value is returned untouched on
// success; values that would truncate fail loudly instead of wrapping.
func checkedWord(v *big.Int) (*big.Int, error) {
	if v == nil {
		return big.NewInt(0), nil
	}
	if v.Sign() < 0 {
		return nil, ErrOverflow
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return nil, ErrOverflow
	}
	return v, nil
}

// ratePerSecondFromBps converts an annual basis-point rate into a ray-scaled
// per-second rate. Both divisions floor, matching the stored cache exactly.
func ratePerSecondFromBps(rateBps uint64) *big.Int {
	if rateBps == 0 {
		return big.NewInt(0)
	}
	annual := new(big.Int).Mul(new(big.Int).SetUint64(rateBps), ray)
	annual.Quo(annual, basisPoints)
	return annual.Quo(annual, big.NewInt(secondsPerYear))
}
