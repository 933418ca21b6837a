package vault

import (
	"math/big"
	"testing"
)

func TestConversionAtUnitIndex(t *testing.T) {
	index := new(big.Int).Set(ray)
	shares, err := AssetsToShares(big.NewInt(100), index, RoundDown)
	if err != nil {
		t.Fatalf("assets to shares: %v", err)
	}
	if shares.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unit index must convert 1:1: got %s", shares)
	}
	assets, err := SharesToAssets(shares, index, RoundDown)
	if err != nil {
		t.Fatalf("shares to assets: %v", err)
	}
	if assets.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unit index round trip: got %s", assets)
	}
}

func TestConversionRoundTripNeverCreatesValue(t *testing.T) {
	index := new(big.Int).Mul(ray, big.NewInt(137))
	index.Quo(index, big.NewInt(100)) // 1.37 ray

	for _, amount := range []int64{1, 3, 7, 99, 1_000, 123_456_789, 1_000_000_000_000} {
		assets := big.NewInt(amount)
		shares, err := AssetsToShares(assets, index, RoundDown)
		if err != nil {
			t.Fatalf("assets to shares for %d: %v", amount, err)
		}
		back, err := SharesToAssets(shares, index, RoundDown)
		if err != nil {
			t.Fatalf("shares to assets for %d: %v", amount, err)
		}
		if back.Cmp(assets) > 0 {
			t.Fatalf("floor round trip created value: %d -> %s -> %s", amount, shares, back)
		}

		sharesUp, err := AssetsToShares(assets, index, RoundUp)
		if err != nil {
			t.Fatalf("assets to shares up for %d: %v", amount, err)
		}
		backUp, err := SharesToAssets(sharesUp, index, RoundUp)
		if err != nil {
			t.Fatalf("shares to assets up for %d: %v", amount, err)
		}
		if backUp.Cmp(assets) < 0 {
			t.Fatalf("ceil round trip lost value: %d -> %s -> %s", amount, sharesUp, backUp)
		}
	}
}

func TestConversionZeroAmounts(t *testing.T) {
	index := new(big.Int).Set(ray)
	shares, err := AssetsToShares(big.NewInt(0), index, RoundUp)
	if err != nil || shares.Sign() != 0 {
		t.Fatalf("zero assets must convert to zero shares: %s, %v", shares, err)
	}
	assets, err := SharesToAssets(nil, index, RoundUp)
	if err != nil || assets.Sign() != 0 {
		t.Fatalf("nil shares must convert to zero assets: %s, %v", assets, err)
	}
}

func TestConversionZeroIndexDefensive(t *testing.T) {
	shares, err := AssetsToShares(big.NewInt(100), big.NewInt(0), RoundDown)
	if err != nil {
		t.Fatalf("zero index conversion: %v", err)
	}
	if shares.Sign() != 0 {
		t.Fatalf("zero index must degrade to zero, got %s", shares)
	}
}

func TestMaxIssuable(t *testing.T) {
	capacity := big.NewInt(1_000)

	if got := MaxIssuable(big.NewInt(0), capacity); got.Cmp(capacity) != 0 {
		t.Fatalf("empty vault headroom: got %s want %s", got, capacity)
	}
	if got := MaxIssuable(big.NewInt(400), capacity); got.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("partial headroom: got %s want 600", got)
	}
	if got := MaxIssuable(big.NewInt(1_000), capacity); got.Sign() != 0 {
		t.Fatalf("full vault must report zero headroom, got %s", got)
	}
	if got := MaxIssuable(big.NewInt(2_000), capacity); got.Sign() != 0 {
		t.Fatalf("over-full vault must report zero headroom, got %s", got)
	}
	if got := MaxIssuable(big.NewInt(0), big.NewInt(0)); got.Sign() != 0 {
		t.Fatalf("zero ceiling must close the vault, got %s", got)
	}
}
