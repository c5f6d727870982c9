package domain

import (
	"errors"
	"fmt"
	"math/bits"
)

// RatePrecision is the fixed-point denominator of exchange rates. A rate of
// 5000 converts 10000 input units into 5000 output units.
const RatePrecision = 10_000

var (
	ErrPairNotFound       = errors.New("exchange pair not found")
	ErrPairExists         = errors.New("exchange pair already exists")
	ErrAssetNotInPair     = errors.New("asset not part of exchange pair")
	ErrReserveShortfall   = errors.New("reserve below requested amount")
	ErrAmountOutOfRange   = errors.New("amount out of range")
	ErrZeroConversionRate = errors.New("conversion rate must be positive")
)

// ExchangePair holds the engine state for one tradable pair on one domain:
// the two conversion rates, one per direction, and the liquidity reserves
// backing swaps. Rates are directional, the reverse rate is not recomputed
// from the forward rate at quote time but stored explicitly.
type ExchangePair struct {
	Domain         DomainID
	Base           AssetID
	Counter        AssetID
	ForwardRate    uint64
	ReverseRate    uint64
	ReserveBase    uint64
	ReserveCounter uint64
	UpdatedAt      int64
}

// Tradable reports whether the pair can convert from into to.
func (p ExchangePair) Tradable(from, to AssetID) bool {
	if from == to {
		return false
	}
	return (from == p.Base && to == p.Counter) || (from == p.Counter && to == p.Base)
}

// Rate returns the conversion rate numerator for the given direction.
func (p ExchangePair) Rate(from, to AssetID) (uint64, error) {
	switch {
	case from == p.Base && to == p.Counter:
		return p.ForwardRate, nil
	case from == p.Counter && to == p.Base:
		return p.ReverseRate, nil
	default:
		return 0, fmt.Errorf("%w: %s -> %s", ErrAssetNotInPair, from, to)
	}
}

// Quote converts amountIn from into to at the stored rate, rounding down.
// It does not touch reserves and is safe to call concurrently.
func (p ExchangePair) Quote(from, to AssetID, amountIn uint64) (uint64, error) {
	rate, err := p.Rate(from, to)
	if err != nil {
		return 0, err
	}
	if rate == 0 {
		return 0, ErrZeroConversionRate
	}
	return mulDiv(amountIn, rate, RatePrecision)
}

// ReserveOf returns the reserve backing payouts of the given asset.
func (p ExchangePair) ReserveOf(asset AssetID) (uint64, error) {
	switch asset {
	case p.Base:
		return p.ReserveBase, nil
	case p.Counter:
		return p.ReserveCounter, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrAssetNotInPair, asset)
	}
}

// DeriveReverseRate computes the reverse-direction numerator from a forward
// one so that converting an amount forward and back never mints value:
// floor(amount * rate / P) * reverse / P <= amount for every amount.
func DeriveReverseRate(forwardRate uint64) (uint64, error) {
	if forwardRate == 0 {
		return 0, ErrZeroConversionRate
	}
	reverse := uint64(RatePrecision) * uint64(RatePrecision) / forwardRate
	if reverse == 0 {
		return 0, ErrZeroConversionRate
	}
	return reverse, nil
}

// mulDiv computes amount * rate / precision on the full 128-bit product, so
// quotes on large amounts do not silently wrap.
func mulDiv(amount, rate, precision uint64) (uint64, error) {
	hi, lo := bits.Mul64(amount, rate)
	if hi >= precision {
		return 0, fmt.Errorf("%w: %d at rate %d", ErrAmountOutOfRange, amount, rate)
	}
	quo, _ := bits.Div64(hi, lo, precision)
	return quo, nil
}
