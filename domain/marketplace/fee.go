package marketplace

import (
	"math/big"
)

const (
	// BpsDenominator is the basis point scale, 10000 bps = 100%
	BpsDenominator = 10000
	// MaxRoyaltyBps caps collection royalties at 10%
	MaxRoyaltyBps = 1000
)

var bpsDenominator = big.NewInt(BpsDenominator)

// FeeSplit is the settlement breakdown of one sale price. The parts always
// sum to the price; any truncation remainder stays with the seller because
// the seller share is computed by subtraction.
type FeeSplit struct {
	MarketFee *big.Int
	Royalty   *big.Int
	SellerNet *big.Int
}

// ComputeFeeSplit splits price into market fee, royalty and seller net using
// truncating integer division. Royalty rates above MaxRoyaltyBps are rejected
// rather than clamped, and a split that would drive the seller net negative
// returns ErrFeesExceedSalePrice instead of underflowing.
func ComputeFeeSplit(price *big.Int, marketFeeBps, royaltyBps int64) (*FeeSplit, error) {
	if royaltyBps < 0 || royaltyBps > MaxRoyaltyBps {
		return nil, ErrRoyaltyRateTooHigh
	}
	if marketFeeBps < 0 || marketFeeBps > BpsDenominator {
		return nil, ErrMarketFeeTooHigh
	}

	marketFee := new(big.Int).Mul(price, big.NewInt(marketFeeBps))
	marketFee.Div(marketFee, bpsDenominator)

	royalty := new(big.Int).Mul(price, big.NewInt(royaltyBps))
	royalty.Div(royalty, bpsDenominator)

	sellerNet := new(big.Int).Sub(price, marketFee)
	sellerNet.Sub(sellerNet, royalty)
	if sellerNet.Sign() < 0 {
		return nil, ErrFeesExceedSalePrice
	}

	return &FeeSplit{
		MarketFee: marketFee,
		Royalty:   royalty,
		SellerNet: sellerNet,
	}, nil
}
