package listing

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const nativeTokenDecimals = 18

// ToDisplayPrice converts a smallest-unit native price to its human readable
// form, e.g. 1500000000000000000 -> "1.5".
func ToDisplayPrice(value *big.Int) string {
	return decimal.NewFromBigInt(value, -nativeTokenDecimals).String()
}
