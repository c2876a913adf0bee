package listing

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToDisplayPrice(t *testing.T) {
	req := require.New(t)

	wei, ok := new(big.Int).SetString("1500000000000000000", 10)
	req.True(ok)
	req.Equal("1.5", ToDisplayPrice(wei))

	req.Equal("0", ToDisplayPrice(big.NewInt(0)))
	req.Equal("0.000000000000000001", ToDisplayPrice(big.NewInt(1)))

	whole, ok := new(big.Int).SetString("25000000000000000000", 10)
	req.True(ok)
	req.Equal("25", ToDisplayPrice(whole))
}
