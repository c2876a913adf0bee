package reconciler

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	bCtx "github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/domain"
)

type Hexable interface {
	Hex() string
}

func ToLowerHexStr(h Hexable) string {
	return strings.ToLower(h.Hex())
}

func toDomainAddress(h Hexable) domain.Address {
	return domain.Address(ToLowerHexStr(h))
}

// getDeployedBlock binary-searches the first block where the contract has
// code, used as the scan start when no scan state exists yet.
func getDeployedBlock(ctx bCtx.Ctx, c domain.EthClientRepo, addr common.Address) (uint64, error) {
	blk, err := c.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	l := blk
	s := blk
	for l > 0 {
		step := l / 2
		mid := s - step - 1
		b, err := c.CodeAt(ctx, addr, new(big.Int).SetUint64(mid))
		if err != nil {
			return 0, err
		}
		if len(b) > 0 {
			s = mid
			l -= step + 1
		} else {
			l = step
		}
	}
	return s, nil
}
