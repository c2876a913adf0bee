package domain

import (
	"github.com/artemarket/goapi/base/ctx"
)

const DefaultScanTag = "default"

// ScanState remembers how far a reconciliation scan has progressed for one
// marketplace contract, so periodic runs resume instead of replaying history.
type ScanState struct {
	ChainId            ChainId `bson:"chainId"`
	ContractAddress    Address `bson:"contractAddress"`
	Tag                string  `bson:"tag"`
	LastBlockProcessed uint64  `bson:"lastBlockProcessed"`
}

func (s *ScanState) ToId() *ScanStateId {
	return &ScanStateId{
		ChainId:         s.ChainId,
		ContractAddress: s.ContractAddress,
		Tag:             s.Tag,
	}
}

type ScanStateId struct {
	ChainId         ChainId `bson:"chainId"`
	ContractAddress Address `bson:"contractAddress"`
	Tag             string  `bson:"tag"`
}

type ScanStateRepo interface {
	Get(ctx.Ctx, *ScanStateId) (*ScanState, error)
	Update(ctx.Ctx, *ScanState) error
	Store(ctx.Ctx, *ScanState) error
}

type ScanStateUseCase interface {
	Get(ctx.Ctx, *ScanStateId) (*ScanState, error)
	Update(ctx.Ctx, *ScanState) error
	Store(ctx.Ctx, *ScanState) error
}
