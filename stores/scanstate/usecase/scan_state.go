package usecase

import (
	"time"

	bCtx "github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/domain"
)

type scanStateUseCase struct {
	scanStateRepo domain.ScanStateRepo
	ctxTimeout    time.Duration
}

func NewScanStateUseCase(r domain.ScanStateRepo, ctxTimeout time.Duration) domain.ScanStateUseCase {
	return &scanStateUseCase{
		scanStateRepo: r,
		ctxTimeout:    ctxTimeout,
	}
}

func (u *scanStateUseCase) Get(c bCtx.Ctx, id *domain.ScanStateId) (*domain.ScanState, error) {
	ctx, cancel := bCtx.WithTimeout(c, u.ctxTimeout)
	defer cancel()
	return u.scanStateRepo.Get(ctx, id)
}

func (u *scanStateUseCase) Update(c bCtx.Ctx, state *domain.ScanState) error {
	ctx, cancel := bCtx.WithTimeout(c, u.ctxTimeout)
	defer cancel()
	return u.scanStateRepo.Update(ctx, state)
}

func (u *scanStateUseCase) Store(c bCtx.Ctx, state *domain.ScanState) error {
	ctx, cancel := bCtx.WithTimeout(c, u.ctxTimeout)
	defer cancel()
	return u.scanStateRepo.Store(ctx, state)
}
