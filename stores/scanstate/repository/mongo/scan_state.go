package mongo

import (
	bCtx "github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/base/database/mongoclient"
	"github.com/artemarket/goapi/base/log"
	"github.com/artemarket/goapi/domain"
	"github.com/artemarket/goapi/service/query"
)

type scanStateMongoRepo struct {
	m query.Mongo
}

func NewScanStateMongoRepo(mCon query.Mongo) domain.ScanStateRepo {
	return &scanStateMongoRepo{m: mCon}
}

func (r *scanStateMongoRepo) Get(ctx bCtx.Ctx, id *domain.ScanStateId) (*domain.ScanState, error) {
	qry, err := mongoclient.MakeBsonM(id)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("failed to make bson.M")
		return nil, err
	}

	state := &domain.ScanState{}
	if err := r.m.FindOne(ctx, domain.TableScanStates, qry, state); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"id":  qry,
		}).Error("failed to FindOne")
		return nil, err
	}
	return state, nil
}

func (r *scanStateMongoRepo) Update(ctx bCtx.Ctx, state *domain.ScanState) error {
	selector, err := mongoclient.MakeBsonM(state.ToId())
	if err != nil {
		ctx.WithField("err", err).Error("failed to make bson.M")
		return err
	}
	if err := r.m.Patch(ctx, domain.TableScanStates, selector, state); err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"id":  state.ToId(),
		}).Error("failed to update")
		return err
	}
	return nil
}

func (r *scanStateMongoRepo) Store(ctx bCtx.Ctx, state *domain.ScanState) error {
	if err := r.m.Insert(ctx, domain.TableScanStates, state); err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"id":  state.ToId(),
		}).Error("failed to store")
		return err
	}
	return nil
}
