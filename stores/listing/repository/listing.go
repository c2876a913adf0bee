package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	bCtx "github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/base/database/mongoclient"
	"github.com/artemarket/goapi/base/log"
	"github.com/artemarket/goapi/domain"
	"github.com/artemarket/goapi/domain/listing"
	"github.com/artemarket/goapi/service/query"
)

type listingRepo struct {
	q query.Mongo
}

func NewListingRepo(q query.Mongo) listing.Repo {
	return &listingRepo{q: q}
}

func (r *listingRepo) FindAll(ctx bCtx.Ctx, optsFns ...listing.FindAllOptionsFunc) ([]listing.Listing, error) {
	opts, err := listing.GetFindAllOptions(optsFns...)
	if err != nil {
		ctx.WithField("err", err).Error("listing.GetFindAllOptions failed")
		return nil, err
	}
	var (
		offset int    = 0
		limit  int    = 0
		sort   string = "_id"
	)
	if opts.Offset != nil {
		offset = int(*opts.Offset)
	}
	if opts.Limit != nil {
		limit = int(*opts.Limit)
	}
	if opts.SortBy != nil && opts.SortDir != nil {
		sort = *opts.SortBy
		if *opts.SortDir == domain.SortDirDesc {
			sort = "-" + sort
		}
	}
	qry, err := mongoclient.MakeBsonM(opts)
	if err != nil {
		ctx.WithFields(log.Fields{
			"opts": opts,
			"err":  err,
		}).Error("MakeBsonM failed")
		return nil, err
	}
	res := []listing.Listing{}
	if err := r.q.Search(ctx, domain.TableListings, offset, limit, sort, qry, &res); err != nil {
		ctx.WithField("err", err).Error("q.Search failed")
		return nil, err
	}
	return res, nil
}

func (r *listingRepo) FindOne(ctx bCtx.Ctx, id *listing.ListingId) (*listing.Listing, error) {
	res := &listing.Listing{}
	if err := r.q.FindOne(ctx, domain.TableListings, bson.M{"id": id.ToDocId()}, res); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"id":  id.ToDocId(),
		}).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (r *listingRepo) Upsert(ctx bCtx.Ctx, l *listing.Listing) error {
	l.Id = l.ToId().ToDocId()
	l.UpdatedAt = time.Now()
	if err := r.q.Upsert(ctx, domain.TableListings, bson.M{"id": l.Id}, l); err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"id":  l.Id,
		}).Error("q.Upsert failed")
		return err
	}
	return nil
}

func (r *listingRepo) BulkUpsert(ctx bCtx.Ctx, ls []listing.Listing) error {
	if len(ls) == 0 {
		return nil
	}
	ops := []query.UpsertOp{}
	nowTime := time.Now()
	for i := range ls {
		ls[i].Id = ls[i].ToId().ToDocId()
		ls[i].UpdatedAt = nowTime
		ops = append(ops, query.UpsertOp{
			Selector: bson.M{"id": ls[i].Id},
			Updater:  ls[i],
		})
	}
	if _, _, err := r.q.BulkUpsert(ctx, domain.TableListings, ops); err != nil {
		ctx.WithFields(log.Fields{
			"err":       err,
			"#listings": len(ls),
		}).Error("q.BulkUpsert failed")
		return err
	}
	return nil
}

func (r *listingRepo) Remove(ctx bCtx.Ctx, id *listing.ListingId) error {
	if err := r.q.Remove(ctx, domain.TableListings, bson.M{"id": id.ToDocId()}); err == query.ErrNotFound {
		return domain.ErrNotFound
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"id":  id.ToDocId(),
		}).Error("q.Remove failed")
		return err
	}
	return nil
}
