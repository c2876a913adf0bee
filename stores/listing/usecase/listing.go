package usecase

import (
	bCtx "github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/domain/listing"
)

type impl struct {
	repo listing.Repo
}

func New(repo listing.Repo) listing.UseCase {
	return &impl{repo: repo}
}

func (im *impl) FindAll(c bCtx.Ctx, opts ...listing.FindAllOptionsFunc) ([]listing.Listing, error) {
	return im.repo.FindAll(c, opts...)
}

func (im *impl) FindOne(c bCtx.Ctx, id *listing.ListingId) (*listing.Listing, error) {
	return im.repo.FindOne(c, id)
}

func (im *impl) Upsert(c bCtx.Ctx, l *listing.Listing) error {
	return im.repo.Upsert(c, l)
}

func (im *impl) BulkUpsert(c bCtx.Ctx, ls []listing.Listing) error {
	return im.repo.BulkUpsert(c, ls)
}

func (im *impl) Remove(c bCtx.Ctx, id *listing.ListingId) error {
	return im.repo.Remove(c, id)
}
