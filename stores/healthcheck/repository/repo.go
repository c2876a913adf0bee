package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/base/database/mongoclient"
	hcdomain "github.com/artemarket/goapi/domain/healthcheck"
	"github.com/artemarket/goapi/domain/keys"
	"github.com/artemarket/goapi/service/cache"
)

type impl struct {
	mgoClient *mongoclient.Client
	cache     cache.Service
}

// New creates the repository layer of HealthCheckRepo
func New(
	mgoClient *mongoclient.Client,
	cacheService cache.Service,
) hcdomain.HealthCheckRepo {
	return &impl{
		mgoClient: mgoClient,
		cache:     cacheService,
	}
}

func (im *impl) PingDB(context ctx.Ctx) error {
	ctx, cancel := ctx.WithTimeout(context, 2*time.Second)
	defer cancel()
	if err := im.mgoClient.Ping(ctx, readpref.Primary()); err != nil {
		context.WithField("err", err).Error("ping mongo error")
		return err
	}

	if err := im.cache.Set(ctx, keys.CacheKey(keys.PfxHealthCheck, "testset"), []byte("1")); err != nil {
		context.WithField("err", err).Error("test cache set failed")
		return err
	}
	return nil
}
