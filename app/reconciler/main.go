package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	bCtx "github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/base/database/mongoclient"
	"github.com/artemarket/goapi/base/log"
	"github.com/artemarket/goapi/base/reconciler"
	"github.com/artemarket/goapi/domain"
	hcdomain "github.com/artemarket/goapi/domain/healthcheck"
	"github.com/artemarket/goapi/domain/keys"
	mmiddleware "github.com/artemarket/goapi/middleware"
	"github.com/artemarket/goapi/service/cache"
	"github.com/artemarket/goapi/service/cache/provider/primitive"
	"github.com/artemarket/goapi/service/chain"
	serviceContract "github.com/artemarket/goapi/service/chain/contract"
	"github.com/artemarket/goapi/service/query"
	hcHttp "github.com/artemarket/goapi/stores/healthcheck/delivery/http"
	hcRepo "github.com/artemarket/goapi/stores/healthcheck/repository"
	hcUsecase "github.com/artemarket/goapi/stores/healthcheck/usecase"
	listingRepo "github.com/artemarket/goapi/stores/listing/repository"
	listingUseCase "github.com/artemarket/goapi/stores/listing/usecase"
	scanStateRepo "github.com/artemarket/goapi/stores/scanstate/repository/mongo"
	scanStateUseCase "github.com/artemarket/goapi/stores/scanstate/usecase"
)

func init() {
	configFile := pflag.String("config", "infra/configs/reconciler/config.yaml", "config file path")
	pflag.Parse()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(*configFile)
	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	if viper.GetBool(`debug`) {
		log.Log().Info("Service RUN on DEBUG mode")
	}

	// overwrite active network in the config if the environment has been set
	viper.BindEnv("ACTIVENETWORK")
}

func main() {
	ctx, cancel := bCtx.WithCancel(bCtx.Background())

	ctxTimeout := viper.GetDuration("context.timeout")
	scanInterval := viper.GetDuration("scanner.interval")
	chunkSize := viper.GetUint64("scanner.chunkSize")
	batchSize := viper.GetInt("scanner.batchSize")
	followDistance := viper.GetUint64("scanner.followDistance")
	activeNetwork := viper.GetString("activeNetwork")
	networkInfo := viper.Sub(fmt.Sprintf("networks.%s", activeNetwork))
	chainId := networkInfo.GetInt32("chainId")
	rpcUrl := networkInfo.GetString("rpcUrl")
	archiveRpcUrl := networkInfo.GetString("archiveRpcUrl")
	marketplaceContract := viper.GetString(fmt.Sprintf("contract.%s.marketplace", activeNetwork))

	ctx.WithFields(log.Fields{
		"network":             activeNetwork,
		"chainId":             chainId,
		"rpcUrl":              rpcUrl,
		"archiveRpcUrl":       archiveRpcUrl,
		"marketplaceContract": marketplaceContract,
		"scanInterval":        scanInterval,
	}).Info("config")

	ctx.Info("init mongo")
	q, mgoClient := initMongo()

	hcCache := cache.New(cache.ServiceConfig{
		Ttl:   30 * time.Second,
		Pfx:   keys.PfxHealthCheck,
		Cache: primitive.NewPrimitive(keys.PfxHealthCheck, 1),
	})
	hcUC := hcUsecase.New(hcRepo.New(mgoClient, hcCache))

	// start server to pass cloud run health check
	startEchoServer(hcUC)

	ctx.Info("connecting eth client")
	rpcClient := initEthClient(ctx, rpcUrl)
	chainService, err := chain.NewClient(ctx, &chain.ClientCfg{
		RpcUrls: map[int32]string{
			chainId: rpcUrl,
		},
		ArchiveRpcUrls: map[int32]string{
			chainId: archiveRpcUrl,
		},
	})
	if err != nil {
		ctx.WithField("err", err).Panic("chainService init failed")
	}
	erc721Contract := serviceContract.NewErc721(chainService)
	erc1155Contract := serviceContract.NewErc1155(chainService)

	listingUC := listingUseCase.New(listingRepo.NewListingRepo(q))
	scanStateUC := scanStateUseCase.NewScanStateUseCase(scanStateRepo.NewScanStateMongoRepo(q), ctxTimeout)

	r := reconciler.New(&reconciler.ReconcilerCfg{
		ChainId:            domain.ChainId(chainId),
		MarketplaceAddress: common.HexToAddress(marketplaceContract),
		RpcClient:          rpcClient,
		ScanStateUseCase:   scanStateUC,
		ListingUseCase:     listingUC,
		Prober:             reconciler.NewTokenProber(chainId, erc721Contract, erc1155Contract),
		Erc721:             erc721Contract,
		Erc1155:            erc1155Contract,
		ChunkSize:          chunkSize,
		BatchSize:          batchSize,
		FollowDistance:     followDistance,
	})
	defer r.Release()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()

	ctx.Info("starting scan loop")
	if err := r.Scan(ctx); err != nil {
		ctx.WithField("err", err).Error("scan failed")
	}
FOR:
	for {
		select {
		case sig := <-sigCh:
			ctx.WithField("signal", sig.String()).Info("shutting down")
			break FOR
		case <-ticker.C:
			// failed scans keep the old scan state and replay next tick
			if err := r.Scan(ctx); err != nil {
				ctx.WithField("err", err).Error("scan failed")
			}
		}
	}

	cancel()
}

func startEchoServer(hcUC hcdomain.HealthCheckUsecase) {
	context := bCtx.Background()

	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	middL := mmiddleware.InitMiddleware()
	e.Use(middL.ResponseLogger())
	e.Use(middL.AddContext())
	hcHttp.New(e, hcUC)

	address := viper.GetString("server.address")
	context.WithField("address", address).Info("starting server")
	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			context.Error("shutting down the server")
		}
	}()
}

func initMongo() (query.Mongo, *mongoclient.Client) {
	uri := viper.GetString("mongo.uri")
	authDBName := viper.GetString("mongo.authDBName")
	dbName := viper.GetString("mongo.dbName")
	enableSSL := viper.GetBool("mongo.enableSSL")
	checkIndex := viper.GetBool("mongo.checkIndex")
	mongoClient := mongoclient.MustConnectMongoClient(uri, authDBName, dbName, enableSSL, true, 2)
	return query.New(mongoClient, checkIndex), mongoClient
}

func initEthClient(ctx bCtx.Ctx, rpcUrl string) *ethclient.Client {
	client, err := ethclient.DialContext(ctx, rpcUrl)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"url": rpcUrl,
		}).Panic("failed to connect rpc")
	}
	return client
}
