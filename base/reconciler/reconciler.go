package reconciler

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/viney-shih/goroutines"
	"golang.org/x/xerrors"

	"github.com/artemarket/goapi/base/abi"
	bCtx "github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/base/log"
	"github.com/artemarket/goapi/base/metrics"
	"github.com/artemarket/goapi/domain"
	"github.com/artemarket/goapi/domain/keys"
	"github.com/artemarket/goapi/domain/listing"
	"github.com/artemarket/goapi/service/cache"
	"github.com/artemarket/goapi/service/cache/provider/primitive"
	"github.com/artemarket/goapi/service/chain/contract"
)

var metOnce sync.Once
var met metrics.Service

const (
	defaultChunkSize     = 5000
	defaultBatchSize     = 8
	tooManyLogsTimeout   = 30 * time.Second
	blockTimeCacheTtl    = 24 * time.Hour
	headerRetryLimit     = 5
	headerRetryBaseDelay = time.Second
)

type ReconcilerCfg struct {
	ChainId            domain.ChainId
	MarketplaceAddress common.Address
	RpcClient          domain.EthClientRepo
	ScanStateUseCase   domain.ScanStateUseCase
	ListingUseCase     listing.UseCase
	Prober             TokenProber
	Erc721             contract.Erc721Contract
	Erc1155            contract.Erc1155Contract

	// ChunkSize caps blocks per FilterLogs query, oversized chunks are split
	// on provider errors anyway
	ChunkSize uint64
	// BatchSize is the number of concurrent listing resolutions
	BatchSize int
	Tag       string
	// FollowDistance keeps the scan away from reorg-prone head blocks
	FollowDistance uint64
}

// Reconciler rebuilds the off-chain listing mirror from marketplace events.
// Scans are idempotent: every run may revisit blocks already processed and
// produce the same rows.
type Reconciler struct {
	chainId          domain.ChainId
	contractAddress  common.Address
	rpcClient        domain.EthClientRepo
	scanStateUseCase domain.ScanStateUseCase
	listingUseCase   listing.UseCase
	prober           TokenProber
	erc721           contract.Erc721Contract
	erc1155          contract.Erc1155Contract
	chunkSize        uint64
	pool             *goroutines.Pool
	blockTimes       cache.Service
	tag              string
	followDistance   uint64
	filter           ethereum.FilterQuery

	itemListedTopic      common.Hash
	itemSoldTopic        common.Hash
	listingCanceledTopic common.Hash
}

func New(cfg *ReconcilerCfg) *Reconciler {
	metOnce.Do(func() {
		met = metrics.New("reconciler")
	})
	chunkSize := cfg.ChunkSize
	if chunkSize == 0 {
		chunkSize = defaultChunkSize
	}
	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = defaultBatchSize
	}
	tag := cfg.Tag
	if tag == "" {
		tag = domain.DefaultScanTag
	}
	itemListedTopic := abi.MarketplaceABI.Events["ItemListed"].ID
	itemSoldTopic := abi.MarketplaceABI.Events["ItemSold"].ID
	listingCanceledTopic := abi.MarketplaceABI.Events["ListingCanceled"].ID
	// one filter and one chunk size serve all four topics: sold and canceled
	// volume is negligible next to listings, and an oversized range is split
	// on provider errors anyway
	filter := ethereum.FilterQuery{
		Addresses: []common.Address{cfg.MarketplaceAddress},
		Topics: [][]common.Hash{{
			itemListedTopic,
			abi.LegacyItemListedTopic,
			itemSoldTopic,
			listingCanceledTopic,
		}},
	}
	return &Reconciler{
		chainId:              cfg.ChainId,
		contractAddress:      cfg.MarketplaceAddress,
		rpcClient:            cfg.RpcClient,
		scanStateUseCase:     cfg.ScanStateUseCase,
		listingUseCase:       cfg.ListingUseCase,
		prober:               cfg.Prober,
		erc721:               cfg.Erc721,
		erc1155:              cfg.Erc1155,
		chunkSize:            chunkSize,
		pool:                 goroutines.NewPool(batchSize, goroutines.WithTaskQueueLength(1024)),
		blockTimes: cache.New(cache.ServiceConfig{
			Ttl:   blockTimeCacheTtl,
			Pfx:   keys.PfxBlockTime,
			Cache: primitive.NewPrimitive(keys.PfxBlockTime, 8),
		}),
		tag:                  tag,
		followDistance:       cfg.FollowDistance,
		filter:               filter,
		itemListedTopic:      itemListedTopic,
		itemSoldTopic:        itemSoldTopic,
		listingCanceledTopic: listingCanceledTopic,
	}
}

func (r *Reconciler) Release() {
	r.pool.Release()
}

// Scan processes all marketplace events from the last processed block up to
// the chain head minus the follow distance, and upserts the resulting mirror
// rows. Per-item failures are logged and skipped so one broken collection
// cannot wedge the scan; the state advances past the window regardless, and
// skipped rows heal on the next event that touches them.
func (r *Reconciler) Scan(ctx bCtx.Ctx) error {
	defer met.BumpTime("time", "func", "scan", "chainId", fmt.Sprint(r.chainId)).End()

	state, err := r.setupScanState(ctx)
	if err != nil {
		ctx.WithField("err", err).Error("setupScanState failed")
		return err
	}

	current, err := r.rpcClient.BlockNumber(ctx)
	if err != nil {
		ctx.WithField("err", err).Error("rpcClient.BlockNumber failed")
		return err
	}
	met.BumpAvg("blockchain.lastBlock", float64(current), "chainId", fmt.Sprint(r.chainId))
	if current < r.followDistance {
		return nil
	}
	target := current - r.followDistance
	if target < state.LastBlockProcessed {
		return nil
	}

	logs, err := r.collectLogs(ctx, state.LastBlockProcessed, target)
	if err != nil {
		return err
	}
	met.BumpSum("scan.logs", float64(len(logs)), "chainId", fmt.Sprint(r.chainId))

	events := r.decodeLogs(ctx, logs)

	rows, failed := r.resolve(ctx, groupEvents(events))

	if err := r.listingUseCase.BulkUpsert(ctx, rows); err != nil {
		ctx.WithField("err", err).Error("listingUseCase.BulkUpsert failed")
		return err
	}

	state.LastBlockProcessed = target + 1
	if err := r.scanStateUseCase.Update(ctx, state); err != nil {
		ctx.WithField("err", err).Error("scanStateUseCase.Update failed")
		return err
	}
	ctx.WithFields(log.Fields{
		"chainId":  r.chainId,
		"contract": r.contractAddress.String(),
		"target":   target,
		"#logs":    len(logs),
		"#rows":    len(rows),
		"#failed":  failed,
	}).Info("scan finished")
	met.BumpAvg("scan.lastBlock", float64(state.LastBlockProcessed), "chainId", fmt.Sprint(r.chainId))
	return nil
}

func (r *Reconciler) setupScanState(ctx bCtx.Ctx) (*domain.ScanState, error) {
	id := &domain.ScanStateId{
		ChainId:         r.chainId,
		ContractAddress: toDomainAddress(r.contractAddress),
		Tag:             r.tag,
	}
	state, err := r.scanStateUseCase.Get(ctx, id)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	deployedBlk, err := getDeployedBlock(ctx, r.rpcClient, r.contractAddress)
	if err != nil {
		ctx.WithFields(log.Fields{
			"chainId":  r.chainId,
			"contract": r.contractAddress.String(),
			"err":      err,
		}).Error("failed to get deployed block")
		return nil, err
	}
	ctx.WithFields(log.Fields{
		"chainId":       r.chainId,
		"contract":      r.contractAddress.String(),
		"deployedBlock": deployedBlk,
	}).Info("got deployedBlock")
	state = &domain.ScanState{
		ChainId:            r.chainId,
		ContractAddress:    toDomainAddress(r.contractAddress),
		Tag:                r.tag,
		LastBlockProcessed: deployedBlk,
	}
	if err := r.scanStateUseCase.Store(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// collectLogs walks [from, to] in fixed chunks, splitting any range the
// provider refuses until it shrinks to a single block.
func (r *Reconciler) collectLogs(ctx bCtx.Ctx, from, to uint64) ([]types.Log, error) {
	var collected []types.Log
	for begin := from; begin <= to; begin += r.chunkSize {
		end := begin + r.chunkSize - 1
		if end > to {
			end = to
		}
		logs, err := r.fetchRange(ctx, newBlockRange(begin, end))
		if err != nil {
			return nil, err
		}
		collected = append(collected, logs...)
	}
	return collected, nil
}

func (r *Reconciler) fetchRange(ctx bCtx.Ctx, blkRange *blockRange) ([]types.Log, error) {
	var collected []types.Log
	ranges := []*blockRange{blkRange}
	for len(ranges) > 0 {
		idx := len(ranges) - 1
		rng := ranges[idx]
		ranges = ranges[:idx]
		filter := r.filter
		filter.FromBlock = rng.begin
		filter.ToBlock = rng.end
		tCtx, cancel := bCtx.WithTimeout(ctx, tooManyLogsTimeout)
		logs, err := r.rpcClient.FilterLogs(tCtx, filter)
		cancel()
		if err != nil {
			if rng.begin.Cmp(rng.end) == 0 {
				ctx.WithFields(log.Fields{
					"err":      err,
					"begin":    rng.begin.String(),
					"end":      rng.end.String(),
					"chainId":  r.chainId,
					"contract": r.contractAddress.String(),
				}).Error("failed to get logs within one block")
				return nil, err
			}
			r1, r2 := rng.split()
			ranges = append(ranges, r2, r1)
			ctx.WithFields(log.Fields{
				"chainId":       r.chainId,
				"contract":      r.contractAddress.String(),
				"originalRange": rng.String(),
				"range1":        r1.String(),
				"range2":        r2.String(),
			}).Info("splitting blockRange")
			continue
		}
		collected = append(collected, logs...)
	}
	return collected, nil
}

type eventKind int

const (
	eventListed eventKind = iota
	eventSold
	eventCanceled
)

type listingEvent struct {
	kind         eventKind
	seller       domain.Address
	nftContract  domain.Address
	tokenId      domain.TokenId
	price        *big.Int
	quantity     *big.Int
	isPrivate    bool
	allowedBuyer domain.Address
	meta         domain.LogMeta
}

// after reports whether e was emitted later in chain order than o
func (e *listingEvent) after(o *listingEvent) bool {
	if e.meta.BlockNumber != o.meta.BlockNumber {
		return e.meta.BlockNumber > o.meta.BlockNumber
	}
	return e.meta.LogIndex > o.meta.LogIndex
}

// decodeLogs drops logs it cannot decode; a malformed log only loses itself,
// never the rest of the batch.
func (r *Reconciler) decodeLogs(ctx bCtx.Ctx, logs []types.Log) []*listingEvent {
	events := make([]*listingEvent, 0, len(logs))
	for i := range logs {
		l := &logs[i]
		if len(l.Topics) == 0 {
			continue
		}
		ev, err := r.decodeLog(l)
		if err != nil {
			ctx.WithFields(log.Fields{
				"err":    err,
				"txHash": l.TxHash.Hex(),
				"topic":  l.Topics[0].Hex(),
			}).Error("decodeLog failed, skipping log")
			met.BumpSum("scan.decodeErrors", 1, "chainId", fmt.Sprint(r.chainId))
			continue
		}
		if ev == nil {
			// unknown topic, filter shouldn't let these through
			ctx.WithField("topic", l.Topics[0].Hex()).Warn("skipping unknown event")
			continue
		}
		events = append(events, ev)
	}
	return events
}

func (r *Reconciler) decodeLog(l *types.Log) (*listingEvent, error) {
	meta := func(ev *listingEvent) *listingEvent {
		ev.meta = domain.LogMeta{
			BlockNumber:     domain.BlockNumber(l.BlockNumber),
			TxHash:          domain.TxHash(ToLowerHexStr(l.TxHash)),
			TxIndex:         l.TxIndex,
			LogIndex:        l.Index,
			ContractAddress: toDomainAddress(l.Address),
		}
		return ev
	}
	switch l.Topics[0] {
	case r.itemListedTopic:
		parsed, err := abi.ToItemListedLog(l)
		if err != nil {
			return nil, err
		}
		return meta(&listingEvent{
			kind:         eventListed,
			seller:       toDomainAddress(parsed.Seller),
			nftContract:  toDomainAddress(parsed.NftContract),
			tokenId:      domain.TokenId(parsed.TokenId.String()),
			price:        parsed.Price,
			quantity:     parsed.Quantity,
			isPrivate:    parsed.IsPrivate,
			allowedBuyer: toDomainAddress(parsed.AllowedBuyer),
		}), nil
	case abi.LegacyItemListedTopic:
		parsed, err := abi.ToLegacyItemListedLog(l)
		if err != nil {
			return nil, err
		}
		return meta(&listingEvent{
			kind:         eventListed,
			seller:       toDomainAddress(parsed.Seller),
			nftContract:  toDomainAddress(parsed.NftContract),
			tokenId:      domain.TokenId(parsed.TokenId.String()),
			price:        parsed.Price,
			quantity:     parsed.Quantity,
			isPrivate:    parsed.IsPrivate,
			allowedBuyer: toDomainAddress(parsed.AllowedBuyer),
		}), nil
	case r.itemSoldTopic:
		parsed, err := abi.ToItemSoldLog(l)
		if err != nil {
			return nil, err
		}
		return meta(&listingEvent{
			kind:        eventSold,
			seller:      toDomainAddress(parsed.Seller),
			nftContract: toDomainAddress(parsed.NftContract),
			tokenId:     domain.TokenId(parsed.TokenId.String()),
			price:       parsed.Price,
		}), nil
	case r.listingCanceledTopic:
		parsed, err := abi.ToListingCanceledLog(l)
		if err != nil {
			return nil, err
		}
		return meta(&listingEvent{
			kind:        eventCanceled,
			seller:      toDomainAddress(parsed.Seller),
			nftContract: toDomainAddress(parsed.NftContract),
			tokenId:     domain.TokenId(parsed.TokenId.String()),
		}), nil
	}
	return nil, nil
}

// groupEvents buckets events per mirror row identity, preserving order
func groupEvents(events []*listingEvent) map[string][]*listingEvent {
	groups := map[string][]*listingEvent{}
	for _, ev := range events {
		id := listing.ListingId{
			ContractAddress: ev.nftContract,
			TokenId:         ev.tokenId,
			Seller:          ev.seller,
		}
		key := id.ToDocId()
		groups[key] = append(groups[key], ev)
	}
	return groups
}

// resolve turns each event group into at most one mirror row, running groups
// concurrently. A group that fails is logged and dropped from this pass so
// one broken collection cannot starve the rest of the scan; the healthy rows
// are always returned, alongside the number of groups that failed.
func (r *Reconciler) resolve(ctx bCtx.Ctx, groups map[string][]*listingEvent) ([]listing.Listing, int) {
	var (
		mu     sync.Mutex
		rows   []listing.Listing
		failed int
		wg     sync.WaitGroup
	)
	for key, group := range groups {
		key, group := key, group
		wg.Add(1)
		err := r.pool.Schedule(func() {
			defer wg.Done()
			row, err := r.resolveGroup(ctx, group)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				ctx.WithFields(log.Fields{
					"err": err,
					"key": key,
				}).Error("resolveGroup failed, skipping group")
				failed++
				return
			}
			if row != nil {
				rows = append(rows, *row)
			}
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			failed++
			mu.Unlock()
		}
	}
	wg.Wait()
	if failed > 0 {
		met.BumpSum("scan.resolveErrors", float64(failed), "chainId", fmt.Sprint(r.chainId))
	}
	return rows, failed
}

// resolveGroup applies the status precedence for one (contract, tokenId,
// seller) triple: the latest listed event defines the row, a later cancel
// beats a later sale, and a listing with neither is checked against live
// ownership. An erc721 seller who no longer owns the token marks the row
// canceled; an erc1155 seller whose balance dropped below the listed
// quantity marks it sold.
func (r *Reconciler) resolveGroup(ctx bCtx.Ctx, group []*listingEvent) (*listing.Listing, error) {
	var lastListed *listingEvent
	for _, ev := range group {
		if ev.kind != eventListed {
			continue
		}
		if lastListed == nil || ev.after(lastListed) {
			lastListed = ev
		}
	}
	if lastListed == nil {
		// terminal events without a listed event in the window apply to the
		// existing mirror row, if any
		return r.resolveTerminalOnly(ctx, group)
	}

	status := listing.StatusLive
	for _, ev := range group {
		if ev.kind == eventListed || !ev.after(lastListed) {
			continue
		}
		if ev.kind == eventCanceled {
			status = listing.StatusCanceled
			break
		}
		status = listing.StatusSold
	}

	quantity := big.NewInt(1)
	if lastListed.quantity != nil {
		quantity = lastListed.quantity
	}

	tokenType := domain.TokenType721
	if r.prober != nil {
		t, err := r.prober.TokenType(ctx, lastListed.nftContract)
		if errors.Is(err, domain.ErrUnknownTokenType) {
			// not a token contract we can mirror, leave it out
			ctx.WithField("contract", lastListed.nftContract).Warn("unknown token type, skipping group")
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		tokenType = t
	}

	if status == listing.StatusLive {
		resolved, err := r.liveStatus(ctx, lastListed, tokenType, quantity)
		if err != nil {
			return nil, err
		}
		status = resolved
	}

	listedAt, err := r.blockTime(ctx, uint64(lastListed.meta.BlockNumber))
	if err != nil {
		return nil, err
	}
	// quantities beyond int64 are clamped rather than truncated
	rowQuantity := int64(math.MaxInt64)
	if quantity.IsInt64() {
		rowQuantity = quantity.Int64()
	}
	row := &listing.Listing{
		ChainId:         r.chainId,
		ContractAddress: lastListed.nftContract,
		TokenId:         lastListed.tokenId,
		Seller:          lastListed.seller,
		Price:           lastListed.price.String(),
		DisplayPrice:    listing.ToDisplayPrice(lastListed.price),
		Quantity:        rowQuantity,
		IsPrivate:       lastListed.isPrivate,
		Status:          status,
		TokenType:       tokenType,
		BlockNumber:     uint64(lastListed.meta.BlockNumber),
		LogIndex:        lastListed.meta.LogIndex,
		TxHash:          lastListed.meta.TxHash,
		ListedAt:        listedAt,
	}
	if lastListed.isPrivate && !lastListed.allowedBuyer.IsEmpty() {
		row.AllowedBuyer = lastListed.allowedBuyer
	}
	row.Id = row.ToId().ToDocId()
	return row, nil
}

func (r *Reconciler) resolveTerminalOnly(ctx bCtx.Ctx, group []*listingEvent) (*listing.Listing, error) {
	last := group[0]
	for _, ev := range group[1:] {
		// cancels win over sales at equal precedence
		if ev.after(last) || (ev.kind == eventCanceled && last.kind == eventSold && !last.after(ev)) {
			last = ev
		}
	}
	id := &listing.ListingId{
		ContractAddress: last.nftContract,
		TokenId:         last.tokenId,
		Seller:          last.seller,
	}
	existing, err := r.listingUseCase.FindOne(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		// nothing to update, the listing predates the mirror
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if last.kind == eventCanceled {
		existing.Status = listing.StatusCanceled
	} else {
		existing.Status = listing.StatusSold
	}
	return existing, nil
}

// liveStatus verifies a listing with no terminal event against current chain
// state. An erc721 token that moved away or burned means the listing was
// abandoned; an erc1155 seller holding fewer units than listed has sold them
// outside the window we observed.
func (r *Reconciler) liveStatus(ctx bCtx.Ctx, ev *listingEvent, tokenType domain.TokenType, quantity *big.Int) (listing.Status, error) {
	switch tokenType {
	case domain.TokenType721:
		owner, err := r.erc721.OwnerOf(ctx, int32(r.chainId), ev.nftContract.ToLowerStr(), mustBigInt(ev.tokenId))
		if err != nil {
			// a revert here usually means the token was burned
			ctx.WithFields(log.Fields{
				"err":      err,
				"contract": ev.nftContract,
				"tokenId":  ev.tokenId,
			}).Warn("ownerOf failed, treating listing as stale")
			return listing.StatusCanceled, nil
		}
		if !domain.Address(owner).Equals(ev.seller) {
			return listing.StatusCanceled, nil
		}
		return listing.StatusLive, nil
	case domain.TokenType1155:
		balance, err := r.erc1155.BalanceOf(ctx, int32(r.chainId), ev.nftContract.ToLowerStr(), ev.seller.ToLowerStr(), mustBigInt(ev.tokenId))
		if err != nil {
			return listing.StatusLive, xerrors.Errorf("balanceOf %s/%s: %w", ev.nftContract, ev.tokenId, err)
		}
		if balance.Cmp(quantity) < 0 {
			return listing.StatusSold, nil
		}
		return listing.StatusLive, nil
	}
	return listing.StatusLive, domain.ErrUnknownTokenType
}

// blockTime resolves a block's timestamp, memoized in process since block
// times never change once mined.
func (r *Reconciler) blockTime(ctx bCtx.Ctx, number uint64) (time.Time, error) {
	key := keys.CacheKey(fmt.Sprint(r.chainId), fmt.Sprint(number))
	var ts int64
	err := r.blockTimes.GetByFunc(ctx, key, &ts, func() (interface{}, error) {
		h, err := r.headerByNumberWithRetry(ctx, number, headerRetryLimit, headerRetryBaseDelay)
		if err != nil {
			return nil, err
		}
		t := int64(h.Time)
		return &t, nil
	})
	if err != nil {
		ctx.WithFields(log.Fields{
			"err":     err,
			"number":  number,
			"chainId": r.chainId,
		}).Error("failed to get block time")
		return time.Time{}, err
	}
	return time.Unix(ts, 0), nil
}

func (r *Reconciler) headerByNumberWithRetry(ctx bCtx.Ctx, number uint64, retryLimit int, interval time.Duration) (*types.Header, error) {
	var (
		err error
		h   *types.Header
	)
	blk := new(big.Int).SetUint64(number)
	for i := 0; i < retryLimit; i++ {
		if i > 0 {
			ctx.WithFields(log.Fields{
				"chainId":  r.chainId,
				"retry":    i,
				"interval": interval,
				"blk":      blk,
			}).Warn("rpcClient.HeaderByNumber failed, retry")
			select {
			case <-ctx.Done():
				return nil, xerrors.New("context canceled")
			case <-time.After(interval):
			}
			interval *= 2
		}
		h, err = r.rpcClient.HeaderByNumber(ctx, blk)
		if err == nil {
			break
		}
	}
	return h, err
}

func mustBigInt(id domain.TokenId) *big.Int {
	v, err := id.ToBigInt()
	if err != nil {
		return new(big.Int)
	}
	return v
}
