package engine

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	bCtx "github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/domain"
	"github.com/artemarket/goapi/domain/marketplace"
)

var timeNow = time.Now

type EngineCfg struct {
	ChainId      domain.ChainId
	Owner        domain.Address
	FeeRecipient domain.Address
	MarketFeeBps int64

	Tokens    marketplace.TokenTransferor
	Royalties marketplace.RoyaltyRegistry
	Payments  marketplace.PaymentSender
	Events    marketplace.EventSink
}

// impl runs every public operation under one mutex so operations apply with
// the same one-at-a-time, all-or-nothing semantics the chain gives a contract
// call. Preconditions are validated and external token transfers performed
// before any internal state mutates.
type impl struct {
	mu sync.Mutex

	chainId   domain.ChainId
	cfg       marketplace.Config
	tokens    marketplace.TokenTransferor
	royalties marketplace.RoyaltyRegistry
	payments  marketplace.PaymentSender
	events    marketplace.EventSink

	listings        map[string]*marketplace.Listing
	bids            map[string]*marketplace.Bid
	ledger          *marketplace.Ledger
	accumulatedFees *big.Int
	usedOffers      map[common.Hash]bool
}

func New(cfg *EngineCfg) marketplace.Engine {
	return &impl{
		chainId: cfg.ChainId,
		cfg: marketplace.Config{
			Owner:        cfg.Owner.ToLower(),
			FeeRecipient: cfg.FeeRecipient.ToLower(),
			MarketFeeBps: cfg.MarketFeeBps,
		},
		tokens:          cfg.Tokens,
		royalties:       cfg.Royalties,
		payments:        cfg.Payments,
		events:          cfg.Events,
		listings:        map[string]*marketplace.Listing{},
		bids:            map[string]*marketplace.Bid{},
		ledger:          marketplace.NewLedger(),
		accumulatedFees: new(big.Int),
		usedOffers:      map[common.Hash]bool{},
	}
}

func key721(nftContract domain.Address, tokenId *big.Int) string {
	return nftContract.ToLowerStr() + "/" + tokenId.String()
}

func key1155(nftContract domain.Address, listingId domain.ListingId) string {
	return nftContract.ToLowerStr() + "/" + string(listingId.ToLower())
}

func (im *impl) emit(c bCtx.Ctx, e marketplace.Event) {
	if im.events != nil {
		im.events.Emit(c, e)
	}
}

// royaltyFor resolves the royalty receiver and rate honoring the global
// disable switch. A missing receiver means no royalty.
func (im *impl) royaltyFor(c bCtx.Ctx, collection domain.Address) (domain.Address, int64, error) {
	if im.cfg.RoyaltiesDisabled || im.royalties == nil {
		return domain.EmptyAddress, 0, nil
	}
	receiver, bps, err := im.royalties.RoyaltyInfo(c, collection)
	if err != nil {
		return domain.EmptyAddress, 0, err
	}
	if receiver.IsEmpty() {
		return domain.EmptyAddress, 0, nil
	}
	return receiver.ToLower(), bps, nil
}

// creditSale books the split of one settled sale: seller net and royalty into
// pending withdrawals, market fee into the accumulator. When the royalty
// receiver is the seller both parts land on the same account.
func (im *impl) creditSale(seller, royaltyReceiver domain.Address, split *marketplace.FeeSplit) {
	if split.Royalty.Sign() > 0 && !royaltyReceiver.IsEmpty() && !royaltyReceiver.Equals(seller) {
		im.ledger.CreditPending(royaltyReceiver, split.Royalty)
		im.ledger.CreditPending(seller, split.SellerNet)
	} else {
		sellerTotal := new(big.Int).Add(split.SellerNet, split.Royalty)
		im.ledger.CreditPending(seller, sellerTotal)
	}
	im.accumulatedFees.Add(im.accumulatedFees, split.MarketFee)
}

// refundExcess pushes overpayment straight back to the buyer. A refused
// refund is parked in the buyer's failed-payment bucket so the sale itself
// cannot be blocked by an uncooperative recipient.
func (im *impl) refundExcess(c bCtx.Ctx, buyer domain.Address, value, cost *big.Int) {
	excess := new(big.Int).Sub(value, cost)
	if excess.Sign() <= 0 {
		return
	}
	if err := im.payments.Send(c, buyer, excess); err != nil {
		c.WithField("err", err).WithField("buyer", buyer).Warn("excess refund refused, parking in failed payments")
		im.ledger.CreditFailed(buyer, excess)
	}
}

// refundBid releases an outstanding escrowed bid into the bidder's pending
// withdrawal, used when the listing leaves the Active state.
func (im *impl) refundBid(key string) {
	if bid, ok := im.bids[key]; ok {
		im.ledger.CreditPending(bid.Bidder, bid.Amount)
		delete(im.bids, key)
	}
}

func copyListing(l *marketplace.Listing) *marketplace.Listing {
	cp := *l
	cp.Price = new(big.Int).Set(l.Price)
	cp.Quantity = new(big.Int).Set(l.Quantity)
	return &cp
}

func (im *impl) GetListing(nftContract domain.Address, tokenId *big.Int) (*marketplace.Listing, bool) {
	im.mu.Lock()
	defer im.mu.Unlock()
	l, ok := im.listings[key721(nftContract, tokenId)]
	if !ok {
		return nil, false
	}
	return copyListing(l), true
}

func (im *impl) GetErc1155Listing(nftContract domain.Address, listingId domain.ListingId) (*marketplace.Listing, bool) {
	im.mu.Lock()
	defer im.mu.Unlock()
	l, ok := im.listings[key1155(nftContract, listingId)]
	if !ok {
		return nil, false
	}
	return copyListing(l), true
}

func (im *impl) IsListed(nftContract domain.Address, tokenId *big.Int) bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	l, ok := im.listings[key721(nftContract, tokenId)]
	return ok && l.Status == marketplace.ListingStatusActive
}

func (im *impl) GetOfferHash(nftContract domain.Address, tokenId, price *big.Int, buyer domain.Address, expiration int64) common.Hash {
	return marketplace.ComputeOfferHash(nftContract, tokenId, price, buyer, expiration, im.chainId)
}

func (im *impl) GetAccumulatedFees() *big.Int {
	im.mu.Lock()
	defer im.mu.Unlock()
	return new(big.Int).Set(im.accumulatedFees)
}

func (im *impl) GetPendingWithdrawal(addr domain.Address) *big.Int {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.ledger.Pending(addr)
}

func (im *impl) GetFailedPayment(addr domain.Address) *big.Int {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.ledger.Failed(addr)
}

func (im *impl) SetMarketFee(c bCtx.Ctx, caller domain.Address, bps int64) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if !caller.Equals(im.cfg.Owner) {
		return marketplace.ErrNotContractOwner
	}
	// leave room for the royalty cap so a sale can never owe more than its price
	if bps < 0 || bps+marketplace.MaxRoyaltyBps > marketplace.BpsDenominator {
		return marketplace.ErrMarketFeeTooHigh
	}
	im.cfg.MarketFeeBps = bps
	im.emit(c, marketplace.MarketFeeChangedEvent{Bps: bps})
	return nil
}

func (im *impl) SetFeeRecipient(c bCtx.Ctx, caller, recipient domain.Address) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if !caller.Equals(im.cfg.Owner) {
		return marketplace.ErrNotContractOwner
	}
	im.cfg.FeeRecipient = recipient.ToLower()
	im.emit(c, marketplace.FeeRecipientChangedEvent{Recipient: recipient.ToLower()})
	return nil
}

func (im *impl) SetRoyaltiesDisabled(c bCtx.Ctx, caller domain.Address, disabled bool) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if !caller.Equals(im.cfg.Owner) {
		return marketplace.ErrNotContractOwner
	}
	im.cfg.RoyaltiesDisabled = disabled
	im.emit(c, marketplace.RoyaltiesDisabledChangedEvent{Disabled: disabled})
	return nil
}

func (im *impl) SetPaused(c bCtx.Ctx, caller domain.Address, paused bool) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if !caller.Equals(im.cfg.Owner) {
		return marketplace.ErrNotContractOwner
	}
	im.cfg.Paused = paused
	im.emit(c, marketplace.PausedChangedEvent{Paused: paused})
	return nil
}
