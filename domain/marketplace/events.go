package marketplace

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/domain"
)

// Event is one settlement state change, named after the on-chain event it
// corresponds to.
type Event interface {
	Name() string
}

type EventSink interface {
	Emit(ctx.Ctx, Event)
}

type ListingCreatedEvent struct {
	Seller       domain.Address
	NftContract  domain.Address
	TokenId      domain.TokenId
	Price        *big.Int
	IsPrivate    bool
	AllowedBuyer domain.Address
	Quantity     *big.Int
	ListingId    domain.ListingId
	IsErc1155    bool
}

func (ListingCreatedEvent) Name() string { return "ItemListed" }

type ItemSoldEvent struct {
	Seller      domain.Address
	Buyer       domain.Address
	NftContract domain.Address
	TokenId     domain.TokenId
	Price       *big.Int
	Quantity    *big.Int
}

func (ItemSoldEvent) Name() string { return "ItemSold" }

type ListingCanceledEvent struct {
	Seller      domain.Address
	NftContract domain.Address
	TokenId     domain.TokenId
	ListingId   domain.ListingId
}

func (ListingCanceledEvent) Name() string { return "ListingCanceled" }

type BidPlacedEvent struct {
	Bidder      domain.Address
	NftContract domain.Address
	TokenId     domain.TokenId
	Amount      *big.Int
}

func (BidPlacedEvent) Name() string { return "BidPlaced" }

type BidAcceptedEvent struct {
	Seller      domain.Address
	Bidder      domain.Address
	NftContract domain.Address
	TokenId     domain.TokenId
	Amount      *big.Int
}

func (BidAcceptedEvent) Name() string { return "BidAccepted" }

type OfferExecutedEvent struct {
	Seller      domain.Address
	Buyer       domain.Address
	NftContract domain.Address
	TokenId     domain.TokenId
	Price       *big.Int
	OfferHash   common.Hash
}

func (OfferExecutedEvent) Name() string { return "OfferExecuted" }

type MarketFeeChangedEvent struct {
	Bps int64
}

func (MarketFeeChangedEvent) Name() string { return "MarketFeeChanged" }

type FeeRecipientChangedEvent struct {
	Recipient domain.Address
}

func (FeeRecipientChangedEvent) Name() string { return "FeeRecipientChanged" }

type RoyaltiesDisabledChangedEvent struct {
	Disabled bool
}

func (RoyaltiesDisabledChangedEvent) Name() string { return "RoyaltiesDisabledChanged" }

type PausedChangedEvent struct {
	Paused bool
}

func (PausedChangedEvent) Name() string { return "PausedChanged" }

type FeesWithdrawnEvent struct {
	Recipient domain.Address
	Amount    *big.Int
}

func (FeesWithdrawnEvent) Name() string { return "FeesWithdrawn" }

// MemorySink collects events in order, mainly for tests and simulations
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(_ ctx.Ctx, e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
