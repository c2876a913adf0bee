package marketplace

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/domain"
)

type ListingStatus string

const (
	ListingStatusNone     ListingStatus = ""
	ListingStatusActive   ListingStatus = "active"
	ListingStatusSold     ListingStatus = "sold"
	ListingStatusCanceled ListingStatus = "canceled"
)

// Listing is one sale offer held by the settlement engine. Erc721 listings
// are identified by (nftContract, tokenId), erc1155 listings by
// (nftContract, listingId) so one token can carry several per-seller listings.
type Listing struct {
	Seller       domain.Address
	NftContract  domain.Address
	TokenId      domain.TokenId
	Price        *big.Int
	Quantity     *big.Int
	IsPrivate    bool
	AllowedBuyer domain.Address
	Status       ListingStatus
	IsErc1155    bool
	ListingId    domain.ListingId
}

type Bid struct {
	Bidder domain.Address
	Amount *big.Int
}

// TokenReader reads collection state from chain, or from a fixture in tests
type TokenReader interface {
	TokenType(ctx.Ctx, domain.Address) (domain.TokenType, error)
	OwnerOf(ctx.Ctx, domain.Address, *big.Int) (domain.Address, error)
	BalanceOf(ctx.Ctx, domain.Address, domain.Address, *big.Int) (*big.Int, error)
	// IsApprovedForAll reports whether the owner granted the marketplace
	// transfer rights on the collection
	IsApprovedForAll(ctx.Ctx, domain.Address, domain.Address) (bool, error)
}

// TokenTransferor moves tokens during settlement using the approval the
// seller granted to the marketplace
type TokenTransferor interface {
	TokenReader
	TransferErc721(c ctx.Ctx, collection, from, to domain.Address, tokenId *big.Int) error
	TransferErc1155(c ctx.Ctx, collection, from, to domain.Address, tokenId, quantity *big.Int) error
}

// RoyaltyRegistry resolves the royalty receiver and rate for a collection.
// A zero receiver means the collection has no registered royalty.
type RoyaltyRegistry interface {
	RoyaltyInfo(c ctx.Ctx, collection domain.Address) (domain.Address, int64, error)
}

// PaymentSender pushes native value out of the engine. A returned error means
// the recipient did not accept the payment; it must not be treated as fatal
// by settlement paths.
type PaymentSender interface {
	Send(c ctx.Ctx, to domain.Address, amount *big.Int) error
}

// Engine is the marketplace settlement state machine. Every operation is
// all-or-nothing: preconditions are checked before any state mutates, and a
// returned error implies no effect.
type Engine interface {
	ListItem(c ctx.Ctx, seller, nftContract domain.Address, tokenId, price *big.Int) error
	CreatePrivateListing(c ctx.Ctx, seller, nftContract domain.Address, tokenId, price *big.Int, allowedBuyer domain.Address, quantity *big.Int) error
	BuyItem(c ctx.Ctx, buyer, nftContract domain.Address, tokenId, value *big.Int) error
	CancelListing(c ctx.Ctx, seller, nftContract domain.Address, tokenId *big.Int) error

	ListErc1155Item(c ctx.Ctx, seller, nftContract domain.Address, tokenId, price, quantity *big.Int) error
	BuyErc1155Item(c ctx.Ctx, buyer, nftContract domain.Address, listingId domain.ListingId, quantity, value *big.Int) error
	CancelErc1155Listing(c ctx.Ctx, seller, nftContract domain.Address, listingId domain.ListingId) error

	PlaceBid(c ctx.Ctx, bidder, nftContract domain.Address, tokenId, amount *big.Int) error
	AcceptBid(c ctx.Ctx, seller, nftContract domain.Address, tokenId *big.Int) error

	ExecuteOffer(c ctx.Ctx, buyer, nftContract domain.Address, tokenId, price *big.Int, seller domain.Address, expiration int64, signature []byte, value *big.Int) error

	WithdrawPendingFunds(c ctx.Ctx, caller domain.Address) (*big.Int, error)
	ClaimFailedPayment(c ctx.Ctx, caller domain.Address) (*big.Int, error)
	WithdrawAccumulatedFees(c ctx.Ctx, caller domain.Address) error

	SetMarketFee(c ctx.Ctx, caller domain.Address, bps int64) error
	SetFeeRecipient(c ctx.Ctx, caller, recipient domain.Address) error
	SetRoyaltiesDisabled(c ctx.Ctx, caller domain.Address, disabled bool) error
	SetPaused(c ctx.Ctx, caller domain.Address, paused bool) error

	GetListing(nftContract domain.Address, tokenId *big.Int) (*Listing, bool)
	GetErc1155Listing(nftContract domain.Address, listingId domain.ListingId) (*Listing, bool)
	IsListed(nftContract domain.Address, tokenId *big.Int) bool
	GetOfferHash(nftContract domain.Address, tokenId, price *big.Int, buyer domain.Address, expiration int64) common.Hash
	GetAccumulatedFees() *big.Int
	GetPendingWithdrawal(addr domain.Address) *big.Int
	GetFailedPayment(addr domain.Address) *big.Int
}
