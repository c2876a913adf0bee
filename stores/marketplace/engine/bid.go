package engine

import (
	"math/big"

	"golang.org/x/xerrors"

	bCtx "github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/domain"
	"github.com/artemarket/goapi/domain/marketplace"
)

func (im *impl) PlaceBid(c bCtx.Ctx, bidder, nftContract domain.Address, tokenId, amount *big.Int) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.cfg.Paused {
		return marketplace.ErrPaused
	}
	key := key721(nftContract, tokenId)
	listing, ok := im.listings[key]
	if !ok || listing.Status != marketplace.ListingStatusActive {
		return marketplace.ErrItemNotActive
	}
	if listing.IsPrivate && !bidder.Equals(listing.AllowedBuyer) {
		return marketplace.ErrNotAllowedBuyer
	}
	if amount == nil || amount.Sign() <= 0 {
		return marketplace.ErrBidTooLow
	}
	if prev, ok := im.bids[key]; ok {
		if amount.Cmp(prev.Amount) <= 0 {
			return marketplace.ErrBidTooLow
		}
		// outbid funds become claimable by the previous bidder
		im.ledger.CreditPending(prev.Bidder, prev.Amount)
	}
	im.bids[key] = &marketplace.Bid{
		Bidder: bidder.ToLower(),
		Amount: new(big.Int).Set(amount),
	}
	im.emit(c, marketplace.BidPlacedEvent{
		Bidder:      bidder.ToLower(),
		NftContract: listing.NftContract,
		TokenId:     listing.TokenId,
		Amount:      new(big.Int).Set(amount),
	})
	return nil
}

func (im *impl) AcceptBid(c bCtx.Ctx, seller, nftContract domain.Address, tokenId *big.Int) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	key := key721(nftContract, tokenId)
	listing, ok := im.listings[key]
	if !ok || listing.Status != marketplace.ListingStatusActive {
		return marketplace.ErrListingNotActive
	}
	if !seller.Equals(listing.Seller) {
		return marketplace.ErrNotSeller
	}
	bid, ok := im.bids[key]
	if !ok {
		return marketplace.ErrNoBid
	}

	split, royaltyReceiver, err := im.splitFor(c, listing.NftContract, bid.Amount)
	if err != nil {
		return err
	}
	if err := im.tokens.TransferErc721(c, listing.NftContract, listing.Seller, bid.Bidder, tokenId); err != nil {
		return xerrors.Errorf("transfer erc721 %s/%s: %w", listing.NftContract, tokenId, err)
	}

	// the escrowed bid is consumed by the settlement, not refunded
	delete(im.bids, key)
	listing.Status = marketplace.ListingStatusSold
	im.creditSale(listing.Seller, royaltyReceiver, split)
	im.emit(c, marketplace.BidAcceptedEvent{
		Seller:      listing.Seller,
		Bidder:      bid.Bidder,
		NftContract: listing.NftContract,
		TokenId:     listing.TokenId,
		Amount:      new(big.Int).Set(bid.Amount),
	})
	im.emit(c, marketplace.ItemSoldEvent{
		Seller:      listing.Seller,
		Buyer:       bid.Bidder,
		NftContract: listing.NftContract,
		TokenId:     listing.TokenId,
		Price:       new(big.Int).Set(bid.Amount),
		Quantity:    new(big.Int).Set(one),
	})
	return nil
}
