package engine

import (
	"math/big"

	"golang.org/x/xerrors"

	bCtx "github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/domain"
	"github.com/artemarket/goapi/domain/marketplace"
)

var one = big.NewInt(1)

func (im *impl) ListItem(c bCtx.Ctx, seller, nftContract domain.Address, tokenId, price *big.Int) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.listItem(c, seller, nftContract, tokenId, price, domain.EmptyAddress, one)
}

func (im *impl) CreatePrivateListing(c bCtx.Ctx, seller, nftContract domain.Address, tokenId, price *big.Int, allowedBuyer domain.Address, quantity *big.Int) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if allowedBuyer.Equals(seller) {
		return marketplace.ErrPrivateForSelf
	}
	if quantity == nil {
		quantity = one
	}
	return im.listItem(c, seller, nftContract, tokenId, price, allowedBuyer, quantity)
}

// listItem handles both public and private listings. The collection type
// decides the ownership check: erc721 sellers must own the exact token,
// erc1155 sellers must hold at least the listed quantity.
func (im *impl) listItem(c bCtx.Ctx, seller, nftContract domain.Address, tokenId, price *big.Int, allowedBuyer domain.Address, quantity *big.Int) error {
	if im.cfg.Paused {
		return marketplace.ErrPaused
	}

	tokenType, err := im.tokens.TokenType(c, nftContract)
	if err != nil {
		return xerrors.Errorf("resolve token type for %s: %w", nftContract, err)
	}
	if tokenType == domain.TokenType1155 {
		return im.listErc1155Item(c, seller, nftContract, tokenId, price, quantity, allowedBuyer)
	}

	owner, err := im.tokens.OwnerOf(c, nftContract, tokenId)
	if err != nil {
		return xerrors.Errorf("ownerOf %s/%s: %w", nftContract, tokenId, err)
	}
	if !owner.Equals(seller) {
		return marketplace.ErrNotOwner
	}
	approved, err := im.tokens.IsApprovedForAll(c, nftContract, seller)
	if err != nil {
		return xerrors.Errorf("isApprovedForAll %s: %w", nftContract, err)
	}
	if !approved {
		return marketplace.ErrNotApproved
	}
	if price == nil || price.Sign() <= 0 {
		return marketplace.ErrZeroPrice
	}

	// relisting the same token replaces the previous entry, whatever its state
	listing := &marketplace.Listing{
		Seller:       seller.ToLower(),
		NftContract:  nftContract.ToLower(),
		TokenId:      domain.TokenId(tokenId.String()),
		Price:        new(big.Int).Set(price),
		Quantity:     new(big.Int).Set(one),
		IsPrivate:    !allowedBuyer.IsEmpty(),
		AllowedBuyer: allowedBuyer.ToLower(),
		Status:       marketplace.ListingStatusActive,
	}
	im.listings[key721(nftContract, tokenId)] = listing
	im.emit(c, marketplace.ListingCreatedEvent{
		Seller:       listing.Seller,
		NftContract:  listing.NftContract,
		TokenId:      listing.TokenId,
		Price:        new(big.Int).Set(listing.Price),
		IsPrivate:    listing.IsPrivate,
		AllowedBuyer: listing.AllowedBuyer,
		Quantity:     new(big.Int).Set(listing.Quantity),
	})
	return nil
}

func (im *impl) ListErc1155Item(c bCtx.Ctx, seller, nftContract domain.Address, tokenId, price, quantity *big.Int) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.cfg.Paused {
		return marketplace.ErrPaused
	}
	tokenType, err := im.tokens.TokenType(c, nftContract)
	if err != nil {
		return xerrors.Errorf("resolve token type for %s: %w", nftContract, err)
	}
	if tokenType != domain.TokenType1155 {
		return marketplace.ErrWrongCollectionType
	}
	return im.listErc1155Item(c, seller, nftContract, tokenId, price, quantity, domain.EmptyAddress)
}

func (im *impl) listErc1155Item(c bCtx.Ctx, seller, nftContract domain.Address, tokenId, price, quantity *big.Int, allowedBuyer domain.Address) error {
	if quantity == nil || quantity.Sign() <= 0 {
		return marketplace.ErrInvalidQuantity
	}
	balance, err := im.tokens.BalanceOf(c, nftContract, seller, tokenId)
	if err != nil {
		return xerrors.Errorf("balanceOf %s/%s: %w", nftContract, tokenId, err)
	}
	if balance.Cmp(quantity) < 0 {
		return marketplace.ErrInsufficientBalance
	}
	approved, err := im.tokens.IsApprovedForAll(c, nftContract, seller)
	if err != nil {
		return xerrors.Errorf("isApprovedForAll %s: %w", nftContract, err)
	}
	if !approved {
		return marketplace.ErrNotApproved
	}
	if price == nil || price.Sign() <= 0 {
		return marketplace.ErrZeroPrice
	}

	listingId := marketplace.ComputeListingId(tokenId, seller)
	listing := &marketplace.Listing{
		Seller:       seller.ToLower(),
		NftContract:  nftContract.ToLower(),
		TokenId:      domain.TokenId(tokenId.String()),
		Price:        new(big.Int).Set(price),
		Quantity:     new(big.Int).Set(quantity),
		IsPrivate:    !allowedBuyer.IsEmpty(),
		AllowedBuyer: allowedBuyer.ToLower(),
		Status:       marketplace.ListingStatusActive,
		IsErc1155:    true,
		ListingId:    listingId,
	}
	im.listings[key1155(nftContract, listingId)] = listing
	im.emit(c, marketplace.ListingCreatedEvent{
		Seller:       listing.Seller,
		NftContract:  listing.NftContract,
		TokenId:      listing.TokenId,
		Price:        new(big.Int).Set(listing.Price),
		IsPrivate:    listing.IsPrivate,
		AllowedBuyer: listing.AllowedBuyer,
		Quantity:     new(big.Int).Set(listing.Quantity),
		ListingId:    listingId,
		IsErc1155:    true,
	})
	return nil
}

func (im *impl) BuyItem(c bCtx.Ctx, buyer, nftContract domain.Address, tokenId, value *big.Int) error {
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
	if listing.IsPrivate && !buyer.Equals(listing.AllowedBuyer) {
		return marketplace.ErrNotAllowedBuyer
	}
	if value == nil || value.Cmp(listing.Price) < 0 {
		return marketplace.ErrInsufficientFunds
	}

	split, royaltyReceiver, err := im.splitFor(c, listing.NftContract, listing.Price)
	if err != nil {
		return err
	}
	if err := im.tokens.TransferErc721(c, listing.NftContract, listing.Seller, buyer, tokenId); err != nil {
		return xerrors.Errorf("transfer erc721 %s/%s: %w", listing.NftContract, tokenId, err)
	}

	listing.Status = marketplace.ListingStatusSold
	im.creditSale(listing.Seller, royaltyReceiver, split)
	im.refundBid(key)
	im.refundExcess(c, buyer, value, listing.Price)
	im.emit(c, marketplace.ItemSoldEvent{
		Seller:      listing.Seller,
		Buyer:       buyer.ToLower(),
		NftContract: listing.NftContract,
		TokenId:     listing.TokenId,
		Price:       new(big.Int).Set(listing.Price),
		Quantity:    new(big.Int).Set(one),
	})
	return nil
}

func (im *impl) BuyErc1155Item(c bCtx.Ctx, buyer, nftContract domain.Address, listingId domain.ListingId, quantity, value *big.Int) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.cfg.Paused {
		return marketplace.ErrPaused
	}
	key := key1155(nftContract, listingId)
	listing, ok := im.listings[key]
	if !ok || listing.Status != marketplace.ListingStatusActive {
		return marketplace.ErrItemNotActive
	}
	if listing.IsPrivate && !buyer.Equals(listing.AllowedBuyer) {
		return marketplace.ErrNotAllowedBuyer
	}
	if quantity == nil || quantity.Sign() <= 0 || quantity.Cmp(listing.Quantity) > 0 {
		return marketplace.ErrInvalidQuantity
	}

	// price is per unit for erc1155 listings
	cost := new(big.Int).Mul(listing.Price, quantity)
	if value == nil || value.Cmp(cost) < 0 {
		return marketplace.ErrInsufficientFunds
	}

	tokenId, err := listing.TokenId.ToBigInt()
	if err != nil {
		return err
	}

	// the seller may have moved tokens since listing, re-check the balance
	balance, err := im.tokens.BalanceOf(c, listing.NftContract, listing.Seller, tokenId)
	if err != nil {
		return xerrors.Errorf("balanceOf %s/%s: %w", listing.NftContract, listing.TokenId, err)
	}
	if balance.Cmp(quantity) < 0 {
		return marketplace.ErrInsufficientBalance
	}

	split, royaltyReceiver, err := im.splitFor(c, listing.NftContract, cost)
	if err != nil {
		return err
	}
	if err := im.tokens.TransferErc1155(c, listing.NftContract, listing.Seller, buyer, tokenId, quantity); err != nil {
		return xerrors.Errorf("transfer erc1155 %s/%s: %w", listing.NftContract, listing.TokenId, err)
	}

	listing.Quantity = new(big.Int).Sub(listing.Quantity, quantity)
	if listing.Quantity.Sign() == 0 {
		listing.Status = marketplace.ListingStatusSold
	}
	im.creditSale(listing.Seller, royaltyReceiver, split)
	im.refundExcess(c, buyer, value, cost)
	im.emit(c, marketplace.ItemSoldEvent{
		Seller:      listing.Seller,
		Buyer:       buyer.ToLower(),
		NftContract: listing.NftContract,
		TokenId:     listing.TokenId,
		Price:       cost,
		Quantity:    new(big.Int).Set(quantity),
	})
	return nil
}

func (im *impl) CancelListing(c bCtx.Ctx, seller, nftContract domain.Address, tokenId *big.Int) error {
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
	listing.Status = marketplace.ListingStatusCanceled
	im.refundBid(key)
	im.emit(c, marketplace.ListingCanceledEvent{
		Seller:      listing.Seller,
		NftContract: listing.NftContract,
		TokenId:     listing.TokenId,
	})
	return nil
}

func (im *impl) CancelErc1155Listing(c bCtx.Ctx, seller, nftContract domain.Address, listingId domain.ListingId) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	listing, ok := im.listings[key1155(nftContract, listingId)]
	if !ok || listing.Status != marketplace.ListingStatusActive {
		return marketplace.ErrListingNotActive
	}
	if !seller.Equals(listing.Seller) {
		return marketplace.ErrNotSeller
	}
	listing.Status = marketplace.ListingStatusCanceled
	im.emit(c, marketplace.ListingCanceledEvent{
		Seller:      listing.Seller,
		NftContract: listing.NftContract,
		TokenId:     listing.TokenId,
		ListingId:   listing.ListingId,
	})
	return nil
}

// splitFor resolves royalty info and computes the fee split for a sale amount
func (im *impl) splitFor(c bCtx.Ctx, collection domain.Address, amount *big.Int) (*marketplace.FeeSplit, domain.Address, error) {
	royaltyReceiver, royaltyBps, err := im.royaltyFor(c, collection)
	if err != nil {
		return nil, domain.EmptyAddress, xerrors.Errorf("royalty info for %s: %w", collection, err)
	}
	split, err := marketplace.ComputeFeeSplit(amount, im.cfg.MarketFeeBps, royaltyBps)
	if err != nil {
		return nil, domain.EmptyAddress, err
	}
	return split, royaltyReceiver, nil
}
