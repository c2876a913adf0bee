package engine

import (
	"math/big"

	"golang.org/x/xerrors"

	bCtx "github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/base/ethereum"
	"github.com/artemarket/goapi/domain"
	"github.com/artemarket/goapi/domain/marketplace"
)

// ExecuteOffer settles a purchase authorized by the seller's off-chain
// signature. The offer hash binds collection, token, price, buyer, expiration
// and chain id; each hash settles at most once and only the named buyer can
// consume it. Listings are left untouched, any stale mirror row is repaired
// by reconciliation against live ownership.
func (im *impl) ExecuteOffer(c bCtx.Ctx, buyer, nftContract domain.Address, tokenId, price *big.Int, seller domain.Address, expiration int64, signature []byte, value *big.Int) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.cfg.Paused {
		return marketplace.ErrPaused
	}
	if expiration <= timeNow().Unix() {
		return marketplace.ErrExpirationInPast
	}
	if value == nil || value.Cmp(price) < 0 {
		return marketplace.ErrInsufficientPayment
	}

	hash := marketplace.ComputeOfferHash(nftContract, tokenId, price, buyer, expiration, im.chainId)
	if im.usedOffers[hash] {
		return marketplace.ErrOfferAlreadyUsed
	}

	owner, err := im.tokens.OwnerOf(c, nftContract, tokenId)
	if err != nil {
		return xerrors.Errorf("ownerOf %s/%s: %w", nftContract, tokenId, err)
	}
	if !owner.Equals(seller) {
		return marketplace.ErrNotOwner
	}

	valid, err := ethereum.ValidateMsgSignature(hash.Bytes(), signature, seller.ToLowerStr())
	if err != nil || !valid {
		return marketplace.ErrInvalidSellerSig
	}

	approved, err := im.tokens.IsApprovedForAll(c, nftContract, seller)
	if err != nil {
		return xerrors.Errorf("isApprovedForAll %s: %w", nftContract, err)
	}
	if !approved {
		return marketplace.ErrNotApproved
	}

	split, royaltyReceiver, err := im.splitFor(c, nftContract, price)
	if err != nil {
		return err
	}
	if err := im.tokens.TransferErc721(c, nftContract, seller, buyer, tokenId); err != nil {
		return xerrors.Errorf("transfer erc721 %s/%s: %w", nftContract, tokenId, err)
	}

	im.usedOffers[hash] = true
	im.creditSale(seller.ToLower(), royaltyReceiver, split)
	im.refundExcess(c, buyer, value, price)
	im.emit(c, marketplace.OfferExecutedEvent{
		Seller:      seller.ToLower(),
		Buyer:       buyer.ToLower(),
		NftContract: nftContract.ToLower(),
		TokenId:     domain.TokenId(tokenId.String()),
		Price:       new(big.Int).Set(price),
		OfferHash:   hash,
	})
	return nil
}
