package marketplace

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/artemarket/goapi/domain"
)

// Offer is a purchase authorization signed off-chain by a token owner. It is
// consumed at most once; the hash binds the chain id so a signature cannot be
// replayed on another network.
type Offer struct {
	NftContract domain.Address
	TokenId     domain.TokenId
	Price       *big.Int
	Buyer       domain.Address
	Seller      domain.Address
	Expiration  int64
	Signature   []byte
}

// ComputeOfferHash derives the deterministic hash a seller signs, as
// keccak256 of the abi-encoded (nftContract, tokenId, price, buyer,
// expiration, chainId) tuple. Binding the buyer keeps a leaked signature
// worthless to anyone else. On-chain and off-chain code must agree on this
// exactly.
func ComputeOfferHash(nftContract domain.Address, tokenId, price *big.Int, buyer domain.Address, expiration int64, chainId domain.ChainId) common.Hash {
	data := make([]byte, 0, 6*32)
	data = append(data, common.LeftPadBytes(common.HexToAddress(nftContract.ToLowerStr()).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(tokenId.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(price.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(buyer.ToLowerStr()).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(expiration).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(int64(chainId)).Bytes(), 32)...)
	return crypto.Keccak256Hash(data)
}

// ComputeListingId derives the composite erc1155 listing identity as
// keccak256 of the abi-encoded (tokenId, seller) pair, seller lower-cased.
func ComputeListingId(tokenId *big.Int, seller domain.Address) domain.ListingId {
	data := make([]byte, 0, 2*32)
	data = append(data, common.LeftPadBytes(tokenId.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(seller.ToLowerStr()).Bytes(), 32)...)
	return domain.ListingId(crypto.Keccak256Hash(data).Hex()).ToLower()
}
