package abi

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/xerrors"
)

var MarketplaceABI abi.ABI

var marketplaceABI = `[{"type":"event","anonymous":false,"name":"ItemListed","inputs":[{"type":"address","name":"seller","indexed":true},{"type":"address","name":"nftContract","indexed":true},{"type":"uint256","name":"tokenId"},{"type":"uint256","name":"price"},{"type":"bool","name":"isPrivate"},{"type":"address","name":"allowedBuyer"},{"type":"uint256","name":"quantity"}]},{"type":"event","anonymous":false,"name":"ItemSold","inputs":[{"type":"address","name":"seller","indexed":true},{"type":"address","name":"buyer","indexed":true},{"type":"address","name":"nftContract","indexed":true},{"type":"uint256","name":"tokenId"},{"type":"uint256","name":"price"}]},{"type":"event","anonymous":false,"name":"ListingCanceled","inputs":[{"type":"address","name":"seller","indexed":true},{"type":"address","name":"nftContract","indexed":true},{"type":"uint256","name":"tokenId"}]}]`

// LegacyItemListedTopic is the topic of the pre-quantity ItemListed event.
// Logs carrying it cannot be unpacked against MarketplaceABI and are decoded
// by fixed byte offsets instead, see ToLegacyItemListedLog.
var LegacyItemListedTopic common.Hash

func init() {
	_abi, err := abi.JSON(strings.NewReader(marketplaceABI))
	if err != nil {
		panic("Failed to parse marketplace abi")
	}
	MarketplaceABI = _abi
	LegacyItemListedTopic = crypto.Keccak256Hash(
		[]byte("ItemListed(address,address,uint256,uint256,bool,address)"),
	)
}

type ItemListedLog struct {
	Seller       common.Address // indexed
	NftContract  common.Address // indexed
	TokenId      *big.Int
	Price        *big.Int
	IsPrivate    bool
	AllowedBuyer common.Address
	Quantity     *big.Int
}

type ItemSoldLog struct {
	Seller      common.Address // indexed
	Buyer       common.Address // indexed
	NftContract common.Address // indexed
	TokenId     *big.Int
	Price       *big.Int
}

type ListingCanceledLog struct {
	Seller      common.Address // indexed
	NftContract common.Address // indexed
	TokenId     *big.Int
}

func ToItemListedLog(log *types.Log) (*ItemListedLog, error) {
	var itemListed ItemListedLog
	if err := MarketplaceABI.UnpackIntoInterface(&itemListed, "ItemListed", log.Data); err != nil {
		return nil, err
	}
	if len(log.Topics) < 3 {
		return nil, xerrors.New("ItemListed log missing indexed topics")
	}
	itemListed.Seller = common.BytesToAddress(log.Topics[1].Bytes())
	itemListed.NftContract = common.BytesToAddress(log.Topics[2].Bytes())
	return &itemListed, nil
}

// ToLegacyItemListedLog parses the legacy ItemListed shape by 32-byte-aligned
// offsets: tokenId, price, isPrivate-as-uint, allowedBuyer left-padded.
func ToLegacyItemListedLog(log *types.Log) (*ItemListedLog, error) {
	if len(log.Data) != 4*32 {
		return nil, xerrors.Errorf("legacy ItemListed data length %d, want 128", len(log.Data))
	}
	if len(log.Topics) < 3 {
		return nil, xerrors.New("legacy ItemListed log missing indexed topics")
	}
	return &ItemListedLog{
		Seller:       common.BytesToAddress(log.Topics[1].Bytes()),
		NftContract:  common.BytesToAddress(log.Topics[2].Bytes()),
		TokenId:      new(big.Int).SetBytes(log.Data[0:32]),
		Price:        new(big.Int).SetBytes(log.Data[32:64]),
		IsPrivate:    new(big.Int).SetBytes(log.Data[64:96]).Sign() != 0,
		AllowedBuyer: common.BytesToAddress(log.Data[96:128]),
		Quantity:     big.NewInt(1),
	}, nil
}

func ToItemSoldLog(log *types.Log) (*ItemSoldLog, error) {
	var itemSold ItemSoldLog
	if err := MarketplaceABI.UnpackIntoInterface(&itemSold, "ItemSold", log.Data); err != nil {
		return nil, err
	}
	if len(log.Topics) < 4 {
		return nil, xerrors.New("ItemSold log missing indexed topics")
	}
	itemSold.Seller = common.BytesToAddress(log.Topics[1].Bytes())
	itemSold.Buyer = common.BytesToAddress(log.Topics[2].Bytes())
	itemSold.NftContract = common.BytesToAddress(log.Topics[3].Bytes())
	return &itemSold, nil
}

func ToListingCanceledLog(log *types.Log) (*ListingCanceledLog, error) {
	var canceled ListingCanceledLog
	if err := MarketplaceABI.UnpackIntoInterface(&canceled, "ListingCanceled", log.Data); err != nil {
		return nil, err
	}
	if len(log.Topics) < 3 {
		return nil, xerrors.New("ListingCanceled log missing indexed topics")
	}
	canceled.Seller = common.BytesToAddress(log.Topics[1].Bytes())
	canceled.NftContract = common.BytesToAddress(log.Topics[2].Bytes())
	return &canceled, nil
}
