package domain

import (
	"math/big"
	"strings"

	"golang.org/x/xerrors"
)

type ChainId int32

type Address string

const EmptyAddress = Address("0x0000000000000000000000000000000000000000")

func (a Address) ToLower() Address {
	return Address(strings.ToLower(string(a)))
}

func (a Address) ToLowerStr() string {
	return strings.ToLower(string(a))
}

func (a Address) IsEmpty() bool {
	return len(a) == 0 || a.Equals(EmptyAddress)
}

func (a Address) Equals(b Address) bool {
	return a.ToLowerStr() == b.ToLowerStr()
}

type TokenId string

func (i TokenId) String() string {
	return string(i)
}

func (i TokenId) ToBigInt() (*big.Int, error) {
	id, ok := new(big.Int).SetString(i.String(), 10)
	if !ok {
		return nil, xerrors.Errorf("invalid token id %s", i)
	}
	return id, nil
}

type TokenType int

const (
	TokenType721  TokenType = 721
	TokenType1155 TokenType = 1155
)

type SortDir int32

const (
	SortDirAsc  SortDir = 1
	SortDirDesc SortDir = -1
)

type BlockNumber uint64

type TxHash string

type BlockHash string

// ListingId is the composite listing identity, keccak256(tokenId, seller) for
// erc1155 listings. Erc721 listings use the token id itself.
type ListingId string

func (i ListingId) ToLower() ListingId {
	return ListingId(strings.ToLower(string(i)))
}
