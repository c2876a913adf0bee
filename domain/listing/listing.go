package listing

import (
	"fmt"
	"time"

	"github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/domain"
)

type Status string

const (
	StatusLive     Status = "live"
	StatusSold     Status = "sold"
	StatusCanceled Status = "canceled"
)

// Listing is the off-chain mirror row of one marketplace listing, rebuilt
// from chain events by the reconciliation scan. One row exists per
// (contract, tokenId, seller) triple; re-listing the same token by the same
// seller overwrites the row.
type Listing struct {
	Id              string           `json:"id" bson:"id"`
	ChainId         domain.ChainId   `json:"chainId" bson:"chainId"`
	ContractAddress domain.Address   `json:"contractAddress" bson:"contractAddress"`
	TokenId         domain.TokenId   `json:"tokenId" bson:"tokenId"`
	Seller          domain.Address   `json:"seller" bson:"seller"`
	Price           string           `json:"price" bson:"price"`
	DisplayPrice    string           `json:"displayPrice" bson:"displayPrice"`
	Quantity        int64            `json:"quantity" bson:"quantity"`
	IsPrivate       bool             `json:"isPrivate" bson:"isPrivate"`
	AllowedBuyer    domain.Address   `json:"allowedBuyer,omitempty" bson:"allowedBuyer,omitempty"`
	Status          Status           `json:"status" bson:"status"`
	TokenType       domain.TokenType `json:"tokenType" bson:"tokenType"`
	BlockNumber     uint64           `json:"blockNumber" bson:"blockNumber"`
	LogIndex        uint             `json:"logIndex" bson:"logIndex"`
	TxHash          domain.TxHash    `json:"txHash" bson:"txHash"`
	ListedAt        time.Time        `json:"listedAt" bson:"listedAt"`
	UpdatedAt       time.Time        `json:"updatedAt" bson:"updatedAt"`
}

type ListingId struct {
	ContractAddress domain.Address
	TokenId         domain.TokenId
	Seller          domain.Address
}

// ToDocId renders the mirror row identity as contract_tokenId_seller,
// addresses lower-cased.
func (id *ListingId) ToDocId() string {
	return fmt.Sprintf("%s_%s_%s", id.ContractAddress.ToLowerStr(), id.TokenId, id.Seller.ToLowerStr())
}

func (l *Listing) ToId() *ListingId {
	return &ListingId{
		ContractAddress: l.ContractAddress,
		TokenId:         l.TokenId,
		Seller:          l.Seller,
	}
}

type FindAllOptions struct {
	SortBy          *string
	SortDir         *domain.SortDir
	Offset          *int32
	Limit           *int32
	ChainId         *domain.ChainId `bson:"chainId"`
	ContractAddress *domain.Address `bson:"contractAddress"`
	Seller          *domain.Address `bson:"seller"`
	Status          *Status         `bson:"status"`
}

type FindAllOptionsFunc func(*FindAllOptions) error

func GetFindAllOptions(opts ...FindAllOptionsFunc) (FindAllOptions, error) {
	res := FindAllOptions{}
	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func WithChainId(chainId domain.ChainId) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.ChainId = &chainId
		return nil
	}
}

func WithContractAddress(contract domain.Address) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		contract = contract.ToLower()
		options.ContractAddress = &contract
		return nil
	}
}

func WithSeller(seller domain.Address) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		seller = seller.ToLower()
		options.Seller = &seller
		return nil
	}
}

func WithStatus(status Status) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Status = &status
		return nil
	}
}

func WithPagination(offset, limit int32) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Offset = &offset
		options.Limit = &limit
		return nil
	}
}

func WithSort(sortBy string, sortDir domain.SortDir) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.SortBy = &sortBy
		options.SortDir = &sortDir
		return nil
	}
}

type Repo interface {
	FindAll(c ctx.Ctx, opts ...FindAllOptionsFunc) ([]Listing, error)
	FindOne(c ctx.Ctx, id *ListingId) (*Listing, error)
	Upsert(c ctx.Ctx, l *Listing) error
	BulkUpsert(c ctx.Ctx, ls []Listing) error
	Remove(c ctx.Ctx, id *ListingId) error
}

type UseCase interface {
	FindAll(c ctx.Ctx, opts ...FindAllOptionsFunc) ([]Listing, error)
	FindOne(c ctx.Ctx, id *ListingId) (*Listing, error)
	Upsert(c ctx.Ctx, l *Listing) error
	BulkUpsert(c ctx.Ctx, ls []Listing) error
	Remove(c ctx.Ctx, id *ListingId) error
}
