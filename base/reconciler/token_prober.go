package reconciler

import (
	"time"

	bCtx "github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/domain"
	"github.com/artemarket/goapi/domain/keys"
	"github.com/artemarket/goapi/service/cache"
	"github.com/artemarket/goapi/service/cache/provider/primitive"
	"github.com/artemarket/goapi/service/chain/contract"
)

const tokenTypeCacheTtl = 24 * time.Hour

// TokenProber resolves whether a collection speaks erc721 or erc1155
type TokenProber interface {
	TokenType(c bCtx.Ctx, collection domain.Address) (domain.TokenType, error)
}

// tokenProber probes collections with erc165 supportsInterface and memoizes
// the result in process. Token standards don't change after deploy, so a long
// ttl is safe.
type tokenProber struct {
	chainId int32
	erc721  contract.Erc721Contract
	erc1155 contract.Erc1155Contract
	cache   cache.Service
}

func NewTokenProber(chainId int32, erc721 contract.Erc721Contract, erc1155 contract.Erc1155Contract) TokenProber {
	return &tokenProber{
		chainId: chainId,
		erc721:  erc721,
		erc1155: erc1155,
		cache: cache.New(cache.ServiceConfig{
			Ttl:   tokenTypeCacheTtl,
			Pfx:   keys.PfxTokenType,
			Cache: primitive.NewPrimitive(keys.PfxTokenType, 16),
		}),
	}
}

func (p *tokenProber) TokenType(c bCtx.Ctx, collection domain.Address) (domain.TokenType, error) {
	key := keys.CacheKey(collection.ToLowerStr())
	tokenType := domain.TokenType(0)
	err := p.cache.GetByFunc(c, key, &tokenType, func() (interface{}, error) {
		t, err := p.probe(c, collection)
		if err != nil {
			return nil, err
		}
		return &t, nil
	})
	if err != nil {
		return 0, err
	}
	return tokenType, nil
}

func (p *tokenProber) probe(c bCtx.Ctx, collection domain.Address) (domain.TokenType, error) {
	is721, err := p.erc721.Supports721Interface(c, p.chainId, collection.ToLowerStr())
	if err != nil {
		return 0, err
	}
	if is721 {
		return domain.TokenType721, nil
	}
	is1155, err := p.erc1155.Supports1155Interface(c, p.chainId, collection.ToLowerStr())
	if err != nil {
		return 0, err
	}
	if is1155 {
		return domain.TokenType1155, nil
	}
	return 0, domain.ErrUnknownTokenType
}
