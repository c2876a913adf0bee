package mongoclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/artemarket/goapi/base/ptr"
	"github.com/artemarket/goapi/domain"
)

func TestMakeBsonM(t *testing.T) {
	type listingSelector struct {
		ChainId         *domain.ChainId `bson:"chainId,omitempty"`
		ContractAddress *domain.Address `bson:"contractAddress,omitempty"`
		Seller          *domain.Address `bson:"seller,omitempty"`
		Status          string          `bson:"status"`
		Note            string          `bson:"note"`
	}

	sel := &listingSelector{}
	sel.ChainId = (*domain.ChainId)(ptr.Int32(1))
	addr := domain.Address("0xdcf0de6b17785a143d006e1515a6afd123cde8ba")
	sel.ContractAddress = &addr
	sel.Status = "active"

	m, err := MakeBsonM(sel)

	assert.NoError(t, err)
	assert.Equal(
		t,
		bson.M{
			"chainId":         domain.ChainId(1),
			"contractAddress": addr,
			// seller is nil and note is empty, both dropped
			"status": "active",
		},
		m,
	)
}
