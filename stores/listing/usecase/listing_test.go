package usecase

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/domain"
	"github.com/artemarket/goapi/domain/listing"
	mListing "github.com/artemarket/goapi/domain/listing/mocks"
)

func TestFindOne(t *testing.T) {
	req := require.New(t)
	mockRepo := &mListing.Repo{}

	id := &listing.ListingId{
		ContractAddress: domain.Address("0xdcf0de6b17785a143d006e1515a6afd123cde8ba"),
		TokenId:         domain.TokenId("1"),
		Seller:          domain.Address("0xce4468e7ce84aceb74363f4ea64e5a038176f369"),
	}
	want := &listing.Listing{Id: id.ToDocId(), Status: listing.StatusLive}
	mockRepo.On("FindOne", mock.Anything, id).Return(want, nil)

	u := New(mockRepo)
	got, err := u.FindOne(ctx.Background(), id)
	req.NoError(err)
	req.Equal(want, got)
}

func TestBulkUpsert(t *testing.T) {
	req := require.New(t)
	mockRepo := &mListing.Repo{}

	ls := []listing.Listing{{TokenId: domain.TokenId("1")}, {TokenId: domain.TokenId("2")}}
	mockRepo.On("BulkUpsert", mock.Anything, ls).Return(nil)

	u := New(mockRepo)
	req.NoError(u.BulkUpsert(ctx.Background(), ls))
	mockRepo.AssertExpectations(t)
}
