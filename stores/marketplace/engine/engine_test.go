package engine

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/suite"

	bCtx "github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/domain"
	"github.com/artemarket/goapi/domain/marketplace"
)

var (
	owner        = domain.Address("0x00000000000000000000000000000000000000aa")
	feeRecipient = domain.Address("0x00000000000000000000000000000000000000bb")
	seller       = domain.Address("0xce4468e7ce84aceb74363f4ea64e5a038176f369")
	buyer        = domain.Address("0xdf8650b0ca1260f7a2f4fdff9082aede554f65ad")
	bidder       = domain.Address("0x07fe9ffd85b54a3a18467d3b5e91a55ecc52a268")
	royaltyAddr  = domain.Address("0x54a769173d97432a48371b022709117c090298e3")
	erc721Addr   = domain.Address("0xdcf0de6b17785a143d006e1515a6afd123cde8ba")
	erc1155Addr  = domain.Address("0x23c0221b2b66071afdcce502a103f18ec2666a12")
)

// fakeTokens is an in-memory collection registry standing in for on-chain state
type fakeTokens struct {
	types        map[domain.Address]domain.TokenType
	owners       map[string]domain.Address
	balances     map[string]*big.Int
	approvals    map[string]bool
	failTransfer bool
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{
		types:     map[domain.Address]domain.TokenType{},
		owners:    map[string]domain.Address{},
		balances:  map[string]*big.Int{},
		approvals: map[string]bool{},
	}
}

func tokenKey(collection domain.Address, tokenId *big.Int) string {
	return collection.ToLowerStr() + "/" + tokenId.String()
}

func balanceKey(collection domain.Address, tokenId *big.Int, holder domain.Address) string {
	return tokenKey(collection, tokenId) + "/" + holder.ToLowerStr()
}

func approvalKey(collection, holder domain.Address) string {
	return collection.ToLowerStr() + "/" + holder.ToLowerStr()
}

func (f *fakeTokens) TokenType(_ bCtx.Ctx, collection domain.Address) (domain.TokenType, error) {
	t, ok := f.types[collection.ToLower()]
	if !ok {
		return 0, domain.ErrUnknownTokenType
	}
	return t, nil
}

func (f *fakeTokens) OwnerOf(_ bCtx.Ctx, collection domain.Address, tokenId *big.Int) (domain.Address, error) {
	o, ok := f.owners[tokenKey(collection, tokenId)]
	if !ok {
		return domain.EmptyAddress, errors.New("nonexistent token")
	}
	return o, nil
}

func (f *fakeTokens) BalanceOf(_ bCtx.Ctx, collection, holder domain.Address, tokenId *big.Int) (*big.Int, error) {
	b, ok := f.balances[balanceKey(collection, tokenId, holder)]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(b), nil
}

func (f *fakeTokens) IsApprovedForAll(_ bCtx.Ctx, collection, holder domain.Address) (bool, error) {
	return f.approvals[approvalKey(collection, holder)], nil
}

func (f *fakeTokens) TransferErc721(_ bCtx.Ctx, collection, from, to domain.Address, tokenId *big.Int) error {
	if f.failTransfer {
		return errors.New("transfer reverted")
	}
	key := tokenKey(collection, tokenId)
	if !f.owners[key].Equals(from) {
		return errors.New("transfer from non-owner")
	}
	f.owners[key] = to.ToLower()
	return nil
}

func (f *fakeTokens) TransferErc1155(_ bCtx.Ctx, collection, from, to domain.Address, tokenId, quantity *big.Int) error {
	if f.failTransfer {
		return errors.New("transfer reverted")
	}
	fromKey := balanceKey(collection, tokenId, from)
	bal, ok := f.balances[fromKey]
	if !ok || bal.Cmp(quantity) < 0 {
		return errors.New("insufficient balance")
	}
	bal.Sub(bal, quantity)
	toKey := balanceKey(collection, tokenId, to)
	if f.balances[toKey] == nil {
		f.balances[toKey] = new(big.Int)
	}
	f.balances[toKey].Add(f.balances[toKey], quantity)
	return nil
}

// fakePayments records outbound value and can refuse delivery per address
type fakePayments struct {
	sent   map[domain.Address]*big.Int
	refuse map[domain.Address]bool
}

func newFakePayments() *fakePayments {
	return &fakePayments{sent: map[domain.Address]*big.Int{}, refuse: map[domain.Address]bool{}}
}

func (f *fakePayments) Send(_ bCtx.Ctx, to domain.Address, amount *big.Int) error {
	if f.refuse[to.ToLower()] {
		return errors.New("recipient reverted")
	}
	if f.sent[to.ToLower()] == nil {
		f.sent[to.ToLower()] = new(big.Int)
	}
	f.sent[to.ToLower()].Add(f.sent[to.ToLower()], amount)
	return nil
}

type fakeRoyalties struct {
	receiver domain.Address
	bps      int64
}

func (f *fakeRoyalties) RoyaltyInfo(_ bCtx.Ctx, _ domain.Address) (domain.Address, int64, error) {
	return f.receiver, f.bps, nil
}

type engineSuite struct {
	suite.Suite

	ctx       bCtx.Ctx
	tokens    *fakeTokens
	payments  *fakePayments
	royalties *fakeRoyalties
	sink      *marketplace.MemorySink
	engine    marketplace.Engine
}

func (s *engineSuite) SetupTest() {
	s.ctx = bCtx.Background()
	s.tokens = newFakeTokens()
	s.payments = newFakePayments()
	s.royalties = &fakeRoyalties{receiver: royaltyAddr, bps: 250}
	s.sink = marketplace.NewMemorySink()
	s.engine = New(&EngineCfg{
		ChainId:      domain.ChainId(1),
		Owner:        owner,
		FeeRecipient: feeRecipient,
		MarketFeeBps: 200,
		Tokens:       s.tokens,
		Royalties:    s.royalties,
		Payments:     s.payments,
		Events:       s.sink,
	})

	s.tokens.types[erc721Addr] = domain.TokenType721
	s.tokens.types[erc1155Addr] = domain.TokenType1155
	s.tokens.owners[tokenKey(erc721Addr, big.NewInt(1))] = seller
	s.tokens.balances[balanceKey(erc1155Addr, big.NewInt(7), seller)] = big.NewInt(10)
	s.tokens.approvals[approvalKey(erc721Addr, seller)] = true
	s.tokens.approvals[approvalKey(erc1155Addr, seller)] = true
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(engineSuite))
}

func (s *engineSuite) list721(price int64) {
	s.Require().NoError(s.engine.ListItem(s.ctx, seller, erc721Addr, big.NewInt(1), big.NewInt(price)))
}

func (s *engineSuite) TestListAndBuy() {
	req := s.Require()
	s.list721(10000)

	req.True(s.engine.IsListed(erc721Addr, big.NewInt(1)))

	// pay 10500 for a 10000 listing, the 500 excess is refunded directly
	req.NoError(s.engine.BuyItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(10500)))

	// 200 bps market fee = 200, 250 bps royalty = 250, seller net = 9550
	req.Equal(big.NewInt(200), s.engine.GetAccumulatedFees())
	req.Equal(big.NewInt(250), s.engine.GetPendingWithdrawal(royaltyAddr))
	req.Equal(big.NewInt(9550), s.engine.GetPendingWithdrawal(seller))
	req.Equal(big.NewInt(500), s.payments.sent[buyer])

	req.Equal(buyer, s.tokens.owners[tokenKey(erc721Addr, big.NewInt(1))])
	req.False(s.engine.IsListed(erc721Addr, big.NewInt(1)))
	listing, ok := s.engine.GetListing(erc721Addr, big.NewInt(1))
	req.True(ok)
	req.Equal(marketplace.ListingStatusSold, listing.Status)
}

func (s *engineSuite) TestFeeConservation() {
	req := s.Require()
	// 333 does not divide evenly, the truncation remainder stays with the seller
	s.list721(333)
	req.NoError(s.engine.BuyItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(333)))

	fee := s.engine.GetAccumulatedFees()
	royalty := s.engine.GetPendingWithdrawal(royaltyAddr)
	net := s.engine.GetPendingWithdrawal(seller)
	total := new(big.Int).Add(fee, royalty)
	total.Add(total, net)
	req.Equal(big.NewInt(333), total)
}

func (s *engineSuite) TestListPreconditions() {
	req := s.Require()
	req.ErrorIs(s.engine.ListItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(100)), marketplace.ErrNotOwner)
	req.ErrorIs(s.engine.ListItem(s.ctx, seller, erc721Addr, big.NewInt(1), big.NewInt(0)), marketplace.ErrZeroPrice)

	s.tokens.approvals[approvalKey(erc721Addr, seller)] = false
	req.ErrorIs(s.engine.ListItem(s.ctx, seller, erc721Addr, big.NewInt(1), big.NewInt(100)), marketplace.ErrNotApproved)

	req.NoError(s.engine.SetPaused(s.ctx, owner, true))
	req.ErrorIs(s.engine.ListItem(s.ctx, seller, erc721Addr, big.NewInt(1), big.NewInt(100)), marketplace.ErrPaused)
}

func (s *engineSuite) TestBuyPreconditions() {
	req := s.Require()
	req.ErrorIs(s.engine.BuyItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(100)), marketplace.ErrItemNotActive)

	s.list721(100)
	req.ErrorIs(s.engine.BuyItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(99)), marketplace.ErrInsufficientFunds)

	req.NoError(s.engine.SetPaused(s.ctx, owner, true))
	req.ErrorIs(s.engine.BuyItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(100)), marketplace.ErrPaused)
	req.NoError(s.engine.SetPaused(s.ctx, owner, false))

	// a failed token transfer leaves the listing and the books untouched
	s.tokens.failTransfer = true
	req.Error(s.engine.BuyItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(100)))
	req.True(s.engine.IsListed(erc721Addr, big.NewInt(1)))
	req.Equal(big.NewInt(0), s.engine.GetPendingWithdrawal(seller))
	req.Equal(big.NewInt(0), s.engine.GetAccumulatedFees())
}

func (s *engineSuite) TestPrivateListing() {
	req := s.Require()
	req.ErrorIs(
		s.engine.CreatePrivateListing(s.ctx, seller, erc721Addr, big.NewInt(1), big.NewInt(100), seller, nil),
		marketplace.ErrPrivateForSelf,
	)
	req.NoError(s.engine.CreatePrivateListing(s.ctx, seller, erc721Addr, big.NewInt(1), big.NewInt(100), buyer, nil))

	req.ErrorIs(s.engine.BuyItem(s.ctx, bidder, erc721Addr, big.NewInt(1), big.NewInt(100)), marketplace.ErrNotAllowedBuyer)
	req.NoError(s.engine.BuyItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(100)))
}

func (s *engineSuite) TestCancelListing() {
	req := s.Require()
	s.list721(100)
	req.ErrorIs(s.engine.CancelListing(s.ctx, buyer, erc721Addr, big.NewInt(1)), marketplace.ErrNotSeller)
	req.NoError(s.engine.CancelListing(s.ctx, seller, erc721Addr, big.NewInt(1)))
	req.ErrorIs(s.engine.CancelListing(s.ctx, seller, erc721Addr, big.NewInt(1)), marketplace.ErrListingNotActive)

	listing, ok := s.engine.GetListing(erc721Addr, big.NewInt(1))
	req.True(ok)
	req.Equal(marketplace.ListingStatusCanceled, listing.Status)

	// a canceled token can be listed again
	s.list721(200)
	req.True(s.engine.IsListed(erc721Addr, big.NewInt(1)))
}

func (s *engineSuite) TestBidEscrowAndAccept() {
	req := s.Require()
	s.list721(1000)

	req.ErrorIs(s.engine.PlaceBid(s.ctx, bidder, erc721Addr, big.NewInt(1), big.NewInt(0)), marketplace.ErrBidTooLow)
	req.NoError(s.engine.PlaceBid(s.ctx, bidder, erc721Addr, big.NewInt(1), big.NewInt(500)))
	req.ErrorIs(s.engine.PlaceBid(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(500)), marketplace.ErrBidTooLow)

	// outbid refunds the previous bidder into pending withdrawals
	req.NoError(s.engine.PlaceBid(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(600)))
	req.Equal(big.NewInt(500), s.engine.GetPendingWithdrawal(bidder))

	req.ErrorIs(s.engine.AcceptBid(s.ctx, buyer, erc721Addr, big.NewInt(1)), marketplace.ErrNotSeller)
	req.NoError(s.engine.AcceptBid(s.ctx, seller, erc721Addr, big.NewInt(1)))

	// settled at the winning bid of 600: fee 12, royalty 15, net 573
	req.Equal(big.NewInt(12), s.engine.GetAccumulatedFees())
	req.Equal(big.NewInt(15), s.engine.GetPendingWithdrawal(royaltyAddr))
	req.Equal(big.NewInt(573), s.engine.GetPendingWithdrawal(seller))
	req.Equal(buyer, s.tokens.owners[tokenKey(erc721Addr, big.NewInt(1))])

	req.ErrorIs(s.engine.AcceptBid(s.ctx, seller, erc721Addr, big.NewInt(1)), marketplace.ErrListingNotActive)
}

func (s *engineSuite) TestCancelRefundsOutstandingBid() {
	req := s.Require()
	s.list721(1000)
	req.NoError(s.engine.PlaceBid(s.ctx, bidder, erc721Addr, big.NewInt(1), big.NewInt(400)))
	req.NoError(s.engine.CancelListing(s.ctx, seller, erc721Addr, big.NewInt(1)))
	req.Equal(big.NewInt(400), s.engine.GetPendingWithdrawal(bidder))

	req.ErrorIs(s.engine.AcceptBid(s.ctx, seller, erc721Addr, big.NewInt(1)), marketplace.ErrListingNotActive)
}

func (s *engineSuite) TestErc1155PartialBuys() {
	req := s.Require()
	tokenId := big.NewInt(7)
	req.NoError(s.engine.ListErc1155Item(s.ctx, seller, erc1155Addr, tokenId, big.NewInt(100), big.NewInt(10)))

	listingId := marketplace.ComputeListingId(tokenId, seller)
	listing, ok := s.engine.GetErc1155Listing(erc1155Addr, listingId)
	req.True(ok)
	req.Equal(big.NewInt(10), listing.Quantity)

	req.ErrorIs(
		s.engine.BuyErc1155Item(s.ctx, buyer, erc1155Addr, listingId, big.NewInt(11), big.NewInt(1100)),
		marketplace.ErrInvalidQuantity,
	)

	// partial purchase of 4 units at 100 each
	req.NoError(s.engine.BuyErc1155Item(s.ctx, buyer, erc1155Addr, listingId, big.NewInt(4), big.NewInt(400)))
	listing, _ = s.engine.GetErc1155Listing(erc1155Addr, listingId)
	req.Equal(big.NewInt(6), listing.Quantity)
	req.Equal(marketplace.ListingStatusActive, listing.Status)
	req.Equal(big.NewInt(4), s.tokens.balances[balanceKey(erc1155Addr, tokenId, buyer)])

	// buying the remainder closes the listing
	req.NoError(s.engine.BuyErc1155Item(s.ctx, buyer, erc1155Addr, listingId, big.NewInt(6), big.NewInt(600)))
	listing, _ = s.engine.GetErc1155Listing(erc1155Addr, listingId)
	req.Equal(marketplace.ListingStatusSold, listing.Status)

	req.ErrorIs(
		s.engine.BuyErc1155Item(s.ctx, buyer, erc1155Addr, listingId, big.NewInt(1), big.NewInt(100)),
		marketplace.ErrItemNotActive,
	)
}

func (s *engineSuite) TestErc1155SellerBalanceRecheck() {
	req := s.Require()
	tokenId := big.NewInt(7)
	req.NoError(s.engine.ListErc1155Item(s.ctx, seller, erc1155Addr, tokenId, big.NewInt(100), big.NewInt(10)))

	// seller moved 8 of 10 units away after listing
	s.tokens.balances[balanceKey(erc1155Addr, tokenId, seller)] = big.NewInt(2)

	listingId := marketplace.ComputeListingId(tokenId, seller)
	req.ErrorIs(
		s.engine.BuyErc1155Item(s.ctx, buyer, erc1155Addr, listingId, big.NewInt(5), big.NewInt(500)),
		marketplace.ErrInsufficientBalance,
	)
	req.NoError(s.engine.BuyErc1155Item(s.ctx, buyer, erc1155Addr, listingId, big.NewInt(2), big.NewInt(200)))
}

func (s *engineSuite) TestListItemRoutesErc1155() {
	req := s.Require()
	// generic listItem on an erc1155 collection creates a quantity-one listing
	req.NoError(s.engine.ListItem(s.ctx, seller, erc1155Addr, big.NewInt(7), big.NewInt(100)))

	listingId := marketplace.ComputeListingId(big.NewInt(7), seller)
	listing, ok := s.engine.GetErc1155Listing(erc1155Addr, listingId)
	req.True(ok)
	req.True(listing.IsErc1155)
	req.Equal(big.NewInt(1), listing.Quantity)
}

func (s *engineSuite) TestExecuteOffer() {
	req := s.Require()

	priv, err := crypto.GenerateKey()
	req.NoError(err)
	signerAddr := domain.Address(crypto.PubkeyToAddress(priv.PublicKey).Hex()).ToLower()

	// the signer owns and has approved the token
	s.tokens.owners[tokenKey(erc721Addr, big.NewInt(1))] = signerAddr
	s.tokens.approvals[approvalKey(erc721Addr, signerAddr)] = true

	price := big.NewInt(1000)
	expiration := timeNow().Add(time.Hour).Unix()
	hash := s.engine.GetOfferHash(erc721Addr, big.NewInt(1), price, buyer, expiration)
	sig, err := crypto.Sign(accounts.TextHash(hash.Bytes()), priv)
	req.NoError(err)

	req.ErrorIs(
		s.engine.ExecuteOffer(s.ctx, buyer, erc721Addr, big.NewInt(1), price, signerAddr, expiration, sig, big.NewInt(999)),
		marketplace.ErrInsufficientPayment,
	)
	req.ErrorIs(
		s.engine.ExecuteOffer(s.ctx, buyer, erc721Addr, big.NewInt(1), price, signerAddr, timeNow().Add(-time.Hour).Unix(), sig, price),
		marketplace.ErrExpirationInPast,
	)

	// a signature from someone other than the owner is rejected
	otherPriv, err := crypto.GenerateKey()
	req.NoError(err)
	badSig, err := crypto.Sign(accounts.TextHash(hash.Bytes()), otherPriv)
	req.NoError(err)
	req.ErrorIs(
		s.engine.ExecuteOffer(s.ctx, buyer, erc721Addr, big.NewInt(1), price, signerAddr, expiration, badSig, price),
		marketplace.ErrInvalidSellerSig,
	)

	// the signature names a buyer, nobody else can spend it
	req.ErrorIs(
		s.engine.ExecuteOffer(s.ctx, bidder, erc721Addr, big.NewInt(1), price, signerAddr, expiration, sig, price),
		marketplace.ErrInvalidSellerSig,
	)

	req.NoError(s.engine.ExecuteOffer(s.ctx, buyer, erc721Addr, big.NewInt(1), price, signerAddr, expiration, sig, price))
	req.Equal(buyer, s.tokens.owners[tokenKey(erc721Addr, big.NewInt(1))])
	req.Equal(big.NewInt(20), s.engine.GetAccumulatedFees())
	req.Equal(big.NewInt(25), s.engine.GetPendingWithdrawal(royaltyAddr))
	req.Equal(big.NewInt(955), s.engine.GetPendingWithdrawal(signerAddr))

	// replaying a consumed offer fails even after the token moves back
	s.tokens.owners[tokenKey(erc721Addr, big.NewInt(1))] = signerAddr
	req.ErrorIs(
		s.engine.ExecuteOffer(s.ctx, buyer, erc721Addr, big.NewInt(1), price, signerAddr, expiration, sig, price),
		marketplace.ErrOfferAlreadyUsed,
	)
}

func (s *engineSuite) TestPullPayments() {
	req := s.Require()
	s.list721(1000)
	req.NoError(s.engine.BuyItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(1000)))

	_, err := s.engine.WithdrawPendingFunds(s.ctx, buyer)
	req.ErrorIs(err, marketplace.ErrNoPendingFunds)

	amount, err := s.engine.WithdrawPendingFunds(s.ctx, seller)
	req.NoError(err)
	req.Equal(big.NewInt(955), amount)
	req.Equal(big.NewInt(955), s.payments.sent[seller])
	req.Equal(big.NewInt(0), s.engine.GetPendingWithdrawal(seller))

	_, err = s.engine.WithdrawPendingFunds(s.ctx, seller)
	req.ErrorIs(err, marketplace.ErrNoPendingFunds)
}

func (s *engineSuite) TestRefusedWithdrawalParksInFailedBucket() {
	req := s.Require()
	s.list721(1000)
	req.NoError(s.engine.BuyItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(1000)))

	s.payments.refuse[seller.ToLower()] = true
	amount, err := s.engine.WithdrawPendingFunds(s.ctx, seller)
	req.NoError(err)
	req.Equal(big.NewInt(955), amount)
	req.Equal(big.NewInt(0), s.engine.GetPendingWithdrawal(seller))
	req.Equal(big.NewInt(955), s.engine.GetFailedPayment(seller))

	// retry while still refused keeps the balance claimable
	_, err = s.engine.ClaimFailedPayment(s.ctx, seller)
	req.Error(err)
	req.Equal(big.NewInt(955), s.engine.GetFailedPayment(seller))

	s.payments.refuse[seller.ToLower()] = false
	amount, err = s.engine.ClaimFailedPayment(s.ctx, seller)
	req.NoError(err)
	req.Equal(big.NewInt(955), amount)
	req.Equal(big.NewInt(955), s.payments.sent[seller])
	req.Equal(big.NewInt(0), s.engine.GetFailedPayment(seller))

	_, err = s.engine.ClaimFailedPayment(s.ctx, seller)
	req.ErrorIs(err, marketplace.ErrNoFailedPayment)
}

func (s *engineSuite) TestRefusedExcessRefund() {
	req := s.Require()
	s.list721(1000)
	s.payments.refuse[buyer.ToLower()] = true

	req.NoError(s.engine.BuyItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(1200)))
	req.Equal(big.NewInt(200), s.engine.GetFailedPayment(buyer))
}

func (s *engineSuite) TestWithdrawAccumulatedFees() {
	req := s.Require()
	s.list721(10000)
	req.NoError(s.engine.BuyItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(10000)))

	req.ErrorIs(s.engine.WithdrawAccumulatedFees(s.ctx, seller), marketplace.ErrNotContractOwner)
	req.NoError(s.engine.WithdrawAccumulatedFees(s.ctx, owner))
	req.Equal(big.NewInt(0), s.engine.GetAccumulatedFees())
	req.Equal(big.NewInt(200), s.engine.GetPendingWithdrawal(feeRecipient))

	req.ErrorIs(s.engine.WithdrawAccumulatedFees(s.ctx, owner), marketplace.ErrNoAccumulatedFees)
}

func (s *engineSuite) TestRoyaltyDisabledAndSameReceiver() {
	req := s.Require()

	req.NoError(s.engine.SetRoyaltiesDisabled(s.ctx, owner, true))
	s.list721(10000)
	req.NoError(s.engine.BuyItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(10000)))
	req.Equal(big.NewInt(0), s.engine.GetPendingWithdrawal(royaltyAddr))
	req.Equal(big.NewInt(9800), s.engine.GetPendingWithdrawal(seller))
}

func (s *engineSuite) TestRoyaltyToSellerMergesCredit() {
	req := s.Require()
	s.royalties.receiver = seller

	s.list721(10000)
	req.NoError(s.engine.BuyItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(10000)))
	// royalty 250 and net 9550 land on the same account
	req.Equal(big.NewInt(9800), s.engine.GetPendingWithdrawal(seller))
}

func (s *engineSuite) TestExcessiveRoyaltyRejected() {
	req := s.Require()
	s.royalties.bps = 1500

	s.list721(10000)
	req.ErrorIs(
		s.engine.BuyItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(10000)),
		marketplace.ErrRoyaltyRateTooHigh,
	)
	req.True(s.engine.IsListed(erc721Addr, big.NewInt(1)))
}

func (s *engineSuite) TestAdminSetters() {
	req := s.Require()
	req.ErrorIs(s.engine.SetMarketFee(s.ctx, seller, 100), marketplace.ErrNotContractOwner)
	req.ErrorIs(s.engine.SetMarketFee(s.ctx, owner, 9500), marketplace.ErrMarketFeeTooHigh)
	req.NoError(s.engine.SetMarketFee(s.ctx, owner, 300))

	s.list721(10000)
	req.NoError(s.engine.BuyItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(10000)))
	req.Equal(big.NewInt(300), s.engine.GetAccumulatedFees())
}

func (s *engineSuite) TestEventsEmitted() {
	req := s.Require()
	s.list721(1000)
	req.NoError(s.engine.BuyItem(s.ctx, buyer, erc721Addr, big.NewInt(1), big.NewInt(1000)))

	events := s.sink.Events()
	req.Len(events, 2)
	req.Equal("ItemListed", events[0].Name())
	req.Equal("ItemSold", events[1].Name())
}
