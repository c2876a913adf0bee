package marketplace

import "errors"

// Revert-reason errors surfaced verbatim to callers.
var (
	ErrNotOwner             = errors.New("Not the owner")
	ErrNotApproved          = errors.New("Marketplace not approved")
	ErrZeroPrice            = errors.New("Price must be greater than zero")
	ErrPaused               = errors.New("Contract is paused")
	ErrPrivateForSelf       = errors.New("Cannot create private listing for yourself")
	ErrItemNotActive        = errors.New("Item not active")
	ErrInsufficientFunds    = errors.New("Insufficient funds")
	ErrNotAllowedBuyer      = errors.New("Not authorized for this private listing")
	ErrNotSeller            = errors.New("Not the seller")
	ErrListingNotActive     = errors.New("Listing not active")
	ErrExpirationInPast     = errors.New("Expiration must be in the future")
	ErrInvalidSellerSig     = errors.New("Invalid seller signature")
	ErrInsufficientPayment  = errors.New("Insufficient payment")
	ErrOfferAlreadyUsed     = errors.New("Offer already used")
	ErrNotContractOwner     = errors.New("Not the contract owner")
	ErrInsufficientBalance  = errors.New("Insufficient token balance")
	ErrInvalidQuantity      = errors.New("Invalid quantity")
	ErrBidTooLow            = errors.New("Bid must exceed current highest bid")
	ErrNoBid                = errors.New("No bid to accept")
	ErrNoPendingFunds       = errors.New("No pending funds")
	ErrNoFailedPayment      = errors.New("No failed payment")
	ErrFeesExceedSalePrice  = errors.New("Fees exceed sale price")
	ErrMarketFeeTooHigh     = errors.New("Market fee too high")
	ErrRoyaltyRateTooHigh   = errors.New("Royalty rate too high")
	ErrWrongCollectionType  = errors.New("Wrong collection type for this operation")
	ErrNoAccumulatedFees    = errors.New("No accumulated fees")
)
