package engine

import (
	"math/big"

	bCtx "github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/domain"
	"github.com/artemarket/goapi/domain/marketplace"
)

// WithdrawPendingFunds pays out the caller's full pending balance. The
// balance is zeroed before the outbound transfer; a refused transfer parks
// the amount in the failed-payment bucket instead of failing the withdrawal.
func (im *impl) WithdrawPendingFunds(c bCtx.Ctx, caller domain.Address) (*big.Int, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	amount := im.ledger.TakePending(caller)
	if amount.Sign() == 0 {
		return nil, marketplace.ErrNoPendingFunds
	}
	if err := im.payments.Send(c, caller, amount); err != nil {
		c.WithField("err", err).WithField("addr", caller).Warn("pending withdrawal refused, parking in failed payments")
		im.ledger.CreditFailed(caller, amount)
	}
	return amount, nil
}

// ClaimFailedPayment retries delivery of a previously refused payout. Unlike
// WithdrawPendingFunds a refused retry is an error, the amount goes back to
// the failed bucket for another attempt.
func (im *impl) ClaimFailedPayment(c bCtx.Ctx, caller domain.Address) (*big.Int, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	amount := im.ledger.TakeFailed(caller)
	if amount.Sign() == 0 {
		return nil, marketplace.ErrNoFailedPayment
	}
	if err := im.payments.Send(c, caller, amount); err != nil {
		im.ledger.CreditFailed(caller, amount)
		return nil, err
	}
	return amount, nil
}

// WithdrawAccumulatedFees moves collected market fees into the fee
// recipient's pending withdrawal, falling back to the owner when no
// recipient is configured.
func (im *impl) WithdrawAccumulatedFees(c bCtx.Ctx, caller domain.Address) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if !caller.Equals(im.cfg.Owner) {
		return marketplace.ErrNotContractOwner
	}
	if im.accumulatedFees.Sign() == 0 {
		return marketplace.ErrNoAccumulatedFees
	}
	amount := im.accumulatedFees
	im.accumulatedFees = new(big.Int)
	recipient := im.cfg.EffectiveFeeRecipient()
	im.ledger.CreditPending(recipient, amount)
	im.emit(c, marketplace.FeesWithdrawnEvent{
		Recipient: recipient,
		Amount:    new(big.Int).Set(amount),
	})
	return nil
}
