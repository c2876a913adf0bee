package marketplace

import (
	"math/big"

	"github.com/artemarket/goapi/domain"
)

// LedgerAccount is one address's claimable balances. Pending holds amounts
// credited by settlements; Failed holds amounts whose outbound transfer was
// refused by the recipient and can be re-claimed later.
type LedgerAccount struct {
	Pending *big.Int
	Failed  *big.Int
}

// Ledger is the pull-payment book: funds owed are credited here and pulled by
// their owners, never pushed at settlement time.
type Ledger struct {
	accounts map[domain.Address]*LedgerAccount
}

func NewLedger() *Ledger {
	return &Ledger{accounts: map[domain.Address]*LedgerAccount{}}
}

func (l *Ledger) account(addr domain.Address) *LedgerAccount {
	key := addr.ToLower()
	acc, ok := l.accounts[key]
	if !ok {
		acc = &LedgerAccount{Pending: new(big.Int), Failed: new(big.Int)}
		l.accounts[key] = acc
	}
	return acc
}

// CreditPending adds amount to the address's claimable balance
func (l *Ledger) CreditPending(addr domain.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	acc := l.account(addr)
	acc.Pending.Add(acc.Pending, amount)
}

// TakePending zeroes and returns the pending balance. The caller attempts the
// outbound transfer after this, so a reentrant credit cannot double-pay.
func (l *Ledger) TakePending(addr domain.Address) *big.Int {
	acc := l.account(addr)
	amount := acc.Pending
	acc.Pending = new(big.Int)
	return amount
}

// CreditFailed parks an amount whose delivery was refused
func (l *Ledger) CreditFailed(addr domain.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	acc := l.account(addr)
	acc.Failed.Add(acc.Failed, amount)
}

// TakeFailed zeroes and returns the failed-payment balance
func (l *Ledger) TakeFailed(addr domain.Address) *big.Int {
	acc := l.account(addr)
	amount := acc.Failed
	acc.Failed = new(big.Int)
	return amount
}

func (l *Ledger) Pending(addr domain.Address) *big.Int {
	return new(big.Int).Set(l.account(addr).Pending)
}

func (l *Ledger) Failed(addr domain.Address) *big.Int {
	return new(big.Int).Set(l.account(addr).Failed)
}
