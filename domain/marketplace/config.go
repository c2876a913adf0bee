package marketplace

import (
	"github.com/artemarket/goapi/domain"
)

// Config is the owner-controlled marketplace configuration aggregate. It is
// mutated only through the engine's setter operations.
type Config struct {
	Owner             domain.Address
	FeeRecipient      domain.Address
	MarketFeeBps      int64
	RoyaltiesDisabled bool
	Paused            bool
}

// EffectiveFeeRecipient falls back to the owner when no recipient is set
func (c *Config) EffectiveFeeRecipient() domain.Address {
	if c.FeeRecipient.IsEmpty() {
		return c.Owner
	}
	return c.FeeRecipient
}
