package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeTokenWrapped is emitted when base tokens are wrapped into wM.
	TypeTokenWrapped = "wm.wrapped"
	// TypeTokenUnwrapped is emitted when wM is burned back into base tokens.
	TypeTokenUnwrapped = "wm.unwrapped"
	// TypeTokenTransferred captures present-value moves between wM holders.
	TypeTokenTransferred = "wm.transferred"
	// TypeYieldClaimed is emitted whenever accrued yield is realized into a
	// balance.
	TypeYieldClaimed = "wm.yieldClaimed"
	// TypeExcessClaimed is emitted when unattributed surplus is swept to the
	// excess destination.
	TypeExcessClaimed = "wm.excessClaimed"
	// TypeStartedEarning marks an account switching into earning mode.
	TypeStartedEarning = "wm.startedEarning"
	// TypeStoppedEarning marks an account switching back to a flat balance.
	TypeStoppedEarning = "wm.stoppedEarning"
	// TypeEarningEnabled marks the one-time activation of the earning
	// mechanism.
	TypeEarningEnabled = "wm.earningEnabled"
	// TypeEarningDisabled marks the terminal shutdown of the earning
	// mechanism.
	TypeEarningDisabled = "wm.earningDisabled"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// TokenWrapped captures a wrap of base tokens into wM.
type TokenWrapped struct {
	Caller    common.Address
	Recipient common.Address
	Amount    *big.Int
	Credited  *big.Int
}

func (TokenWrapped) EventType() string { return TypeTokenWrapped }

// Attributes renders the payload for downstream consumers.
func (e TokenWrapped) Attributes() map[string]string {
	return map[string]string{
		"caller":    e.Caller.Hex(),
		"recipient": e.Recipient.Hex(),
		"amount":    formatAmount(e.Amount),
		"credited":  formatAmount(e.Credited),
	}
}

// TokenUnwrapped captures a burn of wM back into base tokens.
type TokenUnwrapped struct {
	Caller    common.Address
	Recipient common.Address
	Amount    *big.Int
}

func (TokenUnwrapped) EventType() string { return TypeTokenUnwrapped }

func (e TokenUnwrapped) Attributes() map[string]string {
	return map[string]string{
		"caller":    e.Caller.Hex(),
		"recipient": e.Recipient.Hex(),
		"amount":    formatAmount(e.Amount),
	}
}

// TokenTransferred captures a present-value move between two wM holders.
type TokenTransferred struct {
	From   common.Address
	To     common.Address
	Amount *big.Int
}

func (TokenTransferred) EventType() string { return TypeTokenTransferred }

func (e TokenTransferred) Attributes() map[string]string {
	return map[string]string{
		"from":   e.From.Hex(),
		"to":     e.To.Hex(),
		"amount": formatAmount(e.Amount),
	}
}

// YieldClaimed captures accrued yield realized for an account.
type YieldClaimed struct {
	Account   common.Address
	Recipient common.Address
	Yield     *big.Int
	Index     *big.Int
}

func (YieldClaimed) EventType() string { return TypeYieldClaimed }

func (e YieldClaimed) Attributes() map[string]string {
	return map[string]string{
		"account":   e.Account.Hex(),
		"recipient": e.Recipient.Hex(),
		"yield":     formatAmount(e.Yield),
		"index":     formatAmount(e.Index),
	}
}

// ExcessClaimed captures a sweep of unattributed base-token surplus.
type ExcessClaimed struct {
	Destination common.Address
	Amount      *big.Int
}

func (ExcessClaimed) EventType() string { return TypeExcessClaimed }

func (e ExcessClaimed) Attributes() map[string]string {
	return map[string]string{
		"destination": e.Destination.Hex(),
		"amount":      formatAmount(e.Amount),
	}
}

// StartedEarning captures an account entering earning mode.
type StartedEarning struct {
	Account   common.Address
	Principal *big.Int
	Index     *big.Int
}

func (StartedEarning) EventType() string { return TypeStartedEarning }

func (e StartedEarning) Attributes() map[string]string {
	return map[string]string{
		"account":   e.Account.Hex(),
		"principal": formatAmount(e.Principal),
		"index":     formatAmount(e.Index),
	}
}

// StoppedEarning captures an account leaving earning mode.
type StoppedEarning struct {
	Account common.Address
	Balance *big.Int
	Index   *big.Int
}

func (StoppedEarning) EventType() string { return TypeStoppedEarning }

func (e StoppedEarning) Attributes() map[string]string {
	return map[string]string{
		"account": e.Account.Hex(),
		"balance": formatAmount(e.Balance),
		"index":   formatAmount(e.Index),
	}
}

// EarningEnabled captures the activation of the earning mechanism.
type EarningEnabled struct {
	Index *big.Int
}

func (EarningEnabled) EventType() string { return TypeEarningEnabled }

func (e EarningEnabled) Attributes() map[string]string {
	return map[string]string{"index": formatAmount(e.Index)}
}

// EarningDisabled captures the terminal shutdown of the earning mechanism.
type EarningDisabled struct {
	Index *big.Int
}

func (EarningDisabled) EventType() string { return TypeEarningDisabled }

func (e EarningDisabled) Attributes() map[string]string {
	return map[string]string{"index": formatAmount(e.Index)}
}
