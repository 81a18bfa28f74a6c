package wrapped

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Account records the wrapper-side position for a single holder. Balance is a
// present-value snapshot taken at LastIndex; for an earning account it always
// equals Principal projected through LastIndex, rounded down. Non-earning
// accounts carry a flat Balance with zero Principal and LastIndex.
type Account struct {
	Address common.Address
	// Earning reports whether the balance compounds via the index.
	Earning bool
	// Balance is the present-value amount credited at the last sync.
	Balance *big.Int
	// Principal is the index-independent stored quantity for an earning
	// account.
	Principal *big.Int
	// LastIndex is the index observed when Balance and Principal were last
	// synchronized.
	LastIndex *big.Int
}

// Clone returns a deep copy to avoid callers mutating shared pointers.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{Address: a.Address, Earning: a.Earning}
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	if a.Principal != nil {
		clone.Principal = new(big.Int).Set(a.Principal)
	}
	if a.LastIndex != nil {
		clone.LastIndex = new(big.Int).Set(a.LastIndex)
	}
	return clone
}

// Supply captures the global aggregates and the earning lifecycle state. The
// totals are maintained incrementally alongside every account mutation and are
// never recomputed by scanning the ledger.
type Supply struct {
	// TotalNonEarning is the sum of all non-earning balances.
	TotalNonEarning *big.Int
	// TotalEarning is the running total of earning accounts' balance
	// snapshots.
	TotalEarning *big.Int
	// PrincipalOfTotalEarning is the sum of all earning accounts' principal.
	// Tracking the aggregate in principal space lets the whole earning side
	// be projected through the current index without per-account iteration.
	PrincipalOfTotalEarning *big.Int
	// EarningEnabled reports whether the earning mechanism is live.
	EarningEnabled bool
	// EarningWasEnabled latches once earning has been enabled; together with
	// EarningEnabled it encodes the NeverEnabled/Enabled/Disabled lifecycle.
	EarningWasEnabled bool
	// EnableIndex snapshots the index observed when earning was enabled.
	EnableIndex *big.Int
	// DisableIndex freezes the index at the moment earning was disabled.
	DisableIndex *big.Int
}

// Clone returns a deep copy of the supply record.
func (s *Supply) Clone() *Supply {
	if s == nil {
		return nil
	}
	clone := &Supply{
		EarningEnabled:    s.EarningEnabled,
		EarningWasEnabled: s.EarningWasEnabled,
	}
	if s.TotalNonEarning != nil {
		clone.TotalNonEarning = new(big.Int).Set(s.TotalNonEarning)
	}
	if s.TotalEarning != nil {
		clone.TotalEarning = new(big.Int).Set(s.TotalEarning)
	}
	if s.PrincipalOfTotalEarning != nil {
		clone.PrincipalOfTotalEarning = new(big.Int).Set(s.PrincipalOfTotalEarning)
	}
	if s.EnableIndex != nil {
		clone.EnableIndex = new(big.Int).Set(s.EnableIndex)
	}
	if s.DisableIndex != nil {
		clone.DisableIndex = new(big.Int).Set(s.DisableIndex)
	}
	return clone
}

// BaseToken is the rebasing asset backing the wrapper. The core only queries
// balances, moves tokens, and reads the monotonically non-decreasing index; it
// never reimplements the rebasing mechanism.
type BaseToken interface {
	BalanceOf(addr common.Address) (*big.Int, error)
	Transfer(to common.Address, amount *big.Int) error
	TransferFrom(from, to common.Address, amount *big.Int) error
	CurrentIndex() (*big.Int, error)
}

// Registrar answers the key-value queries the core consumes: the global
// earning permission flag and per-account claim recipient overrides.
type Registrar interface {
	EarningPermitted() bool
	ClaimOverrideRecipient(addr common.Address) (common.Address, bool)
}

// EarnerManager answers earner-eligibility queries for individual accounts.
type EarnerManager interface {
	IsApprovedEarner(addr common.Address) bool
	IsApprovedEarnerStatusAdmin(addr common.Address) bool
}
