package wrapped

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BalanceOf returns the account's present-value balance as stored, without
// projecting unclaimed yield.
func (e *Engine) BalanceOf(addr common.Address) (*big.Int, error) {
	acct, err := e.ensureAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acct.Balance), nil
}

// AccruedYieldOf returns the yield an earning account has accumulated since
// its last sync, clamped at zero. Non-earning accounts accrue nothing.
func (e *Engine) AccruedYieldOf(addr common.Address) (*big.Int, error) {
	acct, err := e.ensureAccount(addr)
	if err != nil {
		return nil, err
	}
	if !acct.Earning {
		return big.NewInt(0), nil
	}
	supply, err := e.ensureSupply()
	if err != nil {
		return nil, err
	}
	index, err := e.currentIndex(supply)
	if err != nil {
		return nil, err
	}
	projected, err := presentAmount(acct.Principal, index)
	if err != nil {
		return nil, err
	}
	return clampZero(projected.Sub(projected, acct.Balance)), nil
}

// BalanceWithYieldOf returns the account's live balance, unclaimed yield
// included.
func (e *Engine) BalanceWithYieldOf(addr common.Address) (*big.Int, error) {
	balance, err := e.BalanceOf(addr)
	if err != nil {
		return nil, err
	}
	yield, err := e.AccruedYieldOf(addr)
	if err != nil {
		return nil, err
	}
	return balance.Add(balance, yield), nil
}

// IsEarning reports whether the account's balance compounds via the index.
func (e *Engine) IsEarning(addr common.Address) (bool, error) {
	acct, err := e.ensureAccount(addr)
	if err != nil {
		return false, err
	}
	return acct.Earning, nil
}

// LastIndexOf returns the index observed at the account's last sync, zero for
// non-earning accounts.
func (e *Engine) LastIndexOf(addr common.Address) (*big.Int, error) {
	acct, err := e.ensureAccount(addr)
	if err != nil {
		return nil, err
	}
	if acct.LastIndex == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(acct.LastIndex), nil
}

// TotalNonEarningSupply returns the running total of flat balances.
func (e *Engine) TotalNonEarningSupply() (*big.Int, error) {
	supply, err := e.ensureSupply()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(supply.TotalNonEarning), nil
}

// TotalEarningSupply returns the running total of earning balance snapshots.
func (e *Engine) TotalEarningSupply() (*big.Int, error) {
	supply, err := e.ensureSupply()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(supply.TotalEarning), nil
}

// PrincipalOfTotalEarningSupply returns the aggregate earning principal.
func (e *Engine) PrincipalOfTotalEarningSupply() (*big.Int, error) {
	supply, err := e.ensureSupply()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(supply.PrincipalOfTotalEarning), nil
}

// TotalSupply returns the wrapper's total outstanding balance across both
// modes.
func (e *Engine) TotalSupply() (*big.Int, error) {
	supply, err := e.ensureSupply()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Add(supply.TotalNonEarning, supply.TotalEarning), nil
}

// TotalAccruedYield projects the aggregate earning principal through the
// current index and reports the growth not yet folded into balances. The
// aggregate is computed without per-account iteration and never trails the
// sum of individually realizable yields.
func (e *Engine) TotalAccruedYield() (*big.Int, error) {
	supply, err := e.ensureSupply()
	if err != nil {
		return nil, err
	}
	index, err := e.currentIndex(supply)
	if err != nil {
		return nil, err
	}
	projected, err := presentAmount(supply.PrincipalOfTotalEarning, index)
	if err != nil {
		return nil, err
	}
	return clampZero(projected.Sub(projected, supply.TotalEarning)), nil
}

// Excess returns the wrapper's base-token holdings minus everything owed to
// supply and accrued yield. A negative result signals an insolvent state.
func (e *Engine) Excess() (*big.Int, error) {
	supply, err := e.ensureSupply()
	if err != nil {
		return nil, err
	}
	index, err := e.currentIndex(supply)
	if err != nil {
		return nil, err
	}
	holdings, err := e.mToken.BalanceOf(e.self)
	if err != nil {
		return nil, err
	}
	if holdings == nil {
		holdings = big.NewInt(0)
	}
	obligations, err := e.obligations(supply, index)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(holdings, obligations), nil
}

// IsEarningEnabled reports whether the earning mechanism is currently live.
func (e *Engine) IsEarningEnabled() (bool, error) {
	supply, err := e.ensureSupply()
	if err != nil {
		return false, err
	}
	return supply.EarningEnabled, nil
}

// WasEarningEnabled reports whether the earning mechanism has ever been
// enabled.
func (e *Engine) WasEarningEnabled() (bool, error) {
	supply, err := e.ensureSupply()
	if err != nil {
		return false, err
	}
	return supply.EarningWasEnabled, nil
}

// CurrentIndex exposes the index governing conversions right now: live while
// earning is enabled, frozen at the disable snapshot afterwards.
func (e *Engine) CurrentIndex() (*big.Int, error) {
	supply, err := e.ensureSupply()
	if err != nil {
		return nil, err
	}
	return e.currentIndex(supply)
}
