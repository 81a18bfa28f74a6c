package wrapped

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// VerifyInvariants cross-checks the supply aggregates against a full scan of
// the provided accounts and against the wrapper's base-token holdings. The
// full-scan recomputation lives here, in the verification layer, and nowhere
// in the runtime paths; tests run it after every scripted transition.
//
// Checked:
//   - conservation: per-mode balance sums match the running totals
//   - yield bound: summed per-account accruals never exceed the aggregate
//   - solvency: base holdings cover supply, accrued yield and excess
//   - principal bound: the principal aggregate covers the per-account
//     principals re-derived from stored snapshots
func (e *Engine) VerifyInvariants(accounts []common.Address) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	supply, err := e.ensureSupply()
	if err != nil {
		return err
	}
	index, err := e.currentIndex(supply)
	if err != nil {
		return err
	}

	sumNonEarning := big.NewInt(0)
	sumEarning := big.NewInt(0)
	sumYield := big.NewInt(0)
	sumPrincipal := big.NewInt(0)
	for _, addr := range accounts {
		acct, err := e.ensureAccount(addr)
		if err != nil {
			return err
		}
		if !acct.Earning {
			sumNonEarning.Add(sumNonEarning, acct.Balance)
			continue
		}
		sumEarning.Add(sumEarning, acct.Balance)
		projected, err := presentAmount(acct.Principal, index)
		if err != nil {
			return err
		}
		sumYield.Add(sumYield, clampZero(projected.Sub(projected, acct.Balance)))
		lastIndex := acct.LastIndex
		if lastIndex == nil || lastIndex.Sign() == 0 {
			return fmt.Errorf("wrapped: earning account %s has no last index", addr.Hex())
		}
		principal, err := principalAmountRoundedDown(acct.Balance, lastIndex)
		if err != nil {
			return err
		}
		sumPrincipal.Add(sumPrincipal, principal)
	}

	if sumNonEarning.Cmp(supply.TotalNonEarning) != 0 {
		return fmt.Errorf("wrapped: non-earning sum %s does not match total %s", sumNonEarning, supply.TotalNonEarning)
	}
	if sumEarning.Cmp(supply.TotalEarning) != 0 {
		return fmt.Errorf("wrapped: earning sum %s does not match total %s", sumEarning, supply.TotalEarning)
	}

	accrued, err := e.TotalAccruedYield()
	if err != nil {
		return err
	}
	if sumYield.Cmp(accrued) > 0 {
		return fmt.Errorf("wrapped: per-account yield sum %s exceeds aggregate %s", sumYield, accrued)
	}
	if sumPrincipal.Cmp(supply.PrincipalOfTotalEarning) > 0 {
		return fmt.Errorf("wrapped: per-account principal sum %s exceeds aggregate %s", sumPrincipal, supply.PrincipalOfTotalEarning)
	}

	excess, err := e.Excess()
	if err != nil {
		return err
	}
	if excess.Sign() < 0 {
		return fmt.Errorf("wrapped: negative excess %s, wrapper is insolvent", excess)
	}
	return nil
}
