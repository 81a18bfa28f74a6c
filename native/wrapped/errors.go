package wrapped

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNilState                 = errors.New("wrapped: state not configured")
	ErrZeroIndex                = errors.New("wrapped: zero index")
	ErrInvalidAmount            = errors.New("wrapped: amount must be positive")
	ErrZeroAccount              = errors.New("wrapped: zero account")
	ErrZeroMToken               = errors.New("wrapped: zero m token")
	ErrZeroRegistrar            = errors.New("wrapped: zero registrar")
	ErrZeroEarnerManager        = errors.New("wrapped: zero earner manager")
	ErrZeroExcessDestination    = errors.New("wrapped: zero excess destination")
	ErrZeroMigrationAdmin       = errors.New("wrapped: zero migration admin")
	ErrEarningIsDisabled        = errors.New("wrapped: earning is disabled")
	ErrEarningIsEnabled         = errors.New("wrapped: earning is enabled")
	ErrEarningCannotBeReenabled = errors.New("wrapped: earning cannot be re-enabled")
	ErrNotApprovedEarner        = errors.New("wrapped: not approved earner")
	ErrIsApprovedEarner         = errors.New("wrapped: is approved earner")
	ErrInsufficientBalance      = errors.New("wrapped: insufficient balance")
	ErrUnauthorizedMigration    = errors.New("wrapped: unauthorized migration")
	ErrNegativeExcess           = errors.New("wrapped: negative excess")
)

// NotApprovedEarnerError reports a start-earning attempt for an account the
// earner manager does not approve.
type NotApprovedEarnerError struct {
	Account common.Address
}

func (e *NotApprovedEarnerError) Error() string {
	return fmt.Sprintf("wrapped: account %s is not an approved earner", e.Account.Hex())
}

func (e *NotApprovedEarnerError) Is(target error) bool { return target == ErrNotApprovedEarner }

// IsApprovedEarnerError reports a forced stop-earning attempt against an
// account that is still on the approved list.
type IsApprovedEarnerError struct {
	Account common.Address
}

func (e *IsApprovedEarnerError) Error() string {
	return fmt.Sprintf("wrapped: account %s is still an approved earner", e.Account.Hex())
}

func (e *IsApprovedEarnerError) Is(target error) bool { return target == ErrIsApprovedEarner }

// InsufficientBalanceError reports a debit that exceeds the account's live
// present-value balance, accrued yield included.
type InsufficientBalanceError struct {
	Account common.Address
	Balance *big.Int
	Needed  *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("wrapped: account %s balance %s below requested %s", e.Account.Hex(), e.Balance, e.Needed)
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// NegativeExcessError reports an excess claim attempted while the wrapper's
// base holdings fall short of its obligations. It signals an
// invariant-violating state rather than a recoverable condition.
type NegativeExcessError struct {
	Holdings    *big.Int
	Obligations *big.Int
}

func (e *NegativeExcessError) Error() string {
	return fmt.Sprintf("wrapped: base holdings %s below obligations %s", e.Holdings, e.Obligations)
}

func (e *NegativeExcessError) Is(target error) bool { return target == ErrNegativeExcess }
