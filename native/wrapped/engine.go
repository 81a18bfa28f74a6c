package wrapped

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"wrappedm/core/events"
)

// engineState is the persistence surface the engine requires. Production code
// wires the KV-backed store from state/wrapped; tests provide mocks.
type engineState interface {
	GetAccount(addr common.Address) (*Account, error)
	PutAccount(addr common.Address, account *Account) error
	GetSupply() (*Supply, error)
	PutSupply(supply *Supply) error
}

// Engine orchestrates the wrap/unwrap/claim state transitions for the wM
// token. Every operation reads the base-token index fresh, mutates the
// account ledger and the supply aggregates together, and leaves the solvency
// invariants holding.
//
// Ordering around external transfers is a protocol invariant, not an
// implementation detail: wrap pulls the base asset before any ledger
// mutation, unwrap persists the debit before tokens leave the wrapper. When
// the external leg fails the operation writes the pre-call records back, so
// a failed wrap or unwrap leaves both ledgers exactly as they were.
type Engine struct {
	state             engineState
	mToken            BaseToken
	registrar         Registrar
	earners           EarnerManager
	self              common.Address
	excessDestination common.Address
	migrationAdmin    common.Address
	emitter           events.Emitter
}

// NewEngine constructs an engine bound to its external collaborators. The
// wrapper's own base-token account, the excess destination and the migration
// admin must all be non-zero.
func NewEngine(self, excessDestination, migrationAdmin common.Address, mToken BaseToken, registrar Registrar, earners EarnerManager) (*Engine, error) {
	if self == (common.Address{}) {
		return nil, ErrZeroAccount
	}
	if excessDestination == (common.Address{}) {
		return nil, ErrZeroExcessDestination
	}
	if migrationAdmin == (common.Address{}) {
		return nil, ErrZeroMigrationAdmin
	}
	if mToken == nil {
		return nil, ErrZeroMToken
	}
	if registrar == nil {
		return nil, ErrZeroRegistrar
	}
	if earners == nil {
		return nil, ErrZeroEarnerManager
	}
	return &Engine{
		self:              self,
		excessDestination: excessDestination,
		migrationAdmin:    migrationAdmin,
		mToken:            mToken,
		registrar:         registrar,
		earners:           earners,
		emitter:           events.NoopEmitter{},
	}, nil
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter wires the engine to an event sink. A nil emitter restores the
// discarding default.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) ensureSupply() (*Supply, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	supply, err := e.state.GetSupply()
	if err != nil {
		return nil, err
	}
	if supply == nil {
		supply = &Supply{}
	}
	if supply.TotalNonEarning == nil {
		supply.TotalNonEarning = big.NewInt(0)
	}
	if supply.TotalEarning == nil {
		supply.TotalEarning = big.NewInt(0)
	}
	if supply.PrincipalOfTotalEarning == nil {
		supply.PrincipalOfTotalEarning = big.NewInt(0)
	}
	return supply, nil
}

func (e *Engine) ensureAccount(addr common.Address) (*Account, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	acct, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		acct = &Account{Address: addr}
	}
	if acct.Balance == nil {
		acct.Balance = big.NewInt(0)
	}
	if acct.Principal == nil {
		acct.Principal = big.NewInt(0)
	}
	return acct, nil
}

// currentIndex resolves the index governing all conversions: the live base
// token index while earning is enabled, the frozen disable snapshot once
// earning has been shut down, and the one-scale constant before earning was
// ever enabled (no earning position can exist yet at that point).
func (e *Engine) currentIndex(supply *Supply) (*big.Int, error) {
	switch {
	case supply.EarningEnabled:
		index, err := e.mToken.CurrentIndex()
		if err != nil {
			return nil, err
		}
		if index == nil || index.Sign() == 0 {
			return nil, ErrZeroIndex
		}
		return new(big.Int).Set(index), nil
	case supply.EarningWasEnabled:
		if supply.DisableIndex == nil || supply.DisableIndex.Sign() == 0 {
			return nil, ErrZeroIndex
		}
		return new(big.Int).Set(supply.DisableIndex), nil
	default:
		return new(big.Int).Set(oneScaled), nil
	}
}

// syncEarning folds accrued yield into an earning account's balance snapshot
// and refreshes its last-observed index. The realized yield is returned; the
// caller is responsible for mirroring it into the earning-supply total.
func (e *Engine) syncEarning(acct *Account, index *big.Int) (*big.Int, error) {
	projected, err := presentAmount(acct.Principal, index)
	if err != nil {
		return nil, err
	}
	yield := new(big.Int).Sub(projected, acct.Balance)
	if yield.Sign() < 0 {
		// A stale or equal index never produces negative growth.
		yield = big.NewInt(0)
	}
	acct.Balance = new(big.Int).Add(acct.Balance, yield)
	acct.LastIndex = new(big.Int).Set(index)
	return yield, nil
}

// credit adds present value to an account and mirrors the change into the
// aggregates. Earning credits also mint principal at the current index,
// rounding down so a deposit never mints more principal than it justifies.
func (e *Engine) credit(supply *Supply, acct *Account, amount, index *big.Int) (*big.Int, error) {
	if !acct.Earning {
		acct.Balance = new(big.Int).Add(acct.Balance, amount)
		supply.TotalNonEarning = new(big.Int).Add(supply.TotalNonEarning, amount)
		return new(big.Int).Set(amount), nil
	}
	principal, err := principalAmountRoundedDown(amount, index)
	if err != nil {
		return nil, err
	}
	acct.Principal = new(big.Int).Add(acct.Principal, principal)
	acct.Balance = new(big.Int).Add(acct.Balance, amount)
	acct.LastIndex = new(big.Int).Set(index)
	supply.PrincipalOfTotalEarning = new(big.Int).Add(supply.PrincipalOfTotalEarning, principal)
	supply.TotalEarning = new(big.Int).Add(supply.TotalEarning, amount)
	return new(big.Int).Set(amount), nil
}

// debit removes present value from an account and mirrors the change into the
// aggregates. Earning debits round the principal reduction up so the account
// is never treated as retaining more value than it withdrew; when that leaves
// the remaining balance above the remaining principal's projection, the
// balance is floored to the projection and the dust stays with the wrapper.
func (e *Engine) debit(supply *Supply, acct *Account, amount, index *big.Int) error {
	if acct.Balance.Cmp(amount) < 0 {
		return &InsufficientBalanceError{
			Account: acct.Address,
			Balance: new(big.Int).Set(acct.Balance),
			Needed:  new(big.Int).Set(amount),
		}
	}
	if !acct.Earning {
		acct.Balance = new(big.Int).Sub(acct.Balance, amount)
		supply.TotalNonEarning = clampZero(new(big.Int).Sub(supply.TotalNonEarning, amount))
		return nil
	}
	principal, err := principalAmountRoundedUp(amount, index)
	if err != nil {
		return err
	}
	if principal.Cmp(acct.Principal) > 0 {
		principal = new(big.Int).Set(acct.Principal)
	}
	acct.Principal = new(big.Int).Sub(acct.Principal, principal)
	projected, err := presentAmount(acct.Principal, index)
	if err != nil {
		return err
	}
	remainder := new(big.Int).Sub(acct.Balance, amount)
	if projected.Cmp(remainder) < 0 {
		remainder = projected
	}
	burned := new(big.Int).Sub(acct.Balance, remainder)
	acct.Balance = remainder
	acct.LastIndex = new(big.Int).Set(index)
	supply.PrincipalOfTotalEarning = clampZero(new(big.Int).Sub(supply.PrincipalOfTotalEarning, principal))
	supply.TotalEarning = clampZero(new(big.Int).Sub(supply.TotalEarning, burned))
	return nil
}

func clampZero(v *big.Int) *big.Int {
	if v.Sign() < 0 {
		return big.NewInt(0)
	}
	return v
}

// Wrap pulls amount of the base asset from the caller into the wrapper and
// credits the recipient with wM. The amount actually credited, post any
// conversion rounding, is returned.
func (e *Engine) Wrap(caller, recipient common.Address, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if recipient == (common.Address{}) {
		return nil, ErrZeroAccount
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	supply, err := e.ensureSupply()
	if err != nil {
		return nil, err
	}
	index, err := e.currentIndex(supply)
	if err != nil {
		return nil, err
	}
	acct, err := e.ensureAccount(recipient)
	if err != nil {
		return nil, err
	}
	prevAcct := acct.Clone()

	// Pull the backing first; every ledger mutation happens strictly after.
	if err := e.mToken.TransferFrom(caller, e.self, amount); err != nil {
		return nil, err
	}

	var yield *big.Int
	if acct.Earning {
		y, err := e.syncEarning(acct, index)
		if err != nil {
			return nil, e.refundWrap(caller, amount, err)
		}
		if y.Sign() > 0 {
			supply.TotalEarning = new(big.Int).Add(supply.TotalEarning, y)
			yield = y
		}
	}
	credited, err := e.credit(supply, acct, amount, index)
	if err != nil {
		return nil, e.refundWrap(caller, amount, err)
	}

	if err := e.state.PutAccount(recipient, acct); err != nil {
		return nil, e.refundWrap(caller, amount, err)
	}
	if err := e.state.PutSupply(supply); err != nil {
		if restoreErr := e.state.PutAccount(recipient, prevAcct); restoreErr != nil {
			return nil, errors.Join(err, restoreErr)
		}
		return nil, e.refundWrap(caller, amount, err)
	}

	if yield != nil {
		e.emit(events.YieldClaimed{Account: recipient, Recipient: recipient, Yield: yield, Index: index})
	}
	e.emit(events.TokenWrapped{Caller: caller, Recipient: recipient, Amount: amount, Credited: credited})
	return credited, nil
}

// refundWrap pushes an already-pulled deposit back to the caller when the
// ledger side of a wrap fails, keeping the operation all-or-nothing.
func (e *Engine) refundWrap(caller common.Address, amount *big.Int, cause error) error {
	if refundErr := e.mToken.Transfer(caller, amount); refundErr != nil {
		return errors.Join(cause, refundErr)
	}
	return cause
}

// WrapAll wraps the caller's entire base-token balance. A zero balance is a
// graceful no-op, not an error.
func (e *Engine) WrapAll(caller, recipient common.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if recipient == (common.Address{}) {
		return nil, ErrZeroAccount
	}
	balance, err := e.mToken.BalanceOf(caller)
	if err != nil {
		return nil, err
	}
	if balance == nil || balance.Sign() == 0 {
		return big.NewInt(0), nil
	}
	return e.Wrap(caller, recipient, balance)
}

// Unwrap burns wM from the caller and pushes the matching amount of the base
// asset to the recipient. Accrued yield is folded into the caller's balance
// before the debit check, so the full live balance is spendable.
func (e *Engine) Unwrap(caller, recipient common.Address, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if recipient == (common.Address{}) {
		return nil, ErrZeroAccount
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	supply, err := e.ensureSupply()
	if err != nil {
		return nil, err
	}
	index, err := e.currentIndex(supply)
	if err != nil {
		return nil, err
	}
	acct, err := e.ensureAccount(caller)
	if err != nil {
		return nil, err
	}
	prevAcct := acct.Clone()
	prevSupply := supply.Clone()

	var yield *big.Int
	if acct.Earning {
		y, err := e.syncEarning(acct, index)
		if err != nil {
			return nil, err
		}
		if y.Sign() > 0 {
			supply.TotalEarning = new(big.Int).Add(supply.TotalEarning, y)
			yield = y
		}
	}
	if err := e.debit(supply, acct, amount, index); err != nil {
		return nil, err
	}

	if err := e.state.PutAccount(caller, acct); err != nil {
		return nil, err
	}
	if err := e.state.PutSupply(supply); err != nil {
		if restoreErr := e.state.PutAccount(caller, prevAcct); restoreErr != nil {
			return nil, errors.Join(err, restoreErr)
		}
		return nil, err
	}

	// The debit is persisted before tokens leave; a failed push writes the
	// pre-call records back so the burn never outlives the operation.
	if err := e.mToken.Transfer(recipient, amount); err != nil {
		if restoreErr := e.restoreLedger(caller, prevAcct, prevSupply); restoreErr != nil {
			return nil, errors.Join(err, restoreErr)
		}
		return nil, err
	}

	if yield != nil {
		e.emit(events.YieldClaimed{Account: caller, Recipient: caller, Yield: yield, Index: index})
	}
	e.emit(events.TokenUnwrapped{Caller: caller, Recipient: recipient, Amount: amount})
	return new(big.Int).Set(amount), nil
}

// restoreLedger rewrites the pre-operation account and supply records after a
// failed external transfer so the ledger reads as if the call never happened.
func (e *Engine) restoreLedger(addr common.Address, acct *Account, supply *Supply) error {
	if err := e.state.PutAccount(addr, acct); err != nil {
		return err
	}
	return e.state.PutSupply(supply)
}

// UnwrapAll burns the caller's entire live balance, accrued yield included. A
// zero balance is a graceful no-op.
func (e *Engine) UnwrapAll(caller, recipient common.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if recipient == (common.Address{}) {
		return nil, ErrZeroAccount
	}
	balance, err := e.BalanceWithYieldOf(caller)
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return big.NewInt(0), nil
	}
	return e.Unwrap(caller, recipient, balance)
}

// Transfer moves present value between two wrapper accounts. Earning
// participants have accrued yield folded in first; the credit and debit legs
// follow the same rounding directions as wrap and unwrap.
func (e *Engine) Transfer(from, to common.Address, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if from == (common.Address{}) || to == (common.Address{}) {
		return nil, ErrZeroAccount
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	supply, err := e.ensureSupply()
	if err != nil {
		return nil, err
	}
	index, err := e.currentIndex(supply)
	if err != nil {
		return nil, err
	}

	sender, err := e.ensureAccount(from)
	if err != nil {
		return nil, err
	}
	if sender.Earning {
		yield, err := e.syncEarning(sender, index)
		if err != nil {
			return nil, err
		}
		if yield.Sign() > 0 {
			supply.TotalEarning = new(big.Int).Add(supply.TotalEarning, yield)
			e.emit(events.YieldClaimed{Account: from, Recipient: from, Yield: yield, Index: index})
		}
	}

	if from == to {
		if sender.Balance.Cmp(amount) < 0 {
			return nil, &InsufficientBalanceError{
				Account: from,
				Balance: new(big.Int).Set(sender.Balance),
				Needed:  new(big.Int).Set(amount),
			}
		}
		if err := e.state.PutAccount(from, sender); err != nil {
			return nil, err
		}
		if err := e.state.PutSupply(supply); err != nil {
			return nil, err
		}
		e.emit(events.TokenTransferred{From: from, To: to, Amount: amount})
		return new(big.Int).Set(amount), nil
	}

	receiver, err := e.ensureAccount(to)
	if err != nil {
		return nil, err
	}
	if receiver.Earning {
		yield, err := e.syncEarning(receiver, index)
		if err != nil {
			return nil, err
		}
		if yield.Sign() > 0 {
			supply.TotalEarning = new(big.Int).Add(supply.TotalEarning, yield)
			e.emit(events.YieldClaimed{Account: to, Recipient: to, Yield: yield, Index: index})
		}
	}

	if err := e.debit(supply, sender, amount, index); err != nil {
		return nil, err
	}
	credited, err := e.credit(supply, receiver, amount, index)
	if err != nil {
		return nil, err
	}

	if err := e.state.PutAccount(from, sender); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(to, receiver); err != nil {
		return nil, err
	}
	if err := e.state.PutSupply(supply); err != nil {
		return nil, err
	}

	e.emit(events.TokenTransferred{From: from, To: to, Amount: amount})
	return credited, nil
}

// ClaimFor realizes the account's accrued yield into its stored balance and
// refreshes its last-observed index. When the registrar carries a recipient
// override the realized yield moves to the override account instead. The
// claimed yield is returned; claiming with nothing accrued is an idempotent
// no-op.
func (e *Engine) ClaimFor(account common.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if account == (common.Address{}) {
		return nil, ErrZeroAccount
	}

	supply, err := e.ensureSupply()
	if err != nil {
		return nil, err
	}
	index, err := e.currentIndex(supply)
	if err != nil {
		return nil, err
	}
	acct, err := e.ensureAccount(account)
	if err != nil {
		return nil, err
	}
	if !acct.Earning {
		return big.NewInt(0), nil
	}

	yield, err := e.syncEarning(acct, index)
	if err != nil {
		return nil, err
	}
	if yield.Sign() == 0 {
		if err := e.state.PutAccount(account, acct); err != nil {
			return nil, err
		}
		return big.NewInt(0), nil
	}
	supply.TotalEarning = new(big.Int).Add(supply.TotalEarning, yield)

	recipient := account
	if override, ok := e.registrar.ClaimOverrideRecipient(account); ok && override != (common.Address{}) {
		recipient = override
	}

	if recipient == account {
		if err := e.state.PutAccount(account, acct); err != nil {
			return nil, err
		}
		if err := e.state.PutSupply(supply); err != nil {
			return nil, err
		}
		e.emit(events.YieldClaimed{Account: account, Recipient: account, Yield: yield, Index: index})
		return yield, nil
	}

	// Route the realized yield to the override recipient.
	receiver, err := e.ensureAccount(recipient)
	if err != nil {
		return nil, err
	}
	if receiver.Earning {
		receiverYield, err := e.syncEarning(receiver, index)
		if err != nil {
			return nil, err
		}
		if receiverYield.Sign() > 0 {
			supply.TotalEarning = new(big.Int).Add(supply.TotalEarning, receiverYield)
			e.emit(events.YieldClaimed{Account: recipient, Recipient: recipient, Yield: receiverYield, Index: index})
		}
	}
	if err := e.debit(supply, acct, yield, index); err != nil {
		return nil, err
	}
	if _, err := e.credit(supply, receiver, yield, index); err != nil {
		return nil, err
	}

	if err := e.state.PutAccount(account, acct); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(recipient, receiver); err != nil {
		return nil, err
	}
	if err := e.state.PutSupply(supply); err != nil {
		return nil, err
	}
	e.emit(events.YieldClaimed{Account: account, Recipient: recipient, Yield: yield, Index: index})
	return yield, nil
}

// ClaimExcess sweeps the wrapper's unattributed base-token surplus to the
// configured excess destination. A negative excess means the solvency
// invariant is broken and the operation fails loudly instead of transferring.
func (e *Engine) ClaimExcess() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
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
	excess := new(big.Int).Sub(holdings, obligations)
	if excess.Sign() < 0 {
		return nil, &NegativeExcessError{Holdings: holdings, Obligations: obligations}
	}
	if excess.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if err := e.mToken.Transfer(e.excessDestination, excess); err != nil {
		return nil, err
	}
	e.emit(events.ExcessClaimed{Destination: e.excessDestination, Amount: excess})
	return excess, nil
}

// StartEarningFor flips an approved account into earning mode, converting its
// flat balance into principal at the current index.
func (e *Engine) StartEarningFor(account common.Address) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if account == (common.Address{}) {
		return ErrZeroAccount
	}
	supply, err := e.ensureSupply()
	if err != nil {
		return err
	}
	if !supply.EarningEnabled {
		return ErrEarningIsDisabled
	}
	if !e.earners.IsApprovedEarner(account) {
		return &NotApprovedEarnerError{Account: account}
	}
	acct, err := e.ensureAccount(account)
	if err != nil {
		return err
	}
	if acct.Earning {
		return nil
	}
	index, err := e.currentIndex(supply)
	if err != nil {
		return err
	}

	flat := new(big.Int).Set(acct.Balance)
	principal, err := principalAmountRoundedDown(flat, index)
	if err != nil {
		return err
	}

	acct.Earning = true
	acct.Principal = principal
	acct.LastIndex = new(big.Int).Set(index)

	supply.TotalNonEarning = clampZero(new(big.Int).Sub(supply.TotalNonEarning, flat))
	supply.TotalEarning = new(big.Int).Add(supply.TotalEarning, flat)
	supply.PrincipalOfTotalEarning = new(big.Int).Add(supply.PrincipalOfTotalEarning, principal)

	if err := e.state.PutAccount(account, acct); err != nil {
		return err
	}
	if err := e.state.PutSupply(supply); err != nil {
		return err
	}
	e.emit(events.StartedEarning{Account: account, Principal: principal, Index: index})
	return nil
}

// StopEarning flips the caller's own account back to a flat balance,
// realizing accrued yield first so no value is lost.
func (e *Engine) StopEarning(account common.Address) error {
	return e.stopEarning(account, true)
}

// StopEarningFor lets a third party force an account out of earning mode. An
// account still on the approved list cannot be force-stopped unless the
// caller holds earner-status-admin authority.
func (e *Engine) StopEarningFor(caller, account common.Address) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.earners.IsApprovedEarner(account) && !e.earners.IsApprovedEarnerStatusAdmin(caller) {
		return &IsApprovedEarnerError{Account: account}
	}
	return e.stopEarning(account, false)
}

func (e *Engine) stopEarning(account common.Address, self bool) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if account == (common.Address{}) {
		return ErrZeroAccount
	}
	supply, err := e.ensureSupply()
	if err != nil {
		return err
	}
	acct, err := e.ensureAccount(account)
	if err != nil {
		return err
	}
	if !acct.Earning {
		return nil
	}
	index, err := e.currentIndex(supply)
	if err != nil {
		return err
	}

	yield, err := e.syncEarning(acct, index)
	if err != nil {
		return err
	}
	if yield.Sign() > 0 {
		supply.TotalEarning = new(big.Int).Add(supply.TotalEarning, yield)
		e.emit(events.YieldClaimed{Account: account, Recipient: account, Yield: yield, Index: index})
	}

	flat := new(big.Int).Set(acct.Balance)
	principal := new(big.Int).Set(acct.Principal)

	acct.Earning = false
	acct.Principal = big.NewInt(0)
	acct.LastIndex = nil

	supply.TotalEarning = clampZero(new(big.Int).Sub(supply.TotalEarning, flat))
	supply.PrincipalOfTotalEarning = clampZero(new(big.Int).Sub(supply.PrincipalOfTotalEarning, principal))
	supply.TotalNonEarning = new(big.Int).Add(supply.TotalNonEarning, flat)

	if err := e.state.PutAccount(account, acct); err != nil {
		return err
	}
	if err := e.state.PutSupply(supply); err != nil {
		return err
	}
	e.emit(events.StoppedEarning{Account: account, Balance: flat, Index: index})
	return nil
}

// EnableEarning activates the earning mechanism, snapshotting the enabling
// index. Earning can be enabled exactly once; after a disable the transition
// is permanently rejected.
func (e *Engine) EnableEarning() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	supply, err := e.ensureSupply()
	if err != nil {
		return err
	}
	if supply.EarningEnabled {
		return ErrEarningIsEnabled
	}
	if supply.EarningWasEnabled {
		return ErrEarningCannotBeReenabled
	}
	if !e.registrar.EarningPermitted() {
		return &NotApprovedEarnerError{Account: e.self}
	}
	index, err := e.mToken.CurrentIndex()
	if err != nil {
		return err
	}
	if index == nil || index.Sign() == 0 {
		return ErrZeroIndex
	}
	supply.EarningEnabled = true
	supply.EarningWasEnabled = true
	supply.EnableIndex = new(big.Int).Set(index)
	if err := e.state.PutSupply(supply); err != nil {
		return err
	}
	e.emit(events.EarningEnabled{Index: index})
	return nil
}

// DisableEarning shuts the earning mechanism down permanently, freezing the
// index at the disable snapshot. Only valid while enabled and while the
// registrar no longer permits earning.
func (e *Engine) DisableEarning() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	supply, err := e.ensureSupply()
	if err != nil {
		return err
	}
	if !supply.EarningEnabled {
		return ErrEarningIsDisabled
	}
	if e.registrar.EarningPermitted() {
		return &IsApprovedEarnerError{Account: e.self}
	}
	index, err := e.mToken.CurrentIndex()
	if err != nil {
		return err
	}
	if index == nil || index.Sign() == 0 {
		return ErrZeroIndex
	}
	supply.EarningEnabled = false
	supply.DisableIndex = new(big.Int).Set(index)
	if err := e.state.PutSupply(supply); err != nil {
		return err
	}
	e.emit(events.EarningDisabled{Index: index})
	return nil
}

// Migrate authorizes the admin-gated migration path. The migration mechanics
// live outside the core; only the authorization guard belongs here.
func (e *Engine) Migrate(caller common.Address) error {
	if e == nil {
		return ErrNilState
	}
	if caller != e.migrationAdmin {
		return ErrUnauthorizedMigration
	}
	return nil
}

func (e *Engine) obligations(supply *Supply, index *big.Int) (*big.Int, error) {
	projected, err := presentAmount(supply.PrincipalOfTotalEarning, index)
	if err != nil {
		return nil, err
	}
	accrued := clampZero(new(big.Int).Sub(projected, supply.TotalEarning))
	total := new(big.Int).Add(supply.TotalNonEarning, supply.TotalEarning)
	return total.Add(total, accrued), nil
}
