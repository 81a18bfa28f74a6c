package wrapped

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"wrappedm/native/wrapped"
	"wrappedm/storage"
)

var (
	baseHolderPrefix = []byte("wm/base/holder:")
	baseIndexKey     = ethcrypto.Keccak256([]byte("wm/base/index"))

	// ErrIndexDecreased rejects index writes that move backwards; the base
	// asset only ever accrues.
	ErrIndexDecreased = errors.New("wrapped base: index cannot decrease")
	// ErrBaseInsufficient rejects transfers that exceed the sender's live
	// balance.
	ErrBaseInsufficient = errors.New("wrapped base: insufficient balance")
)

// storedBaseHolder keeps the holder's amount in principal units when earning,
// in flat units otherwise. Earning balances grow implicitly with the index.
type storedBaseHolder struct {
	Earning bool
	Amount  *big.Int
}

func baseHolderKey(addr common.Address) []byte {
	buf := make([]byte, len(baseHolderPrefix)+common.AddressLength)
	copy(buf, baseHolderPrefix)
	copy(buf[len(baseHolderPrefix):], addr.Bytes())
	return ethcrypto.Keccak256(buf)
}

// BaseLedger is a database-backed rendition of the rebasing base asset. The
// wrapper's own account is registered as earning so its backing grows with the
// index, mirroring how the real asset treats approved earners.
type BaseLedger struct {
	mu sync.Mutex
	db storage.Database
}

func NewBaseLedger(db storage.Database) (*BaseLedger, error) {
	if db == nil {
		return nil, errors.New("wrapped base: nil database")
	}
	return &BaseLedger{db: db}, nil
}

func (l *BaseLedger) loadHolder(addr common.Address) (*storedBaseHolder, error) {
	data, err := l.db.Get(baseHolderKey(addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return &storedBaseHolder{Amount: big.NewInt(0)}, nil
	}
	if err != nil {
		return nil, err
	}
	holder := new(storedBaseHolder)
	if err := rlp.DecodeBytes(data, holder); err != nil {
		return nil, fmt.Errorf("wrapped base: decode holder %s: %w", addr.Hex(), err)
	}
	if holder.Amount == nil {
		holder.Amount = big.NewInt(0)
	}
	return holder, nil
}

func (l *BaseLedger) storeHolder(addr common.Address, holder *storedBaseHolder) error {
	if holder.Amount.Sign() < 0 {
		return fmt.Errorf("wrapped base: negative amount for %s", addr.Hex())
	}
	if _, overflow := uint256.FromBig(holder.Amount); overflow {
		return fmt.Errorf("wrapped base: amount overflows 256 bits for %s", addr.Hex())
	}
	data, err := rlp.EncodeToBytes(holder)
	if err != nil {
		return err
	}
	return l.db.Put(baseHolderKey(addr), data)
}

func (l *BaseLedger) loadIndex() (*big.Int, error) {
	data, err := l.db.Get(baseIndexKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return wrapped.OneScaled(), nil
	}
	if err != nil {
		return nil, err
	}
	index := new(big.Int)
	if err := rlp.DecodeBytes(data, index); err != nil {
		return nil, fmt.Errorf("wrapped base: decode index: %w", err)
	}
	if index.Sign() == 0 {
		return wrapped.OneScaled(), nil
	}
	return index, nil
}

// CurrentIndex returns the live base-asset index, one-scaled on a fresh
// database.
func (l *BaseLedger) CurrentIndex() (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadIndex()
}

// SetIndex advances the index. Decreasing writes are rejected.
func (l *BaseLedger) SetIndex(index *big.Int) error {
	if index == nil || index.Sign() <= 0 {
		return wrapped.ErrZeroIndex
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	current, err := l.loadIndex()
	if err != nil {
		return err
	}
	if index.Cmp(current) < 0 {
		return ErrIndexDecreased
	}
	data, err := rlp.EncodeToBytes(index)
	if err != nil {
		return err
	}
	return l.db.Put(baseIndexKey, data)
}

func (l *BaseLedger) presentBalance(holder *storedBaseHolder, index *big.Int) (*big.Int, error) {
	if !holder.Earning {
		return new(big.Int).Set(holder.Amount), nil
	}
	return wrapped.PresentAmount(holder.Amount, index)
}

// BalanceOf returns the holder's live balance, projected through the current
// index for earning holders.
func (l *BaseLedger) BalanceOf(addr common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	holder, err := l.loadHolder(addr)
	if err != nil {
		return nil, err
	}
	index, err := l.loadIndex()
	if err != nil {
		return nil, err
	}
	return l.presentBalance(holder, index)
}

// Mint credits freshly issued base tokens to the holder.
func (l *BaseLedger) Mint(addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return wrapped.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	index, err := l.loadIndex()
	if err != nil {
		return err
	}
	holder, err := l.loadHolder(addr)
	if err != nil {
		return err
	}
	if err := l.credit(holder, amount, index); err != nil {
		return err
	}
	return l.storeHolder(addr, holder)
}

// SetEarning converts a holder between flat and earning representation at the
// current index. The live balance is preserved modulo the floor conversion.
func (l *BaseLedger) SetEarning(addr common.Address, earning bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	holder, err := l.loadHolder(addr)
	if err != nil {
		return err
	}
	if holder.Earning == earning {
		return nil
	}
	index, err := l.loadIndex()
	if err != nil {
		return err
	}
	live, err := l.presentBalance(holder, index)
	if err != nil {
		return err
	}
	if earning {
		principal, err := wrapped.PrincipalRoundedDown(live, index)
		if err != nil {
			return err
		}
		holder.Amount = principal
	} else {
		holder.Amount = live
	}
	holder.Earning = earning
	return l.storeHolder(addr, holder)
}

func (l *BaseLedger) credit(holder *storedBaseHolder, amount, index *big.Int) error {
	if !holder.Earning {
		holder.Amount = new(big.Int).Add(holder.Amount, amount)
		return nil
	}
	principal, err := wrapped.PrincipalRoundedDown(amount, index)
	if err != nil {
		return err
	}
	holder.Amount = new(big.Int).Add(holder.Amount, principal)
	return nil
}

func (l *BaseLedger) debit(holder *storedBaseHolder, amount, index *big.Int) error {
	live, err := l.presentBalance(holder, index)
	if err != nil {
		return err
	}
	if live.Cmp(amount) < 0 {
		return ErrBaseInsufficient
	}
	if !holder.Earning {
		holder.Amount = new(big.Int).Sub(holder.Amount, amount)
		return nil
	}
	principal, err := wrapped.PrincipalRoundedUp(amount, index)
	if err != nil {
		return err
	}
	if principal.Cmp(holder.Amount) > 0 {
		principal = new(big.Int).Set(holder.Amount)
	}
	holder.Amount = new(big.Int).Sub(holder.Amount, principal)
	return nil
}

// TransferFrom moves base tokens between two holders.
func (l *BaseLedger) TransferFrom(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return wrapped.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	index, err := l.loadIndex()
	if err != nil {
		return err
	}
	sender, err := l.loadHolder(from)
	if err != nil {
		return err
	}
	if err := l.debit(sender, amount, index); err != nil {
		return err
	}
	if from == to {
		return l.storeHolder(from, sender)
	}
	receiver, err := l.loadHolder(to)
	if err != nil {
		return err
	}
	if err := l.credit(receiver, amount, index); err != nil {
		return err
	}
	if err := l.storeHolder(from, sender); err != nil {
		return err
	}
	return l.storeHolder(to, receiver)
}

// Account binds the ledger to a specific holder so it satisfies the engine's
// base-token surface, where outbound transfers are always drawn from the
// wrapper's own account.
func (l *BaseLedger) Account(self common.Address) *BoundBaseToken {
	return &BoundBaseToken{ledger: l, self: self}
}

// BoundBaseToken adapts BaseLedger to the single-account view the engine
// consumes.
type BoundBaseToken struct {
	ledger *BaseLedger
	self   common.Address
}

func (b *BoundBaseToken) BalanceOf(addr common.Address) (*big.Int, error) {
	return b.ledger.BalanceOf(addr)
}

func (b *BoundBaseToken) CurrentIndex() (*big.Int, error) {
	return b.ledger.CurrentIndex()
}

func (b *BoundBaseToken) Transfer(to common.Address, amount *big.Int) error {
	return b.ledger.TransferFrom(b.self, to, amount)
}

func (b *BoundBaseToken) TransferFrom(from, to common.Address, amount *big.Int) error {
	return b.ledger.TransferFrom(from, to, amount)
}
