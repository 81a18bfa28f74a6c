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
	accountPrefix = []byte("wm/account:")
	supplyKey     = ethcrypto.Keccak256([]byte("wm/supply"))
)

// storedAccount mirrors wrapped.Account for RLP. Pointers are normalized to
// zero before encoding; the earning flag decides whether the index snapshot is
// meaningful on the way back out.
type storedAccount struct {
	Earning   bool
	Balance   *big.Int
	Principal *big.Int
	LastIndex *big.Int
}

type storedSupply struct {
	TotalNonEarning         *big.Int
	TotalEarning            *big.Int
	PrincipalOfTotalEarning *big.Int
	EarningEnabled          bool
	EarningWasEnabled       bool
	EnableIndex             *big.Int
	DisableIndex            *big.Int
}

func accountKey(addr common.Address) []byte {
	buf := make([]byte, len(accountPrefix)+common.AddressLength)
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr.Bytes())
	return ethcrypto.Keccak256(buf)
}

// Store persists the wrapper ledger through a key-value database. It is safe
// for concurrent use; the engine serializes mutations, the query service reads
// alongside them.
type Store struct {
	mu sync.RWMutex
	db storage.Database
}

func NewStore(db storage.Database) (*Store, error) {
	if db == nil {
		return nil, errors.New("wrapped store: nil database")
	}
	return &Store{db: db}, nil
}

func checkWidth(label string, v *big.Int) error {
	if v == nil {
		return nil
	}
	if v.Sign() < 0 {
		return fmt.Errorf("wrapped store: negative %s", label)
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return fmt.Errorf("wrapped store: %s overflows 256 bits", label)
	}
	return nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// GetAccount loads the stored position for an address. An address that was
// never written returns nil, which the engine treats as an empty account.
func (s *Store) GetAccount(addr common.Address) (*wrapped.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := s.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	stored := new(storedAccount)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, fmt.Errorf("wrapped store: decode account %s: %w", addr.Hex(), err)
	}
	acct := &wrapped.Account{
		Address:   addr,
		Earning:   stored.Earning,
		Balance:   orZero(stored.Balance),
		Principal: orZero(stored.Principal),
	}
	if stored.Earning {
		acct.LastIndex = orZero(stored.LastIndex)
	}
	return acct, nil
}

// PutAccount persists the position for an address, validating widths at the
// boundary so a corrupted engine value never reaches disk.
func (s *Store) PutAccount(addr common.Address, account *wrapped.Account) error {
	if account == nil {
		return errors.New("wrapped store: nil account")
	}
	if err := checkWidth("balance", account.Balance); err != nil {
		return err
	}
	if err := checkWidth("principal", account.Principal); err != nil {
		return err
	}
	if err := checkWidth("last index", account.LastIndex); err != nil {
		return err
	}
	stored := &storedAccount{
		Earning:   account.Earning,
		Balance:   orZero(account.Balance),
		Principal: orZero(account.Principal),
		LastIndex: orZero(account.LastIndex),
	}
	data, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return fmt.Errorf("wrapped store: encode account %s: %w", addr.Hex(), err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Put(accountKey(addr), data)
}

// GetSupply loads the supply aggregates. A fresh database returns nil.
func (s *Store) GetSupply() (*wrapped.Supply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := s.db.Get(supplyKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	stored := new(storedSupply)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, fmt.Errorf("wrapped store: decode supply: %w", err)
	}
	supply := &wrapped.Supply{
		TotalNonEarning:         orZero(stored.TotalNonEarning),
		TotalEarning:            orZero(stored.TotalEarning),
		PrincipalOfTotalEarning: orZero(stored.PrincipalOfTotalEarning),
		EarningEnabled:          stored.EarningEnabled,
		EarningWasEnabled:       stored.EarningWasEnabled,
	}
	if stored.EnableIndex != nil && stored.EnableIndex.Sign() > 0 {
		supply.EnableIndex = new(big.Int).Set(stored.EnableIndex)
	}
	if stored.DisableIndex != nil && stored.DisableIndex.Sign() > 0 {
		supply.DisableIndex = new(big.Int).Set(stored.DisableIndex)
	}
	return supply, nil
}

// PutSupply persists the supply aggregates.
func (s *Store) PutSupply(supply *wrapped.Supply) error {
	if supply == nil {
		return errors.New("wrapped store: nil supply")
	}
	for label, v := range map[string]*big.Int{
		"total non-earning": supply.TotalNonEarning,
		"total earning":     supply.TotalEarning,
		"principal":         supply.PrincipalOfTotalEarning,
		"enable index":      supply.EnableIndex,
		"disable index":     supply.DisableIndex,
	} {
		if err := checkWidth(label, v); err != nil {
			return err
		}
	}
	stored := &storedSupply{
		TotalNonEarning:         orZero(supply.TotalNonEarning),
		TotalEarning:            orZero(supply.TotalEarning),
		PrincipalOfTotalEarning: orZero(supply.PrincipalOfTotalEarning),
		EarningEnabled:          supply.EarningEnabled,
		EarningWasEnabled:       supply.EarningWasEnabled,
		EnableIndex:             orZero(supply.EnableIndex),
		DisableIndex:            orZero(supply.DisableIndex),
	}
	data, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return fmt.Errorf("wrapped store: encode supply: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Put(supplyKey, data)
}
