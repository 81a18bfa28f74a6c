package wrapped

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"wrappedm/storage"
)

var (
	registrarEarningKey  = ethcrypto.Keccak256([]byte("wm/registrar/earning"))
	claimOverridePrefix  = []byte("wm/registrar/claim-override:")
	approvedEarnerPrefix = []byte("wm/earners/approved:")
	earnerAdminPrefix    = []byte("wm/earners/admin:")
)

func prefixedAddrKey(prefix []byte, addr common.Address) []byte {
	buf := make([]byte, len(prefix)+common.AddressLength)
	copy(buf, prefix)
	copy(buf[len(prefix):], addr.Bytes())
	return ethcrypto.Keccak256(buf)
}

// Registry is the database-backed source of the governance facts the engine
// consults: the global earning permission, claim recipient overrides, and the
// approved-earner list. The engine-facing query methods deliberately return
// bare values; a read failure is logged and reported as the conservative
// default.
type Registry struct {
	mu     sync.RWMutex
	db     storage.Database
	logger *slog.Logger
}

func NewRegistry(db storage.Database, logger *slog.Logger) (*Registry, error) {
	if db == nil {
		return nil, errors.New("wrapped registry: nil database")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{db: db, logger: logger}, nil
}

func (r *Registry) putBool(key []byte, v bool) error {
	data, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	return r.db.Put(key, data)
}

func (r *Registry) getBool(key []byte) (bool, error) {
	data, err := r.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var v bool
	if err := rlp.DecodeBytes(data, &v); err != nil {
		return false, err
	}
	return v, nil
}

// SetEarningPermitted flips the global earning permission.
func (r *Registry) SetEarningPermitted(permitted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.putBool(registrarEarningKey, permitted)
}

// EarningPermitted reports whether governance currently allows the wrapper to
// earn.
func (r *Registry) EarningPermitted() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	permitted, err := r.getBool(registrarEarningKey)
	if err != nil {
		r.logger.Error("registry read failed", "key", "earning-permitted", "err", err)
		return false
	}
	return permitted
}

// SetClaimOverride routes the account's future yield claims to the recipient.
// A zero recipient clears the override.
func (r *Registry) SetClaimOverride(account, recipient common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := prefixedAddrKey(claimOverridePrefix, account)
	if recipient == (common.Address{}) {
		return r.db.Delete(key)
	}
	data, err := rlp.EncodeToBytes(recipient.Bytes())
	if err != nil {
		return err
	}
	return r.db.Put(key, data)
}

// ClaimOverrideRecipient returns the configured override recipient, if any.
func (r *Registry) ClaimOverrideRecipient(account common.Address) (common.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, err := r.db.Get(prefixedAddrKey(claimOverridePrefix, account))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return common.Address{}, false
	}
	if err != nil {
		r.logger.Error("registry read failed", "key", "claim-override", "account", account.Hex(), "err", err)
		return common.Address{}, false
	}
	var raw []byte
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		r.logger.Error("registry decode failed", "key", "claim-override", "account", account.Hex(), "err", err)
		return common.Address{}, false
	}
	recipient := common.BytesToAddress(raw)
	if recipient == (common.Address{}) {
		return common.Address{}, false
	}
	return recipient, true
}

// SetApprovedEarner adds or removes the account from the approved-earner list.
func (r *Registry) SetApprovedEarner(account common.Address, approved bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := prefixedAddrKey(approvedEarnerPrefix, account)
	if !approved {
		return r.db.Delete(key)
	}
	return r.putBool(key, true)
}

// IsApprovedEarner reports whether the account may enter earning mode.
func (r *Registry) IsApprovedEarner(account common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	approved, err := r.getBool(prefixedAddrKey(approvedEarnerPrefix, account))
	if err != nil {
		r.logger.Error("registry read failed", "key", "approved-earner", "account", account.Hex(), "err", err)
		return false
	}
	return approved
}

// SetEarnerStatusAdmin grants or revokes authority to force approved earners
// out of earning mode.
func (r *Registry) SetEarnerStatusAdmin(account common.Address, admin bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := prefixedAddrKey(earnerAdminPrefix, account)
	if !admin {
		return r.db.Delete(key)
	}
	return r.putBool(key, true)
}

// IsApprovedEarnerStatusAdmin reports whether the account holds forced-stop
// authority.
func (r *Registry) IsApprovedEarnerStatusAdmin(account common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	admin, err := r.getBool(prefixedAddrKey(earnerAdminPrefix, account))
	if err != nil {
		r.logger.Error("registry read failed", "key", "earner-admin", "account", account.Hex(), "err", err)
		return false
	}
	return admin
}
