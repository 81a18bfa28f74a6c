package wrapped

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"wrappedm/native/wrapped"
	"wrappedm/storage"
)

func testAddr(suffix byte) common.Address {
	var addr common.Address
	addr[common.AddressLength-1] = suffix
	return addr
}

func TestStoreAccountRoundTrip(t *testing.T) {
	store, err := NewStore(storage.NewMemDB())
	require.NoError(t, err)
	addr := testAddr(1)

	loaded, err := store.GetAccount(addr)
	require.NoError(t, err)
	require.Nil(t, loaded, "fresh store must report missing accounts as nil")

	acct := &wrapped.Account{
		Address:   addr,
		Earning:   true,
		Balance:   big.NewInt(1_000_000),
		Principal: big.NewInt(800_000),
		LastIndex: big.NewInt(1_250_000_000_000),
	}
	require.NoError(t, store.PutAccount(addr, acct))

	loaded, err = store.GetAccount(addr)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.True(t, loaded.Earning)
	require.Zero(t, loaded.Balance.Cmp(acct.Balance))
	require.Zero(t, loaded.Principal.Cmp(acct.Principal))
	require.Zero(t, loaded.LastIndex.Cmp(acct.LastIndex))
	require.Equal(t, addr, loaded.Address)
}

func TestStoreDropsIndexForFlatAccounts(t *testing.T) {
	store, err := NewStore(storage.NewMemDB())
	require.NoError(t, err)
	addr := testAddr(2)

	acct := &wrapped.Account{
		Address: addr,
		Balance: big.NewInt(500),
		// A stale snapshot left over from a previous earning stint.
		LastIndex: big.NewInt(1_500_000_000_000),
	}
	require.NoError(t, store.PutAccount(addr, acct))

	loaded, err := store.GetAccount(addr)
	require.NoError(t, err)
	require.False(t, loaded.Earning)
	require.Nil(t, loaded.LastIndex)
	require.Zero(t, loaded.Principal.Sign())
}

func TestStoreRejectsNegativeValues(t *testing.T) {
	store, err := NewStore(storage.NewMemDB())
	require.NoError(t, err)

	acct := &wrapped.Account{Address: testAddr(3), Balance: big.NewInt(-1)}
	require.Error(t, store.PutAccount(testAddr(3), acct))

	supply := &wrapped.Supply{TotalEarning: big.NewInt(-5)}
	require.Error(t, store.PutSupply(supply))
}

func TestStoreRejectsOverflowingValues(t *testing.T) {
	store, err := NewStore(storage.NewMemDB())
	require.NoError(t, err)

	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	acct := &wrapped.Account{Address: testAddr(4), Balance: huge}
	require.Error(t, store.PutAccount(testAddr(4), acct))
}

func TestStoreSupplyRoundTrip(t *testing.T) {
	store, err := NewStore(storage.NewMemDB())
	require.NoError(t, err)

	loaded, err := store.GetSupply()
	require.NoError(t, err)
	require.Nil(t, loaded, "fresh store must report missing supply as nil")

	supply := &wrapped.Supply{
		TotalNonEarning:         big.NewInt(250),
		TotalEarning:            big.NewInt(1_000),
		PrincipalOfTotalEarning: big.NewInt(800),
		EarningEnabled:          false,
		EarningWasEnabled:       true,
		EnableIndex:             big.NewInt(1_250_000_000_000),
		DisableIndex:            big.NewInt(1_500_000_000_000),
	}
	require.NoError(t, store.PutSupply(supply))

	loaded, err = store.GetSupply()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Zero(t, loaded.TotalNonEarning.Cmp(supply.TotalNonEarning))
	require.Zero(t, loaded.TotalEarning.Cmp(supply.TotalEarning))
	require.Zero(t, loaded.PrincipalOfTotalEarning.Cmp(supply.PrincipalOfTotalEarning))
	require.False(t, loaded.EarningEnabled)
	require.True(t, loaded.EarningWasEnabled)
	require.Zero(t, loaded.EnableIndex.Cmp(supply.EnableIndex))
	require.Zero(t, loaded.DisableIndex.Cmp(supply.DisableIndex))
}

func TestStoreSupplyZeroSnapshotsStayNil(t *testing.T) {
	store, err := NewStore(storage.NewMemDB())
	require.NoError(t, err)

	require.NoError(t, store.PutSupply(&wrapped.Supply{TotalNonEarning: big.NewInt(42)}))
	loaded, err := store.GetSupply()
	require.NoError(t, err)
	require.Nil(t, loaded.EnableIndex)
	require.Nil(t, loaded.DisableIndex)
}
