package wrapped

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func mustHoldInvariants(t *testing.T, env *testEnv, step string, accounts ...common.Address) {
	t.Helper()
	if err := env.engine.VerifyInvariants(accounts); err != nil {
		t.Fatalf("%s: %v", step, err)
	}
}

// TestInvariantsAcrossLifecycle drives a full wrap/earn/transfer/claim/unwrap
// script and recomputes the supply aggregates from scratch after every
// transition.
func TestInvariantsAcrossLifecycle(t *testing.T) {
	env := newTestEnv(t)
	holders := []common.Address{env.alice, env.bob}

	env.wrapFresh(t, env.alice, 1_000_000)
	env.wrapFresh(t, env.bob, 500_000)
	mustHoldInvariants(t, env, "after wraps", holders...)

	// A small donation keeps the solvency check strict rather than marginal.
	env.token.mint(env.wrapper, 10)
	mustHoldInvariants(t, env, "after donation", holders...)

	env.enableEarningAt(t, idx(1.25))
	env.startEarning(t, env.alice)
	mustHoldInvariants(t, env, "after alice starts earning", holders...)

	env.token.setIndex(idx(1.5))
	mustHoldInvariants(t, env, "after growth to 1.5", holders...)

	accrued, err := env.engine.TotalAccruedYield()
	if err != nil {
		t.Fatalf("total accrued yield: %v", err)
	}
	if accrued.Cmp(big.NewInt(200_000)) != 0 {
		t.Fatalf("total accrued yield: got %s want 200000", accrued)
	}

	if _, err := env.engine.Transfer(env.alice, env.bob, big.NewInt(300_000)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	mustHoldInvariants(t, env, "after transfer", holders...)
	env.mustBalance(t, env.alice, 900_000)
	env.mustBalance(t, env.bob, 800_000)

	env.startEarning(t, env.bob)
	mustHoldInvariants(t, env, "after bob starts earning", holders...)

	env.token.setIndex(idx(2.0))
	mustHoldInvariants(t, env, "after growth to 2.0", holders...)

	claimed, err := env.engine.ClaimFor(env.alice)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Cmp(big.NewInt(300_000)) != 0 {
		t.Fatalf("claimed: got %s want 300000", claimed)
	}
	mustHoldInvariants(t, env, "after claim", holders...)

	unwrapped, err := env.engine.UnwrapAll(env.alice, env.alice)
	if err != nil {
		t.Fatalf("unwrap all: %v", err)
	}
	if unwrapped.Cmp(big.NewInt(1_200_000)) != 0 {
		t.Fatalf("unwrapped: got %s want 1200000", unwrapped)
	}
	mustHoldInvariants(t, env, "after alice exits", holders...)

	env.registrar.permitted = false
	if err := env.engine.DisableEarning(); err != nil {
		t.Fatalf("disable: %v", err)
	}
	mustHoldInvariants(t, env, "after disable", holders...)

	// Post-disable growth must not create new obligations.
	env.token.setIndex(idx(2.5))
	mustHoldInvariants(t, env, "after post-disable growth", holders...)

	claimed, err = env.engine.ClaimFor(env.bob)
	if err != nil {
		t.Fatalf("bob claim: %v", err)
	}
	// Bob's 533333 principal is frozen at 2.0: 1066666 against 800000 held.
	if claimed.Cmp(big.NewInt(266_666)) != 0 {
		t.Fatalf("bob claimed: got %s want 266666", claimed)
	}
	mustHoldInvariants(t, env, "after bob claim", holders...)

	if _, err := env.engine.UnwrapAll(env.bob, env.bob); err != nil {
		t.Fatalf("bob unwrap all: %v", err)
	}
	mustHoldInvariants(t, env, "after bob exits", holders...)

	total, err := env.engine.TotalSupply()
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	if total.Sign() != 0 {
		t.Fatalf("total supply: got %s want 0", total)
	}

	// Everything the wrapper still holds is pure surplus now.
	if _, err := env.engine.ClaimExcess(); err != nil {
		t.Fatalf("claim excess: %v", err)
	}
	mustHoldInvariants(t, env, "after excess sweep", holders...)
	if got, _ := env.token.BalanceOf(env.wrapper); got.Sign() != 0 {
		t.Fatalf("wrapper backing: got %s want 0", got)
	}
}

// TestInvariantsWithRoundingDust uses amounts that do not divide evenly at the
// active index, forcing every rounding rule onto its asymmetric edge.
func TestInvariantsWithRoundingDust(t *testing.T) {
	env := newTestEnv(t)
	holders := []common.Address{env.carol}

	env.wrapFresh(t, env.carol, 1_000_003)
	env.token.mint(env.wrapper, 10)
	env.enableEarningAt(t, idx(1.25))
	env.startEarning(t, env.carol)
	mustHoldInvariants(t, env, "after dusty start", holders...)

	// 1000003 / 1.25 floors to 800002, projecting one unit short of the
	// balance. The shortfall clamps to zero yield instead of going negative.
	yield, err := env.engine.AccruedYieldOf(env.carol)
	if err != nil {
		t.Fatalf("accrued yield: %v", err)
	}
	if yield.Sign() != 0 {
		t.Fatalf("accrued yield at start: got %s want 0", yield)
	}

	env.token.setIndex(idx(1.5))
	mustHoldInvariants(t, env, "after dusty growth", holders...)
	yield, err = env.engine.AccruedYieldOf(env.carol)
	if err != nil {
		t.Fatalf("accrued yield: %v", err)
	}
	if yield.Cmp(big.NewInt(200_000)) != 0 {
		t.Fatalf("accrued yield: got %s want 200000", yield)
	}

	// 100000 does not divide by 1.5; the principal debit rounds up and the
	// balance is floored to the remaining projection.
	if _, err := env.engine.Unwrap(env.carol, env.carol, big.NewInt(100_000)); err != nil {
		t.Fatalf("dusty unwrap: %v", err)
	}
	mustHoldInvariants(t, env, "after dusty unwrap", holders...)
	env.mustBalance(t, env.carol, 1_100_002)

	if _, err := env.engine.UnwrapAll(env.carol, env.carol); err != nil {
		t.Fatalf("final unwrap: %v", err)
	}
	mustHoldInvariants(t, env, "after final unwrap", holders...)
	total, _ := env.engine.TotalSupply()
	if total.Sign() != 0 {
		t.Fatalf("total supply: got %s want 0", total)
	}
}
