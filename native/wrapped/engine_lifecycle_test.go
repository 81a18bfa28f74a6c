package wrapped

import (
	"errors"
	"math/big"
	"testing"

	"wrappedm/core/events"
)

func TestEnableEarningRequiresRegistrarApproval(t *testing.T) {
	env := newTestEnv(t)
	err := env.engine.EnableEarning()
	if !errors.Is(err, ErrNotApprovedEarner) {
		t.Fatalf("expected not approved earner, got %v", err)
	}
	var notApproved *NotApprovedEarnerError
	if !errors.As(err, &notApproved) || notApproved.Account != env.wrapper {
		t.Fatalf("expected wrapper account in error, got %v", err)
	}
}

func TestEnableEarningIsOneShot(t *testing.T) {
	env := newTestEnv(t)
	env.enableEarningAt(t, idx(1.25))

	if err := env.engine.EnableEarning(); !errors.Is(err, ErrEarningIsEnabled) {
		t.Fatalf("double enable: got %v", err)
	}

	enabled, err := env.engine.IsEarningEnabled()
	if err != nil || !enabled {
		t.Fatalf("expected earning enabled, got %v %v", enabled, err)
	}
	if env.emitter.count(events.TypeEarningEnabled) != 1 {
		t.Fatalf("expected one enabled event")
	}
}

func TestDisableEarningBlockedWhilePermitted(t *testing.T) {
	env := newTestEnv(t)
	env.enableEarningAt(t, idx(1.25))

	err := env.engine.DisableEarning()
	if !errors.Is(err, ErrIsApprovedEarner) {
		t.Fatalf("expected approved earner rejection, got %v", err)
	}
}

func TestDisableEarningIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	env.enableEarningAt(t, idx(1.25))
	env.registrar.permitted = false
	if err := env.engine.DisableEarning(); err != nil {
		t.Fatalf("disable: %v", err)
	}

	if err := env.engine.DisableEarning(); !errors.Is(err, ErrEarningIsDisabled) {
		t.Fatalf("double disable: got %v", err)
	}

	env.registrar.permitted = true
	if err := env.engine.EnableEarning(); !errors.Is(err, ErrEarningCannotBeReenabled) {
		t.Fatalf("re-enable after disable: got %v", err)
	}

	was, err := env.engine.WasEarningEnabled()
	if err != nil || !was {
		t.Fatalf("expected lifecycle memory, got %v %v", was, err)
	}
}

func TestCurrentIndexTracksLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.token.setIndex(idx(1.25))

	// Before earning was ever enabled conversions are identity.
	index, err := env.engine.CurrentIndex()
	if err != nil {
		t.Fatalf("current index: %v", err)
	}
	if index.Cmp(oneScaled) != 0 {
		t.Fatalf("pre-enable index: got %s want %s", index, oneScaled)
	}

	env.enableEarningAt(t, idx(1.25))
	env.token.setIndex(idx(1.5))
	index, err = env.engine.CurrentIndex()
	if err != nil {
		t.Fatalf("current index: %v", err)
	}
	if index.Cmp(idx(1.5)) != 0 {
		t.Fatalf("live index: got %s want %s", index, idx(1.5))
	}

	env.registrar.permitted = false
	if err := env.engine.DisableEarning(); err != nil {
		t.Fatalf("disable: %v", err)
	}
	env.token.setIndex(idx(2.0))
	index, err = env.engine.CurrentIndex()
	if err != nil {
		t.Fatalf("current index: %v", err)
	}
	// The disable snapshot freezes conversions regardless of the live index.
	if index.Cmp(idx(1.5)) != 0 {
		t.Fatalf("frozen index: got %s want %s", index, idx(1.5))
	}
}

func TestStartEarningRequiresApprovalAndEnabledMechanism(t *testing.T) {
	env := newTestEnv(t)
	env.wrapFresh(t, env.alice, 1000)

	if err := env.engine.StartEarningFor(env.alice); !errors.Is(err, ErrEarningIsDisabled) {
		t.Fatalf("start while mechanism off: got %v", err)
	}

	env.enableEarningAt(t, idx(1.25))
	err := env.engine.StartEarningFor(env.alice)
	if !errors.Is(err, ErrNotApprovedEarner) {
		t.Fatalf("start unapproved: got %v", err)
	}
	var notApproved *NotApprovedEarnerError
	if !errors.As(err, &notApproved) || notApproved.Account != env.alice {
		t.Fatalf("expected alice in error, got %v", err)
	}
}

func TestStartEarningConvertsFlatBalance(t *testing.T) {
	env := newTestEnv(t)
	env.wrapFresh(t, env.alice, 1000)
	env.enableEarningAt(t, idx(1.25))
	env.startEarning(t, env.alice)

	// The flat balance is kept as the snapshot, principal is minted under it.
	env.mustBalance(t, env.alice, 1000)
	earning, err := env.engine.IsEarning(env.alice)
	if err != nil || !earning {
		t.Fatalf("expected earning account, got %v %v", earning, err)
	}
	last, err := env.engine.LastIndexOf(env.alice)
	if err != nil {
		t.Fatalf("last index: %v", err)
	}
	if last.Cmp(idx(1.25)) != 0 {
		t.Fatalf("last index: got %s want %s", last, idx(1.25))
	}
	principal, _ := env.engine.PrincipalOfTotalEarningSupply()
	if principal.Cmp(big.NewInt(800)) != 0 {
		t.Fatalf("principal aggregate: got %s want 800", principal)
	}
	nonEarning, _ := env.engine.TotalNonEarningSupply()
	if nonEarning.Sign() != 0 {
		t.Fatalf("total non-earning: got %s want 0", nonEarning)
	}
	earningTotal, _ := env.engine.TotalEarningSupply()
	if earningTotal.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("total earning: got %s want 1000", earningTotal)
	}

	// Repeating the transition is a no-op.
	if err := env.engine.StartEarningFor(env.alice); err != nil {
		t.Fatalf("repeat start: %v", err)
	}
	if env.emitter.count(events.TypeStartedEarning) != 1 {
		t.Fatalf("expected one started-earning event")
	}
}

func TestStopEarningRealizesYield(t *testing.T) {
	env := newTestEnv(t)
	env.wrapFresh(t, env.alice, 1000)
	env.enableEarningAt(t, idx(1.25))
	env.startEarning(t, env.alice)
	env.token.setIndex(idx(1.5))

	if err := env.engine.StopEarning(env.alice); err != nil {
		t.Fatalf("stop earning: %v", err)
	}

	// 800 principal at 1.5 projects to 1200, the 200 yield is realized on exit.
	env.mustBalance(t, env.alice, 1200)
	earning, _ := env.engine.IsEarning(env.alice)
	if earning {
		t.Fatalf("expected flat account after stop")
	}
	nonEarning, _ := env.engine.TotalNonEarningSupply()
	if nonEarning.Cmp(big.NewInt(1200)) != 0 {
		t.Fatalf("total non-earning: got %s want 1200", nonEarning)
	}
	earningTotal, _ := env.engine.TotalEarningSupply()
	if earningTotal.Sign() != 0 {
		t.Fatalf("total earning: got %s want 0", earningTotal)
	}
	principal, _ := env.engine.PrincipalOfTotalEarningSupply()
	if principal.Sign() != 0 {
		t.Fatalf("principal aggregate: got %s want 0", principal)
	}
	if env.emitter.count(events.TypeYieldClaimed) != 1 {
		t.Fatalf("expected one yield-claimed event")
	}
	if env.emitter.count(events.TypeStoppedEarning) != 1 {
		t.Fatalf("expected one stopped-earning event")
	}

	// Stopping an already flat account does nothing.
	if err := env.engine.StopEarning(env.alice); err != nil {
		t.Fatalf("repeat stop: %v", err)
	}
	if env.emitter.count(events.TypeStoppedEarning) != 1 {
		t.Fatalf("repeat stop must not emit")
	}
}

func TestStopEarningForRespectsApprovedStatus(t *testing.T) {
	env := newTestEnv(t)
	env.wrapFresh(t, env.alice, 1000)
	env.enableEarningAt(t, idx(1.25))
	env.startEarning(t, env.alice)

	err := env.engine.StopEarningFor(env.bob, env.alice)
	if !errors.Is(err, ErrIsApprovedEarner) {
		t.Fatalf("force stop of approved earner: got %v", err)
	}

	// Once the approval is revoked anyone may force the account flat.
	env.earners.approved[env.alice] = false
	if err := env.engine.StopEarningFor(env.bob, env.alice); err != nil {
		t.Fatalf("force stop after revocation: %v", err)
	}
	earning, _ := env.engine.IsEarning(env.alice)
	if earning {
		t.Fatalf("expected flat account after forced stop")
	}
}

func TestStopEarningForAdminOverridesApproval(t *testing.T) {
	env := newTestEnv(t)
	env.wrapFresh(t, env.alice, 1000)
	env.enableEarningAt(t, idx(1.25))
	env.startEarning(t, env.alice)

	env.earners.admins[env.carol] = true
	if err := env.engine.StopEarningFor(env.carol, env.alice); err != nil {
		t.Fatalf("admin force stop: %v", err)
	}
	earning, _ := env.engine.IsEarning(env.alice)
	if earning {
		t.Fatalf("expected flat account after admin stop")
	}
}

func TestYieldFrozenAfterDisable(t *testing.T) {
	env := newTestEnv(t)
	env.wrapFresh(t, env.alice, 1000)
	env.enableEarningAt(t, idx(1.25))
	env.startEarning(t, env.alice)

	env.token.setIndex(idx(1.5))
	env.registrar.permitted = false
	if err := env.engine.DisableEarning(); err != nil {
		t.Fatalf("disable: %v", err)
	}

	// Growth after the disable snapshot is invisible to the wrapper.
	env.token.setIndex(idx(2.0))
	yield, err := env.engine.AccruedYieldOf(env.alice)
	if err != nil {
		t.Fatalf("accrued yield: %v", err)
	}
	if yield.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("accrued yield: got %s want 200", yield)
	}

	// Claims stay open at the frozen index so no earned value is stranded.
	claimed, err := env.engine.ClaimFor(env.alice)
	if err != nil {
		t.Fatalf("claim after disable: %v", err)
	}
	if claimed.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("claimed: got %s want 200", claimed)
	}
	env.mustBalance(t, env.alice, 1200)
}

func TestMigrateRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	if err := env.engine.Migrate(env.alice); !errors.Is(err, ErrUnauthorizedMigration) {
		t.Fatalf("unauthorized migrate: got %v", err)
	}
	if err := env.engine.Migrate(env.admin); err != nil {
		t.Fatalf("admin migrate: %v", err)
	}
}
