package service

import (
	"testing"
	"time"

	"github.com/richardliu001/celebrity-wallet/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembership_PurchasePointsUserAtIt(t *testing.T) {
	env := newTestEnv(t, Effects{})
	u := env.seedUser(t, 100)
	plan := env.seedPlan(t, 30, model.PeriodMonth, 0)
	card := "pm_123"

	m, err := env.svc.Memberships.Purchase(env.ctx, u.ID, PurchaseMembershipRequest{UserID: u.ID, PlanID: plan.ID, AutoRenew: true, PaymentMethodID: &card})
	require.NoError(t, err)
	assert.Equal(t, model.MembershipPending, m.Status)
	assert.Equal(t, plan.Name, m.PlanName)
	assert.True(t, m.AutoRenew)
	require.NotNil(t, m.ExpiresAt)
	assert.True(t, m.ExpiresAt.Equal(fixedNow.AddDate(0, 1, 0)))

	got := env.user(t, u.ID)
	assert.Equal(t, "70", got.Balance.StringFixed(0))
	require.NotNil(t, got.CurrentMembershipID)
	assert.Equal(t, m.ID, *got.CurrentMembershipID)
	assert.EqualValues(t, 1, env.countTx(t, u.ID, model.PurposeMembershipPayment))
	env.requireConsistent(t, u.ID)
}

func TestMembership_AdminAmountOverride(t *testing.T) {
	env := newTestEnv(t, Effects{})
	u := env.seedUser(t, 100)
	plan := env.seedPlan(t, 30, model.PeriodYear, 0)

	amt := decimal.NewFromInt(5)
	m, err := env.svc.Memberships.Purchase(env.ctx, "admin-1", PurchaseMembershipRequest{UserID: u.ID, PlanID: plan.ID, Amount: &amt})
	require.NoError(t, err)
	assert.Equal(t, "5", m.Price.StringFixed(0))
	assert.Equal(t, "95", env.balance(t, u.ID))

	zero := decimal.Zero
	_, err = env.svc.Memberships.Purchase(env.ctx, "admin-1", PurchaseMembershipRequest{UserID: u.ID, PlanID: plan.ID, Amount: &zero})
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestMembership_PurchaseShortBalance(t *testing.T) {
	env := newTestEnv(t, Effects{})
	u := env.seedUser(t, 10)
	plan := env.seedPlan(t, 30, model.PeriodMonth, 0)

	_, err := env.svc.Memberships.Purchase(env.ctx, u.ID, PurchaseMembershipRequest{UserID: u.ID, PlanID: plan.ID})
	assert.ErrorIs(t, err, model.ErrInsufficientBalance)
	assert.Nil(t, env.user(t, u.ID).CurrentMembershipID)
}

func TestMembership_ActivationComputesExpiry(t *testing.T) {
	env := newTestEnv(t, Effects{})
	u := env.seedUser(t, 100)
	plan := env.seedPlan(t, 10, model.PeriodCustom, 45)

	m, err := env.svc.Memberships.Purchase(env.ctx, u.ID, PurchaseMembershipRequest{UserID: u.ID, PlanID: plan.ID})
	require.NoError(t, err)

	activatedAt := fixedNow.Add(72 * time.Hour)
	env.svc.Memberships.now = func() time.Time { return activatedAt }
	active, err := env.svc.Memberships.UpdateStatus(env.ctx, "admin-1", m.ID, model.MembershipActive)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipActive, active.Status)
	require.NotNil(t, active.StartedAt)
	require.NotNil(t, active.ExpiresAt)
	assert.True(t, active.StartedAt.Equal(activatedAt))
	assert.True(t, active.ExpiresAt.Equal(activatedAt.AddDate(0, 0, 45)))

	stored, err := env.repo.GetMembership(env.ctx, nil, m.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, activatedAt.AddDate(0, 0, 45), *stored.ExpiresAt, time.Second)

	// suspend then resume keeps the original period
	_, err = env.svc.Memberships.UpdateStatus(env.ctx, "admin-1", m.ID, model.MembershipSuspended)
	require.NoError(t, err)
	env.svc.Memberships.now = func() time.Time { return activatedAt.Add(24 * time.Hour) }
	resumed, err := env.svc.Memberships.UpdateStatus(env.ctx, "admin-1", m.ID, model.MembershipActive)
	require.NoError(t, err)
	assert.Nil(t, resumed.SuspendedAt)
	assert.WithinDuration(t, activatedAt.AddDate(0, 0, 45), *resumed.ExpiresAt, time.Second)

	// no money moves on status changes
	assert.Equal(t, "90", env.balance(t, u.ID))
}

func TestMembership_Upgrade(t *testing.T) {
	env := newTestEnv(t, Effects{})
	u := env.seedUser(t, 200)
	basic := env.seedPlan(t, 30, model.PeriodMonth, 0)
	premium := env.seedPlan(t, 80, model.PeriodYear, 0)
	card := "pm_old"

	_, err := env.svc.Memberships.Upgrade(env.ctx, UpgradeMembershipRequest{UserID: u.ID, PlanID: premium.ID})
	assert.ErrorIs(t, err, model.ErrNotFound)

	old, err := env.svc.Memberships.Purchase(env.ctx, u.ID, PurchaseMembershipRequest{UserID: u.ID, PlanID: basic.ID, AutoRenew: true, PaymentMethodID: &card})
	require.NoError(t, err)
	_, err = env.svc.Memberships.UpdateStatus(env.ctx, "admin-1", old.ID, model.MembershipActive)
	require.NoError(t, err)

	_, err = env.svc.Memberships.Upgrade(env.ctx, UpgradeMembershipRequest{UserID: u.ID, PlanID: basic.ID})
	assert.ErrorIs(t, err, model.ErrValidation)

	next, err := env.svc.Memberships.Upgrade(env.ctx, UpgradeMembershipRequest{UserID: u.ID, PlanID: premium.ID})
	require.NoError(t, err)
	assert.Equal(t, premium.ID, next.PlanID)
	assert.Equal(t, model.MembershipPending, next.Status)
	assert.True(t, next.AutoRenew)
	require.NotNil(t, next.PaymentMethodID)
	assert.Equal(t, card, *next.PaymentMethodID)

	prev, err := env.repo.GetMembership(env.ctx, nil, old.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipCanceled, prev.Status)
	assert.NotNil(t, prev.CanceledAt)

	got := env.user(t, u.ID)
	require.NotNil(t, got.CurrentMembershipID)
	assert.Equal(t, next.ID, *got.CurrentMembershipID)
	// full price, no proration
	assert.Equal(t, "90", got.Balance.StringFixed(0))
	assert.EqualValues(t, 1, env.countTx(t, u.ID, model.PurposeMembershipUpgrade))
	env.requireConsistent(t, u.ID)
}

func TestMembership_UpgradeFromEndedMembership(t *testing.T) {
	env := newTestEnv(t, Effects{})
	u := env.seedUser(t, 200)
	basic := env.seedPlan(t, 30, model.PeriodMonth, 0)
	premium := env.seedPlan(t, 80, model.PeriodMonth, 0)

	m, err := env.svc.Memberships.Purchase(env.ctx, u.ID, PurchaseMembershipRequest{UserID: u.ID, PlanID: basic.ID})
	require.NoError(t, err)
	_, err = env.svc.Memberships.UpdateStatus(env.ctx, "admin-1", m.ID, model.MembershipActive)
	require.NoError(t, err)
	_, err = env.svc.Memberships.UpdateStatus(env.ctx, "admin-1", m.ID, model.MembershipSuspended)
	require.NoError(t, err)
	// suspension cleared the pointer, so there is nothing to upgrade
	assert.Nil(t, env.user(t, u.ID).CurrentMembershipID)

	_, err = env.svc.Memberships.Upgrade(env.ctx, UpgradeMembershipRequest{UserID: u.ID, PlanID: premium.ID})
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, "170", env.balance(t, u.ID))
}

func TestMembership_EndingCurrentFallsBack(t *testing.T) {
	env := newTestEnv(t, Effects{})
	u := env.seedUser(t, 200)
	plan := env.seedPlan(t, 20, model.PeriodMonth, 0)

	first, err := env.svc.Memberships.Purchase(env.ctx, u.ID, PurchaseMembershipRequest{UserID: u.ID, PlanID: plan.ID})
	require.NoError(t, err)
	_, err = env.svc.Memberships.UpdateStatus(env.ctx, "admin-1", first.ID, model.MembershipActive)
	require.NoError(t, err)

	second, err := env.svc.Memberships.Purchase(env.ctx, u.ID, PurchaseMembershipRequest{UserID: u.ID, PlanID: plan.ID})
	require.NoError(t, err)
	env.svc.Memberships.now = func() time.Time { return fixedNow.Add(time.Hour) }
	_, err = env.svc.Memberships.UpdateStatus(env.ctx, "admin-1", second.ID, model.MembershipActive)
	require.NoError(t, err)
	assert.Equal(t, second.ID, *env.user(t, u.ID).CurrentMembershipID)

	// ending a membership the user does not point at leaves the pointer alone
	third, err := env.svc.Memberships.Purchase(env.ctx, u.ID, PurchaseMembershipRequest{UserID: u.ID, PlanID: plan.ID})
	require.NoError(t, err)
	_, err = env.svc.Memberships.UpdateStatus(env.ctx, "admin-1", second.ID, model.MembershipActive)
	require.NoError(t, err)
	assert.Equal(t, third.ID, *env.user(t, u.ID).CurrentMembershipID)
	_, err = env.svc.Memberships.UpdateStatus(env.ctx, "admin-1", first.ID, model.MembershipExpired)
	require.NoError(t, err)
	assert.Equal(t, third.ID, *env.user(t, u.ID).CurrentMembershipID)

	_, err = env.svc.Memberships.UpdateStatus(env.ctx, "admin-1", third.ID, model.MembershipCanceled)
	require.NoError(t, err)
	got := env.user(t, u.ID)
	require.NotNil(t, got.CurrentMembershipID)
	assert.Equal(t, second.ID, *got.CurrentMembershipID)

	_, err = env.svc.Memberships.UpdateStatus(env.ctx, "admin-1", second.ID, model.MembershipCanceled)
	require.NoError(t, err)
	assert.Nil(t, env.user(t, u.ID).CurrentMembershipID)

	_, err = env.svc.Memberships.UpdateStatus(env.ctx, "admin-1", second.ID, model.MembershipActive)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestMembership_AutoRenewOwnerOnly(t *testing.T) {
	env := newTestEnv(t, Effects{})
	u := env.seedUser(t, 100)
	other := env.seedUser(t, 100)
	plan := env.seedPlan(t, 20, model.PeriodMonth, 0)

	m, err := env.svc.Memberships.Purchase(env.ctx, u.ID, PurchaseMembershipRequest{UserID: u.ID, PlanID: plan.ID})
	require.NoError(t, err)

	_, err = env.svc.Memberships.SetAutoRenew(env.ctx, other.ID, m.ID, true)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	updated, err := env.svc.Memberships.SetAutoRenew(env.ctx, u.ID, m.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.AutoRenew)
	stored, err := env.repo.GetMembership(env.ctx, nil, m.ID)
	require.NoError(t, err)
	assert.True(t, stored.AutoRenew)
}

func TestMembership_UpgradeFromPendingSpendsExactBalance(t *testing.T) {
	env := newTestEnv(t, Effects{})
	u := env.seedUser(t, 70)
	planA := env.seedPlan(t, 20, model.PeriodMonth, 0)
	planB := env.seedPlan(t, 50, model.PeriodMonth, 0)

	a, err := env.svc.Memberships.Purchase(env.ctx, u.ID, PurchaseMembershipRequest{UserID: u.ID, PlanID: planA.ID})
	require.NoError(t, err)
	assert.Equal(t, "50", env.balance(t, u.ID))

	b, err := env.svc.Memberships.Upgrade(env.ctx, UpgradeMembershipRequest{UserID: u.ID, PlanID: planB.ID})
	require.NoError(t, err)
	assert.Equal(t, model.MembershipPending, b.Status)
	assert.Equal(t, "0", env.balance(t, u.ID))

	old, err := env.repo.GetMembership(env.ctx, nil, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipCanceled, old.Status)
	assert.Equal(t, b.ID, *env.user(t, u.ID).CurrentMembershipID)

	// a second upgrade cannot be paid for and changes nothing
	planC := env.seedPlan(t, 10, model.PeriodMonth, 0)
	_, err = env.svc.Memberships.Upgrade(env.ctx, UpgradeMembershipRequest{UserID: u.ID, PlanID: planC.ID})
	assert.ErrorIs(t, err, model.ErrInsufficientBalance)
	still, err := env.repo.GetMembership(env.ctx, nil, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipPending, still.Status)
	env.requireConsistent(t, u.ID)
}
