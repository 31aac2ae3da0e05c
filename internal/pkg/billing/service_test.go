package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PlayerFolio/app/models"
)

var serviceNow = time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC)

func newTestService(store *memStore, plans *memPlanStore, gw *fakeGateway) *Service {
	catalog := NewCatalog(map[string]models.SubscriptionPlan{"PLN_m": models.PlanMonthly}, plans)
	return NewService(store, plans, gw, catalog, fixedClock(serviceNow))
}

func TestService_Subscribe(t *testing.T) {
	store := newMemStore(freeUser(1, "mid@example.com"))
	gw := &fakeGateway{subscriptionCode: "SUB_42"}
	svc := newTestService(store, newMemPlanStore(), gw)

	user, err := svc.Subscribe(context.Background(), 1, models.PlanMonthly)
	require.NoError(t, err)

	assert.Equal(t, []string{"mid@example.com|PLN_m"}, gw.subscribed)
	assert.Equal(t, models.PlanMonthly, user.Plan)
	got := store.billing(1)
	assert.Equal(t, "SUB_42", got.SubscriptionID())
	require.NotNil(t, got.RenewalDate)
	assert.True(t, got.RenewalDate.Equal(time.Date(2025, time.May, 1, 8, 0, 0, 0, time.UTC)))
}

func TestService_SubscribeGatewayFailureLeavesRecord(t *testing.T) {
	store := newMemStore(freeUser(1, "mid@example.com"))
	svc := newTestService(store, newMemPlanStore(), &fakeGateway{createSubErr: errBoom})
	before := store.fingerprint()

	_, err := svc.Subscribe(context.Background(), 1, models.PlanMonthly)
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, err, ErrGatewayFailure)
	assert.Equal(t, before, store.fingerprint())
}

func TestService_SubscribeRejectsUnsoldTier(t *testing.T) {
	store := newMemStore(freeUser(1, "mid@example.com"))
	gw := &fakeGateway{}
	svc := newTestService(store, newMemPlanStore(), gw)

	_, err := svc.Subscribe(context.Background(), 1, models.PlanFree)
	assert.ErrorIs(t, err, ErrValidation)

	// no yearly plan code configured or stored
	_, err = svc.Subscribe(context.Background(), 1, models.PlanYearly)
	assert.ErrorIs(t, err, ErrUnknownPlanCode)
	assert.Empty(t, gw.subscribed)
}

func TestService_Cancel(t *testing.T) {
	renewal := serviceNow.Add(10 * 24 * time.Hour)
	store := newMemStore(paidUser(1, "mid@example.com", models.PlanMonthly, renewal, "SUB_1"))
	gw := &fakeGateway{}
	svc := newTestService(store, newMemPlanStore(), gw)

	user, err := svc.Cancel(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"SUB_1"}, gw.disabled)

	got := store.billing(1)
	assert.Equal(t, models.PlanMonthly, got.Plan)
	require.NotNil(t, got.RenewalDate)
	assert.True(t, got.RenewalDate.Equal(renewal))
	assert.Nil(t, got.ProviderSubscriptionID)
	assert.Equal(t, StatusCanceled, DeriveStatus(user.Billing(), serviceNow))
	assert.Equal(t, StatusExpired, DeriveStatus(got, renewal.Add(time.Second)))

	// cancelling again is a no-op
	_, err = svc.Cancel(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, gw.disabled, 1)
}

func TestService_CancelGatewayFailureLeavesRecord(t *testing.T) {
	store := newMemStore(paidUser(1, "mid@example.com", models.PlanYearly, serviceNow.Add(time.Hour), "SUB_1"))
	svc := newTestService(store, newMemPlanStore(), &fakeGateway{disableErr: errBoom})
	before := store.fingerprint()

	_, err := svc.Cancel(context.Background(), 1)
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, err, ErrGatewayFailure)
	assert.Equal(t, before, store.fingerprint())
}

func TestService_CancelFreeUser(t *testing.T) {
	store := newMemStore(freeUser(1, "mid@example.com"))
	svc := newTestService(store, newMemPlanStore(), &fakeGateway{})

	_, err := svc.Cancel(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoSubscription)

	_, err = svc.Cancel(context.Background(), 99)
	assert.ErrorIs(t, err, ErrSubscriberNotFound)
}

func TestService_Reactivate(t *testing.T) {
	store := newMemStore(freeUser(1, "mid@example.com"))
	gw := &fakeGateway{}
	svc := newTestService(store, newMemPlanStore(), gw)
	renewal := serviceNow.Add(30 * 24 * time.Hour)

	user, err := svc.Reactivate(context.Background(), 1, ReactivateInput{Plan: models.PlanYearly, RenewalDate: &renewal, ProviderSubscriptionID: "SUB_manual"})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, DeriveStatus(user.Billing(), serviceNow))
	assert.Equal(t, "SUB_manual", store.billing(1).SubscriptionID())
	assert.Empty(t, gw.subscribed)
	assert.Empty(t, gw.disabled)
}

func TestService_ReactivateFarRenewal(t *testing.T) {
	store := newMemStore(freeUser(1, "mid@example.com"))
	svc := newTestService(store, newMemPlanStore(), &fakeGateway{})
	renewal := time.Date(2040, time.January, 15, 0, 0, 0, 0, time.UTC)

	_, err := svc.Reactivate(context.Background(), 1, ReactivateInput{Plan: models.PlanYearly, RenewalDate: &renewal})
	require.NoError(t, err)
	require.NotNil(t, store.billing(1).RenewalDate)
	assert.True(t, renewal.Equal(*store.billing(1).RenewalDate))
}

func TestService_ReactivateValidation(t *testing.T) {
	past := serviceNow.Add(-time.Hour)
	future := serviceNow.Add(time.Hour)

	tests := map[string]ReactivateInput{
		"free plan":           {Plan: models.PlanFree, RenewalDate: &future},
		"unknown plan":        {Plan: "weekly", RenewalDate: &future},
		"missing renewal":     {Plan: models.PlanMonthly},
		"renewal in the past": {Plan: models.PlanMonthly, RenewalDate: &past},
	}

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			store := newMemStore(paidUser(1, "mid@example.com", models.PlanMonthly, future, "SUB_1"))
			svc := newTestService(store, newMemPlanStore(), &fakeGateway{})
			before := store.fingerprint()

			_, err := svc.Reactivate(context.Background(), 1, in)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, before, store.fingerprint())
			assert.Zero(t, store.writes)
		})
	}
}

func TestService_CreatePlan(t *testing.T) {
	plans := newMemPlanStore()
	gw := &fakeGateway{planCode: "PLN_new"}
	svc := newTestService(newMemStore(), plans, gw)

	plan := &models.Plan{Name: "Scout Yearly", Tier: models.PlanYearly, AmountMinor: 1200000}
	require.NoError(t, svc.CreatePlan(context.Background(), plan))

	stored, err := plans.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "PLN_new", stored.ProviderPlanCode)
	assert.Equal(t, "NGN", stored.Currency)
	assert.True(t, stored.IsActive)

	tier, err := svc.catalog.TierForCode(context.Background(), "PLN_new")
	require.NoError(t, err)
	assert.Equal(t, models.PlanYearly, tier)
}

func TestService_CreatePlanProviderFailureStillStores(t *testing.T) {
	plans := newMemPlanStore()
	svc := newTestService(newMemStore(), plans, &fakeGateway{planErr: errBoom})

	plan := &models.Plan{Name: "Scout Monthly", Tier: models.PlanMonthly, AmountMinor: 150000, Currency: "USD"}
	require.NoError(t, svc.CreatePlan(context.Background(), plan))

	stored, err := plans.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.ProviderPlanCode)
}

func TestService_CreatePlanValidation(t *testing.T) {
	plans := newMemPlanStore()
	gw := &fakeGateway{}
	svc := newTestService(newMemStore(), plans, gw)

	err := svc.CreatePlan(context.Background(), &models.Plan{Name: "X", Tier: "weekly"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, gw.planCalls)
}

func TestService_UpdatePlanSucceedsWhenProviderFails(t *testing.T) {
	plans := newMemPlanStore(models.Plan{Name: "Scout", Tier: models.PlanMonthly, AmountMinor: 100000, Currency: "NGN", ProviderPlanCode: "PLN_1", IsActive: true})
	gw := &fakeGateway{planErr: errBoom}
	svc := newTestService(newMemStore(), plans, gw)

	name := "Scout Plus"
	amount := int64(200000)
	plan, err := svc.UpdatePlan(context.Background(), 1, PlanUpdate{Name: &name, AmountMinor: &amount})
	require.NoError(t, err)
	assert.Equal(t, "Scout Plus", plan.Name)

	stored, _ := plans.GetByID(context.Background(), 1)
	assert.Equal(t, int64(200000), stored.AmountMinor)
	assert.Equal(t, []string{"update:PLN_1"}, gw.planCalls)
}

func TestService_DeactivatePlan(t *testing.T) {
	plans := newMemPlanStore(models.Plan{Name: "Scout", Tier: models.PlanMonthly, AmountMinor: 100000, Currency: "NGN", ProviderPlanCode: "PLN_1", IsActive: true})
	gw := &fakeGateway{}
	svc := newTestService(newMemStore(), plans, gw)

	require.NoError(t, svc.DeactivatePlan(context.Background(), 1))
	require.NoError(t, svc.DeactivatePlan(context.Background(), 1))

	active, err := svc.ListPlans(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, []string{"deactivate:PLN_1"}, gw.planCalls)

	assert.ErrorIs(t, svc.DeactivatePlan(context.Background(), 42), ErrPlanNotFound)
}
