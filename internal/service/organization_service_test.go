package service

import (
	"context"
	"testing"
	"time"

	"opticinvoicer/internal/model"
	"opticinvoicer/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(v string) *string { return &v }

func TestCanCreateInvoiceTrialStates(t *testing.T) {
	env := newTestEnv(t)

	// The fixture subscription is a trial still inside its window.
	subType, ok, err := env.orgs.CanCreateInvoice(context.Background(), env.orgID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.SubscriptionTrial, subType)

	expired := time.Now().Add(-time.Hour)
	env.orgRepo.subs[0].TrialEndDate = &expired

	subType, ok, err = env.orgs.CanCreateInvoice(context.Background(), env.orgID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, model.SubscriptionTrial, subType)
}

func TestCanCreateInvoicePaidStates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.orgRepo.subs[0].IsActive = false
	expiry := time.Now().AddDate(0, 1, 0)
	require.NoError(t, env.orgRepo.CreateSubscription(ctx, &model.Subscription{
		OrganizationID:   env.orgID,
		SubscriptionType: model.SubscriptionMonthly,
		Status:           model.SubscriptionStatusPaid,
		ExpiryDate:       &expiry,
		IsActive:         true,
	}))

	subType, ok, err := env.orgs.CanCreateInvoice(ctx, env.orgID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.SubscriptionMonthly, subType)

	lapsed := time.Now().Add(-time.Hour)
	env.orgRepo.subs[1].ExpiryDate = &lapsed

	_, ok, err = env.orgs.CanCreateInvoice(ctx, env.orgID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanCreateInvoiceNoSubscription(t *testing.T) {
	env := newTestEnv(t)

	subType, ok, err := env.orgs.CanCreateInvoice(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, subType)
}

func TestCanCreateInvoiceStoppedSubscription(t *testing.T) {
	env := newTestEnv(t)

	env.orgRepo.subs[0].Status = model.SubscriptionStatusStopped

	_, ok, err := env.orgs.CanCreateInvoice(context.Background(), env.orgID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateOrganizationPartialFields(t *testing.T) {
	env := newTestEnv(t)

	updated, err := env.orgs.Update(context.Background(), env.orgID, env.actorID, UpdateOrganizationRequest{
		City:          strPtr("Dubai"),
		PhoneLandline: strPtr("04-1234567"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Dubai", updated.City)
	assert.Equal(t, "04-1234567", updated.PhoneLandline)
	// Fields absent from the request are untouched.
	assert.Equal(t, "Lens Craft Optics", updated.Name)
	require.NotNil(t, updated.UpdatedByID)
	assert.Equal(t, env.actorID, *updated.UpdatedByID)
}

func TestUpdateOrganizationUnknown(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orgs.Update(context.Background(), uuid.New(), env.actorID, UpdateOrganizationRequest{
		City: strPtr("Dubai"),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecomputeReportsStoresCountersAndSeries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	statsRepo := &fakeStatsRepo{
		counts: map[string]int64{
			repository.StatEntityCustomers:     12,
			repository.StatEntityPrescriptions: 7,
			repository.StatEntityInventory:     40,
			repository.StatEntityInvoices:      9,
		},
		monthly: map[string][]model.MonthlyStat{
			repository.StatEntityCustomers: {{Year: 2026, Month: 8, Count: 3}},
		},
		values: []model.MonthlyStat{
			{Year: 2026, Month: 8, Count: 4, Value: decimal.RequireFromString("512.50")},
		},
	}
	orgs := NewOrganizationService(env.orgRepo, statsRepo, zap.NewNop())

	report, err := orgs.RecomputeReports(ctx, env.orgID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(12), report.TotalCustomers)
	assert.Equal(t, int64(9), report.TotalInvoices)
	require.Len(t, report.InvoiceMonthly, 1)
	assert.Equal(t, "512.5", report.InvoiceMonthly[0].Value.String())

	org, err := env.orgRepo.FindByID(ctx, env.orgID)
	require.NoError(t, err)
	assert.Equal(t, 12, org.TotalCustomers)
	assert.Equal(t, 40, org.TotalInventory)
	assert.Contains(t, org.InvoiceStatistics, `"count":4`)
	assert.Contains(t, org.CustomerStatistics, `"month":8`)
	// Series with no data marshal as an empty array, not null.
	assert.Equal(t, "[]", org.PrescriptionStatistics)
}
