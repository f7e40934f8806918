package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestValidatePrescriptionGrid(t *testing.T) {
	cases := []struct {
		name string
		req  PrescriptionRequest
		ok   bool
	}{
		{"empty prescription", PrescriptionRequest{}, true},
		{"sphere on grid", PrescriptionRequest{LeftSphere: floatPtr(-2.25)}, true},
		{"sphere at limit", PrescriptionRequest{RightSphere: floatPtr(20)}, true},
		{"sphere over limit", PrescriptionRequest{LeftSphere: floatPtr(20.25)}, false},
		{"sphere off grid", PrescriptionRequest{LeftSphere: floatPtr(1.1)}, false},
		{"cylinder on grid", PrescriptionRequest{RightCylinder: floatPtr(-10)}, true},
		{"cylinder over limit", PrescriptionRequest{RightCylinder: floatPtr(-10.25)}, false},
		{"axis in range", PrescriptionRequest{LeftAxis: intPtr(180)}, true},
		{"axis zero", PrescriptionRequest{LeftAxis: intPtr(0)}, false},
		{"axis over range", PrescriptionRequest{RightAxis: intPtr(181)}, false},
		{"prism on grid", PrescriptionRequest{LeftPrism: floatPtr(2.5)}, true},
		{"prism negative", PrescriptionRequest{LeftPrism: floatPtr(-0.25)}, false},
		{"add on grid", PrescriptionRequest{RightAdd: floatPtr(2.75)}, true},
		{"add over limit", PrescriptionRequest{RightAdd: floatPtr(4.25)}, false},
		{"add off grid", PrescriptionRequest{LeftAdd: floatPtr(1.3)}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePrescriptionGrid(tc.req)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				var gridErr *GridError
				assert.ErrorAs(t, err, &gridErr)
			}
		})
	}
}

func TestCreateCustomerDuplicatePhone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.customers.CreateCustomer(ctx, env.orgID, env.actorID, CustomerRequest{
		Phone: "0551112222", FirstName: "Amal",
	})
	require.NoError(t, err)

	_, err = env.customers.CreateCustomer(ctx, env.orgID, env.actorID, CustomerRequest{
		Phone: "0551112222", FirstName: "Basim",
	})
	var dupErr *DuplicateCustomerError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "phone", dupErr.Field)
}

func TestCreateCustomerDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.customers.CreateCustomer(ctx, env.orgID, env.actorID, CustomerRequest{
		Phone: "0551112222", Email: "amal@example.test", FirstName: "Amal",
	})
	require.NoError(t, err)

	_, err = env.customers.CreateCustomer(ctx, env.orgID, env.actorID, CustomerRequest{
		Phone: "0553334444", Email: "amal@example.test", FirstName: "Basim",
	})
	var dupErr *DuplicateCustomerError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "email", dupErr.Field)
}

func TestDeleteCustomerReleasesContactSlots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.customers.CreateCustomer(ctx, env.orgID, env.actorID, CustomerRequest{
		Phone: "0551112222", FirstName: "Amal",
	})
	require.NoError(t, err)

	require.NoError(t, env.customers.DeleteCustomer(ctx, env.orgID, env.actorID, first.ID))

	// Uniqueness only spans active customers.
	_, err = env.customers.CreateCustomer(ctx, env.orgID, env.actorID, CustomerRequest{
		Phone: "0551112222", FirstName: "Basim",
	})
	assert.NoError(t, err)
}

func TestUpdateCustomerKeepsOwnPhone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer, err := env.customers.CreateCustomer(ctx, env.orgID, env.actorID, CustomerRequest{
		Phone: "0551112222", FirstName: "Amal",
	})
	require.NoError(t, err)

	updated, err := env.customers.UpdateCustomer(ctx, env.orgID, env.actorID, customer.ID, CustomerRequest{
		Phone: "0551112222", FirstName: "Amal", LastName: "Haddad",
	})
	require.NoError(t, err)
	assert.Equal(t, "Haddad", updated.LastName)
}

func TestResolveCustomerReturnsExistingByPhone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	existing, err := env.customers.CreateCustomer(ctx, env.orgID, env.actorID, CustomerRequest{
		Phone: "0551112222", FirstName: "Amal",
	})
	require.NoError(t, err)

	resolved, err := env.customers.ResolveCustomer(ctx, env.orgID, env.actorID, CustomerRequest{
		Phone: "0551112222", FirstName: "Different Name",
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, resolved.ID)
	assert.Equal(t, "Amal", resolved.FirstName)
}

func TestResolveCustomerCreatesWhenUnknown(t *testing.T) {
	env := newTestEnv(t)

	resolved, err := env.customers.ResolveCustomer(context.Background(), env.orgID, env.actorID, CustomerRequest{
		Phone: "0559998888", FirstName: "Nour",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, resolved.ID)
	assert.True(t, resolved.IsActive)
}

func TestCreatePrescriptionRejectsOffGridValue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer, err := env.customers.CreateCustomer(ctx, env.orgID, env.actorID, CustomerRequest{
		Phone: "0551112222", FirstName: "Amal",
	})
	require.NoError(t, err)

	_, err = env.customers.CreatePrescription(ctx, env.orgID, env.actorID, customer.ID, PrescriptionRequest{
		LeftSphere: floatPtr(1.1),
	})
	var gridErr *GridError
	require.ErrorAs(t, err, &gridErr)
	assert.Equal(t, "left_sphere", gridErr.Field)
}

func TestCreatePrescriptionUnknownCustomer(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.customers.CreatePrescription(context.Background(), env.orgID, env.actorID, uuid.New(), PrescriptionRequest{
		LeftSphere: floatPtr(-1.25),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPrescriptionsScopedToCustomer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.customers.CreateCustomer(ctx, env.orgID, env.actorID, CustomerRequest{Phone: "0551", FirstName: "A"})
	require.NoError(t, err)
	second, err := env.customers.CreateCustomer(ctx, env.orgID, env.actorID, CustomerRequest{Phone: "0552", FirstName: "B"})
	require.NoError(t, err)

	_, err = env.customers.CreatePrescription(ctx, env.orgID, env.actorID, first.ID, PrescriptionRequest{LeftSphere: floatPtr(-1.25)})
	require.NoError(t, err)
	_, err = env.customers.CreatePrescription(ctx, env.orgID, env.actorID, first.ID, PrescriptionRequest{LeftSphere: floatPtr(-1.5)})
	require.NoError(t, err)

	list, err := env.customers.ListPrescriptions(ctx, env.orgID, first.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = env.customers.ListPrescriptions(ctx, env.orgID, second.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
