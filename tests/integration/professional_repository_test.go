package integration

import (
	"context"
	"testing"

	"github.com/proflow/billing-sync/internal/domain/directory"
	"github.com/proflow/billing-sync/internal/domain/shared"
	"github.com/proflow/billing-sync/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProfessionalRepository_Integration tests the ProfessionalRepository against a real PostgreSQL database
func TestProfessionalRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormProfessionalRepository(testDB.DB)
	ctx := context.Background()

	t.Run("Save and FindByID", func(t *testing.T) {
		professional, err := directory.NewProfessional("prof-001", "Ada Lovelace")
		require.NoError(t, err)

		err = repo.Save(ctx, professional)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, professional.ID)
		require.NoError(t, err)
		assert.Equal(t, professional.ID, found.ID)
		assert.Equal(t, "Ada Lovelace", found.FullName)
		assert.Equal(t, directory.DefaultRole, found.Role)
		assert.Nil(t, found.StripeCustomerID)
	})

	t.Run("FindByID not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "prof-missing")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("UpdateFields links a Stripe customer", func(t *testing.T) {
		professional, err := directory.NewProfessional("prof-002", "Grace Hopper")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, professional))

		err = repo.UpdateFields(ctx, professional.ID, map[string]any{
			"stripe_customer_id": "cus_int_test_1",
		})
		require.NoError(t, err)

		found, err := repo.FindByStripeCustomerID(ctx, "cus_int_test_1")
		require.NoError(t, err)
		assert.Equal(t, professional.ID, found.ID)
		require.NotNil(t, found.StripeCustomerID)
		assert.Equal(t, "cus_int_test_1", *found.StripeCustomerID)
	})

	t.Run("UpdateFields sets and clears subscription", func(t *testing.T) {
		professional, err := directory.NewProfessional("prof-003", "Margaret Hamilton")
		require.NoError(t, err)
		require.NoError(t, professional.LinkStripeCustomer("cus_int_test_2"))
		require.NoError(t, repo.Save(ctx, professional))

		err = repo.UpdateFields(ctx, professional.ID, map[string]any{
			"stripe_subscription_id": "sub_int_test_1",
		})
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, professional.ID)
		require.NoError(t, err)
		require.NotNil(t, found.StripeSubscriptionID)
		assert.Equal(t, "sub_int_test_1", *found.StripeSubscriptionID)

		err = repo.UpdateFields(ctx, professional.ID, map[string]any{
			"stripe_subscription_id": nil,
		})
		require.NoError(t, err)

		found, err = repo.FindByID(ctx, professional.ID)
		require.NoError(t, err)
		assert.Nil(t, found.StripeSubscriptionID)
	})

	t.Run("UpdateFields on missing record", func(t *testing.T) {
		err := repo.UpdateFields(ctx, "prof-missing", map[string]any{
			"stripe_customer_id": "cus_ghost",
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("FindByStripeCustomerID not found", func(t *testing.T) {
		_, err := repo.FindByStripeCustomerID(ctx, "cus_unknown")
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByStripeCustomerID(ctx, "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("Delete removes the record", func(t *testing.T) {
		professional, err := directory.NewProfessional("prof-004", "Katherine Johnson")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, professional))

		err = repo.Delete(ctx, professional.ID)
		require.NoError(t, err)

		_, err = repo.FindByID(ctx, professional.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
