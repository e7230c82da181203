package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/landfund/impactportal/models"
)

func TestTierResolver_Resolve(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	t.Run("resolves documented boundary amounts to distinct tiers", func(t *testing.T) {
		cases := []struct {
			amount string
			slug   string
		}{
			{"5.00", "supporter"},
			{"14.99", "advocate"},
			{"49.99", "champion"},
			{"97.99", "pioneer"},
			{"14.98", "supporter"},
			{"49.98", "advocate"},
			{"1000.00", "pioneer"},
		}
		for _, tc := range cases {
			tier, err := f.tiers.Resolve(decimal.RequireFromString(tc.amount))
			require.NoError(t, err, "amount %s", tc.amount)
			require.NotNil(t, tier, "amount %s", tc.amount)
			require.Equal(t, tc.slug, tier.Slug, "amount %s", tc.amount)
		}
	})

	t.Run("amount below every minimum resolves to none", func(t *testing.T) {
		tier, err := f.tiers.Resolve(decimal.RequireFromString("4.99"))
		require.NoError(t, err)
		require.Nil(t, tier)

		tier, err = f.tiers.Resolve(decimal.Zero)
		require.NoError(t, err)
		require.Nil(t, tier)
	})

	t.Run("negative amount fails validation", func(t *testing.T) {
		_, err := f.tiers.Resolve(decimal.RequireFromString("-1"))
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("inactive tiers are ignored", func(t *testing.T) {
		require.NoError(t, f.db.Model(&models.Tier{}).Where("slug = ?", "pioneer").Update("is_active", false).Error)
		defer func() {
			require.NoError(t, f.db.Model(&models.Tier{}).Where("slug = ?", "pioneer").Update("is_active", true).Error)
		}()

		tier, err := f.tiers.Resolve(decimal.RequireFromString("500.00"))
		require.NoError(t, err)
		require.Equal(t, "champion", tier.Slug)
	})
}

func TestTierResolver_DuplicateMinAmount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.tiers.ValidateCatalog())

	// A second tier sharing a threshold is a configuration mistake; the one
	// later in catalog order wins resolution, but validation flags it.
	dup := models.Tier{
		Slug:               "champion-dup",
		MinAmount:          decimal.RequireFromString("49.99"),
		ImpactCreditReward: 11000,
		IsActive:           true,
		DisplayOrder:       99,
	}
	require.NoError(t, f.db.Create(&dup).Error)

	require.ErrorIs(t, f.tiers.ValidateCatalog(), ErrValidation)

	tier, err := f.tiers.Resolve(decimal.RequireFromString("49.99"))
	require.NoError(t, err)
	require.Equal(t, "champion-dup", tier.Slug)
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	amount, err := ParseAmount("49.99")
	require.NoError(t, err)
	require.True(t, amount.Equal(decimal.RequireFromString("49.99")))

	_, err = ParseAmount("not-a-number")
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseAmount("")
	require.ErrorIs(t, err, ErrValidation)
}
