package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/landfund/impactportal/models"
)

func TestVestedFraction_Schedule(t *testing.T) {
	t.Parallel()

	earned := time.Date(2020, time.January, 15, 12, 0, 0, 0, time.UTC)
	at := func(months int) time.Time { return earned.AddDate(0, months, 0) }

	t.Run("cliff holds fraction at zero before twelve months", func(t *testing.T) {
		for _, m := range []int{0, 1, 6, 11} {
			fraction, status := VestedFraction(earned, at(m))
			require.True(t, fraction.IsZero(), "month %d", m)
			require.Equal(t, VestingInCliff, status, "month %d", m)
		}
	})

	t.Run("quarter vests at the cliff", func(t *testing.T) {
		fraction, status := VestedFraction(earned, at(12))
		require.True(t, fraction.Equal(decimal.RequireFromString("0.25")))
		require.Equal(t, VestingLinear, status)
	})

	t.Run("linear midpoint", func(t *testing.T) {
		// 0.25 + 0.75 * 18/36
		fraction, status := VestedFraction(earned, at(30))
		require.True(t, fraction.Equal(decimal.RequireFromString("0.625")))
		require.Equal(t, VestingLinear, status)
	})

	t.Run("fully vested at forty-eight months and beyond", func(t *testing.T) {
		for _, m := range []int{48, 49, 60, 120} {
			fraction, status := VestedFraction(earned, at(m))
			require.True(t, fraction.Equal(decimal.NewFromInt(1)), "month %d", m)
			require.Equal(t, VestingFullyVested, status, "month %d", m)
		}
	})

	t.Run("fraction is non-decreasing in elapsed time", func(t *testing.T) {
		prev := decimal.NewFromInt(-1)
		for m := 0; m <= 60; m++ {
			fraction, _ := VestedFraction(earned, at(m))
			require.True(t, fraction.GreaterThanOrEqual(prev), "month %d", m)
			prev = fraction
		}
	})

	t.Run("time before earning vests nothing", func(t *testing.T) {
		fraction, status := VestedFraction(earned, earned.AddDate(0, 0, -10))
		require.True(t, fraction.IsZero())
		require.Equal(t, VestingInCliff, status)
	})
}

func TestMonthsBetween(t *testing.T) {
	t.Parallel()

	base := time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)

	require.Equal(t, 0, MonthsBetween(base, base))
	require.Equal(t, 0, MonthsBetween(base, base.AddDate(0, 0, 20)))
	require.Equal(t, 1, MonthsBetween(base, base.AddDate(0, 1, 0)))
	require.Equal(t, 0, MonthsBetween(base, time.Date(2023, time.April, 14, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 1, MonthsBetween(base, time.Date(2023, time.April, 15, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 12, MonthsBetween(base, base.AddDate(1, 0, 0)))
	require.Equal(t, 0, MonthsBetween(base, base.AddDate(0, -3, 0)))
}

func TestVestingCalculator_VestedBalance(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := createUser(t, f.db, "alice")
	now := time.Now()

	// Tranches written directly so the issue timestamps can sit in the past.
	insert := func(amount int64, monthsAgo int) {
		require.NoError(t, f.db.Create(&models.CreditTransaction{
			UserID:        user.ID,
			Amount:        amount,
			Source:        models.SourceQuest,
			OriginEventID: uuid.NewString(),
			IssuedAt:      now.AddDate(0, -monthsAgo, -1),
		}).Error)
	}
	insert(1000, 6)  // in cliff: 0
	insert(1000, 12) // 0.25: 250
	insert(1000, 30) // 0.625: 625
	insert(1000, 50) // fully vested: 1000

	vested, err := f.vesting.VestedBalance(user.ID, now)
	require.NoError(t, err)
	require.True(t, vested.Equal(decimal.RequireFromString("1875")), "got %s", vested)

	tranches, err := f.vesting.Tranches(user.ID, now)
	require.NoError(t, err)
	require.Len(t, tranches, 4)
	// Oldest tranche first.
	require.Equal(t, VestingFullyVested, tranches[0].Status)
	require.Equal(t, VestingInCliff, tranches[3].Status)
}

func TestVestingCalculator_ForfeitedPinsToZero(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := createUser(t, f.db, "alice")
	now := time.Now()

	require.NoError(t, f.db.Create(&models.CreditTransaction{
		UserID:        user.ID,
		Amount:        1000,
		Source:        models.SourceQuest,
		OriginEventID: uuid.NewString(),
		IssuedAt:      now.AddDate(0, -50, 0),
	}).Error)

	require.NoError(t, f.balance.Forfeit(user.ID))

	vested, err := f.vesting.VestedBalance(user.ID, now)
	require.NoError(t, err)
	require.True(t, vested.IsZero())

	tranches, err := f.vesting.Tranches(user.ID, now)
	require.NoError(t, err)
	require.Len(t, tranches, 1)
	require.Equal(t, VestingForfeited, tranches[0].Status)

	// Forfeiture gates vesting only; the spendable balance is untouched.
	balance, err := f.ledger.BalanceOf(user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1000), balance)
}
