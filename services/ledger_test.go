package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/landfund/impactportal/models"
)

func TestLedger_CreditValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := createUser(t, f.db, "alice")

	_, err := f.ledger.Credit(user.ID, 0, models.SourceQuest, "zero", nil, uuid.NewString())
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.ledger.Credit(user.ID, -5, models.SourceQuest, "negative", nil, uuid.NewString())
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.ledger.Credit(user.ID, 10, models.SourceQuest, "no origin", nil, "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestLedger_DuplicateOriginRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := createUser(t, f.db, "alice")

	origin := uuid.NewString()
	_, err := f.ledger.Credit(user.ID, 100, models.SourceQuest, "first", nil, origin)
	require.NoError(t, err)

	_, err = f.ledger.Credit(user.ID, 100, models.SourceQuest, "replay", nil, origin)
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// Same origin under a different source is a different issuance.
	_, err = f.ledger.Credit(user.ID, 70, models.SourceReferralDirect, "other source", nil, origin)
	require.NoError(t, err)
}

func TestLedger_BalanceRoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := createUser(t, f.db, "alice")

	credits := []int64{100, 250, 37}
	var earned int64
	for _, amount := range credits {
		_, err := f.ledger.Credit(user.ID, amount, models.SourceQuest, "fixture", nil, uuid.NewString())
		require.NoError(t, err)
		earned += amount
	}

	debits := []int64{50, 120}
	var spent int64
	for _, amount := range debits {
		_, err := f.ledger.Debit(user.ID, amount, "product-1", 1)
		require.NoError(t, err)
		spent += amount
	}

	balance, err := f.ledger.BalanceOf(user.ID)
	require.NoError(t, err)
	require.Equal(t, earned-spent, balance)

	// Lifetime earned is unaffected by spending.
	lifetime, err := f.ledger.LifetimeEarned(user.ID)
	require.NoError(t, err)
	require.Equal(t, earned, lifetime)
}

func TestLedger_DebitInsufficientBalance(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := createUser(t, f.db, "alice")

	_, err := f.ledger.Credit(user.ID, 100, models.SourceQuest, "fixture", nil, uuid.NewString())
	require.NoError(t, err)

	_, err = f.ledger.Debit(user.ID, 101, "product-1", 1)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// The rejected debit left the balance unchanged.
	balance, err := f.ledger.BalanceOf(user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100), balance)

	// Spending the exact balance is allowed; the next spend is not.
	_, err = f.ledger.Debit(user.ID, 100, "product-1", 1)
	require.NoError(t, err)

	_, err = f.ledger.Debit(user.ID, 1, "product-1", 1)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	balance, err = f.ledger.BalanceOf(user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), balance)
}

func TestLedger_DebitValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := createUser(t, f.db, "alice")

	_, err := f.ledger.Debit(user.ID, 0, "product-1", 1)
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.ledger.Debit(user.ID, 10, "", 1)
	require.ErrorIs(t, err, ErrValidation)
}

func TestLedger_History(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := createUser(t, f.db, "alice")

	for i := 0; i < 15; i++ {
		_, err := f.ledger.Credit(user.ID, int64(i+1), models.SourceQuest, "fixture", nil, uuid.NewString())
		require.NoError(t, err)
	}

	entries, total, err := f.ledger.History(user.ID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(15), total)
	require.Len(t, entries, 10)

	entries, _, err = f.ledger.History(user.ID, 2, 10)
	require.NoError(t, err)
	require.Len(t, entries, 5)
}
