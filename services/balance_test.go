package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/landfund/impactportal/models"
)

func grant(t *testing.T, f *fixture, userID uint, amount int64) {
	t.Helper()
	_, err := f.ledger.Credit(userID, amount, models.SourceAdminGrant, "test grant", nil, uuid.NewString())
	require.NoError(t, err)
}

func TestBalanceService_SpendableIgnoresVesting(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := createUser(t, f.db, "alice")

	// Freshly earned credits sit in the vesting cliff but spend immediately.
	grant(t, f, user.ID, 500)

	spendable, err := f.balance.SpendableBalance(user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(500), spendable)

	_, err = f.ledger.Debit(user.ID, 200, "sticker-pack", 1)
	require.NoError(t, err)

	spendable, err = f.balance.SpendableBalance(user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(300), spendable)

	// Lifetime score is unaffected by spending.
	lifetime, err := f.balance.LifetimeScore(user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(500), lifetime)
}

func TestBalanceService_ApproveGrantsBonusOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := createUser(t, f.db, "alice")
	ctx := context.Background()

	require.NoError(t, f.balance.Approve(ctx, user.ID))

	balance, err := f.ledger.BalanceOf(user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100), balance)

	// Re-approving is a status no-op and cannot re-grant.
	require.NoError(t, f.balance.Approve(ctx, user.ID))

	// Revoke then re-approve: the status flips but the bonus stays granted.
	require.NoError(t, f.balance.Revoke(user.ID))
	require.NoError(t, f.balance.Approve(ctx, user.ID))

	balance, err = f.ledger.BalanceOf(user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100), balance)
	require.Equal(t, int64(1), creditCount(t, f.db, user.ID))

	metric, err := f.balance.Metric(user.ID)
	require.NoError(t, err)
	require.Equal(t, models.PioneerApproved, metric.AccessStatus)
}

func TestBalanceService_RejectIsTerminal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := createUser(t, f.db, "alice")
	ctx := context.Background()

	require.NoError(t, f.balance.Reject(user.ID))

	err := f.balance.Approve(ctx, user.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	err = f.balance.Revoke(user.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// No bonus slipped through the failed approval.
	require.Equal(t, int64(0), creditCount(t, f.db, user.ID))
}

func TestBalanceService_RevokeRequiresApproved(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := createUser(t, f.db, "alice")

	err := f.balance.Revoke(user.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBalanceService_RecomputeMetricIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := createUser(t, f.db, "alice")
	grant(t, f, user.ID, 750)

	first, err := f.balance.RecomputeMetric(user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(750), first.TotalImpactCreditsEarned)
	require.Equal(t, models.PioneerPending, first.AccessStatus)

	second, err := f.balance.RecomputeMetric(user.ID)
	require.NoError(t, err)
	require.Equal(t, first.TotalImpactCreditsEarned, second.TotalImpactCreditsEarned)

	// Exactly one summary row regardless of how often we recompute.
	var n int64
	require.NoError(t, f.db.Model(&models.PioneerMetric{}).Where("user_id = ?", user.ID).Count(&n).Error)
	require.Equal(t, int64(1), n)
}

func TestBalanceService_EnforceTopN(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	users := make([]*models.User, 0, 3)
	for i, name := range []string{"alice", "bob", "carol"} {
		u := createUser(t, f.db, name)
		grant(t, f, u.ID, int64(1000*(3-i))) // alice 3000, bob 2000, carol 1000
		require.NoError(t, f.balance.Approve(ctx, u.ID))
		users = append(users, u)
	}

	demoted, err := f.balance.EnforceTopN(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 1, demoted)

	metric, err := f.balance.Metric(users[2].ID)
	require.NoError(t, err)
	require.Equal(t, models.PioneerRevoked, metric.AccessStatus)

	for _, u := range users[:2] {
		metric, err := f.balance.Metric(u.ID)
		require.NoError(t, err)
		require.Equal(t, models.PioneerApproved, metric.AccessStatus)
	}

	// The sweep is stable: a second run demotes nobody.
	demoted, err = f.balance.EnforceTopN(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 0, demoted)

	_, err = f.balance.EnforceTopN(ctx, -1)
	require.ErrorIs(t, err, ErrValidation)
}

func TestBalanceService_Leaderboard(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	alice := createUser(t, f.db, "alice")
	bob := createUser(t, f.db, "bob")
	grant(t, f, alice.ID, 500)
	grant(t, f, bob.ID, 900)
	require.NoError(t, f.balance.RecomputeAll(ctx))

	entries, err := f.balance.Leaderboard(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "bob", entries[0].Username)
	require.Equal(t, int64(900), entries[0].LifetimeCredits)
	require.Equal(t, "alice", entries[1].Username)

	entries, err = f.balance.Leaderboard(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "bob", entries[0].Username)
}
