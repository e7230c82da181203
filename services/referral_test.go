package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/landfund/impactportal/models"
)

// mapGraph is a stub referral graph keyed in memory.
type mapGraph map[uint]uint

func (g mapGraph) ReferrerOf(userID uint) (uint, bool, error) {
	id, ok := g[userID]
	return id, ok, nil
}

func TestDistributor_NoReferrerIsNoop(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := createUser(t, f.db, "alice")

	result, err := f.distributor.Distribute(user.ID, 1000, models.SourceQuest, uuid.NewString())
	require.NoError(t, err)
	require.Zero(t, result.DirectAwarded)
	require.Zero(t, result.IndirectAwarded)

	var total int64
	require.NoError(t, f.db.Model(&models.CreditTransaction{}).Select("COALESCE(SUM(amount),0)").Scan(&total).Error)
	require.Zero(t, total)
}

func TestDistributor_TwoLevelSplit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	grandparent := createUser(t, f.db, "ann")
	parent := createUser(t, f.db, "bob")
	child := createUser(t, f.db, "cam")
	refer(t, f.db, parent.ID, grandparent.ID)
	refer(t, f.db, child.ID, parent.ID)

	result, err := f.distributor.Distribute(child.ID, 1000, models.SourceContribution, uuid.NewString())
	require.NoError(t, err)
	require.Equal(t, parent.ID, result.DirectUserID)
	require.Equal(t, int64(700), result.DirectAwarded)
	require.Equal(t, grandparent.ID, result.IndirectUserID)
	require.Equal(t, int64(300), result.IndirectAwarded)
	require.LessOrEqual(t, result.DirectAwarded+result.IndirectAwarded, int64(1000))
}

func TestDistributor_SingleLevelChain(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	parent := createUser(t, f.db, "bob")
	child := createUser(t, f.db, "cam")
	refer(t, f.db, child.ID, parent.ID)

	result, err := f.distributor.Distribute(child.ID, 1000, models.SourceQuest, uuid.NewString())
	require.NoError(t, err)
	require.Equal(t, int64(700), result.DirectAwarded)
	require.Zero(t, result.IndirectAwarded)
	require.Zero(t, result.IndirectUserID)
}

func TestDistributor_FloorNeverOverDistributes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	log := f.ledger.log
	graph := mapGraph{3: 2, 2: 1}
	createUser(t, f.db, "u1")
	createUser(t, f.db, "u2")
	createUser(t, f.db, "u3")
	d := NewDistributor(f.ledger, graph, log)

	for _, amount := range []int64{1, 2, 3, 5, 7, 9, 10, 99, 1001} {
		result, err := d.Distribute(3, amount, models.SourceQuest, uuid.NewString())
		require.NoError(t, err, "amount %d", amount)
		require.LessOrEqual(t, result.DirectAwarded+result.IndirectAwarded, amount, "amount %d", amount)
		require.Equal(t, amount*7/10, result.DirectAwarded, "amount %d", amount)
		require.Equal(t, amount*3/10, result.IndirectAwarded, "amount %d", amount)
	}
}

func TestDistributor_TinyAmountPaysNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	parent := createUser(t, f.db, "bob")
	child := createUser(t, f.db, "cam")
	refer(t, f.db, child.ID, parent.ID)

	// floor(1 * 0.7) == 0: nothing to pay, no ledger rows.
	result, err := f.distributor.Distribute(child.ID, 1, models.SourceQuest, uuid.NewString())
	require.NoError(t, err)
	require.Zero(t, result.DirectAwarded)
	require.Equal(t, int64(0), creditCount(t, f.db, parent.ID))
}

func TestDistributor_LevelFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	grandparent := createUser(t, f.db, "ann")
	parent := createUser(t, f.db, "bob")
	child := createUser(t, f.db, "cam")
	refer(t, f.db, parent.ID, grandparent.ID)
	refer(t, f.db, child.ID, parent.ID)

	// Pre-seed the indirect row for this origin event so the second level
	// hits the uniqueness guard while the first succeeds.
	origin := uuid.NewString()
	_, err := f.ledger.Credit(grandparent.ID, 300, models.SourceReferralIndirect, "pre-seeded", nil, origin)
	require.NoError(t, err)

	result, err := f.distributor.Distribute(child.ID, 1000, models.SourceContribution, origin)

	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	require.NoError(t, partial.DirectErr)
	require.Error(t, partial.IndirectErr)

	// The direct payout stands despite the indirect failure.
	require.Equal(t, int64(700), result.DirectAwarded)
	parentBalance, err := f.ledger.BalanceOf(parent.ID)
	require.NoError(t, err)
	require.Equal(t, int64(700), parentBalance)

	// The grandparent keeps only the pre-seeded row.
	require.Equal(t, int64(1), creditCount(t, f.db, grandparent.ID))
}

func TestDistributor_DepthCappedAtTwo(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	great := createUser(t, f.db, "zed")
	grandparent := createUser(t, f.db, "ann")
	parent := createUser(t, f.db, "bob")
	child := createUser(t, f.db, "cam")
	refer(t, f.db, grandparent.ID, great.ID)
	refer(t, f.db, parent.ID, grandparent.ID)
	refer(t, f.db, child.ID, parent.ID)

	_, err := f.distributor.Distribute(child.ID, 1000, models.SourceQuest, uuid.NewString())
	require.NoError(t, err)

	// The third-level ancestor never receives anything.
	require.Equal(t, int64(0), creditCount(t, f.db, great.ID))
}
