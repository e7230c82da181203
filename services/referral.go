package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/landfund/impactportal/models"
)

// Referral split ratios. Payouts are floored, so the two levels together
// never exceed the originating amount.
var (
	directRatio   = decimal.RequireFromString("0.7")
	indirectRatio = decimal.RequireFromString("0.3")
)

// ReferralGraph looks up who referred a user. Read-only.
type ReferralGraph interface {
	ReferrerOf(userID uint) (uint, bool, error)
}

// DBReferralGraph reads referral edges from the database.
type DBReferralGraph struct {
	db *gorm.DB
}

// NewReferralGraph creates a graph over the referral_edges table.
func NewReferralGraph(db *gorm.DB) *DBReferralGraph {
	return &DBReferralGraph{db: db}
}

// ReferrerOf returns the direct referrer of userID, if any.
func (g *DBReferralGraph) ReferrerOf(userID uint) (uint, bool, error) {
	var edge models.ReferralEdge
	err := g.db.First(&edge, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: referrer lookup: %v", ErrPersistence, err)
	}
	return edge.ReferrerID, true, nil
}

// DistributionResult reports what each referral level received.
type DistributionResult struct {
	DirectUserID    uint  `json:"direct_user_id,omitempty"`
	DirectAwarded   int64 `json:"direct_awarded"`
	IndirectUserID  uint  `json:"indirect_user_id,omitempty"`
	IndirectAwarded int64 `json:"indirect_awarded"`
}

// Distributor pays a split of reward events up the two-level referral chain.
type Distributor struct {
	ledger *Ledger
	graph  ReferralGraph
	log    *zap.SugaredLogger
}

// NewDistributor creates a distributor writing through the given ledger.
func NewDistributor(ledger *Ledger, graph ReferralGraph, log *zap.SugaredLogger) *Distributor {
	return &Distributor{ledger: ledger, graph: graph, log: log}
}

// Distribute credits floor(amount*0.7) to the direct referrer of userID and
// floor(amount*0.3) to the referrer's referrer. Depth is hard-capped at two
// levels. The two payouts are independent: a failure on one level is logged
// and reported, never rolled into the other. When any level fails the
// returned error is a *PartialFailureError describing which.
func (d *Distributor) Distribute(userID uint, amount int64, source models.CreditSource, originEventID string) (DistributionResult, error) {
	var result DistributionResult
	if amount <= 0 {
		return result, nil
	}

	directID, ok, err := d.graph.ReferrerOf(userID)
	if err != nil || !ok {
		return result, err
	}

	partial := &PartialFailureError{}
	base := decimal.NewFromInt(amount)

	direct := base.Mul(directRatio).Floor().IntPart()
	if direct > 0 {
		desc := fmt.Sprintf("referral reward: level 1 of %s by user %d", source, userID)
		txID, err := d.ledger.Credit(directID, direct, models.SourceReferralDirect, desc, nil, originEventID)
		if err != nil {
			d.log.Warnw("direct referral payout failed", "referrer_id", directID, "origin_user", userID, "err", err)
			partial.DirectErr = err
		} else {
			result.DirectUserID = directID
			result.DirectAwarded = direct
			d.log.Debugw("direct referral payout", "referrer_id", directID, "amount", direct, "tx_id", txID)
		}
	}

	indirectID, ok, err := d.graph.ReferrerOf(directID)
	if err != nil {
		partial.IndirectErr = err
	} else if ok {
		indirect := base.Mul(indirectRatio).Floor().IntPart()
		if indirect > 0 {
			desc := fmt.Sprintf("referral reward: level 2 of %s by user %d", source, userID)
			txID, err := d.ledger.Credit(indirectID, indirect, models.SourceReferralIndirect, desc, nil, originEventID)
			if err != nil {
				d.log.Warnw("indirect referral payout failed", "referrer_id", indirectID, "origin_user", userID, "err", err)
				partial.IndirectErr = err
			} else {
				result.IndirectUserID = indirectID
				result.IndirectAwarded = indirect
				d.log.Debugw("indirect referral payout", "referrer_id", indirectID, "amount", indirect, "tx_id", txID)
			}
		}
	}

	if partial.Failed() {
		return result, partial
	}
	return result, nil
}
