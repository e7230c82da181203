package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/landfund/impactportal/models"
)

// PioneerApprovalBonusAction is the one-time bonus issued when pioneer
// access is first approved. Routing it through the engine makes the grant
// idempotent: re-approval after a revoke cannot issue it twice.
const PioneerApprovalBonusAction = "pioneer_approved"

// LeaderboardEntry is one row of the lifetime-score ranking.
type LeaderboardEntry struct {
	UserID          uint                       `json:"user_id"`
	Username        string                     `json:"username"`
	LifetimeCredits int64                      `json:"lifetime_credits"`
	AccessStatus    models.PioneerAccessStatus `json:"access_status"`
}

// BalanceService composes ledger aggregates into the balances the rest of
// the system consumes and owns the pioneer access-status state machine.
type BalanceService struct {
	db     *gorm.DB
	ledger *Ledger
	engine *Engine
	log    *zap.SugaredLogger
}

// NewBalanceService wires the balance service.
func NewBalanceService(db *gorm.DB, ledger *Ledger, engine *Engine, log *zap.SugaredLogger) *BalanceService {
	return &BalanceService{db: db, ledger: ledger, engine: engine, log: log}
}

// SpendableBalance is total earned minus total spent. It is not vesting
// gated; vested balance is a separate informational metric.
func (s *BalanceService) SpendableBalance(userID uint) (int64, error) {
	return s.ledger.BalanceOf(userID)
}

// LifetimeScore is the cumulative credits ever earned. Recomputing it over
// the same ledger state always yields the same number; it is a derived view,
// not an independently mutated counter.
func (s *BalanceService) LifetimeScore(userID uint) (int64, error) {
	return s.ledger.LifetimeEarned(userID)
}

// RecomputeMetric refreshes the cached summary row for one user from the
// ledger and returns it.
func (s *BalanceService) RecomputeMetric(userID uint) (*models.PioneerMetric, error) {
	earned, err := s.ledger.LifetimeEarned(userID)
	if err != nil {
		return nil, err
	}

	var metric models.PioneerMetric
	err = s.db.Transaction(func(tx *gorm.DB) error {
		err := lockForUpdate(tx).First(&metric, "user_id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metric = models.PioneerMetric{UserID: userID, AccessStatus: models.PioneerPending}
		} else if err != nil {
			return err
		}
		metric.TotalImpactCreditsEarned = earned
		metric.UpdatedAt = time.Now()
		return tx.Save(&metric).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: recompute metric: %v", ErrPersistence, err)
	}
	return &metric, nil
}

// RecomputeAll refreshes the summary rows for every user with ledger
// activity. Read-only over the ledger, so safe to rerun or cancel; meant for
// the periodic reporting job and the ranking sweep.
func (s *BalanceService) RecomputeAll(ctx context.Context) error {
	type row struct {
		UserID uint
		Total  int64
	}
	var rows []row
	if err := s.db.WithContext(ctx).Model(&models.CreditTransaction{}).
		Select("user_id, COALESCE(SUM(amount),0) AS total").
		Group("user_id").
		Scan(&rows).Error; err != nil {
		return fmt.Errorf("%w: aggregate ledger: %v", ErrPersistence, err)
	}
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.RecomputeMetric(r.UserID); err != nil {
			return err
		}
	}
	return nil
}

// Approve moves a user to approved access and issues the one-time bonus.
// Re-approving is a no-op for the status and cannot re-grant the bonus.
func (s *BalanceService) Approve(ctx context.Context, userID uint) error {
	if err := s.transition(userID, models.PioneerApproved); err != nil {
		return err
	}
	result, err := s.engine.Execute(ctx, userID, PioneerApprovalBonusAction, nil)
	if err != nil {
		// The status change stands; the bonus can be retried.
		s.log.Warnw("approval bonus issuance failed", "user_id", userID, "err", err)
		return err
	}
	if result.Reason == ReasonAlreadyCompleted {
		s.log.Debugw("approval bonus already granted", "user_id", userID)
	}
	return nil
}

// Revoke demotes an approved user. No credit clawback is implied.
func (s *BalanceService) Revoke(userID uint) error {
	return s.transition(userID, models.PioneerRevoked)
}

// Reject is the terminal denial of a pending request.
func (s *BalanceService) Reject(userID uint) error {
	return s.transition(userID, models.PioneerRejected)
}

// Forfeit applies the external bad-leaver determination: the user's vested
// balance reads as zero from now on.
func (s *BalanceService) Forfeit(userID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var metric models.PioneerMetric
		err := lockForUpdate(tx).First(&metric, "user_id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metric = models.PioneerMetric{UserID: userID, AccessStatus: models.PioneerPending}
		} else if err != nil {
			return err
		}
		if metric.Forfeited {
			return nil
		}
		metric.Forfeited = true
		metric.UpdatedAt = time.Now()
		return tx.Save(&metric).Error
	})
	if err != nil {
		return fmt.Errorf("%w: forfeit: %v", ErrPersistence, err)
	}
	return nil
}

// transition applies the access-status state machine: pending to approved or
// rejected, approved to revoked, revoked back to approved. Rejected is
// terminal. Repeating the current status is an idempotent no-op.
func (s *BalanceService) transition(userID uint, to models.PioneerAccessStatus) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var metric models.PioneerMetric
		err := lockForUpdate(tx).First(&metric, "user_id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metric = models.PioneerMetric{UserID: userID, AccessStatus: models.PioneerPending}
		} else if err != nil {
			return err
		}

		if metric.AccessStatus == to {
			return nil
		}
		if !allowedTransition(metric.AccessStatus, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, metric.AccessStatus, to)
		}
		metric.AccessStatus = to
		metric.UpdatedAt = time.Now()
		return tx.Save(&metric).Error
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return err
		}
		return fmt.Errorf("%w: transition: %v", ErrPersistence, err)
	}
	return nil
}

func allowedTransition(from, to models.PioneerAccessStatus) bool {
	switch from {
	case models.PioneerPending:
		return to == models.PioneerApproved || to == models.PioneerRejected
	case models.PioneerApproved:
		return to == models.PioneerRevoked
	case models.PioneerRevoked:
		return to == models.PioneerApproved
	default:
		return false
	}
}

// EnforceTopN demotes approved users ranked beyond keep in lifetime score.
// Running the sweep twice yields the same final state. Returns the number of
// users demoted on this run.
func (s *BalanceService) EnforceTopN(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("%w: keep must be non-negative", ErrValidation)
	}
	if err := s.RecomputeAll(ctx); err != nil {
		return 0, err
	}

	var approved []models.PioneerMetric
	if err := s.db.WithContext(ctx).
		Where("access_status = ?", models.PioneerApproved).
		Order("total_impact_credits_earned DESC, user_id ASC").
		Find(&approved).Error; err != nil {
		return 0, fmt.Errorf("%w: load approved metrics: %v", ErrPersistence, err)
	}

	demoted := 0
	for i := keep; i < len(approved); i++ {
		if err := s.Revoke(approved[i].UserID); err != nil {
			return demoted, err
		}
		demoted++
	}
	if demoted > 0 {
		s.log.Infow("ranking sweep demoted users", "keep", keep, "demoted", demoted)
	}
	return demoted, nil
}

// Leaderboard returns the top users by lifetime score.
func (s *BalanceService) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	var entries []LeaderboardEntry
	if err := s.db.Model(&models.PioneerMetric{}).
		Select("pioneer_metrics.user_id, users.username, pioneer_metrics.total_impact_credits_earned AS lifetime_credits, pioneer_metrics.access_status").
		Joins("JOIN users ON users.id = pioneer_metrics.user_id").
		Order("pioneer_metrics.total_impact_credits_earned DESC, pioneer_metrics.user_id ASC").
		Limit(limit).
		Scan(&entries).Error; err != nil {
		return nil, fmt.Errorf("%w: load leaderboard: %v", ErrPersistence, err)
	}
	return entries, nil
}

// Metric returns the (possibly stale) cached summary row, creating the
// pending default when the user has none yet.
func (s *BalanceService) Metric(userID uint) (*models.PioneerMetric, error) {
	var metric models.PioneerMetric
	err := s.db.First(&metric, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.PioneerMetric{UserID: userID, AccessStatus: models.PioneerPending}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: metric lookup: %v", ErrPersistence, err)
	}
	return &metric, nil
}
