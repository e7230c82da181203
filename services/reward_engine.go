package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/landfund/impactportal/models"
)

const (
	// ReasonCompleted marks a first-time, successful execution.
	ReasonCompleted = "COMPLETED"
	// ReasonAlreadyCompleted marks an idempotent no-op: the user has been
	// rewarded for this action before.
	ReasonAlreadyCompleted = "ALREADY_COMPLETED"

	primaryWriteAttempts = 3
	retryBackoff         = 50 * time.Millisecond
)

// ActionCatalog resolves action definitions. Implementations must be
// read-only from the engine's point of view; values are fetched per call,
// never cached across executions.
type ActionCatalog interface {
	Get(actionKey string) (*models.RewardAction, error)
}

// DBActionCatalog reads actions from the reward_actions table.
type DBActionCatalog struct {
	db *gorm.DB
}

// NewActionCatalog creates a catalog over the database.
func NewActionCatalog(db *gorm.DB) *DBActionCatalog {
	return &DBActionCatalog{db: db}
}

// Get returns the action for actionKey, or nil when unknown.
func (c *DBActionCatalog) Get(actionKey string) (*models.RewardAction, error) {
	var action models.RewardAction
	err := c.db.First(&action, "action_key = ?", actionKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: action lookup: %v", ErrPersistence, err)
	}
	return &action, nil
}

// ExecuteContext carries optional per-execution input.
type ExecuteContext struct {
	// Amount is the contribution amount for contribution-type actions.
	Amount *decimal.Decimal
	// MissionID scopes the completion of a mission-style action.
	MissionID string
	// CreditsOverride supplies the amount for dynamic actions.
	CreditsOverride *int64
	// OriginEventID ties the issuance to the triggering event. Generated
	// when empty.
	OriginEventID string
}

// Result is the outcome of one engine execution.
type Result struct {
	Success        bool                `json:"success"`
	CreditsAwarded int64               `json:"credits_awarded"`
	Reason         string              `json:"reason"`
	Referral       *DistributionResult `json:"referral,omitempty"`
}

// Engine orchestrates idempotent credit issuance for named actions. The
// completion marker and the ledger credit are one atomic write; referral
// distribution and notification are best-effort dependent steps after it.
type Engine struct {
	db          *gorm.DB
	ledger      *Ledger
	actions     ActionCatalog
	tiers       *TierResolver
	distributor *Distributor
	notifier    NotificationSender
	bus         EventBus
	log         *zap.SugaredLogger
}

// NewEngine wires the reward engine.
func NewEngine(db *gorm.DB, ledger *Ledger, actions ActionCatalog, tiers *TierResolver, distributor *Distributor, notifier NotificationSender, bus EventBus, log *zap.SugaredLogger) *Engine {
	return &Engine{
		db:          db,
		ledger:      ledger,
		actions:     actions,
		tiers:       tiers,
		distributor: distributor,
		notifier:    notifier,
		bus:         bus,
		log:         log,
	}
}

// Execute issues credits for (userID, actionKey) at most once. Repeat calls,
// sequential or concurrent, return ALREADY_COMPLETED without side effects.
// A *PartialFailureError return accompanies a successful Result when a
// referral leg failed after the primary credit committed.
func (e *Engine) Execute(ctx context.Context, userID uint, actionKey string, ec *ExecuteContext) (Result, error) {
	if ec == nil {
		ec = &ExecuteContext{}
	}

	action, err := e.actions.Get(actionKey)
	if err != nil {
		return Result{}, err
	}
	if action == nil || !action.IsActive {
		return Result{}, fmt.Errorf("%w: %q", ErrActionNotFound, actionKey)
	}

	amount, relatedTierID, err := e.creditAmount(action, ec)
	if err != nil {
		return Result{}, err
	}

	now := time.Now()
	originEventID := ec.OriginEventID
	if originEventID == "" {
		originEventID = uuid.NewString()
	}
	completionKey := completionKeyFor(action, ec, originEventID, now)

	// Fast path for the common retrigger case; the unique index is the
	// real guard under concurrency.
	var existing models.RewardCompletion
	err = e.db.WithContext(ctx).
		First(&existing, "user_id = ? AND completion_key = ?", userID, completionKey).Error
	if err == nil {
		return Result{Success: false, Reason: ReasonAlreadyCompleted}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Result{}, fmt.Errorf("%w: completion lookup: %v", ErrPersistence, err)
	}

	var txID uint
	writeOnce := func() error {
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			completion := models.RewardCompletion{
				UserID:         userID,
				ActionKey:      action.ActionKey,
				CompletionKey:  completionKey,
				CreditsAwarded: amount,
				CompletedAt:    now,
			}
			if err := tx.Create(&completion).Error; err != nil {
				return err
			}
			if amount == 0 {
				// Zero-value actions record completion but skip the ledger.
				return nil
			}
			description := fmt.Sprintf("reward for %s", action.ActionKey)
			var err error
			txID, err = e.ledger.CreditTx(tx, userID, amount, action.Source, description, relatedTierID, originEventID)
			return err
		})
	}

	for attempt := 1; ; attempt++ {
		err = writeOnce()
		if err == nil {
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race to a concurrent trigger. Same outcome as the
			// fast path: the first writer's issuance stands.
			return Result{Success: false, Reason: ReasonAlreadyCompleted}, nil
		}
		if errors.Is(err, ErrValidation) {
			return Result{}, err
		}
		if attempt >= primaryWriteAttempts {
			e.log.Errorw("reward issuance failed", "user_id", userID, "action", actionKey, "attempts", attempt, "err", err)
			return Result{}, fmt.Errorf("%w: issue reward: %v", ErrPersistence, err)
		}
		time.Sleep(retryBackoff * time.Duration(attempt))
	}

	result := Result{Success: true, CreditsAwarded: amount, Reason: ReasonCompleted}
	if txID != 0 {
		e.bus.Publish(CreditIssued{
			TransactionID: txID,
			UserID:        userID,
			Amount:        amount,
			Source:        action.Source,
			OriginEventID: originEventID,
			IssuedAt:      now,
		})
	}

	var partial error
	if action.ReferralEligible && amount > 0 {
		dist, derr := e.distributor.Distribute(userID, amount, action.Source, originEventID)
		result.Referral = &dist
		if derr != nil {
			partial = derr
		}
	}

	// Notification is fire-and-forget; a delivery failure never unwinds
	// the credit.
	e.notifier.Notify(userID, "reward.issued.title", "reward.issued.body", map[string]string{
		"action":  action.ActionKey,
		"credits": fmt.Sprintf("%d", amount),
	})

	return result, partial
}

// creditAmount applies the amount policy for the action: caller override for
// dynamic actions, tier-derived for contributions, static value otherwise.
func (e *Engine) creditAmount(action *models.RewardAction, ec *ExecuteContext) (int64, *uint, error) {
	if ec.CreditsOverride != nil {
		if *ec.CreditsOverride < 0 {
			return 0, nil, fmt.Errorf("%w: credits override must be non-negative", ErrValidation)
		}
		if action.ActionType != models.ActionDynamic {
			return 0, nil, fmt.Errorf("%w: action %q does not accept a credits override", ErrValidation, action.ActionKey)
		}
		return *ec.CreditsOverride, nil, nil
	}

	switch action.ActionType {
	case models.ActionContribution:
		if ec.Amount == nil {
			return 0, nil, fmt.Errorf("%w: contribution action %q requires an amount", ErrValidation, action.ActionKey)
		}
		tier, err := e.tiers.Resolve(*ec.Amount)
		if err != nil {
			return 0, nil, err
		}
		if tier == nil {
			// Below every threshold: completion still recorded, no credit.
			return 0, nil, nil
		}
		tierID := tier.ID
		return tier.ImpactCreditReward, &tierID, nil
	case models.ActionDynamic:
		return 0, nil, fmt.Errorf("%w: dynamic action %q requires a credits override", ErrValidation, action.ActionKey)
	default:
		return action.CreditValue, nil, nil
	}
}

// completionKeyFor derives the idempotency key: plain action key for one-shot
// actions, scoped by mission id for missions, by calendar day for daily
// actions, by originating event for per-event ones.
func completionKeyFor(action *models.RewardAction, ec *ExecuteContext, originEventID string, now time.Time) string {
	key := action.ActionKey
	if ec.MissionID != "" {
		key = key + ":" + ec.MissionID
	}
	switch action.Frequency {
	case models.FrequencyDaily:
		key = key + ":" + now.Format("2006-01-02")
	case models.FrequencyPerEvent:
		key = key + ":" + originEventID
	}
	return key
}
