package services

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/landfund/impactportal/models"
)

// Ledger is the append-only store of earn/spend transactions. Rows are never
// mutated after being written; balances are always derived by aggregation.
type Ledger struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewLedger creates a ledger over the given database.
func NewLedger(db *gorm.DB, log *zap.SugaredLogger) *Ledger {
	return &Ledger{db: db, log: log}
}

// Credit appends an earn transaction in its own transaction and returns the
// new transaction id.
func (l *Ledger) Credit(userID uint, amount int64, source models.CreditSource, description string, relatedTierID *uint, originEventID string) (uint, error) {
	var id uint
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var err error
		id, err = l.CreditTx(tx, userID, amount, source, description, relatedTierID, originEventID)
		return err
	})
	return id, err
}

// CreditTx appends an earn transaction inside the caller's transaction so a
// completion marker and its credit commit or roll back together. A
// duplicate (user, source, origin event) surfaces as gorm.ErrDuplicatedKey.
func (l *Ledger) CreditTx(tx *gorm.DB, userID uint, amount int64, source models.CreditSource, description string, relatedTierID *uint, originEventID string) (uint, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: credit amount must be positive, got %d", ErrValidation, amount)
	}
	if originEventID == "" {
		return 0, fmt.Errorf("%w: origin event id is required", ErrValidation)
	}

	entry := models.CreditTransaction{
		UserID:        userID,
		Amount:        amount,
		Source:        source,
		Description:   description,
		RelatedTierID: relatedTierID,
		OriginEventID: originEventID,
		IssuedAt:      time.Now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, err
	}
	return entry.ID, nil
}

// Debit appends a spend transaction. The balance check and the insert run in
// one transaction with the user row locked, so concurrent credits and debits
// for the same user serialize and the balance can never go negative.
func (l *Ledger) Debit(userID uint, credits int64, productID string, quantity int) (uint, error) {
	if credits <= 0 {
		return 0, fmt.Errorf("%w: debit amount must be positive, got %d", ErrValidation, credits)
	}
	if productID == "" {
		return 0, fmt.Errorf("%w: product id is required", ErrValidation)
	}
	if quantity <= 0 {
		quantity = 1
	}

	var id uint
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := lockForUpdate(tx).First(&user, userID).Error; err != nil {
			return err
		}

		balance, err := balanceOfTx(tx, userID)
		if err != nil {
			return err
		}
		if credits > balance {
			return fmt.Errorf("%w: want %d, have %d", ErrInsufficientBalance, credits, balance)
		}

		entry := models.PurchaseTransaction{
			UserID:       userID,
			CreditsSpent: credits,
			ProductID:    productID,
			Quantity:     quantity,
			Status:       models.PurchaseCompleted,
			PurchasedAt:  time.Now(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		id = entry.ID
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return 0, err
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("user %d: %w", userID, err)
		}
		l.log.Errorw("debit failed", "user_id", userID, "credits", credits, "err", err)
		return 0, fmt.Errorf("%w: debit: %v", ErrPersistence, err)
	}
	return id, nil
}

// BalanceOf returns sum(credits) - sum(debits), the spendable balance.
func (l *Ledger) BalanceOf(userID uint) (int64, error) {
	return balanceOfTx(l.db, userID)
}

// LifetimeEarned returns the cumulative credits ever earned, unaffected by
// spending. This is the ranking quantity and never decreases.
func (l *Ledger) LifetimeEarned(userID uint) (int64, error) {
	var earned int64
	if err := l.db.Model(&models.CreditTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount),0)").
		Scan(&earned).Error; err != nil {
		return 0, fmt.Errorf("%w: lifetime earned: %v", ErrPersistence, err)
	}
	return earned, nil
}

// History returns a page of a user's earn transactions, newest first.
func (l *Ledger) History(userID uint, page, pageSize int) ([]models.CreditTransaction, int64, error) {
	var total int64
	if err := l.db.Model(&models.CreditTransaction{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: count history: %v", ErrPersistence, err)
	}
	var entries []models.CreditTransaction
	if err := l.db.
		Where("user_id = ?", userID).
		Order("issued_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: load history: %v", ErrPersistence, err)
	}
	return entries, total, nil
}

// CreditHistory returns every earn transaction for vesting computation.
func (l *Ledger) CreditHistory(userID uint) ([]models.CreditTransaction, error) {
	var entries []models.CreditTransaction
	if err := l.db.
		Where("user_id = ?", userID).
		Order("issued_at ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("%w: load credit history: %v", ErrPersistence, err)
	}
	return entries, nil
}

func balanceOfTx(tx *gorm.DB, userID uint) (int64, error) {
	var earned, spent int64
	if err := tx.Model(&models.CreditTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount),0)").
		Scan(&earned).Error; err != nil {
		return 0, fmt.Errorf("%w: sum credits: %v", ErrPersistence, err)
	}
	if err := tx.Model(&models.PurchaseTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(credits_spent),0)").
		Scan(&spent).Error; err != nil {
		return 0, fmt.Errorf("%w: sum purchases: %v", ErrPersistence, err)
	}
	return earned - spent, nil
}

// lockForUpdate applies a SELECT ... FOR UPDATE clause on dialects that
// support it. SQLite serializes writers on its own and rejects the syntax.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
