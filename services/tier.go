package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/landfund/impactportal/models"
)

// TierResolver maps a contribution amount to its reward tier. Tiers are read
// from the catalog on every call so admin edits take effect immediately.
type TierResolver struct {
	db *gorm.DB
}

// NewTierResolver creates a resolver over the tier catalog.
func NewTierResolver(db *gorm.DB) *TierResolver {
	return &TierResolver{db: db}
}

// ParseAmount converts client-supplied text into a contribution amount.
// Non-numeric input fails validation.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not a number", ErrValidation, s)
	}
	return d, nil
}

// Resolve returns the highest-threshold active tier whose MinAmount does not
// exceed amount, or nil when the amount is below every tier's minimum.
// Negative amounts fail validation. If two tiers share a MinAmount (a
// configuration error surfaced by ValidateCatalog) the one later in catalog
// order wins.
func (r *TierResolver) Resolve(amount decimal.Decimal) (*models.Tier, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must be non-negative, got %s", ErrValidation, amount)
	}

	var tiers []models.Tier
	if err := r.db.
		Where("is_active = ?", true).
		Order("min_amount ASC").
		Order("display_order ASC").
		Find(&tiers).Error; err != nil {
		return nil, fmt.Errorf("%w: load tiers: %v", ErrPersistence, err)
	}

	var match *models.Tier
	for i := range tiers {
		if tiers[i].MinAmount.LessThanOrEqual(amount) {
			match = &tiers[i]
		}
	}
	return match, nil
}

// ActiveTiers returns the active catalog in display order for listing.
func (r *TierResolver) ActiveTiers() ([]models.Tier, error) {
	var tiers []models.Tier
	if err := r.db.
		Where("is_active = ?", true).
		Order("min_amount ASC").
		Order("display_order ASC").
		Find(&tiers).Error; err != nil {
		return nil, fmt.Errorf("%w: load tiers: %v", ErrPersistence, err)
	}
	return tiers, nil
}

// ValidateCatalog reports duplicate minimum amounts among active tiers. A
// duplicate does not break resolution (later catalog order wins) but it is a
// configuration mistake that should be fixed, not silently tolerated.
func (r *TierResolver) ValidateCatalog() error {
	tiers, err := r.ActiveTiers()
	if err != nil {
		return err
	}
	seen := make(map[string]string, len(tiers))
	for _, t := range tiers {
		key := t.MinAmount.String()
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: tiers %q and %q share min_amount %s", ErrValidation, prev, t.Slug, key)
		}
		seen[key] = t.Slug
	}
	return nil
}
