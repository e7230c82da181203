package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/landfund/impactportal/models"
)

// VestingStatus describes where a credit tranche sits on the schedule.
type VestingStatus string

const (
	VestingInCliff     VestingStatus = "in_cliff"
	VestingLinear      VestingStatus = "vesting_linearly"
	VestingFullyVested VestingStatus = "fully_vested"
	VestingForfeited   VestingStatus = "forfeited"
)

// Schedule: nothing vests for 12 months, a quarter vests at the cliff, then
// linear to fully vested at 48 months.
const (
	cliffMonths = 12
	fullMonths  = 48
)

var (
	quarter       = decimal.RequireFromString("0.25")
	threeQuarters = decimal.RequireFromString("0.75")
)

// MonthsBetween returns the number of whole calendar months elapsed from
// from to to, never negative.
func MonthsBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// VestedFraction returns the vested fraction in [0,1] for credits earned at
// earnedAt as of now, with the schedule status. Strictly non-decreasing in
// elapsed time.
func VestedFraction(earnedAt, now time.Time) (decimal.Decimal, VestingStatus) {
	m := MonthsBetween(earnedAt, now)
	switch {
	case m < cliffMonths:
		return decimal.Zero, VestingInCliff
	case m >= fullMonths:
		return decimal.NewFromInt(1), VestingFullyVested
	default:
		elapsed := decimal.NewFromInt(int64(m - cliffMonths))
		span := decimal.NewFromInt(int64(fullMonths - cliffMonths))
		return quarter.Add(threeQuarters.Mul(elapsed).Div(span)), VestingLinear
	}
}

// Tranche is one ledger credit annotated with its vesting state.
type Tranche struct {
	TransactionID uint            `json:"transaction_id"`
	Amount        int64           `json:"amount"`
	IssuedAt      time.Time       `json:"issued_at"`
	Fraction      decimal.Decimal `json:"fraction"`
	Vested        decimal.Decimal `json:"vested"`
	Status        VestingStatus   `json:"status"`
}

// VestingCalculator is a read-only view over the ledger. It never writes.
type VestingCalculator struct {
	db     *gorm.DB
	ledger *Ledger
}

// NewVestingCalculator creates a calculator over the given ledger.
func NewVestingCalculator(db *gorm.DB, ledger *Ledger) *VestingCalculator {
	return &VestingCalculator{db: db, ledger: ledger}
}

// forfeited reports whether the user has a terminal forfeiture override.
func (v *VestingCalculator) forfeited(userID uint) (bool, error) {
	var metric models.PioneerMetric
	err := v.db.First(&metric, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: metric lookup: %v", ErrPersistence, err)
	}
	return metric.Forfeited, nil
}

// VestedBalance sums amount x vestedFraction over all credit tranches. A
// forfeited user reads as zero regardless of elapsed time.
func (v *VestingCalculator) VestedBalance(userID uint, now time.Time) (decimal.Decimal, error) {
	gone, err := v.forfeited(userID)
	if err != nil {
		return decimal.Zero, err
	}
	if gone {
		return decimal.Zero, nil
	}

	entries, err := v.ledger.CreditHistory(userID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, entry := range entries {
		fraction, _ := VestedFraction(entry.IssuedAt, now)
		total = total.Add(decimal.NewFromInt(entry.Amount).Mul(fraction))
	}
	return total, nil
}

// Tranches returns the per-credit vesting breakdown for reporting.
func (v *VestingCalculator) Tranches(userID uint, now time.Time) ([]Tranche, error) {
	gone, err := v.forfeited(userID)
	if err != nil {
		return nil, err
	}

	entries, err := v.ledger.CreditHistory(userID)
	if err != nil {
		return nil, err
	}
	tranches := make([]Tranche, 0, len(entries))
	for _, entry := range entries {
		fraction, status := VestedFraction(entry.IssuedAt, now)
		if gone {
			fraction, status = decimal.Zero, VestingForfeited
		}
		tranches = append(tranches, Tranche{
			TransactionID: entry.ID,
			Amount:        entry.Amount,
			IssuedAt:      entry.IssuedAt,
			Fraction:      fraction,
			Vested:        decimal.NewFromInt(entry.Amount).Mul(fraction),
			Status:        status,
		})
	}
	return tranches, nil
}
