package services

import (
	"time"

	"go.uber.org/zap"

	"github.com/landfund/impactportal/models"
)

// CreditIssued is the domain event emitted after every successful ledger
// credit. The engine only publishes; whether anything subscribes is not its
// concern.
type CreditIssued struct {
	TransactionID uint
	UserID        uint
	Amount        int64
	Source        models.CreditSource
	OriginEventID string
	IssuedAt      time.Time
}

// EventBus receives domain events. Publish must not block the caller for
// long and must never fail the issuing operation.
type EventBus interface {
	Publish(event CreditIssued)
}

// LogBus is the default bus: it just logs the event.
type LogBus struct {
	Log *zap.SugaredLogger
}

func (b *LogBus) Publish(event CreditIssued) {
	if b.Log == nil {
		return
	}
	b.Log.Infow("credit issued",
		"tx_id", event.TransactionID,
		"user_id", event.UserID,
		"amount", event.Amount,
		"source", event.Source,
		"origin_event_id", event.OriginEventID,
	)
}

// NopBus discards events. Useful in tests.
type NopBus struct{}

func (NopBus) Publish(CreditIssued) {}
