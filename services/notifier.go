package services

import "go.uber.org/zap"

// NotificationSender delivers user-facing notifications. Fire-and-forget:
// implementations swallow and log delivery failures, which must never
// propagate as ledger failures.
type NotificationSender interface {
	Notify(userID uint, titleKey, bodyKey string, params map[string]string)
}

// LogNotifier writes notification intents to the log. The real delivery
// channel lives outside this service.
type LogNotifier struct {
	Log *zap.SugaredLogger
}

func (n *LogNotifier) Notify(userID uint, titleKey, bodyKey string, params map[string]string) {
	if n.Log == nil {
		return
	}
	n.Log.Infow("notification intent", "user_id", userID, "title_key", titleKey, "body_key", bodyKey, "params", params)
}

// NopNotifier discards notifications. Useful in tests.
type NopNotifier struct{}

func (NopNotifier) Notify(uint, string, string, map[string]string) {}
