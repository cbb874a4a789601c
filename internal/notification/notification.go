package notification

import (
	"context"
	"log/slog"
)

// Notification kinds emitted by the financial services.
const (
	KindDebitAlert        = "debit_alert"
	KindCreditAlert       = "credit_alert"
	KindDepositDecision   = "deposit_decision"
	KindLoanDecision      = "loan_decision"
	KindRepaymentDecision = "repayment_decision"
	KindAccountRestored   = "account_restored"
)

// Message describes a notification payload.
type Message struct {
	Kind   string
	UserID string
	Title  string
	Body   string
	Data   map[string]string
}

// Notifier delivers notifications to downstream systems. Delivery is best
// effort: callers log failures and never let them affect a committed
// financial operation.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the
// structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger. Messages without a user
// (guest identities) are skipped.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil || message.UserID == "" {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind, "user_id", message.UserID,
		"title", message.Title, "body", message.Body)
	return nil
}
