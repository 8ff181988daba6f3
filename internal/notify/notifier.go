// Package notify delivers SMS messages to members for OTP codes and due-date
// reminders.
package notify

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Notifier sends a message to a mobile number.
type Notifier interface {
	Send(ctx context.Context, mobile, message string) error
}

// NormalizeMobile prefixes countryCode when the number carries no
// international prefix.
func NormalizeMobile(mobile, countryCode string) string {
	if strings.HasPrefix(mobile, "+") {
		return mobile
	}
	return countryCode + mobile
}

// LogNotifier writes messages to the log instead of dispatching them. Used in
// development and as a stand-in when no SMS provider is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, mobile, message string) error {
	n.logger.Info("sms suppressed",
		zap.String("mobile", mobile),
		zap.String("message", message),
	)
	return nil
}
