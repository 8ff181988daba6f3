package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// TwilioNotifier sends SMS through the Twilio Messages API. Calls go through a
// circuit breaker so a provider outage fails fast instead of stalling every
// sweep and OTP request behind HTTP timeouts.
type TwilioNotifier struct {
	accountSID  string
	authToken   string
	fromNumber  string
	countryCode string
	baseURL     string
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker
	logger      *zap.Logger
}

// NewTwilioNotifier builds a notifier for the given Twilio account. Numbers
// without a leading '+' are prefixed with countryCode before dispatch.
func NewTwilioNotifier(accountSID, authToken, fromNumber, countryCode string, logger *zap.Logger) *TwilioNotifier {
	return &TwilioNotifier{
		accountSID:  accountSID,
		authToken:   authToken,
		fromNumber:  fromNumber,
		countryCode: countryCode,
		baseURL:     "https://api.twilio.com",
		client:      http.DefaultClient,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "twilio-sms",
		}),
		logger: logger,
	}
}

func (n *TwilioNotifier) Send(ctx context.Context, mobile, message string) error {
	to := NormalizeMobile(mobile, n.countryCode)

	_, err := n.breaker.Execute(func() (interface{}, error) {
		return nil, n.post(ctx, to, message)
	})
	if err != nil {
		return fmt.Errorf("send sms to %s: %w", to, err)
	}

	n.logger.Info("sms sent", zap.String("mobile", to))
	return nil
}

func (n *TwilioNotifier) post(ctx context.Context, to, message string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", n.fromNumber)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", n.baseURL, n.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(n.accountSID, n.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
