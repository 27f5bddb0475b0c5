package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clinic-app-server/internal/config"
)

const twilioAPIBase = "https://api.twilio.com"

// twilioMessenger dispatches WhatsApp content templates through the Twilio
// Messages API.
type twilioMessenger struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
}

// NewMessenger builds the messaging channel client from configuration.
// Missing credentials yield a disabled null object, so the gateway's Send
// contract stays total without environment variables.
func NewMessenger(cfg config.TwilioConfig) Messenger {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return disabledMessenger{}
	}
	return &twilioMessenger{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		baseURL:    twilioAPIBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (m *twilioMessenger) Enabled() bool { return true }

func (m *twilioMessenger) SendTemplate(ctx context.Context, from, to, templateID string, params map[string]string) error {
	variables, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode template variables: %w", err)
	}

	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("ContentSid", templateID)
	form.Set("ContentVariables", string(variables))

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", m.baseURL, m.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(m.accountSID, m.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("twilio returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// disabledMessenger is the capability-checked null object used when the
// channel credentials are absent.
type disabledMessenger struct{}

func (disabledMessenger) Enabled() bool { return false }

func (disabledMessenger) SendTemplate(context.Context, string, string, string, map[string]string) error {
	return nil
}
