package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmehdipour/order-alert/internal/model"
)

const DefaultTwilioBaseURL = "https://api.twilio.com"

// APIError is a non-2xx answer from the Messages API.
type APIError struct {
	StatusCode int
	Code       int // Twilio error code, 0 if the body carried none
	Message    string
	MoreInfo   string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("twilio: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("twilio: status=%d code=%d: %s", e.StatusCode, e.Code, e.Message)
}

// TwilioSender creates messages through the Twilio REST API.
// It performs exactly one request per Send; there are no retries.
type TwilioSender struct {
	baseURL string
	client  *http.Client
}

func NewTwilioSender(baseURL string, timeoutMs int) *TwilioSender {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultTwilioBaseURL
	}

	if timeoutMs <= 0 {
		timeoutMs = 10000
	}

	return &TwilioSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
	}
}

func (s *TwilioSender) Name() string { return "twilio" }

type messageResource struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type errorResource struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

// Send posts the message and returns the provider-assigned message SID.
func (s *TwilioSender) Send(ctx context.Context, creds model.Credentials, req model.NotificationRequest) (string, error) {
	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", req.From)
	form.Set("Body", req.Body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, url.PathEscape(creds.AccountSID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build twilio request: %w", err)
	}

	httpReq.SetBasicAuth(creds.AccountSID, creds.AuthToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	res, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send twilio message: %w", err)
	}

	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read twilio response: %w", err)
	}

	if res.StatusCode/100 != 2 {
		apiErr := &APIError{StatusCode: res.StatusCode}
		var er errorResource
		if json.Unmarshal(body, &er) == nil {
			apiErr.Code = er.Code
			apiErr.Message = er.Message
			apiErr.MoreInfo = er.MoreInfo
		}
		return "", apiErr
	}

	var msg messageResource
	if err := json.Unmarshal(body, &msg); err != nil {
		return "", fmt.Errorf("decode twilio response: %w", err)
	}

	if msg.SID == "" {
		return "", fmt.Errorf("twilio response missing sid (status=%q)", msg.Status)
	}

	return msg.SID, nil
}
