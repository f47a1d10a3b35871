package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bill_reminder_service/internal/domain/notify"

	"github.com/google/uuid"
)

// HTTPSender delivers email through the send-email function endpoint (the
// hosted mail API fronting the actual SMTP provider).
type HTTPSender struct {
	endpoint string
	from     string
	client   *http.Client
}

func NewHTTPSender(endpoint, from string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{
		endpoint: endpoint,
		from:     from,
		client:   &http.Client{Timeout: timeout},
	}
}

type sendRequest struct {
	From    string `json:"from"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type sendResponse struct {
	MessageID string `json:"messageId"`
}

// Send posts the message to the mail endpoint and classifies the outcome:
// 2xx is delivered, 408/429/5xx and network errors are transient, any other
// 4xx is permanent (bad address or payload, needs external correction).
func (s *HTTPSender) Send(ctx context.Context, address string, msg notify.Message) (string, error) {
	payload, err := json.Marshal(sendRequest{
		From:    s.from,
		Email:   address,
		Subject: msg.Subject,
		Body:    msg.Body,
	})
	if err != nil {
		return "", notify.Permanent(fmt.Errorf("failed to encode send request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", notify.Permanent(fmt.Errorf("failed to build send request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// Network errors and timeouts: the endpoint may recover by the next run.
		return "", notify.Transient(fmt.Errorf("email endpoint unreachable: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out sendResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.MessageID == "" {
			// Delivered but the endpoint returned no usable ID.
			return uuid.NewString(), nil
		}
		return out.MessageID, nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return "", notify.Transient(fmt.Errorf("email endpoint returned status %d", resp.StatusCode))
	default:
		return "", notify.Permanent(fmt.Errorf("email endpoint rejected message with status %d", resp.StatusCode))
	}
}
