// SPDX-License-Identifier: MIT

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// WebhookSink delivers notifications as JSON POSTs to per-destination webhook
// URLs under a common base. An outbound rate limiter keeps one large fan-out
// from flooding the chat platform.
type WebhookSink struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
}

// NewWebhookSink creates a sink posting to base/<destinationID>.
func NewWebhookSink(base string, sendRate float64, burst int) *WebhookSink {
	if sendRate <= 0 {
		sendRate = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &WebhookSink{
		base:    strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(sendRate), burst),
	}
}

// Send posts the notification to the destination's webhook and classifies the
// response: 401/403 permission-denied, 404/410 destination-gone, anything
// else non-2xx transient.
func (s *WebhookSink) Send(ctx context.Context, destinationID string, n Notification) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send rate limiter: %w", err)
	}

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	u := s.base + "/" + url.PathEscape(destinationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return nil
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return fmt.Errorf("destination %s: %w", destinationID, ErrPermissionDenied)
	case res.StatusCode == http.StatusNotFound || res.StatusCode == http.StatusGone:
		return fmt.Errorf("destination %s: %w", destinationID, ErrDestinationGone)
	default:
		return fmt.Errorf("destination %s: webhook returned HTTP %d", destinationID, res.StatusCode)
	}
}
