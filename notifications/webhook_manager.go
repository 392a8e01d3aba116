// Package notifications delivers exit signals and risk events to configured
// webhook targets.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"momentum-scout/cache"
	"momentum-scout/helpers"
)

const (
	maxRetries   = 3
	retryDelay   = 2 * time.Second
	dedupeWindow = 30 * time.Minute
)

// WebhookManager handles webhook notifications
type WebhookManager struct {
	urls   []string
	redis  *cache.RedisClient
	client *http.Client
}

// WebhookPayload represents the JSON payload sent to webhooks
type WebhookPayload struct {
	EventType  string                 `json:"event_type"`
	DetectedAt time.Time              `json:"detected_at"`
	Symbol     string                 `json:"symbol,omitempty"`
	OrderID    string                 `json:"order_id,omitempty"`
	Price      float64                `json:"price,omitempty"`
	Message    string                 `json:"message"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewWebhookManager creates a new webhook manager
func NewWebhookManager(urls []string, redis *cache.RedisClient) *WebhookManager {
	return &WebhookManager{
		urls:  urls,
		redis: redis,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NotifyExitSignal announces an actionable exit recommendation. Repeated
// signals for the same order and reason within the dedupe window are
// suppressed.
func (wm *WebhookManager) NotifyExitSignal(orderID, symbol, reason string, price float64) {
	key := orderID + ":" + reason
	if !wm.redis.MarkNotified(context.Background(), "exit", key, dedupeWindow) {
		return
	}

	message := fmt.Sprintf("🚨 EXIT SIGNAL %s (%s): %s at %.2f", symbol, orderID, reason, price)
	wm.send(&WebhookPayload{
		EventType:  "exit_signal",
		DetectedAt: time.Now(),
		Symbol:     symbol,
		OrderID:    orderID,
		Price:      price,
		Message:    message,
		Metadata: map[string]interface{}{
			"exit_reason": reason,
		},
	})
}

// NotifySuspension announces a risk suspension or daily block
func (wm *WebhookManager) NotifySuspension(accountID, reason string, equity float64) {
	if !wm.redis.MarkNotified(context.Background(), "suspension", accountID+":"+reason, dedupeWindow) {
		return
	}

	message := fmt.Sprintf("🛑 TRADING HALTED for %s: %s (equity %s)",
		accountID, reason, helpers.FormatUSD(equity))
	wm.send(&WebhookPayload{
		EventType:  "risk_suspension",
		DetectedAt: time.Now(),
		Message:    message,
		Metadata: map[string]interface{}{
			"account_id": accountID,
			"reason":     reason,
			"equity":     equity,
		},
	})
}

func (wm *WebhookManager) send(payload *WebhookPayload) {
	if len(wm.urls) == 0 {
		return
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Printf("⚠️  Failed to marshal webhook payload: %v", err)
		return
	}

	for _, url := range wm.urls {
		go wm.deliver(url, payloadBytes)
	}
}

func (wm *WebhookManager) deliver(url string, payload []byte) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(payload))
		if err != nil {
			log.Printf("⚠️  Invalid webhook request for %s: %v", url, err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "Momentum-Scout/1.0")

		resp, err := wm.client.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			resp.Body.Close()
			return
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp.Body.Close()
		}

		if attempt < maxRetries {
			time.Sleep(retryDelay)
		}
	}

	log.Printf("⚠️  Webhook delivery to %s failed after %d attempts: %v", url, maxRetries, lastErr)
}
