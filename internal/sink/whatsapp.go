// Package sink performs the actual outbound sends: WhatsApp Cloud API
// and Telegram Bot API calls for webhook-originated replies, and an
// in-memory capture sink for the synchronous extension path.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"factrelay/internal/domain"
)

const whatsappMaxMsgLen = 4096

// WhatsApp sends text messages through the Business Cloud API.
type WhatsApp struct {
	apiBase       string
	phoneNumberID string
	accessToken   string
	client        *http.Client
	limiter       *rate.Limiter
	logger        *slog.Logger
}

type WhatsAppConfig struct {
	APIBase       string
	PhoneNumberID string
	AccessToken   string
	RatePerSecond float64
	Logger        *slog.Logger
	HTTPClient    *http.Client
}

func NewWhatsApp(cfg WhatsAppConfig) *WhatsApp {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://graph.facebook.com/v21.0"
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WhatsApp{
		apiBase:       cfg.APIBase,
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		client:        client,
		limiter:       rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		logger:        cfg.Logger,
	}
}

// Deliver sends msg.Text to the original sender, chunked at the platform
// limit. A non-nil error is always a *domain.DeliveryError; the caller
// never retries it.
func (w *WhatsApp) Deliver(ctx context.Context, msg domain.OutboundMessage) error {
	for _, chunk := range splitMessage(msg.Text, whatsappMaxMsgLen) {
		if err := w.limiter.Wait(ctx); err != nil {
			return &domain.DeliveryError{Kind: domain.DeliveryNetworkFailure, Err: err}
		}
		if err := w.sendText(ctx, msg.To, chunk); err != nil {
			return err
		}
	}
	w.logger.Info("whatsapp reply delivered", "to", msg.To, "text_len", len(msg.Text))
	return nil
}

func (w *WhatsApp) sendText(ctx context.Context, to, text string) error {
	url := fmt.Sprintf("%s/%s/messages", w.apiBase, w.phoneNumberID)

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &domain.DeliveryError{Kind: domain.DeliveryPlatformRejected, Err: fmt.Errorf("marshal: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &domain.DeliveryError{Kind: domain.DeliveryNetworkFailure, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.accessToken)

	resp, err := w.client.Do(req)
	if err != nil {
		return &domain.DeliveryError{Kind: domain.DeliveryNetworkFailure, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err = fmt.Errorf("whatsapp API %d: %s", resp.StatusCode, string(respBody))
	if resp.StatusCode >= 500 {
		return &domain.DeliveryError{Kind: domain.DeliveryNetworkFailure, Err: err}
	}
	return &domain.DeliveryError{Kind: domain.DeliveryPlatformRejected, Err: err}
}
