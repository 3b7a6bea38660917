package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"factrelay/internal/domain"
)

const telegramMaxMsgLen = 4000

// Telegram sends replies via the Bot API sendMessage method. The service
// is webhook-driven, so there is no long-polling bot instance; sends go
// straight to the HTTP API.
type Telegram struct {
	apiBase  string
	botToken string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

type TelegramConfig struct {
	APIBase       string
	BotToken      string
	RatePerSecond float64
	Logger        *slog.Logger
	HTTPClient    *http.Client
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.telegram.org"
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
	return &Telegram{
		apiBase:  cfg.APIBase,
		botToken: cfg.BotToken,
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		logger:   cfg.Logger,
	}
}

func (t *Telegram) Deliver(ctx context.Context, msg domain.OutboundMessage) error {
	chatID, err := strconv.ParseInt(msg.To, 10, 64)
	if err != nil {
		return &domain.DeliveryError{Kind: domain.DeliveryPlatformRejected, Err: fmt.Errorf("invalid chat id %q: %w", msg.To, err)}
	}

	for _, chunk := range splitMessage(msg.Text, telegramMaxMsgLen) {
		if err := t.limiter.Wait(ctx); err != nil {
			return &domain.DeliveryError{Kind: domain.DeliveryNetworkFailure, Err: err}
		}
		if err := t.sendMessage(ctx, chatID, chunk); err != nil {
			return err
		}
	}
	t.logger.Info("telegram reply delivered", "chat_id", chatID, "text_len", len(msg.Text))
	return nil
}

func (t *Telegram) sendMessage(ctx context.Context, chatID int64, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	body, err := json.Marshal(map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return &domain.DeliveryError{Kind: domain.DeliveryPlatformRejected, Err: fmt.Errorf("marshal: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &domain.DeliveryError{Kind: domain.DeliveryNetworkFailure, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return &domain.DeliveryError{Kind: domain.DeliveryNetworkFailure, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err = fmt.Errorf("telegram API %d: %s", resp.StatusCode, string(respBody))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return &domain.DeliveryError{Kind: domain.DeliveryNetworkFailure, Err: err}
	}
	return &domain.DeliveryError{Kind: domain.DeliveryPlatformRejected, Err: err}
}
