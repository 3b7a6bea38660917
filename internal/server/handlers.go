package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"

	"factrelay/internal/dispatch"
	"factrelay/internal/domain"
	"factrelay/internal/sink"
)

const maxBodyBytes = 1 << 20 // 1MB

// handleExtension is the synchronous path: parse, verify, respond in one
// round trip. The reply body is produced by the extension adapter and
// captured here instead of being sent anywhere.
func (s *Server) handleExtension(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": "cannot read body"})
		return
	}
	defer r.Body.Close()

	capture := sink.NewCapture()
	out := s.orch.DispatchTo(r.Context(), newEnvelope(domain.ChannelExtension, body), capture)

	switch out.State {
	case dispatch.StateDelivered:
		writeCaptured(w, http.StatusOK, capture)
	case dispatch.StateRejected:
		status := http.StatusBadRequest
		var perr *domain.ParseError
		if errors.As(out.Err, &perr) && perr.Kind == domain.ParseEmptyContent {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, map[string]string{"status": "error", "error": out.Err.Error()})
	case dispatch.StateAgentFailed:
		// FormatFailure's body was delivered into the capture sink.
		writeCaptured(w, http.StatusBadGateway, capture)
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": string(out.State)})
	}
}

// handleWhatsAppVerification answers the platform's webhook handshake:
// echo the challenge only when the verify token matches.
func (s *Server) handleWhatsAppVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && tokensEqual(token, s.cfg.Channels.WhatsApp.VerifyToken) {
		s.logger.Info("whatsapp webhook verified")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, html.EscapeString(challenge))
		return
	}

	s.logger.Warn("whatsapp webhook verification failed", "mode", mode)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// handleWhatsAppWebhook always acks quickly; the platform retries
// deliveries that are not acknowledged, and a retry storm is worse than
// a dropped malformed message. Verification and the reply happen out of
// band.
func (s *Server) handleWhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if secret := s.cfg.Channels.WhatsApp.AppSecret; secret != "" {
		if !verifySignature(body, secret, r.Header.Get("X-Hub-Signature-256")) {
			s.logger.Warn("whatsapp invalid signature")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	s.dispatchDetached(newEnvelope(domain.ChannelWhatsApp, body))
	w.WriteHeader(http.StatusOK)
}

// handleTelegramWebhook authenticates the bot token embedded in the
// route path before the body is read or parsed. A mismatch is an auth
// failure, never a parse error.
func (s *Server) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if !tokensEqual(r.PathValue("token"), s.cfg.Channels.Telegram.BotToken) {
		s.logger.Warn("telegram webhook auth failed")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	s.dispatchDetached(newEnvelope(domain.ChannelTelegram, body))
	w.WriteHeader(http.StatusOK)
}

// tokensEqual compares secrets in constant time. Hashing first removes
// the length oracle as well.
func tokensEqual(got, want string) bool {
	if want == "" {
		return false
	}
	g := sha256.Sum256([]byte(got))
	w := sha256.Sum256([]byte(want))
	return hmac.Equal(g[:], w[:])
}

// verifySignature checks the X-Hub-Signature-256 header.
func verifySignature(body []byte, secret, signature string) bool {
	if len(signature) < 7 || signature[:7] != "sha256=" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature[7:]), []byte(computed))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeCaptured(w http.ResponseWriter, status int, capture *sink.Capture) {
	msg := capture.Message()
	if msg == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": "no response produced"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(msg.Body)
}
