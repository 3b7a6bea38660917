package adapter

import (
	"encoding/json"
	"strconv"
	"strings"

	"factrelay/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram adapts the Bot API webhook Update object. The bot token in the
// route path is checked by the server before this adapter ever sees the
// payload.
type Telegram struct{}

func NewTelegram() *Telegram { return &Telegram{} }

func (t *Telegram) Channel() domain.Channel { return domain.ChannelTelegram }

func (t *Telegram) ParseInbound(payload []byte) (*domain.VerifyRequest, error) {
	var update tgbotapi.Update
	if err := json.Unmarshal(payload, &update); err != nil {
		return nil, &domain.ParseError{Kind: domain.ParseMalformedPayload, Reason: err.Error()}
	}
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil, &domain.ParseError{Kind: domain.ParseMalformedPayload, Reason: "update carries no message"}
	}
	if strings.TrimSpace(msg.Text) == "" {
		// Media, stickers, joins: nothing we can verify.
		if len(msg.Photo) > 0 || msg.Audio != nil || msg.Video != nil ||
			msg.Document != nil || msg.Voice != nil || msg.Sticker != nil {
			return nil, &domain.ParseError{
				Kind:   domain.ParseUnsupportedMessageType,
				Reason: "non-text message",
			}
		}
		return nil, &domain.ParseError{Kind: domain.ParseEmptyContent, Reason: "message text is empty"}
	}

	return &domain.VerifyRequest{
		Text:            msg.Text,
		UserID:          strconv.FormatInt(msg.Chat.ID, 10),
		Channel:         domain.ChannelTelegram,
		SourceMessageID: strconv.Itoa(msg.MessageID),
	}, nil
}

func (t *Telegram) FormatOutbound(req *domain.VerifyRequest, v *domain.Verdict) domain.OutboundMessage {
	return domain.OutboundMessage{
		Channel: domain.ChannelTelegram,
		To:      req.UserID,
		Text:    v.FormattedText,
	}
}

func (t *Telegram) FormatFailure(req *domain.VerifyRequest, err error) domain.OutboundMessage {
	return domain.OutboundMessage{
		Channel: domain.ChannelTelegram,
		To:      req.UserID,
		Text:    unavailableText,
	}
}
