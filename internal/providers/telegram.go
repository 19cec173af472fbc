package providers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"
)

// TelegramSender is satisfied by *bot.Bot.
type TelegramSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// Telegram sends to a chat id. Sends are paced by a per-adapter limiter
// since the Bot API throttles per token.
type Telegram struct {
	sender  TelegramSender
	limiter *rate.Limiter
}

func NewTelegram(sender TelegramSender, ratePerSecond int) *Telegram {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	return &Telegram{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
	}
}

// NewTelegramBot builds the adapter around a real bot client.
func NewTelegramBot(token string, ratePerSecond int) (*Telegram, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return NewTelegram(b, ratePerSecond), nil
}

func (t *Telegram) Name() string { return ChannelTelegram }

func (t *Telegram) Send(ctx context.Context, target string, msg Message) error {
	chatID, err := strconv.ParseInt(target, 10, 64)
	if err != nil || chatID == 0 {
		return NewChannelError(ChannelTelegram, ReasonInvalidTarget, fmt.Errorf("bad chat id %q", target))
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return NewChannelError(ChannelTelegram, ReasonTransient, fmt.Errorf("telegram rate limit wait: %w", err))
	}

	text := msg.Body
	if msg.Subject != "" {
		text = fmt.Sprintf("%s\n\n%s", msg.Subject, msg.Body)
	}
	_, err = t.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return NewChannelError(ChannelTelegram, classifyTelegram(err), err)
	}
	return nil
}

func classifyTelegram(err error) Reason {
	var tooMany *bot.TooManyRequestsError
	switch {
	case errors.Is(err, bot.ErrorUnauthorized):
		return ReasonAuthFailure
	case errors.Is(err, bot.ErrorForbidden) || errors.Is(err, bot.ErrorBadRequest) || errors.Is(err, bot.ErrorNotFound):
		return ReasonInvalidTarget
	case errors.As(err, &tooMany):
		return ReasonTransient
	case isTransportError(err):
		return ReasonTransient
	default:
		return ReasonProviderRejected
	}
}
