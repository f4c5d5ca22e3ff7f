// Package telegram adapts the Telegram Bot API to the engine: long-polled
// updates become engine messages and replies become sendMessage calls with
// reply keyboards.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/roach88/boni/internal/engine"
	"github.com/roach88/boni/internal/model"
)

// Defaults for polling and the outbound throttle.
const (
	DefaultPollTimeout = 60
	DefaultSendRPS     = 25
)

// API is the subset of *tgbotapi.BotAPI the adapter uses.
type API interface {
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFile(cfg tgbotapi.FileConfig) (tgbotapi.File, error)
}

// Bot is the Telegram transport. It implements engine.Sender and
// engine.AttachmentResolver.
type Bot struct {
	api         API
	limiter     *rate.Limiter
	pollTimeout int
	logger      *slog.Logger
}

var (
	_ engine.Sender             = (*Bot)(nil)
	_ engine.AttachmentResolver = (*Bot)(nil)
)

// Option configures a Bot.
type Option func(*Bot)

// WithPollTimeout sets the long-poll timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(b *Bot) { b.pollTimeout = seconds }
}

// WithSendRate caps outbound messages per second. Zero or less disables the
// throttle.
func WithSendRate(rps float64) Option {
	return func(b *Bot) {
		if rps <= 0 {
			b.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) { b.logger = l }
}

// Connect authenticates token against the Bot API.
func Connect(token string, opts ...Option) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	b := NewWithAPI(api, opts...)
	b.logger.Info("telegram authorized", "bot", api.Self.UserName)
	return b, nil
}

// NewWithAPI wraps an existing API client.
func NewWithAPI(api API, opts ...Option) *Bot {
	b := &Bot{api: api, pollTimeout: DefaultPollTimeout}
	WithSendRate(DefaultSendRPS)(b)
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Poll long-polls updates and hands each convertible one to sink until ctx
// is cancelled. sink returning false stops polling.
func (b *Bot) Poll(ctx context.Context, sink func(engine.Message) bool) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = b.pollTimeout
	cfg.AllowedUpdates = []string{"message"}

	updates := b.api.GetUpdatesChan(cfg)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			m, ok := ToMessage(u)
			if !ok {
				continue
			}
			if !sink(m) {
				return nil
			}
		}
	}
}

// ToMessage converts an update. It returns false for updates that carry no
// user message.
func ToMessage(u tgbotapi.Update) (engine.Message, bool) {
	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return engine.Message{}, false
	}

	m := engine.Message{
		UserID: strconv.FormatInt(msg.From.ID, 10),
		ChatID: strconv.FormatInt(msg.Chat.ID, 10),
		Profile: model.Profile{
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
			Username:  msg.From.UserName,
		},
		Text:  msg.Text,
		IsBot: msg.From.IsBot,
	}
	if m.Text == "" {
		m.Text = msg.Caption
	}

	for _, p := range msg.Photo {
		m.Attachments = append(m.Attachments, engine.Attachment{
			FileID: p.FileID,
			Width:  p.Width,
			Height: p.Height,
			Size:   int(p.FileSize),
		})
	}
	if d := msg.Document; d != nil && strings.HasPrefix(d.MimeType, "image/") {
		m.Attachments = append(m.Attachments, engine.Attachment{
			FileID: d.FileID,
			Size:   int(d.FileSize),
		})
	}
	return m, true
}

// Send delivers a reply, waiting on the outbound throttle first.
func (b *Bot) Send(ctx context.Context, r engine.Reply) error {
	chatID, err := strconv.ParseInt(r.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("send: invalid chat id %q: %w", r.ChatID, err)
	}
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}

	if _, err := b.api.Send(MessageConfig(chatID, r)); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

// MessageConfig builds the sendMessage request for a reply.
func MessageConfig(chatID int64, r engine.Reply) tgbotapi.MessageConfig {
	cfg := tgbotapi.NewMessage(chatID, r.Text)
	if r.Markdown {
		cfg.ParseMode = tgbotapi.ModeMarkdown
	}
	if kb, ok := BuildKeyboard(r.Keyboard); ok {
		cfg.ReplyMarkup = kb
	}
	return cfg
}

// BuildKeyboard lays labels out one button per row. It returns false for an
// empty label list.
func BuildKeyboard(labels []string) (tgbotapi.ReplyKeyboardMarkup, bool) {
	if len(labels) == 0 {
		return tgbotapi.ReplyKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.KeyboardButton, len(labels))
	for i, l := range labels {
		rows[i] = tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(l))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb, true
}

// FileRefPrefix marks attachment references that name a Telegram file_id.
const FileRefPrefix = "telegram:"

// Resolve checks that an uploaded file is still retrievable and returns a
// "telegram:<file_id>" reference to it. Download URLs carry the bot token
// and expire after an hour, so they are never stored.
func (b *Bot) Resolve(ctx context.Context, a engine.Attachment) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := b.api.GetFile(tgbotapi.FileConfig{FileID: a.FileID})
	if err != nil {
		return "", fmt.Errorf("resolve file %s: %w", a.FileID, err)
	}
	id := f.FileID
	if id == "" {
		id = a.FileID
	}
	return FileRefPrefix + id, nil
}
