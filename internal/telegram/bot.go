// Package telegram is an optional second inbound channel: the same
// conversation engine and session store, driven by Telegram long polling
// instead of the WhatsApp webhook.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/lucianoherrera1000/vendobot/internal/conversation"
	"github.com/lucianoherrera1000/vendobot/internal/database"
)

// Bot polls Telegram and feeds messages through the engine.
type Bot struct {
	api    *tgbotapi.BotAPI
	engine *conversation.Engine
	db     *database.DB
	log    *zap.SugaredLogger
}

// New authenticates against the Telegram API.
func New(token string, engine *conversation.Engine, db *database.DB, log *zap.SugaredLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	log.Infow("telegram bot authorized", "username", api.Self.UserName)

	return &Bot{api: api, engine: engine, db: db, log: log}, nil
}

// Start runs the update loop until the context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// Telegram chats share the session table with WhatsApp phones, so the
	// customer id gets a channel prefix.
	customerID := fmt.Sprintf("tg:%d", msg.Chat.ID)

	state, data, err := b.db.GetSession(customerID)
	if err != nil {
		b.log.Errorw("session load failed", "customer", customerID, "error", err)
		return
	}

	res := b.engine.Step(conversation.WithCustomerID(ctx, customerID), state, msg.Text, data)

	if err := b.db.UpsertSession(customerID, res.NextState, res.Data); err != nil {
		b.log.Errorw("session save failed", "customer", customerID, "error", err)
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, res.Reply)
	reply.ParseMode = "Markdown"
	if _, err := b.api.Send(reply); err != nil {
		b.log.Warnw("telegram send failed", "customer", customerID, "error", err)
	}
}
