package gateway

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramName = "telegram"

type TelegramGateway struct {
	Bot     *tgbotapi.BotAPI
	handler *Handler
	allowed map[int64]bool
	wg      sync.WaitGroup
}

// NewTelegramGateway authorizes the bot. When allowedChats is non-empty,
// messages from other chats are ignored.
func NewTelegramGateway(token string, handler *Handler, allowedChats []int64) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	allowed := make(map[int64]bool, len(allowedChats))
	for _, id := range allowedChats {
		allowed[id] = true
	}
	return &TelegramGateway{Bot: bot, handler: handler, allowed: allowed}, nil
}

func (tg *TelegramGateway) accepts(chatID int64) bool {
	return len(tg.allowed) == 0 || tg.allowed[chatID]
}

func (tg *TelegramGateway) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)
	defer tg.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			tg.Bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !tg.accepts(update.Message.Chat.ID) {
				continue
			}

			msg := update.Message
			tg.wg.Add(1)
			go func() {
				defer tg.wg.Done()
				chatID := strconv.FormatInt(msg.Chat.ID, 10)
				reply := tg.handler.Handle(ctx, telegramName, chatID, msg.Text)
				if err := tg.Send(chatID, reply); err != nil {
					log.Printf("telegram: failed to reply to %s: %v", chatID, err)
				}
			}()
		}
	}
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	_, err = tg.Bot.Send(tgbotapi.NewMessage(id, text))
	return err
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}
