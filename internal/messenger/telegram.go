// Package messenger is the external collaborator spec §6 describes only as
// a contract: something that can deliver and edit chat messages, show an
// inline keyboard, and report back which button a user pressed. This file
// is the concrete Telegram adapter; its surface is deliberately narrow —
// command parsing and dispatch are the bot-command layer's job, not this
// one's.
package messenger

import (
	"context"
	"fmt"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Update is the subset of an inbound Telegram update this daemon cares
// about: either a text message or a callback from an inline keyboard press.
type Update struct {
	ChatID       int64
	UserID       int64
	Username     string
	Text         string
	CallbackID   string
	CallbackData string
}

// Client wraps a Telegram bot API session. It implements
// streammsg.Sender so the streaming message controller can use it directly.
type Client struct {
	bot *tgbotapi.BotAPI
}

// New connects to the Telegram Bot API using token.
func New(token string) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("messenger: connect: %w", err)
	}
	return &Client{bot: bot}, nil
}

// Updates streams inbound messages and callback presses. The returned
// channel is closed when ctx is done.
func (c *Client) Updates(ctx context.Context) <-chan Update {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	raw := c.bot.GetUpdatesChan(cfg)

	out := make(chan Update)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-raw:
				if !ok {
					return
				}
				if ev, ok := toUpdate(upd); ok {
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out
}

func toUpdate(upd tgbotapi.Update) (Update, bool) {
	switch {
	case upd.Message != nil:
		return Update{
			ChatID:   upd.Message.Chat.ID,
			UserID:   upd.Message.From.ID,
			Username: upd.Message.From.UserName,
			Text:     upd.Message.Text,
		}, true
	case upd.CallbackQuery != nil:
		cq := upd.CallbackQuery
		chatID := int64(0)
		if cq.Message != nil {
			chatID = cq.Message.Chat.ID
		}
		return Update{
			ChatID:       chatID,
			UserID:       cq.From.ID,
			Username:     cq.From.UserName,
			CallbackID:   cq.ID,
			CallbackData: cq.Data,
		}, true
	default:
		return Update{}, false
	}
}

// SendMessage sends text rendered in the rich-text dialect and returns the
// new message's id.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("messenger: send: %w", err)
	}
	return sent.MessageID, nil
}

// EditMessage replaces the text of a previously sent message in place.
func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := c.bot.Send(edit)
	if err != nil {
		return fmt.Errorf("messenger: edit: %w", err)
	}
	return nil
}

// DeleteMessage removes a message the bot sent.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := c.bot.Send(tgbotapi.NewDeleteMessage(chatID, messageID))
	if err != nil {
		return fmt.Errorf("messenger: delete: %w", err)
	}
	return nil
}

// SendTyping shows the "typing…" chat action while the agent is thinking.
func (c *Client) SendTyping(ctx context.Context, chatID int64) error {
	_, err := c.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	if err != nil {
		return fmt.Errorf("messenger: typing indicator: %w", err)
	}
	return nil
}

// SendKeyboard sends text with an inline keyboard of options below it —
// used for TOOL_REQUEST approval prompts. callbackPrefix is prepended to
// each option's index so the caller can route the resulting callback.
func (c *Client) SendKeyboard(ctx context.Context, chatID int64, text string, options []string, callbackPrefix string) (int, error) {
	var row []tgbotapi.InlineKeyboardButton
	for i, opt := range options {
		data := fmt.Sprintf("%s:%d", callbackPrefix, i)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(opt, data))
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("messenger: send keyboard: %w", err)
	}
	return sent.MessageID, nil
}

// AnswerCallback acknowledges an inline keyboard press so Telegram stops
// showing the client-side loading spinner on the button.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	_, err := c.bot.Request(tgbotapi.NewCallback(callbackID, ""))
	if err != nil {
		return fmt.Errorf("messenger: answer callback: %w", err)
	}
	return nil
}

// SendDocument uploads a local file as a chat document — the upload-storage
// internals spec §6 excludes are the caller's concern; this only performs
// the transfer.
func (c *Client) SendDocument(ctx context.Context, chatID int64, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("messenger: stat document: %w", err)
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	_, err := c.bot.Send(doc)
	if err != nil {
		return fmt.Errorf("messenger: send document: %w", err)
	}
	return nil
}

// IsAllowed checks a user against the configured allow-list. An empty
// allow-list (both nil) rejects everyone — this bridge drives a real shell
// agent, so an unconfigured allow-list must fail closed, not open.
func IsAllowed(userID int64, username string, allowedIDs []int64, allowedUsernames []string) bool {
	if len(allowedIDs) == 0 && len(allowedUsernames) == 0 {
		return false
	}
	for _, id := range allowedIDs {
		if id == userID {
			return true
		}
	}
	for _, name := range allowedUsernames {
		if name == username {
			return true
		}
	}
	return false
}
