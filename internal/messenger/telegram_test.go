package messenger

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAllowedWithEmptyListRejectsEveryone(t *testing.T) {
	assert.False(t, IsAllowed(1, "anyone", nil, nil))
}

func TestIsAllowedMatchesByID(t *testing.T) {
	assert.True(t, IsAllowed(42, "someone", []int64{42}, nil))
	assert.False(t, IsAllowed(43, "someone", []int64{42}, nil))
}

func TestIsAllowedMatchesByUsername(t *testing.T) {
	assert.True(t, IsAllowed(1, "alice", nil, []string{"alice"}))
	assert.False(t, IsAllowed(1, "bob", nil, []string{"alice"}))
}

func TestToUpdateFromMessage(t *testing.T) {
	upd := tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: "hello",
			Chat: &tgbotapi.Chat{ID: 100},
			From: &tgbotapi.User{ID: 7, UserName: "dev"},
		},
	}
	ev, ok := toUpdate(upd)
	require.True(t, ok)
	assert.Equal(t, int64(100), ev.ChatID)
	assert.Equal(t, int64(7), ev.UserID)
	assert.Equal(t, "hello", ev.Text)
}

func TestToUpdateFromCallback(t *testing.T) {
	upd := tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-1",
			Data:    "tool:1",
			From:    &tgbotapi.User{ID: 7, UserName: "dev"},
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
		},
	}
	ev, ok := toUpdate(upd)
	require.True(t, ok)
	assert.Equal(t, "cb-1", ev.CallbackID)
	assert.Equal(t, "tool:1", ev.CallbackData)
	assert.Equal(t, int64(100), ev.ChatID)
}

func TestToUpdateIgnoresUnknownUpdate(t *testing.T) {
	_, ok := toUpdate(tgbotapi.Update{})
	assert.False(t, ok)
}
