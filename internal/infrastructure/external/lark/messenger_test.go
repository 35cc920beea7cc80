package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/garyjia/business-trip/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMessage struct {
	idType  string
	id      string
	msgType string
	content string
}

type mockSender struct {
	sent []sentMessage
	err  error
}

func (m *mockSender) SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, sentMessage{receiveIDType, receiveID, msgType, content})
	return "om_1", nil
}

func TestNotifier_Notify(t *testing.T) {
	msg := &entity.Message{
		TripID:  7,
		Subject: "Trip for SO S00042",
		Body:    "<p>Your trip was <strong>approved</strong>.</p>",
	}

	t.Run("prefers open_id", func(t *testing.T) {
		sender := &mockSender{}
		n := NewNotifier(sender, zap.NewNop())

		err := n.Notify(context.Background(), &entity.User{ID: 1, LarkOpenID: "ou_1", Email: "a@example.com"}, msg)
		require.NoError(t, err)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "open_id", sender.sent[0].idType)
		assert.Equal(t, "ou_1", sender.sent[0].id)
		assert.Equal(t, "text", sender.sent[0].msgType)

		var content map[string]string
		require.NoError(t, json.Unmarshal([]byte(sender.sent[0].content), &content))
		assert.Equal(t, "Trip for SO S00042\nYour trip was approved .", content["text"])
	})

	t.Run("falls back to email", func(t *testing.T) {
		sender := &mockSender{}
		n := NewNotifier(sender, zap.NewNop())

		require.NoError(t, n.Notify(context.Background(), &entity.User{ID: 1, Email: "a@example.com"}, msg))
		assert.Equal(t, "email", sender.sent[0].idType)
		assert.Equal(t, "a@example.com", sender.sent[0].id)
	})

	t.Run("no address", func(t *testing.T) {
		sender := &mockSender{}
		n := NewNotifier(sender, zap.NewNop())

		err := n.Notify(context.Background(), &entity.User{ID: 1}, msg)
		assert.ErrorIs(t, err, ErrNoAddress)
		assert.Empty(t, sender.sent)
	})

	t.Run("send failure", func(t *testing.T) {
		boom := errors.New("code=230001")
		n := NewNotifier(&mockSender{err: boom}, zap.NewNop())

		err := n.Notify(context.Background(), &entity.User{ID: 1, LarkOpenID: "ou_1"}, msg)
		assert.ErrorIs(t, err, boom)
	})
}
