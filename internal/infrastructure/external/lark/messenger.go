package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/business-trip/internal/application/port"
	"github.com/garyjia/business-trip/internal/domain/entity"
	"github.com/garyjia/business-trip/pkg/utils"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// ErrNoAddress is returned when a recipient has neither an open_id nor an email
var ErrNoAddress = errors.New("recipient has no Lark address")

// MessageSender sends one raw IM message
type MessageSender interface {
	SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error)
}

// MessageAPI sends IM messages through the Lark SDK
type MessageAPI struct {
	client *SDKClient
	logger *zap.Logger
}

// NewMessageAPI creates a new message API handler
func NewMessageAPI(client *SDKClient, logger *zap.Logger) *MessageAPI {
	return &MessageAPI{
		client: client,
		logger: logger,
	}
}

// SendMessage sends a message and returns its Lark message ID
func (m *MessageAPI) SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error) {
	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(larkIm.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := m.client.GetClient().Im.Message.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", receiveID),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	return messageID, nil
}

// Notifier implements port.Notifier by sending a plain-text IM to the recipient
type Notifier struct {
	sender MessageSender
	logger *zap.Logger
}

// NewNotifier creates a new Lark notifier
func NewNotifier(sender MessageSender, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		logger: logger,
	}
}

// Notify sends msg to the recipient's open_id, falling back to their email
func (n *Notifier) Notify(ctx context.Context, recipient *entity.User, msg *entity.Message) error {
	if recipient == nil {
		return ErrNoAddress
	}

	idType, id := "open_id", recipient.LarkOpenID
	if id == "" {
		idType, id = "email", recipient.Email
	}
	if id == "" {
		return fmt.Errorf("user %d: %w", recipient.ID, ErrNoAddress)
	}

	content, err := textContent(msg)
	if err != nil {
		return err
	}

	messageID, err := n.sender.SendMessage(ctx, idType, id, "text", content)
	if err != nil {
		return err
	}

	n.logger.Info("Chatter message delivered",
		zap.Int64("trip_id", msg.TripID),
		zap.Int64("recipient_id", recipient.ID),
		zap.String("lark_message_id", messageID))
	return nil
}

// textContent renders the message as Lark text content
func textContent(msg *entity.Message) (string, error) {
	var b strings.Builder
	if msg.Subject != "" {
		b.WriteString(msg.Subject)
		b.WriteString("\n")
	}
	b.WriteString(utils.StripHTML(msg.Body))

	content, err := json.Marshal(map[string]string{"text": b.String()})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message content: %w", err)
	}
	return string(content), nil
}

// Verify interface compliance
var _ port.Notifier = (*Notifier)(nil)
