package lark

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/garyjia/personal-ledger/internal/application/port"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// Messenger implements port.Notifier by sending Lark text messages
type Messenger struct {
	messages      MessageCreator
	receiveIDType string
	logger        *zap.Logger
}

var _ port.Notifier = (*Messenger)(nil)

// NewMessenger creates a new Lark message sender adapter
func NewMessenger(sdk *SDKClient, logger *zap.Logger) *Messenger {
	return NewMessengerWithAPI(sdk.Messages(), sdk.ReceiveIDType(), logger)
}

// NewMessengerWithAPI creates a messenger on top of an explicit message API
func NewMessengerWithAPI(messages MessageCreator, receiveIDType string, logger *zap.Logger) *Messenger {
	if receiveIDType == "" {
		receiveIDType = receiveIDTypeOpenID
	}
	return &Messenger{
		messages:      messages,
		receiveIDType: receiveIDType,
		logger:        logger,
	}
}

// Notify sends message to userID, followed by link on its own line
func (m *Messenger) Notify(ctx context.Context, userID, message, link string) error {
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}
	if message == "" {
		return fmt.Errorf("message cannot be empty")
	}

	content, err := textContent(message, link)
	if err != nil {
		return err
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(m.receiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(userID).
			MsgType(msgTypeText).
			Content(content).
			Build()).
		Build()

	resp, err := m.messages.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("lark API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	m.logger.Debug("Message sent",
		zap.String("message_id", messageID),
		zap.String("receive_id", userID))
	return nil
}

func textContent(message, link string) (string, error) {
	text := message
	if link != "" {
		text += "\n" + link
	}
	data, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to encode message content: %w", err)
	}
	return string(data), nil
}

// LogNotifier writes notifications to the log. It is used when Lark
// delivery is disabled.
type LogNotifier struct {
	logger *zap.Logger
}

var _ port.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification
func (n *LogNotifier) Notify(_ context.Context, userID, message, link string) error {
	n.logger.Info("Notification",
		zap.String("user_id", userID),
		zap.String("message", message),
		zap.String("link", link))
	return nil
}
