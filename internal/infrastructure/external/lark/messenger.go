package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/entity"
)

// Recipients maps billing identities to Lark open ids
type Recipients struct {
	// Parties is the fallback receiver for each side of a bill
	Parties map[entity.Party]string
	// Users maps user ids to open ids and wins over Parties
	Users map[string]string
}

// Messenger implements port.Notifier with Lark IM text messages
type Messenger struct {
	client     *SDKClient
	recipients Recipients
	logger     *zap.Logger
}

// NewMessenger creates a new Lark notifier
func NewMessenger(client *SDKClient, recipients Recipients, logger *zap.Logger) *Messenger {
	return &Messenger{
		client:     client,
		recipients: recipients,
		logger:     logger,
	}
}

// Notify sends n to whoever it resolves to. Notifications without a known
// receiver are dropped with a log line.
func (m *Messenger) Notify(ctx context.Context, n port.Notification) error {
	if n.Text == "" {
		return fmt.Errorf("notification text cannot be empty")
	}

	openID := m.resolve(n)
	if openID == "" {
		m.logger.Info("No Lark receiver for notification, skipping",
			zap.String("party", string(n.Party)),
			zap.String("user_id", n.UserID),
			zap.String("bill_id", n.BillID))
		return nil
	}

	_, err := m.SendMessage(ctx, openID, n.Text)
	return err
}

// SendMessage sends a text message to one open id and returns the message id
func (m *Messenger) SendMessage(ctx context.Context, openID, text string) (string, error) {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}

	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType("open_id").
		Body(larkIm.NewCreateMessageReqBodyBuilder().
			ReceiveId(openID).
			MsgType("text").
			Content(string(content)).
			Build()).
		Build()

	resp, err := m.client.GetClient().Im.Message.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", openID),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", openID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Info("Message sent successfully",
		zap.String("message_id", messageID),
		zap.String("receive_id", openID))

	return messageID, nil
}

func (m *Messenger) resolve(n port.Notification) string {
	if n.UserID != "" {
		if openID, ok := m.recipients.Users[n.UserID]; ok {
			return openID
		}
		// keys loaded through viper arrive lowercased
		if openID, ok := m.recipients.Users[strings.ToLower(n.UserID)]; ok {
			return openID
		}
	}
	return m.recipients.Parties[n.Party]
}

// LogNotifier only logs notifications. It stands in when Lark is not configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs n
func (l *LogNotifier) Notify(ctx context.Context, n port.Notification) error {
	l.logger.Info("Notification",
		zap.String("party", string(n.Party)),
		zap.String("user_id", n.UserID),
		zap.String("bill_id", n.BillID),
		zap.String("text", n.Text))
	return nil
}

// Verify interface compliance
var (
	_ port.Notifier = (*Messenger)(nil)
	_ port.Notifier = (*LogNotifier)(nil)
)
