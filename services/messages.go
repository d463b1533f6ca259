package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"courtside/models"
	"courtside/realtime"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	messagesTable  = "messages"
	maxMessageBody = 2000
)

type MessageService struct {
	DB        *gorm.DB
	Publisher realtime.Publisher
	Logger    *zap.Logger
}

func NewMessageService(db *gorm.DB, pub realtime.Publisher, logger *zap.Logger) *MessageService {
	return &MessageService{DB: db, Publisher: pub, Logger: logger}
}

func (s *MessageService) Send(ctx context.Context, senderID, recipientID, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	switch {
	case recipientID == "":
		return nil, invalid("recipient_id required")
	case recipientID == senderID:
		return nil, invalid("cannot message yourself")
	case body == "":
		return nil, invalid("body required")
	case utf8.RuneCountInString(body) > maxMessageBody:
		return nil, invalid("message too long")
	}

	msg := models.Message{
		ConversationID: models.ConversationKey(senderID, recipientID),
		SenderID:       senderID,
		RecipientID:    recipientID,
		Body:           body,
	}
	if err := s.DB.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, errors.Wrap(err, "send message")
	}
	// Subscribers filter on recipient_id.
	if s.Publisher != nil {
		c := realtime.NewChange(messagesTable, realtime.EventInsert, msg.ID, map[string]string{"recipient_id": recipientID})
		if err := s.Publisher.Publish(ctx, c); err != nil {
			s.Logger.Warn("publish message failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
	return &msg, nil
}

// Conversation pages backwards from before (zero = now), newest first.
func (s *MessageService) Conversation(ctx context.Context, userID, otherID string, before time.Time, limit int) ([]models.Message, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	q := s.DB.WithContext(ctx).Where("conversation_id = ?", models.ConversationKey(userID, otherID))
	if !before.IsZero() {
		q = q.Where("created_at < ?", before)
	}
	var out []models.Message
	err := q.Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, errors.Wrap(err, "load conversation")
}

// MarkRead marks one message read. Only the recipient may do so.
func (s *MessageService) MarkRead(ctx context.Context, messageID, userID string) (*models.Message, error) {
	var msg models.Message
	err := s.DB.WithContext(ctx).Where("id = ?", messageID).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load message")
	}
	if msg.RecipientID != userID {
		return nil, ErrForbidden
	}
	if msg.ReadAt != nil {
		return &msg, nil
	}
	now := utcNow()
	if err := s.DB.WithContext(ctx).Model(&msg).Where("read_at IS NULL").Update("read_at", now).Error; err != nil {
		return nil, errors.Wrap(err, "mark read")
	}
	msg.ReadAt = &now
	publishFor(ctx, s.Publisher, s.Logger, messagesTable, realtime.EventUpdate, msg.ID, msg.SenderID)
	return &msg, nil
}

func (s *MessageService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("recipient_id = ? AND read_at IS NULL", userID).
		Count(&n).Error
	return n, errors.Wrap(err, "count unread")
}
