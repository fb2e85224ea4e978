package service

import (
	"errors"
	"time"

	"direct-chat-relay/backend/internal/models"

	"gorm.io/gorm"
)

// MessageService is the durable message store. Records are inserted once and
// only ever touched again to flip the delivered and read flags.
type MessageService struct {
	db *gorm.DB
}

// NewMessageService creates a new message service
func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

// Append persists a new message record. The id is assigned by the store and
// the timestamp is set here if the caller left it zero.
func (s *MessageService) Append(msg *models.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return s.db.Create(msg).Error
}

// MarkDelivered flips the delivered flag on a stored message
func (s *MessageService) MarkDelivered(id uint) error {
	return s.db.Model(&models.Message{}).
		Where("id = ?", id).
		Update("delivered", true).Error
}

// MarkRead flips the read flag and returns the updated record so the caller
// can learn the sender. Read implies delivered, and the store does not
// cascade, so both flags are written here. An unknown id returns (nil, nil):
// the receipt is treated as a no-op, not an error.
func (s *MessageService) MarkRead(id uint) (*models.Message, error) {
	result := s.db.Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"read":      true,
			"delivered": true,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}

	var msg models.Message
	if err := s.db.First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// History returns a conversation's messages ordered by timestamp
func (s *MessageService) History(conversationID string, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	return messages, err
}
