package repository

import (
	"support_chat_server/internal/model"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息 Repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// FindByConversationId 按会话查找消息
// 不加 ORDER BY，避免依赖复合索引，排序交给消息服务
func (r *messageRepository) FindByConversationId(conversationId string) ([]model.Message, error) {
	var messages []model.Message
	if err := r.db.Where("conversation_id = ?", conversationId).Find(&messages).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息 conversation_id=%s", conversationId)
	}
	return messages, nil
}

// Create 创建消息
func (r *messageRepository) Create(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return wrapDBErrorf(err, "创建消息 conversation_id=%s", message.ConversationId)
	}
	return nil
}

// MarkRead 只会改动发给 reader 且仍未读的消息，已读消息不受影响
func (r *messageRepository) MarkRead(conversationId string, uuids []string, reader model.Role) (int64, error) {
	if len(uuids) == 0 {
		return 0, nil
	}
	res := r.db.Model(&model.Message{}).
		Where("conversation_id = ? AND uuid IN ? AND sender_role IN ? AND is_read = ?",
			conversationId, uuids, model.SenderRolesFor(reader), false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "标记已读 conversation_id=%s", conversationId)
	}
	return res.RowsAffected, nil
}

// CountUnread 统计 reader 仍未读的消息数
func (r *messageRepository) CountUnread(conversationId string, reader model.Role) (int64, error) {
	var count int64
	err := r.db.Model(&model.Message{}).
		Where("conversation_id = ? AND sender_role IN ? AND is_read = ?",
			conversationId, model.SenderRolesFor(reader), false).
		Count(&count).Error
	if err != nil {
		return 0, wrapDBErrorf(err, "统计未读 conversation_id=%s", conversationId)
	}
	return count, nil
}
