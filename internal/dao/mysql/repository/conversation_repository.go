package repository

import (
	"support_chat_server/internal/model"

	"gorm.io/gorm"
)

// conversationRepository ConversationRepository 接口的实现
type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建 ConversationRepository 实例
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// FindByUuid 根据 UUID 查找会话
func (r *conversationRepository) FindByUuid(uuid string) (*model.Conversation, error) {
	var conversation model.Conversation
	if err := r.db.Where("uuid = ?", uuid).First(&conversation).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话 uuid=%s", uuid)
	}
	return &conversation, nil
}

// FindOpenByCustomerId 查找顾客进行中的会话
func (r *conversationRepository) FindOpenByCustomerId(customerId string) (*model.Conversation, error) {
	var conversation model.Conversation
	err := r.db.Where("customer_id = ? AND status IN ?", customerId,
		[]model.ConversationStatus{model.StatusWaiting, model.StatusActive}).
		Take(&conversation).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询进行中会话 customer_id=%s", customerId)
	}
	return &conversation, nil
}

// FindByCustomerId 查找顾客的全部会话
func (r *conversationRepository) FindByCustomerId(customerId string) ([]model.Conversation, error) {
	var conversations []model.Conversation
	if err := r.db.Where("customer_id = ?", customerId).Find(&conversations).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话列表 customer_id=%s", customerId)
	}
	return conversations, nil
}

// FindAll 查找所有会话
func (r *conversationRepository) FindAll() ([]model.Conversation, error) {
	var conversations []model.Conversation
	if err := r.db.Find(&conversations).Error; err != nil {
		return nil, wrapDBError(err, "查询全部会话")
	}
	return conversations, nil
}

// Create 创建会话
func (r *conversationRepository) Create(conversation *model.Conversation) error {
	if err := r.db.Create(conversation).Error; err != nil {
		return wrapDBErrorf(err, "创建会话 customer_id=%s", conversation.CustomerId)
	}
	return nil
}

// UpdateFields 按 UUID 更新会话字段
// updates 的值可以是 gorm.Expr，用于计数器自增
// 不校验影响行数，MySQL 对未变化的行返回 0，调用方需先确认会话存在
func (r *conversationRepository) UpdateFields(uuid string, updates map[string]interface{}) error {
	if err := r.db.Model(&model.Conversation{}).Where("uuid = ?", uuid).Updates(updates).Error; err != nil {
		return wrapDBErrorf(err, "更新会话 uuid=%s", uuid)
	}
	return nil
}

// SetUnread 写入 reader 视角的未读计数
func (r *conversationRepository) SetUnread(uuid string, reader model.Role, count int64) error {
	if count < 0 {
		count = 0
	}
	return r.UpdateFields(uuid, map[string]interface{}{model.UnreadColumn(reader): count})
}

// IncrementExpr 生成 "column + 1" 表达式，配合 UpdateFields 在一条 UPDATE 中自增计数
func IncrementExpr(column string) interface{} {
	return gorm.Expr(column+" + ?", 1)
}
