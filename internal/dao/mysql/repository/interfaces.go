// Package repository 定义数据访问层接口和聚合结构
// 采用 Repository 模式将数据访问逻辑与业务逻辑分离
// 查询一律不在数据库侧排序，由调用方在内存中排序
package repository

import (
	"context"
	"errors"

	"support_chat_server/internal/model"
	"support_chat_server/pkg/errorx"

	"gorm.io/gorm"
)

// ==================== Repository 接口定义 ====================

// ConversationRepository 会话数据访问接口
type ConversationRepository interface {
	// FindByUuid 根据 UUID 查找会话
	FindByUuid(uuid string) (*model.Conversation, error)
	// FindOpenByCustomerId 查找顾客进行中（waiting/active）的会话
	FindOpenByCustomerId(customerId string) (*model.Conversation, error)
	// FindByCustomerId 查找顾客的全部会话
	FindByCustomerId(customerId string) ([]model.Conversation, error)
	// FindAll 查找所有会话（客服收件箱）
	FindAll() ([]model.Conversation, error)
	// Create 创建会话
	Create(conversation *model.Conversation) error
	// UpdateFields 按 UUID 更新会话字段，updated_at 自动刷新
	UpdateFields(uuid string, updates map[string]interface{}) error
	// SetUnread 直接写入 reader 视角的未读计数
	SetUnread(uuid string, reader model.Role, count int64) error
}

// MessageRepository 消息数据访问接口
type MessageRepository interface {
	// FindByConversationId 查找会话下的全部消息，不保证顺序
	FindByConversationId(conversationId string) ([]model.Message, error)
	// Create 写入一条消息
	Create(message *model.Message) error
	// MarkRead 将指定消息中 reader 未读的部分标记为已读，返回受影响行数
	MarkRead(conversationId string, uuids []string, reader model.Role) (int64, error)
	// CountUnread 统计会话中 reader 仍未读的消息数
	CountUnread(conversationId string, reader model.Role) (int64, error)
}

// ==================== Repository 聚合 ====================

// Repositories 聚合所有 Repository 实例
// 作为依赖注入的入口，Service 层通过此结构访问数据层
type Repositories struct {
	db           *gorm.DB
	Conversation ConversationRepository
	Message      MessageRepository
}

// NewRepositories 创建所有 Repository 实例
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:           db,
		Conversation: NewConversationRepository(db),
		Message:      NewMessageRepository(db),
	}
}

// WithContext 返回绑定 ctx 的 Repositories，ctx 取消或超时会中断查询
func (r *Repositories) WithContext(ctx context.Context) *Repositories {
	return NewRepositories(r.db.WithContext(ctx))
}

// Transaction 在数据库事务中执行函数
// 事务内的所有操作要么全部成功，要么全部回滚
// fn 内只能使用 txRepos，不能再访问外层 Repositories
func (r *Repositories) Transaction(ctx context.Context, fn func(txRepos *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// Ping 只读探测数据库连通性
func (r *Repositories) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return wrapDBError(err, "获取数据库连接池")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errorx.Wrap(err, errorx.CodeTimeout, "数据库探测超时")
		}
		return errorx.Wrap(err, errorx.CodeConnectivity, "数据库不可达")
	}
	return nil
}
