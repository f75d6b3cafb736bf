// Package message 实现消息发送管道与按时间排序的读取路径
package message

import (
	"context"
	"time"

	"support_chat_server/internal/dao/mysql/repository"
	"support_chat_server/internal/infrastructure/mq"
	"support_chat_server/internal/model"
	"support_chat_server/pkg/errorx"
	"support_chat_server/pkg/util/snowflake"

	"go.uber.org/zap"
)

// messageService 消息业务逻辑实现
// 通过构造函数注入 Repository 与事件总线
type messageService struct {
	repos *repository.Repositories
	bus   mq.EventBus
	now   func() time.Time
}

// NewMessageService 构造函数，注入所有依赖
func NewMessageService(repos *repository.Repositories, bus mq.EventBus) *messageService {
	return &messageService{
		repos: repos,
		bus:   bus,
		now:   time.Now,
	}
}

// Send 发送一条消息
// 在同一个事务中：写入消息、刷新会话摘要、waiting 自动转为 active、累加接收方未读数
// 系统消息只能由服务端合成，不接受外部发送
func (s *messageService) Send(ctx context.Context, conversationId string, sender model.Identity, content model.MessageContent) (*model.Message, error) {
	if sender.Role != model.RoleCustomer && sender.Role != model.RoleStaff {
		return nil, errorx.ErrPermissionDenied
	}
	if _, ok := content.(model.SystemContent); ok {
		return nil, errorx.Wrap(errorx.ErrPermissionDenied, errorx.CodePermissionDenied, "系统消息不能由用户发送")
	}
	if err := model.ValidateContent(content); err != nil {
		return nil, err
	}

	var (
		msg  *model.Message
		conv *model.Conversation
	)
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		c, err := LoadVisible(tx, conversationId, sender)
		if err != nil {
			return err
		}
		if c.Status == model.StatusClosed {
			return errorx.New(errorx.CodeInvalidTransition, "会话已关闭，请重新打开后再发送")
		}

		updates := map[string]interface{}{}
		if c.Status == model.StatusWaiting {
			updates["status"] = model.StatusActive
		}
		if sender.Role == model.RoleStaff && c.StaffId == nil {
			updates["staff_id"] = sender.Id
			updates["staff_name"] = sender.Name
		}
		msg, err = Append(tx, c, sender, content, s.now(), updates)
		conv = c
		return err
	})
	if err != nil {
		zap.L().Warn("发送消息失败",
			zap.String("conversation_id", conversationId),
			zap.String("sender_id", sender.Id),
			zap.String("role", string(sender.Role)),
			zap.Error(err),
		)
		return nil, err
	}

	mq.PublishAfterCommit(ctx, s.bus, mq.ChangeEvent{
		Type:           mq.EventMessageCreated,
		ConversationId: conv.Uuid,
		CustomerId:     conv.CustomerId,
		MessageId:      msg.Uuid,
	})
	return msg, nil
}

// List 返回会话的全部消息，按 sentAt 升序
func (s *messageService) List(ctx context.Context, actor model.Identity, conversationId string) ([]model.Message, error) {
	repos := s.repos.WithContext(ctx)
	if _, err := LoadVisible(repos, conversationId, actor); err != nil {
		return nil, err
	}
	messages, err := repos.Message.FindByConversationId(conversationId)
	if err != nil {
		zap.L().Error("查询消息失败", zap.String("conversation_id", conversationId), zap.Error(err))
		return nil, err
	}
	return SortMessages(messages), nil
}

// Append 在事务内追加一条消息并同步更新会话
// sentAt 不早于会话当前的 lastMessageTime，保证会话内时间不回退
// updates 为调用方需要一并写入的会话字段，可以为 nil
func Append(tx *repository.Repositories, conv *model.Conversation, sender model.Identity, content model.MessageContent, now time.Time, updates map[string]interface{}) (*model.Message, error) {
	sentAt := now
	if conv.LastMessageTime != nil && sentAt.Before(*conv.LastMessageTime) {
		sentAt = *conv.LastMessageTime
	}

	msg := model.NewMessage(snowflake.NextId(), conv.Uuid, sender, content, sentAt)
	if err := tx.Message.Create(msg); err != nil {
		return nil, err
	}

	recipient := model.RecipientOf(sender.Role)
	column := model.UnreadColumn(recipient)
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["last_message"] = model.Preview(content)
	updates["last_message_time"] = sentAt
	updates[column] = repository.IncrementExpr(column)
	if err := tx.Conversation.UpdateFields(conv.Uuid, updates); err != nil {
		return nil, err
	}

	conv.LastMessage = model.Preview(content)
	conv.LastMessageTime = &sentAt
	if recipient == model.RoleStaff {
		conv.UnreadCountForStaff++
	} else {
		conv.UnreadCountForCustomer++
	}
	return msg, nil
}

// LoadVisible 查找会话并校验 actor 的可见性
func LoadVisible(repos *repository.Repositories, conversationId string, actor model.Identity) (*model.Conversation, error) {
	conv, err := repos.Conversation.FindByUuid(conversationId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.Wrapf(err, errorx.CodeNotFound, "会话 %s 不存在", conversationId)
		}
		return nil, err
	}
	if !conv.VisibleTo(actor) {
		return nil, errorx.ErrPermissionDenied
	}
	return conv, nil
}
