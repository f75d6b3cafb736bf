// Package receipt 实现已读回执与未读计数维护
// 被动已读由 ViewSession 驱动，带延迟与节流；显式标记已读不受节流限制
package receipt

import (
	"context"
	"time"

	"support_chat_server/internal/dao/mysql/repository"
	"support_chat_server/internal/infrastructure/mq"
	"support_chat_server/internal/model"
	"support_chat_server/internal/service/message"
	"support_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// receiptService 已读回执实现
type receiptService struct {
	repos    *repository.Repositories
	bus      mq.EventBus
	throttle Throttle
	delay    time.Duration
	window   time.Duration
}

// NewReceiptService 构造函数
// delay 为会话可见后开始被动已读的延迟，window 为同一会话两次被动已读的最小间隔
func NewReceiptService(repos *repository.Repositories, bus mq.EventBus, throttle Throttle, delay, window time.Duration) *receiptService {
	return &receiptService{
		repos:    repos,
		bus:      bus,
		throttle: throttle,
		delay:    delay,
		window:   window,
	}
}

// readerOf 已读只能由会话双方执行，读者角色取自操作者身份
func readerOf(actor model.Identity) (model.Role, error) {
	switch actor.Role {
	case model.RoleCustomer, model.RoleStaff:
		return actor.Role, nil
	}
	return "", errorx.ErrPermissionDenied
}

// MarkRead 将 messageIds 中发给 actor 的未读消息标记为已读
// 未读数按剩余未读消息重新计算，返回 actor 视角的最新未读数
// 已读的消息不会变回未读，重复调用结果相同
func (s *receiptService) MarkRead(ctx context.Context, actor model.Identity, conversationId string, messageIds []string) (int, error) {
	reader, err := readerOf(actor)
	if err != nil {
		return 0, err
	}

	var (
		remaining int64
		changed   bool
		conv      *model.Conversation
	)
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		c, err := message.LoadVisible(tx, conversationId, actor)
		if err != nil {
			return err
		}
		conv = c

		var affected int64
		if len(messageIds) > 0 {
			affected, err = tx.Message.MarkRead(conversationId, messageIds, reader)
			if err != nil {
				return err
			}
		}
		remaining, err = tx.Message.CountUnread(conversationId, reader)
		if err != nil {
			return err
		}
		if affected == 0 && int(remaining) == c.UnreadFor(reader) {
			return nil
		}
		changed = true
		return tx.Conversation.SetUnread(conversationId, reader, remaining)
	})
	if err != nil {
		zap.L().Warn("标记已读失败",
			zap.String("conversation_id", conversationId),
			zap.String("role", string(reader)),
			zap.Error(err),
		)
		return 0, err
	}

	if changed {
		mq.PublishAfterCommit(ctx, s.bus, mq.ChangeEvent{
			Type:           mq.EventMessagesRead,
			ConversationId: conversationId,
			CustomerId:     conv.CustomerId,
		})
	}
	return int(remaining), nil
}

// MarkConversationRead 将会话中所有发给 actor 的未读消息标记为已读
func (s *receiptService) MarkConversationRead(ctx context.Context, actor model.Identity, conversationId string) (int, error) {
	reader, err := readerOf(actor)
	if err != nil {
		return 0, err
	}
	repos := s.repos.WithContext(ctx)
	if _, err := message.LoadVisible(repos, conversationId, actor); err != nil {
		return 0, err
	}
	messages, err := repos.Message.FindByConversationId(conversationId)
	if err != nil {
		return 0, err
	}

	var ids []string
	for i := range messages {
		if !messages[i].Read && messages[i].Recipient() == reader {
			ids = append(ids, messages[i].Uuid)
		}
	}
	return s.MarkRead(ctx, actor, conversationId, ids)
}

// OpenView 会话界面变为可见时调用，返回的 ViewSession 在界面关闭时必须 Close
func (s *receiptService) OpenView(actor model.Identity, conversationId string) *ViewSession {
	return NewViewSession(s, s.throttle, actor, conversationId, s.delay, s.window)
}
