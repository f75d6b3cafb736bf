// Package notify 把会话变更事件转换成各个界面消费的实时数据
// 未读会话数（角标）、会话列表、单个会话的消息列表都通过同一种订阅模型推送
package notify

import (
	"context"
	"time"

	"support_chat_server/internal/dao/mysql/repository"
	"support_chat_server/internal/infrastructure/mq"
	"support_chat_server/internal/model"
	"support_chat_server/internal/service/conversation"
	"support_chat_server/internal/service/message"
	"support_chat_server/pkg/errorx"
)

// notifyService 只读，不修改任何状态
type notifyService struct {
	repos   *repository.Repositories
	bus     mq.EventBus
	timeout time.Duration
}

// NewNotifyService timeout 为订阅首次加载的最长等待
func NewNotifyService(repos *repository.Repositories, bus mq.EventBus, timeout time.Duration) *notifyService {
	return &notifyService{repos: repos, bus: bus, timeout: timeout}
}

// CountUnread 统计 actor 有未读消息且未关闭的会话数
func CountUnread(conversations []model.Conversation, actor model.Identity) int {
	n := 0
	for i := range conversations {
		c := &conversations[i]
		if actor.Role == model.RoleCustomer && c.CustomerId != actor.Id {
			continue
		}
		if c.Status != model.StatusClosed && c.UnreadFor(actor.Role) > 0 {
			n++
		}
	}
	return n
}

// relevantTo 客服关心所有会话，顾客只关心自己的
func relevantTo(actor model.Identity) func(mq.ChangeEvent) bool {
	return func(e mq.ChangeEvent) bool {
		if actor.Role == model.RoleStaff {
			return true
		}
		return e.CustomerId == actor.Id
	}
}

func checkRole(actor model.Identity) error {
	if actor.Role != model.RoleCustomer && actor.Role != model.RoleStaff {
		return errorx.ErrPermissionDenied
	}
	return nil
}

// UnreadCount 一次性读取未读会话数
func (s *notifyService) UnreadCount(ctx context.Context, actor model.Identity) (int, error) {
	if err := checkRole(actor); err != nil {
		return 0, err
	}
	conversations, err := conversation.LoadFor(s.repos.WithContext(ctx), actor)
	if err != nil {
		return 0, err
	}
	return CountUnread(conversations, actor), nil
}

// SubscribeUnreadCount 订阅未读会话数，每次相关会话变化都会推送新值
func (s *notifyService) SubscribeUnreadCount(actor model.Identity) (*Subscription[int], error) {
	if err := checkRole(actor); err != nil {
		return nil, err
	}
	return subscribe(s.bus, relevantTo(actor), func(ctx context.Context) (int, error) {
		return s.UnreadCount(ctx, actor)
	}, s.timeout), nil
}

// SubscribeConversations 订阅会话列表，按最近活动时间倒序
func (s *notifyService) SubscribeConversations(actor model.Identity) (*Subscription[[]model.Conversation], error) {
	if err := checkRole(actor); err != nil {
		return nil, err
	}
	return subscribe(s.bus, relevantTo(actor), func(ctx context.Context) ([]model.Conversation, error) {
		conversations, err := conversation.LoadFor(s.repos.WithContext(ctx), actor)
		if err != nil {
			return nil, err
		}
		return conversation.SortConversations(conversations), nil
	}, s.timeout), nil
}

// SubscribeMessages 订阅单个会话的消息，按 sentAt 升序
// 会话不存在或无权查看时直接返回错误
func (s *notifyService) SubscribeMessages(ctx context.Context, actor model.Identity, conversationId string) (*Subscription[[]model.Message], error) {
	if err := checkRole(actor); err != nil {
		return nil, err
	}
	if _, err := message.LoadVisible(s.repos.WithContext(ctx), conversationId, actor); err != nil {
		return nil, err
	}
	relevant := func(e mq.ChangeEvent) bool { return e.ConversationId == conversationId }
	return subscribe(s.bus, relevant, func(ctx context.Context) ([]model.Message, error) {
		messages, err := s.repos.WithContext(ctx).Message.FindByConversationId(conversationId)
		if err != nil {
			return nil, err
		}
		return message.SortMessages(messages), nil
	}, s.timeout), nil
}
