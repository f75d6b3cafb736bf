// Package conversation 实现客服会话的生命周期管理
// 创建会话、状态流转、优先级调整，以及欢迎语和关闭提示的系统消息
package conversation

import (
	"context"
	"sort"
	"strings"
	"time"

	"support_chat_server/internal/config"
	"support_chat_server/internal/dao/mysql/repository"
	"support_chat_server/internal/infrastructure/mq"
	"support_chat_server/internal/model"
	"support_chat_server/internal/service/message"
	"support_chat_server/pkg/errorx"
	"support_chat_server/pkg/util/random"

	"go.uber.org/zap"
)

// OpenOptions 新建会话时的可选信息
type OpenOptions struct {
	Category model.Category
	OrderId  string // 订单上下文提供的订单号
}

// conversationService 会话生命周期实现
type conversationService struct {
	repos *repository.Repositories
	bus   mq.EventBus
	chat  config.ChatConfig
	now   func() time.Time
}

// NewConversationService 构造函数，注入所有依赖
func NewConversationService(repos *repository.Repositories, bus mq.EventBus, chat config.ChatConfig) *conversationService {
	return &conversationService{
		repos: repos,
		bus:   bus,
		chat:  chat,
		now:   time.Now,
	}
}

// GetOrCreate 返回顾客进行中的会话，没有则新建一个 waiting 会话并发送欢迎语
func (s *conversationService) GetOrCreate(ctx context.Context, customer model.Identity, opts OpenOptions) (*model.Conversation, error) {
	if customer.Role != model.RoleCustomer {
		return nil, errorx.ErrPermissionDenied
	}
	return s.open(ctx, customer, opts, nil)
}

// StartForCustomer 客服主动为顾客发起会话
// 顾客已有进行中的会话时直接返回，否则新建一个由该客服接待的 active 会话
func (s *conversationService) StartForCustomer(ctx context.Context, staff model.Identity, customer model.Identity, opts OpenOptions) (*model.Conversation, error) {
	if staff.Role != model.RoleStaff {
		return nil, errorx.ErrPermissionDenied
	}
	if strings.TrimSpace(customer.Id) == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "缺少顾客 ID")
	}
	customer.Role = model.RoleCustomer
	return s.open(ctx, customer, opts, &staff)
}

func (s *conversationService) open(ctx context.Context, customer model.Identity, opts OpenOptions, staff *model.Identity) (*model.Conversation, error) {
	category := opts.Category
	if category == "" {
		category = model.CategoryGeneral
	}
	if !category.Valid() {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "未知的会话分类 %q", category)
	}

	// 1. 幂等性检查：已有进行中的会话直接返回
	existing, err := s.repos.WithContext(ctx).Conversation.FindOpenByCustomerId(customer.Id)
	if err == nil {
		return existing, nil
	}
	if !errorx.IsNotFound(err) {
		zap.L().Error("查询进行中会话失败", zap.String("customer_id", customer.Id), zap.Error(err))
		return nil, err
	}

	// 2. 构建新会话
	openKey := customer.Id
	conv := &model.Conversation{
		Uuid:          random.DatedId("C", 13),
		CustomerId:    customer.Id,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		OpenKey:       &openKey,
		Status:        model.StatusWaiting,
		Priority:      model.PriorityMedium,
		Category:      category,
	}
	if opts.OrderId != "" {
		orderId := opts.OrderId
		conv.OrderId = &orderId
	}
	if staff != nil {
		staffId, staffName := staff.Id, staff.Name
		conv.Status = model.StatusActive
		conv.StaffId = &staffId
		conv.StaffName = &staffName
	}

	// 3. 会话与欢迎语在同一事务内写入
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Conversation.Create(conv); err != nil {
			return err
		}
		_, err := message.Append(tx, conv, model.SystemIdentity, model.SystemContent{Text: s.chat.Welcome()}, s.now(), nil)
		return err
	})
	if errorx.HasCode(err, errorx.CodeConflict) {
		// 并发创建时唯一索引拒绝了后到的一方，返回先创建成功的会话
		zap.L().Info("并发创建会话，返回已存在的会话", zap.String("customer_id", customer.Id))
		return s.repos.WithContext(ctx).Conversation.FindOpenByCustomerId(customer.Id)
	}
	if err != nil {
		zap.L().Error("创建会话失败", zap.String("customer_id", customer.Id), zap.Error(err))
		return nil, err
	}

	zap.L().Info("创建会话成功",
		zap.String("conversation_id", conv.Uuid),
		zap.String("customer_id", conv.CustomerId),
		zap.String("status", string(conv.Status)),
	)
	s.publish(ctx, conv)
	return conv, nil
}

// SetStatus 客服修改会话状态
// assign 不为空时同时记录接待客服；进入 closed 时追加一条系统关闭提示
// 状态不变时只刷新 updatedAt
func (s *conversationService) SetStatus(ctx context.Context, actor model.Identity, conversationId string, status model.ConversationStatus, assign *model.Identity) (*model.Conversation, error) {
	if actor.Role != model.RoleStaff {
		return nil, errorx.ErrPermissionDenied
	}
	if !status.Valid() {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "未知的会话状态 %q", status)
	}

	var conv *model.Conversation
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		c, err := message.LoadVisible(tx, conversationId, actor)
		if err != nil {
			return err
		}
		if !c.Status.CanTransitionTo(status) {
			return errorx.Wrapf(errorx.ErrInvalidTransition, errorx.CodeInvalidTransition,
				"会话状态不能从 %s 变为 %s", c.Status, status)
		}
		conv = c
		now := s.now()

		updates := map[string]interface{}{}
		if assign != nil {
			updates["staff_id"] = assign.Id
			updates["staff_name"] = assign.Name
		}

		switch {
		case c.Status == status:
			updates["updated_at"] = now
			return tx.Conversation.UpdateFields(c.Uuid, updates)
		case status == model.StatusClosed:
			updates["status"] = status
			updates["open_key"] = nil
			_, err := message.Append(tx, c, model.SystemIdentity, model.SystemContent{Text: s.chat.Closing()}, now, updates)
			return err
		case c.Status == model.StatusClosed:
			// 重新打开时恢复唯一键，顾客已有其他进行中的会话则拒绝
			updates["status"] = status
			updates["open_key"] = c.CustomerId
			err := tx.Conversation.UpdateFields(c.Uuid, updates)
			if errorx.HasCode(err, errorx.CodeConflict) {
				return errorx.Wrap(err, errorx.CodeConflict, "顾客已有进行中的会话，无法重新打开")
			}
			return err
		default:
			updates["status"] = status
			return tx.Conversation.UpdateFields(c.Uuid, updates)
		}
	})
	if err != nil {
		zap.L().Warn("修改会话状态失败",
			zap.String("conversation_id", conversationId),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return nil, err
	}

	s.publish(ctx, conv)
	return s.repos.WithContext(ctx).Conversation.FindByUuid(conversationId)
}

// SetPriority 客服修改会话优先级，不产生系统消息
func (s *conversationService) SetPriority(ctx context.Context, actor model.Identity, conversationId string, priority model.Priority) (*model.Conversation, error) {
	if actor.Role != model.RoleStaff {
		return nil, errorx.ErrPermissionDenied
	}
	if !priority.Valid() {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "未知的优先级 %q", priority)
	}

	repos := s.repos.WithContext(ctx)
	conv, err := message.LoadVisible(repos, conversationId, actor)
	if err != nil {
		return nil, err
	}
	if err := repos.Conversation.UpdateFields(conversationId, map[string]interface{}{"priority": priority}); err != nil {
		zap.L().Error("修改优先级失败", zap.String("conversation_id", conversationId), zap.Error(err))
		return nil, err
	}
	s.publish(ctx, conv)
	return repos.Conversation.FindByUuid(conversationId)
}

// Get 查询单个会话
func (s *conversationService) Get(ctx context.Context, actor model.Identity, conversationId string) (*model.Conversation, error) {
	return message.LoadVisible(s.repos.WithContext(ctx), conversationId, actor)
}

// List 顾客返回自己的会话，客服返回全部会话，按最近活动时间倒序
func (s *conversationService) List(ctx context.Context, actor model.Identity) ([]model.Conversation, error) {
	conversations, err := LoadFor(s.repos.WithContext(ctx), actor)
	if err != nil {
		return nil, err
	}
	return SortConversations(conversations), nil
}

// LoadFor 按角色加载会话集合，不排序
func LoadFor(repos *repository.Repositories, actor model.Identity) ([]model.Conversation, error) {
	switch actor.Role {
	case model.RoleCustomer:
		return repos.Conversation.FindByCustomerId(actor.Id)
	case model.RoleStaff:
		return repos.Conversation.FindAll()
	}
	return nil, errorx.ErrPermissionDenied
}

// SortConversations 按最近活动时间倒序，时间相同时新建的在前
func SortConversations(conversations []model.Conversation) []model.Conversation {
	sort.SliceStable(conversations, func(i, j int) bool {
		a, b := conversations[i].ActivityTime(), conversations[j].ActivityTime()
		if !a.Equal(b) {
			return a.After(b)
		}
		return conversations[i].ID > conversations[j].ID
	})
	return conversations
}

func (s *conversationService) publish(ctx context.Context, conv *model.Conversation) {
	mq.PublishAfterCommit(ctx, s.bus, mq.ChangeEvent{
		Type:           mq.EventConversationChanged,
		ConversationId: conv.Uuid,
		CustomerId:     conv.CustomerId,
	})
}
