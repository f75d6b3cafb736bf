package respond

import (
	"time"

	"support_chat_server/internal/model"
)

// ConversationRespond 会话响应
// 使用位置:
//   - internal/handler/conversation_handler.go
//   - internal/gateway/websocket/client.go: conversations 推送
type ConversationRespond struct {
	Id                     string     `json:"id"`
	CustomerId             string     `json:"customerId"`
	CustomerName           string     `json:"customerName"`
	CustomerEmail          string     `json:"customerEmail,omitempty"`
	StaffId                string     `json:"staffId,omitempty"`
	StaffName              string     `json:"staffName,omitempty"`
	Status                 string     `json:"status"`
	Priority               string     `json:"priority"`
	Category               string     `json:"category"`
	OrderId                string     `json:"orderId,omitempty"`
	LastMessage            string     `json:"lastMessage,omitempty"`
	LastMessageTime        *time.Time `json:"lastMessageTime,omitempty"`
	UnreadCountForCustomer int        `json:"unreadCountForCustomer"`
	UnreadCountForStaff    int        `json:"unreadCountForStaff"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NewConversationRespond 模型转响应
func NewConversationRespond(c *model.Conversation) ConversationRespond {
	return ConversationRespond{
		Id:                     c.Uuid,
		CustomerId:             c.CustomerId,
		CustomerName:           c.CustomerName,
		CustomerEmail:          c.CustomerEmail,
		StaffId:                deref(c.StaffId),
		StaffName:              deref(c.StaffName),
		Status:                 string(c.Status),
		Priority:               string(c.Priority),
		Category:               string(c.Category),
		OrderId:                deref(c.OrderId),
		LastMessage:            c.LastMessage,
		LastMessageTime:        c.LastMessageTime,
		UnreadCountForCustomer: c.UnreadCountForCustomer,
		UnreadCountForStaff:    c.UnreadCountForStaff,
		CreatedAt:              c.CreatedAt,
		UpdatedAt:              c.UpdatedAt,
	}
}

// NewConversationListRespond 保持传入顺序
func NewConversationListRespond(list []model.Conversation) []ConversationRespond {
	res := make([]ConversationRespond, 0, len(list))
	for i := range list {
		res = append(res, NewConversationRespond(&list[i]))
	}
	return res
}
