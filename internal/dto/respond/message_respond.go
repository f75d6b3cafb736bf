package respond

import (
	"time"

	"support_chat_server/internal/model"
)

// MessageRespond 消息响应
// 使用位置:
//   - internal/handler/message_handler.go
//   - internal/gateway/websocket/client.go: messages 推送
type MessageRespond struct {
	Id             string    `json:"id"`
	ConversationId string    `json:"conversationId"`
	SenderId       string    `json:"senderId"`
	SenderName     string    `json:"senderName"`
	SenderRole     string    `json:"senderRole"`
	Kind           string    `json:"kind"`
	Body           string    `json:"body"`
	AttachmentUrl  string    `json:"attachmentUrl,omitempty"`
	SentAt         time.Time `json:"sentAt"`
	Read           bool      `json:"read"`
}

// NewMessageRespond 模型转响应
func NewMessageRespond(m *model.Message) MessageRespond {
	return MessageRespond{
		Id:             m.Uuid,
		ConversationId: m.ConversationId,
		SenderId:       m.SenderId,
		SenderName:     m.SenderName,
		SenderRole:     string(m.SenderRole),
		Kind:           string(m.Kind),
		Body:           m.Body,
		AttachmentUrl:  m.AttachmentUrl,
		SentAt:         m.SentAt,
		Read:           m.Read,
	}
}

// NewMessageListRespond 保持传入顺序
func NewMessageListRespond(list []model.Message) []MessageRespond {
	res := make([]MessageRespond, 0, len(list))
	for i := range list {
		res = append(res, NewMessageRespond(&list[i]))
	}
	return res
}
