package request

// SendMessageRequest 发送消息请求
// 使用位置:
//   - internal/handler/message_handler.go: Send
//   - internal/gateway/websocket/client.go: send 动作
type SendMessageRequest struct {
	Kind          string `json:"kind" binding:"omitempty,oneof=text image"`
	Body          string `json:"body"`
	AttachmentUrl string `json:"attachmentUrl" binding:"omitempty,url"`
}

// MarkReadRequest 标记已读请求
// MessageIds 为空时标记会话内所有发给自己的消息
type MarkReadRequest struct {
	MessageIds []string `json:"messageIds"`
}
