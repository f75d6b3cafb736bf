package request

// WsActionRequest WebSocket 客户端上行动作
// Action 取值: open / signal / close / mark_read / send
type WsActionRequest struct {
	Action         string             `json:"action"`
	ConversationId string             `json:"conversationId"`
	Message        SendMessageRequest `json:"message"`
}
