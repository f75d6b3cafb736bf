package respond

// WsFrame WebSocket 下行帧
// Type 取值: unread_count / conversations / messages / message_sent / read / error
type WsFrame struct {
	Type           string `json:"type"`
	ConversationId string `json:"conversationId,omitempty"`
	Code           int    `json:"code"`
	Msg            string `json:"msg,omitempty"`
	Data           any    `json:"data,omitempty"`
}
