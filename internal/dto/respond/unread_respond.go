package respond

// UnreadCountRespond 未读会话数
type UnreadCountRespond struct {
	Count int `json:"count"`
}

// MarkReadRespond 标记已读后的剩余未读消息数
type MarkReadRespond struct {
	Remaining int `json:"remaining"`
}
