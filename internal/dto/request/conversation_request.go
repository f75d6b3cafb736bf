package request

// OpenConversationRequest 顾客打开会话请求
// 使用位置:
//   - internal/handler/conversation_handler.go: Open
type OpenConversationRequest struct {
	Category string `json:"category" binding:"omitempty,oneof=general order complaint support"`
	OrderId  string `json:"orderId" binding:"omitempty,max=64"`
}

// StartConversationRequest 客服发起会话请求
// 使用位置:
//   - internal/handler/conversation_handler.go: Start
type StartConversationRequest struct {
	CustomerId    string `json:"customerId" binding:"required,max=64"`
	CustomerName  string `json:"customerName" binding:"required,max=64"`
	CustomerEmail string `json:"customerEmail" binding:"omitempty,email"`
	Category      string `json:"category" binding:"omitempty,oneof=general order complaint support"`
	OrderId       string `json:"orderId" binding:"omitempty,max=64"`
}

// SetStatusRequest 修改会话状态请求
// Assign 为 true 时把当前客服记为接待人
type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=waiting active closed"`
	Assign bool   `json:"assign"`
}

// SetPriorityRequest 修改优先级请求
type SetPriorityRequest struct {
	Priority string `json:"priority" binding:"required,oneof=low medium high"`
}
