package message

import (
	"sort"

	"support_chat_server/internal/model"
)

// SortMessages 按 sentAt 升序原地排序，时间相同时按存储 ID 排序
// 存储层查询不保证顺序，所有读路径都必须经过这一步
func SortMessages(messages []model.Message) []model.Message {
	sort.SliceStable(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		if !a.SentAt.Equal(b.SentAt) {
			return a.SentAt.Before(b.SentAt)
		}
		return a.ID < b.ID
	})
	return messages
}
