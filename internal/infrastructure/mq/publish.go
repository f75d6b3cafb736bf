package mq

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// publishTimeout 事务提交后发布事件的最长等待
const publishTimeout = 2 * time.Second

// PublishAfterCommit 在写操作提交后发布事件
// 与请求的取消解耦，发布失败只记录日志，已提交的写入不回滚
func PublishAfterCommit(ctx context.Context, bus EventBus, event ChangeEvent) {
	if bus == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := bus.Publish(ctx, event); err != nil {
		zap.L().Warn("发布会话变更事件失败",
			zap.String("type", string(event.Type)),
			zap.String("conversation_id", event.ConversationId),
			zap.Error(err),
		)
	}
}
