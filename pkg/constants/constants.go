package constants

const (
	EVENT_BUS_SIZE              = 1024 // 事件总线缓冲大小
	WS_SEND_BUFFER              = 64   // 单个 WebSocket 连接的待发送帧缓冲
	MAX_BODY_LENGTH             = 4000 // 单条消息最大字符数
	REDIS_TIMEOUT               = 1    // redis timeout (秒)
	READ_THROTTLE_KEY_PREFIX    = "chat:read_throttle:"
	KAFKA_CONSUMER_GROUP_PREFIX = "support-chat-"
)
