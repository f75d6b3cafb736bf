package mq

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"support_chat_server/internal/config"
	"support_chat_server/pkg/constants"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaBus 多实例模式下的事件总线
// 发布写入 Kafka，每个实例使用独立的消费组读取全部事件，再交给本地 ChannelBus 分发
type KafkaBus struct {
	writer *kafka.Writer
	reader *kafka.Reader
	local  *ChannelBus

	cfg    config.KafkaConfig
	ctx    context.Context
	cancel context.CancelFunc
}

var _ EventBus = (*KafkaBus)(nil)

// NewKafkaBus 创建 KafkaBus 实例
func NewKafkaBus(cfg config.KafkaConfig) *KafkaBus {
	timeout := cfg.Timeout * time.Second
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaBus{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.HostPort),
			Topic:                  cfg.EventTopic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           timeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: false,
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        []string{cfg.HostPort},
			Topic:          cfg.EventTopic,
			CommitInterval: timeout,
			GroupID:        constants.KAFKA_CONSUMER_GROUP_PREFIX + uuid.NewString(),
			StartOffset:    kafka.LastOffset,
		}),
		local:  NewChannelBus(),
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// EnsureTopic 主题不存在时创建，已存在的错误只记录日志
func (k *KafkaBus) EnsureTopic() {
	conn, err := kafka.Dial("tcp", k.cfg.HostPort)
	if err != nil {
		zap.L().Error("连接 Kafka 失败", zap.Error(err))
		return
	}
	defer conn.Close()

	partitions := k.cfg.Partition
	if partitions <= 0 {
		partitions = 1
	}
	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             k.cfg.EventTopic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		zap.L().Error("创建 Kafka 主题失败", zap.String("topic", k.cfg.EventTopic), zap.Error(err))
	}
}

// Publish 以会话 ID 为 key 写入 Kafka，同一会话的事件落在同一分区
func (k *KafkaBus) Publish(ctx context.Context, event ChangeEvent) error {
	msg, err := encodeEvent(event)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, msg)
}

// Subscribe 注册本地回调
func (k *KafkaBus) Subscribe(handler Handler) func() {
	return k.local.Subscribe(handler)
}

// Start 启动本地分发循环并持续消费 Kafka，阻塞直到 Close
func (k *KafkaBus) Start() {
	go k.local.Start()
	for {
		m, err := k.reader.ReadMessage(k.ctx)
		if err != nil {
			if k.ctx.Err() != nil {
				return
			}
			zap.L().Error("读取 Kafka 事件失败", zap.Error(err))
			continue
		}
		event, err := decodeEvent(m)
		if err != nil {
			zap.L().Warn("丢弃无法解析的事件", zap.ByteString("value", m.Value), zap.Error(err))
			continue
		}
		if err := k.local.Publish(k.ctx, event); err != nil {
			return
		}
	}
}

// Close 关闭读写器与本地总线
func (k *KafkaBus) Close() {
	k.cancel()
	if err := k.writer.Close(); err != nil {
		zap.L().Error("关闭 Kafka Writer 失败", zap.Error(err))
	}
	if err := k.reader.Close(); err != nil {
		zap.L().Error("关闭 Kafka Reader 失败", zap.Error(err))
	}
	k.local.Close()
}

func encodeEvent(event ChangeEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(event.ConversationId),
		Value: value,
	}, nil
}

func decodeEvent(m kafka.Message) (ChangeEvent, error) {
	var event ChangeEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return ChangeEvent{}, err
	}
	if event.ConversationId == "" {
		event.ConversationId = string(m.Key)
	}
	return event, nil
}
