package model

import (
	"time"

	"gorm.io/gorm"
)

// Message 消息模型
// 对应数据库 message 表，除已读标记外不可修改
type Message struct {
	gorm.Model

	// Uuid 消息唯一标识，雪花算法生成
	Uuid string `gorm:"column:uuid;uniqueIndex;type:varchar(32);not null;comment:消息雪花ID"`

	// ConversationId 所属会话 uuid，创建后不再变化
	ConversationId string `gorm:"column:conversation_id;index;type:char(20);not null;comment:会话uuid"`

	SenderId   string `gorm:"column:sender_id;type:varchar(64);not null;comment:发送者id"`
	SenderName string `gorm:"column:sender_name;type:varchar(64);not null;comment:发送者名称"`
	SenderRole Role   `gorm:"column:sender_role;type:varchar(16);not null;comment:customer/staff/system"`

	Kind          MessageKind `gorm:"column:kind;type:varchar(16);not null;comment:text/image/system"`
	Body          string      `gorm:"column:body;type:TEXT;not null;comment:消息内容"`
	AttachmentUrl string      `gorm:"column:attachment_url;type:varchar(512);comment:图片url，仅image类型"`

	// SentAt 服务端分配的发送时间，消息排序的唯一依据
	SentAt time.Time `gorm:"column:sent_at;not null;comment:发送时间"`

	// Read 是否已被接收方读取，只由已读回执修改
	// READ 是 MySQL 保留字，列名用 is_read
	Read bool `gorm:"column:is_read;not null;default:false;comment:是否已读"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "message"
}

// NewMessage 根据内容变体构造一条待写入的消息
func NewMessage(uuid, conversationId string, sender Identity, content MessageContent, sentAt time.Time) *Message {
	msg := &Message{
		Uuid:           uuid,
		ConversationId: conversationId,
		SenderId:       sender.Id,
		SenderName:     sender.Name,
		SenderRole:     sender.Role,
		Kind:           content.Kind(),
		Body:           content.Body(),
		SentAt:         sentAt,
	}
	if img, ok := content.(ImageContent); ok {
		msg.AttachmentUrl = img.URL
	}
	return msg
}

// Content 还原为内容变体
func (m *Message) Content() MessageContent {
	switch m.Kind {
	case KindImage:
		return ImageContent{Caption: m.Body, URL: m.AttachmentUrl}
	case KindSystem:
		return SystemContent{Text: m.Body}
	default:
		return TextContent{Text: m.Body}
	}
}

// Recipient 该消息计入哪个角色的未读数
func (m *Message) Recipient() Role {
	return RecipientOf(m.SenderRole)
}
