package model

import (
	"time"

	"gorm.io/gorm"
)

// ConversationStatus 会话状态
type ConversationStatus string

const (
	StatusWaiting ConversationStatus = "waiting" // 等待客服接入
	StatusActive  ConversationStatus = "active"  // 处理中
	StatusClosed  ConversationStatus = "closed"  // 已关闭，可重新打开
)

// transitions 允许的状态流转，同状态写入视为幂等，不在此表中
var transitions = map[ConversationStatus][]ConversationStatus{
	StatusWaiting: {StatusActive, StatusClosed},
	StatusActive:  {StatusClosed},
	StatusClosed:  {StatusWaiting, StatusActive},
}

// Valid 是否为已知状态
func (s ConversationStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsOpen waiting 与 active 都算进行中
func (s ConversationStatus) IsOpen() bool {
	return s == StatusWaiting || s == StatusActive
}

// CanTransitionTo 判断 s -> next 是否合法，同状态返回 true
func (s ConversationStatus) CanTransitionTo(next ConversationStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Priority 会话优先级
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid 是否为已知优先级
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Category 会话分类
type Category string

const (
	CategoryGeneral   Category = "general"
	CategoryOrder     Category = "order"
	CategoryComplaint Category = "complaint"
	CategorySupport   Category = "support"
)

// Valid 是否为已知分类
func (c Category) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryOrder, CategoryComplaint, CategorySupport:
		return true
	}
	return false
}

// Conversation 客服会话模型
// 对应数据库 conversation 表，一个顾客与客服团队之间的一条对话线索
type Conversation struct {
	gorm.Model

	// Uuid 会话唯一标识，格式：C + 日期 + 随机串
	Uuid string `gorm:"column:uuid;uniqueIndex;type:char(20);not null;comment:会话uuid"`

	CustomerId    string `gorm:"column:customer_id;index;type:varchar(64);not null;comment:顾客id"`
	CustomerName  string `gorm:"column:customer_name;type:varchar(64);not null;comment:顾客名称"`
	CustomerEmail string `gorm:"column:customer_email;type:varchar(128);comment:顾客邮箱"`

	// OpenKey 会话进行中时等于 CustomerId，关闭后置空
	// 唯一索引保证同一顾客最多只有一个进行中的会话，NULL 不参与唯一约束
	OpenKey *string `gorm:"column:open_key;uniqueIndex;type:varchar(64);comment:进行中会话唯一键"`

	StaffId   *string `gorm:"column:staff_id;index;type:varchar(64);comment:接待客服id"`
	StaffName *string `gorm:"column:staff_name;type:varchar(64);comment:接待客服名称"`

	Status   ConversationStatus `gorm:"column:status;type:varchar(16);not null;index;comment:waiting/active/closed"`
	Priority Priority           `gorm:"column:priority;type:varchar(16);not null;comment:low/medium/high"`
	Category Category           `gorm:"column:category;type:varchar(16);not null;comment:会话分类"`
	OrderId  *string            `gorm:"column:order_id;type:varchar(64);comment:关联订单id"`

	// LastMessage 最新消息摘要，用于会话列表
	LastMessage     string     `gorm:"column:last_message;type:TEXT;comment:最新的消息"`
	LastMessageTime *time.Time `gorm:"column:last_message_time;comment:最新消息时间"`

	UnreadCountForCustomer int `gorm:"column:unread_count_for_customer;not null;default:0;comment:顾客未读数"`
	UnreadCountForStaff    int `gorm:"column:unread_count_for_staff;not null;default:0;comment:客服未读数"`
}

// TableName 指定表名
func (Conversation) TableName() string {
	return "conversation"
}

// UnreadFor 返回 reader 视角的未读计数
func (c *Conversation) UnreadFor(reader Role) int {
	if reader == RoleStaff {
		return c.UnreadCountForStaff
	}
	return c.UnreadCountForCustomer
}

// ActivityTime 会话排序用的时间：最新消息时间，没有消息时取创建时间
func (c *Conversation) ActivityTime() time.Time {
	if c.LastMessageTime != nil {
		return *c.LastMessageTime
	}
	return c.CreatedAt
}

// VisibleTo 判断 actor 是否可以查看该会话
// 客服可以查看所有会话，顾客只能查看自己的
func (c *Conversation) VisibleTo(actor Identity) bool {
	switch actor.Role {
	case RoleStaff:
		return true
	case RoleCustomer:
		return c.CustomerId == actor.Id
	}
	return false
}
