// Package model 定义数据库实体模型与会话领域的值类型
package model

// Role 会话参与者角色
type Role string

const (
	RoleCustomer Role = "customer" // 顾客
	RoleStaff    Role = "staff"    // 客服
	RoleSystem   Role = "system"   // 系统自动消息
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleStaff, RoleSystem:
		return true
	}
	return false
}

// Identity 身份提供方给出的当前操作者
type Identity struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}

// SystemIdentity 系统消息的发送者
var SystemIdentity = Identity{Id: "system", Name: "System", Role: RoleSystem}

// RecipientOf 消息发送者角色对应的接收者角色
// 全局唯一的未读计数规则：顾客的消息给客服，客服与系统的消息给顾客
func RecipientOf(sender Role) Role {
	if sender == RoleCustomer {
		return RoleStaff
	}
	return RoleCustomer
}

// SenderRolesFor 返回会计入 reader 未读数的消息发送者角色
func SenderRolesFor(reader Role) []Role {
	var roles []Role
	for _, sender := range []Role{RoleCustomer, RoleStaff, RoleSystem} {
		if RecipientOf(sender) == reader {
			roles = append(roles, sender)
		}
	}
	return roles
}

// UnreadColumn reader 对应的会话未读计数列
func UnreadColumn(reader Role) string {
	if reader == RoleStaff {
		return "unread_count_for_staff"
	}
	return "unread_count_for_customer"
}
