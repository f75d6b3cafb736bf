package errorx

import (
	"errors"
	"fmt"
)

// CodeError 带业务错误码的自定义错误
// 实现了 error 接口，支持 %w 包装底层错误，且能被 errors.Is/errors.As 识别
type CodeError struct {
	Code  int    // 业务错误码
	Msg   string // 错误消息
	cause error  // 被包装的底层错误
}

// Error 当存在底层错误时返回 "消息: 底层错误"，否则仅返回消息
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

// Unwrap 支持 errors.Is/errors.As 向下追溯
func (e *CodeError) Unwrap() error {
	return e.cause
}

// Is 同码即视为同一类错误，使预定义实例可直接用于 errors.Is 比较
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.cause == nil
}

// New 创建一个新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

// Newf 创建一个带格式化消息的 CodeError
func Newf(code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap 包装底层错误，添加业务错误码和消息
// 用法: errorx.Wrap(err, CodeNotFound, "会话不存在")
func Wrap(err error, code int, msg string) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   msg,
		cause: err,
	}
}

// Wrapf 包装底层错误，支持格式化消息
// 用法: errorx.Wrapf(err, CodeNotFound, "会话 %s 不存在", conversationId)
func Wrapf(err error, code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   fmt.Sprintf(format, args...),
		cause: err,
	}
}

// GetCode 从错误中提取业务错误码，如果不是 CodeError 则返回默认码
func GetCode(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerBusy
}

// HasCode 判断错误链中是否带有指定业务码
func HasCode(err error, code int) bool {
	if err == nil {
		return false
	}
	return GetCode(err) == code
}

// 业务状态码常量定义
const (
	CodeSuccess           = 1000 // 成功
	CodeInvalidParam      = 1001 // 请求参数错误
	CodeServerBusy        = 1005 // 服务繁忙
	CodeUnauthorized      = 1006 // 未授权/认证失败
	CodePermissionDenied  = 1007 // 角色无权执行该操作
	CodeNotFound          = 1008 // 资源不存在
	CodeDBError           = 1010 // 数据库错误
	CodeCacheError        = 1011 // 缓存错误
	CodeInvalidTransition = 1012 // 会话状态流转非法
	CodeEmptyBody         = 1013 // 消息内容为空
	CodeConnectivity      = 1014 // 存储或传输不可达
	CodeTimeout           = 1015 // 等待超时
	CodeConflict          = 1016 // 唯一约束冲突
)

// 预定义常用错误实例
// 这些实例既可直接返回，也可用于 errors.Is 比较
var (
	ErrInvalidParam         = New(CodeInvalidParam, "请求参数错误")
	ErrServerBusy           = New(CodeServerBusy, "服务繁忙")
	ErrPermissionDenied     = New(CodePermissionDenied, "当前角色无权执行该操作")
	ErrConversationNotFound = New(CodeNotFound, "会话不存在")
	ErrEmptyBody            = New(CodeEmptyBody, "消息内容不能为空")
	ErrInvalidTransition    = New(CodeInvalidTransition, "会话状态流转非法")
	ErrConnectivity         = New(CodeConnectivity, "无法连接到存储服务，请稍后重试")
	ErrTimeout              = New(CodeTimeout, "等待存储服务响应超时")
)

// IsNotFound 检查错误是否为"未找到"类型
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}
