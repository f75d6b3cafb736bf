package model

import (
	"strings"
	"unicode/utf8"

	"support_chat_server/pkg/constants"
	"support_chat_server/pkg/errorx"
)

// MessageKind 消息类型
type MessageKind string

const (
	KindText   MessageKind = "text"
	KindImage  MessageKind = "image"
	KindSystem MessageKind = "system"
)

// MessageContent 消息内容，三种变体之一：TextContent、ImageContent、SystemContent
// 接口是封闭的，包外无法新增变体，switch 时按三种情况穷举即可
type MessageContent interface {
	Kind() MessageKind
	Body() string
	sealed()
}

// TextContent 普通文本消息
type TextContent struct {
	Text string
}

// ImageContent 图片消息，URL 指向对象存储中的文件
type ImageContent struct {
	Caption string
	URL     string
}

// SystemContent 系统合成的提示，如欢迎语与关闭提示
type SystemContent struct {
	Text string
}

func (TextContent) Kind() MessageKind   { return KindText }
func (ImageContent) Kind() MessageKind  { return KindImage }
func (SystemContent) Kind() MessageKind { return KindSystem }

func (c TextContent) Body() string   { return c.Text }
func (c ImageContent) Body() string  { return c.Caption }
func (c SystemContent) Body() string { return c.Text }

func (TextContent) sealed()   {}
func (ImageContent) sealed()  {}
func (SystemContent) sealed() {}

// NewContent 把传输层的扁平字段转换成内容变体
func NewContent(kind MessageKind, body, attachmentUrl string) (MessageContent, error) {
	switch kind {
	case KindText, "":
		return TextContent{Text: body}, nil
	case KindImage:
		return ImageContent{Caption: body, URL: attachmentUrl}, nil
	case KindSystem:
		return SystemContent{Text: body}, nil
	}
	return nil, errorx.Newf(errorx.CodeInvalidParam, "未知的消息类型 %q", kind)
}

// ValidateContent 校验用户输入的消息内容
// 文本与图片消息的正文不能为空白，图片必须带 URL
func ValidateContent(content MessageContent) error {
	if content == nil {
		return errorx.ErrEmptyBody
	}
	body := strings.TrimSpace(content.Body())
	switch c := content.(type) {
	case TextContent:
		if body == "" {
			return errorx.ErrEmptyBody
		}
	case ImageContent:
		if body == "" {
			return errorx.ErrEmptyBody
		}
		if strings.TrimSpace(c.URL) == "" {
			return errorx.New(errorx.CodeInvalidParam, "图片消息缺少 attachmentUrl")
		}
	case SystemContent:
		if body == "" {
			return errorx.ErrEmptyBody
		}
	}
	if utf8.RuneCountInString(body) > constants.MAX_BODY_LENGTH {
		return errorx.Newf(errorx.CodeInvalidParam, "消息长度不能超过 %d 个字符", constants.MAX_BODY_LENGTH)
	}
	return nil
}

// Preview 会话列表中展示的最新消息摘要
func Preview(content MessageContent) string {
	switch c := content.(type) {
	case ImageContent:
		return "[图片] " + strings.TrimSpace(c.Caption)
	case TextContent:
		return strings.TrimSpace(c.Text)
	case SystemContent:
		return strings.TrimSpace(c.Text)
	}
	return ""
}
