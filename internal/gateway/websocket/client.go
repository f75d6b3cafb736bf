package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"support_chat_server/internal/dto/request"
	"support_chat_server/internal/dto/respond"
	"support_chat_server/internal/model"
	"support_chat_server/internal/service/notify"
	"support_chat_server/internal/service/receipt"
	"support_chat_server/pkg/constants"
	"support_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 上行动作
const (
	ActionOpen     = "open"
	ActionSignal   = "signal"
	ActionClose    = "close"
	ActionMarkRead = "mark_read"
	ActionSend     = "send"
)

// 下行帧类型
const (
	FrameUnreadCount   = "unread_count"
	FrameConversations = "conversations"
	FrameMessages      = "messages"
	FrameMessageSent   = "message_sent"
	FrameRead          = "read"
	FrameError         = "error"
)

// openConversation 客户端当前打开的一个会话
type openConversation struct {
	messages *notify.Subscription[[]model.Message]
	view     *receipt.ViewSession
}

// Client 一条 WebSocket 连接
// 写操作全部经过 send 通道由 writeLoop 串行执行
type Client struct {
	Id       string
	identity model.Identity
	gateway  *Gateway
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	feeds []func()
	open  map[string]*openConversation

	closeOnce sync.Once
}

func newClient(g *Gateway, conn *websocket.Conn, actor model.Identity) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		Id:       uuid.NewString(),
		identity: actor,
		gateway:  g,
		conn:     conn,
		send:     make(chan []byte, constants.WS_SEND_BUFFER),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		open:     make(map[string]*openConversation),
	}
}

func (c *Client) start() {
	go c.writeLoop()
	c.subscribeFeeds()
	go c.readLoop()
}

// subscribeFeeds 角标与会话列表在连接期间一直推送
func (c *Client) subscribeFeeds() {
	notifySvc := c.gateway.svc.Notify

	unread, err := notifySvc.SubscribeUnreadCount(c.identity)
	if err != nil {
		c.pushError("", err)
		return
	}
	conversations, err := notifySvc.SubscribeConversations(c.identity)
	if err != nil {
		unread.Cancel()
		c.pushError("", err)
		return
	}

	c.mu.Lock()
	c.feeds = append(c.feeds, unread.Cancel, conversations.Cancel)
	c.mu.Unlock()

	go pump(c, unread, FrameUnreadCount, "", func(n int) any {
		return respond.UnreadCountRespond{Count: n}
	}, nil)
	go pump(c, conversations, FrameConversations, "", func(list []model.Conversation) any {
		return respond.NewConversationListRespond(list)
	}, nil)
}

// pump 把订阅快照转换成下行帧，订阅取消后退出
func pump[T any](c *Client, sub *notify.Subscription[T], frameType, conversationId string, convert func(T) any, after func()) {
	for snap := range sub.C() {
		frame := respond.WsFrame{
			Type:           frameType,
			ConversationId: conversationId,
			Code:           errorx.CodeSuccess,
			Data:           convert(snap.Value),
		}
		if snap.Err != nil {
			frame.Code, frame.Msg = errorInfo(snap.Err)
		}
		c.push(frame)
		if after != nil {
			after()
		}
	}
}

func (c *Client) readLoop() {
	defer c.Close(websocket.CloseNormalClosure, "")

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Warn("ws 读取失败", zap.String("conn_id", c.Id), zap.Error(err))
			}
			return
		}
		var req request.WsActionRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.pushError("", errorx.Wrap(err, errorx.CodeInvalidParam, "无法解析的消息"))
			continue
		}
		c.handle(req)
	}
}

func (c *Client) handle(req request.WsActionRequest) {
	if req.ConversationId == "" {
		c.pushError("", errorx.New(errorx.CodeInvalidParam, "缺少 conversationId"))
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, actionTimeout)
	defer cancel()

	switch req.Action {
	case ActionOpen:
		c.openConversation(ctx, req.ConversationId)
	case ActionSignal:
		if oc := c.lookup(req.ConversationId); oc != nil {
			oc.view.Signal()
		}
	case ActionClose:
		c.closeConversation(req.ConversationId)
	case ActionMarkRead:
		c.markRead(ctx, req.ConversationId)
	case ActionSend:
		c.sendMessage(ctx, req.ConversationId, req.Message)
	default:
		c.pushError(req.ConversationId, errorx.Newf(errorx.CodeInvalidParam, "未知的动作 %q", req.Action))
	}
}

func (c *Client) openConversation(ctx context.Context, conversationId string) {
	if c.lookup(conversationId) != nil {
		return
	}
	sub, err := c.gateway.svc.Notify.SubscribeMessages(ctx, c.identity, conversationId)
	if err != nil {
		c.pushError(conversationId, err)
		return
	}
	oc := &openConversation{
		messages: sub,
		view:     c.gateway.svc.Receipt.OpenView(c.identity, conversationId),
	}

	c.mu.Lock()
	if c.open == nil {
		// 连接已关闭
		c.mu.Unlock()
		sub.Cancel()
		oc.view.Close()
		return
	}
	c.open[conversationId] = oc
	c.mu.Unlock()

	// 新消息推送给客户端后视为已展示，触发一次被动已读
	go pump(c, sub, FrameMessages, conversationId, func(list []model.Message) any {
		return respond.NewMessageListRespond(list)
	}, oc.view.Signal)
}

func (c *Client) lookup(conversationId string) *openConversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open[conversationId]
}

func (c *Client) closeConversation(conversationId string) {
	c.mu.Lock()
	oc := c.open[conversationId]
	delete(c.open, conversationId)
	c.mu.Unlock()

	if oc != nil {
		oc.view.Close()
		oc.messages.Cancel()
	}
}

func (c *Client) markRead(ctx context.Context, conversationId string) {
	var (
		remaining int
		err       error
	)
	if oc := c.lookup(conversationId); oc != nil {
		remaining, err = oc.view.MarkNow(ctx)
	} else {
		remaining, err = c.gateway.svc.Receipt.MarkConversationRead(ctx, c.identity, conversationId)
	}
	if err != nil {
		c.pushError(conversationId, err)
		return
	}
	c.push(respond.WsFrame{
		Type:           FrameRead,
		ConversationId: conversationId,
		Code:           errorx.CodeSuccess,
		Data:           respond.MarkReadRespond{Remaining: remaining},
	})
}

func (c *Client) sendMessage(ctx context.Context, conversationId string, req request.SendMessageRequest) {
	if req.Kind == string(model.KindSystem) {
		c.pushError(conversationId, errorx.ErrPermissionDenied)
		return
	}
	content, err := model.NewContent(model.MessageKind(req.Kind), req.Body, req.AttachmentUrl)
	if err != nil {
		c.pushError(conversationId, err)
		return
	}
	msg, err := c.gateway.svc.Message.Send(ctx, conversationId, c.identity, content)
	if err != nil {
		c.pushError(conversationId, err)
		return
	}
	c.push(respond.WsFrame{
		Type:           FrameMessageSent,
		ConversationId: conversationId,
		Code:           errorx.CodeSuccess,
		Data:           respond.NewMessageRespond(msg),
	})
}

// errorInfo 业务错误返回自身的码和消息，其他错误统一为服务繁忙
func errorInfo(err error) (int, string) {
	var codeErr *errorx.CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code, codeErr.Msg
	}
	return errorx.ErrServerBusy.Code, errorx.ErrServerBusy.Msg
}

func (c *Client) pushError(conversationId string, err error) {
	code, msg := errorInfo(err)
	c.push(respond.WsFrame{Type: FrameError, ConversationId: conversationId, Code: code, Msg: msg})
}

// push 非阻塞写入发送队列，客户端消费过慢时断开连接
func (c *Client) push(frame respond.WsFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		zap.L().Error("ws 帧序列化失败", zap.String("type", frame.Type), zap.Error(err))
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		zap.L().Warn("ws 发送队列已满，断开连接", zap.String("conn_id", c.Id))
		go c.Close(websocket.ClosePolicyViolation, "send buffer full")
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				zap.L().Warn("ws 写入失败", zap.String("conn_id", c.Id), zap.Error(err))
				go c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				go c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// Close 取消所有订阅与被动已读，关闭底层连接
// 可重复调用
func (c *Client) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()

		c.mu.Lock()
		feeds := c.feeds
		open := c.open
		c.feeds = nil
		c.open = nil
		c.mu.Unlock()

		for _, cancel := range feeds {
			cancel()
		}
		for _, oc := range open {
			oc.view.Close()
			oc.messages.Cancel()
		}

		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.conn.Close()
		c.gateway.unregister(c)
		zap.L().Info("ws连接关闭", zap.String("conn_id", c.Id), zap.String("user_id", c.identity.Id))
	})
}
