package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"support_chat_server/internal/infrastructure/middleware"
	"support_chat_server/internal/model"
	"support_chat_server/internal/service/conversation"
	"support_chat_server/internal/service/health"
	"support_chat_server/internal/service/notify"
	"support_chat_server/internal/service/receipt"
	"support_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var carla = model.Identity{Id: "staff-carla", Name: "Carla", Role: model.RoleStaff}

// stubConversations 记录收到的参数并返回预设结果
type stubConversations struct {
	err        error
	gotStatus  model.ConversationStatus
	gotAssign  *model.Identity
	gotPrio    model.Priority
	statusCall int
}

func (s *stubConversations) GetOrCreate(context.Context, model.Identity, conversation.OpenOptions) (*model.Conversation, error) {
	return s.result()
}

func (s *stubConversations) StartForCustomer(context.Context, model.Identity, model.Identity, conversation.OpenOptions) (*model.Conversation, error) {
	return s.result()
}

func (s *stubConversations) SetStatus(_ context.Context, _ model.Identity, _ string, status model.ConversationStatus, assign *model.Identity) (*model.Conversation, error) {
	s.statusCall++
	s.gotStatus = status
	s.gotAssign = assign
	return s.result()
}

func (s *stubConversations) SetPriority(_ context.Context, _ model.Identity, _ string, priority model.Priority) (*model.Conversation, error) {
	s.gotPrio = priority
	return s.result()
}

func (s *stubConversations) Get(context.Context, model.Identity, string) (*model.Conversation, error) {
	return s.result()
}

func (s *stubConversations) List(context.Context, model.Identity) ([]model.Conversation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []model.Conversation{{Uuid: "C1"}}, nil
}

func (s *stubConversations) result() (*model.Conversation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Conversation{Uuid: "C1", Status: s.gotStatus, Priority: model.PriorityMedium}, nil
}

type stubHealth struct{ err error }

func (s stubHealth) Ping(context.Context) (*health.Report, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &health.Report{Database: "up", Redis: "disabled"}, nil
}

type body struct {
	Code int             `json:"code"`
	Msg  any             `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// newEngine 挂载会话与健康检查路由，actor 为空时不注入身份
func newEngine(conv *stubConversations, hs stubHealth, actor *model.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if actor != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.IdentityKey, *actor)
			c.Next()
		})
	}
	ch := NewConversationHandler(conv)
	r.GET("/chat/conversation/list", ch.List)
	r.POST("/chat/conversation/:id/status", ch.SetStatus)
	r.POST("/chat/conversation/:id/priority", ch.SetPriority)
	r.GET("/health/ping", NewHealthHandler(hs).Ping)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, payload string) (int, body) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var b body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return w.Code, b
}

func TestMain(m *testing.M) {
	if err := InitTrans("zh"); err != nil {
		panic(err)
	}
	m.Run()
}

func TestConversationHandler_RequiresIdentity(t *testing.T) {
	r := newEngine(&stubConversations{}, stubHealth{}, nil)
	status, b := do(t, r, http.MethodGet, "/chat/conversation/list", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, errorx.CodeUnauthorized, b.Code)
}

func TestConversationHandler_SetStatus(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		svcErr     error
		wantCode   int
		wantCalled bool
		wantAssign bool
	}{
		{"激活并认领", `{"status":"active","assign":true}`, nil, errorx.CodeSuccess, true, true},
		{"仅关闭", `{"status":"closed"}`, nil, errorx.CodeSuccess, true, false},
		{"非法状态值", `{"status":"archived"}`, nil, errorx.CodeInvalidParam, false, false},
		{"JSON 格式错误", `{"status":`, nil, errorx.CodeInvalidParam, false, false},
		{"状态流转非法", `{"status":"waiting"}`, errorx.ErrInvalidTransition, errorx.CodeInvalidTransition, true, false},
		{"会话不存在", `{"status":"closed"}`, errorx.ErrConversationNotFound, errorx.CodeNotFound, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubConversations{err: tt.svcErr}
			r := newEngine(stub, stubHealth{}, &carla)

			status, b := do(t, r, http.MethodPost, "/chat/conversation/C1/status", tt.payload)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, tt.wantCode, b.Code)
			assert.Equal(t, tt.wantCalled, stub.statusCall == 1)
			if tt.wantAssign {
				require.NotNil(t, stub.gotAssign)
				assert.Equal(t, carla.Id, stub.gotAssign.Id)
			} else {
				assert.Nil(t, stub.gotAssign)
			}
		})
	}
}

func TestConversationHandler_SetPriority(t *testing.T) {
	stub := &stubConversations{}
	r := newEngine(stub, stubHealth{}, &carla)

	_, b := do(t, r, http.MethodPost, "/chat/conversation/C1/priority", `{"priority":"high"}`)
	assert.Equal(t, errorx.CodeSuccess, b.Code)
	assert.Equal(t, model.PriorityHigh, stub.gotPrio)

	_, b = do(t, r, http.MethodPost, "/chat/conversation/C1/priority", `{"priority":"urgent"}`)
	assert.Equal(t, errorx.CodeInvalidParam, b.Code)
}

func TestHealthHandler_Ping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"正常", nil, errorx.CodeSuccess},
		{"存储不可达", errorx.Wrap(errors.New("dial tcp: connection refused"), errorx.CodeConnectivity, "存储不可达"), errorx.CodeConnectivity},
		{"探测超时", errorx.ErrTimeout, errorx.CodeTimeout},
		{"未知错误返回服务繁忙", errors.New("boom"), errorx.CodeServerBusy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(&stubConversations{}, stubHealth{err: tt.err}, nil)
			status, b := do(t, r, http.MethodGet, "/health/ping", "")
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, tt.wantCode, b.Code)
		})
	}
}

type stubMessages struct {
	err     error
	sent    model.MessageContent
	sentTo  string
	listFor string
}

func (s *stubMessages) Send(_ context.Context, conversationId string, sender model.Identity, content model.MessageContent) (*model.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.sent = content
	s.sentTo = conversationId
	msg := model.NewMessage("M1", conversationId, sender, content, time.Now())
	return msg, nil
}

func (s *stubMessages) List(_ context.Context, _ model.Identity, conversationId string) ([]model.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.listFor = conversationId
	return []model.Message{{Uuid: "M1", ConversationId: conversationId, Body: "hi"}}, nil
}

// stubReceipts 区分整会话已读与按 ID 已读
type stubReceipts struct {
	wholeCalls int
	gotIds     []string
	remaining  int
}

func (s *stubReceipts) MarkRead(_ context.Context, _ model.Identity, _ string, ids []string) (int, error) {
	s.gotIds = ids
	return s.remaining, nil
}

func (s *stubReceipts) MarkConversationRead(context.Context, model.Identity, string) (int, error) {
	s.wholeCalls++
	return 0, nil
}

func (s *stubReceipts) OpenView(model.Identity, string) *receipt.ViewSession { return nil }

type stubNotify struct{ count int }

func (s stubNotify) UnreadCount(context.Context, model.Identity) (int, error) { return s.count, nil }

func (stubNotify) SubscribeUnreadCount(model.Identity) (*notify.Subscription[int], error) {
	return nil, errorx.ErrPermissionDenied
}

func (stubNotify) SubscribeConversations(model.Identity) (*notify.Subscription[[]model.Conversation], error) {
	return nil, errorx.ErrPermissionDenied
}

func (stubNotify) SubscribeMessages(context.Context, model.Identity, string) (*notify.Subscription[[]model.Message], error) {
	return nil, errorx.ErrPermissionDenied
}

func newChatEngine(msgs *stubMessages, receipts *stubReceipts, ns stubNotify) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.IdentityKey, carla)
		c.Next()
	})
	mh := NewMessageHandler(msgs)
	rh := NewReceiptHandler(receipts, ns)
	r.GET("/chat/conversation/:id/messages", mh.List)
	r.POST("/chat/conversation/:id/messages", mh.Send)
	r.POST("/chat/conversation/:id/read", rh.MarkRead)
	r.GET("/chat/unreadCount", rh.UnreadCount)
	return r
}

func TestMessageHandler_Send(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		svcErr   error
		wantCode int
		wantKind model.MessageKind
	}{
		{"文本消息", `{"body":"checking now"}`, nil, errorx.CodeSuccess, model.KindText},
		{"图片消息", `{"kind":"image","body":"box","attachmentUrl":"https://cdn.example.com/a.png"}`, nil, errorx.CodeSuccess, model.KindImage},
		{"未知类型", `{"kind":"video","body":"x"}`, nil, errorx.CodeInvalidParam, ""},
		{"非法 URL", `{"kind":"image","attachmentUrl":"not a url"}`, nil, errorx.CodeInvalidParam, ""},
		{"空消息", `{"body":"  "}`, errorx.ErrEmptyBody, errorx.CodeEmptyBody, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := &stubMessages{err: tt.svcErr}
			r := newChatEngine(msgs, &stubReceipts{}, stubNotify{})

			_, b := do(t, r, http.MethodPost, "/chat/conversation/C1/messages", tt.payload)
			assert.Equal(t, tt.wantCode, b.Code)
			if tt.wantKind != "" {
				require.NotNil(t, msgs.sent)
				assert.Equal(t, tt.wantKind, msgs.sent.Kind())
				assert.Equal(t, "C1", msgs.sentTo)
			}
		})
	}
}

func TestMessageHandler_List(t *testing.T) {
	msgs := &stubMessages{}
	r := newChatEngine(msgs, &stubReceipts{}, stubNotify{})

	_, b := do(t, r, http.MethodGet, "/chat/conversation/C9/messages", "")
	assert.Equal(t, errorx.CodeSuccess, b.Code)
	assert.Equal(t, "C9", msgs.listFor)
	assert.Contains(t, string(b.Data), `"body":"hi"`)
}

func TestReceiptHandler_MarkRead(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantCode  int
		wantWhole bool
		wantIds   []string
	}{
		{"空请求体标记整个会话", "", errorx.CodeSuccess, true, nil},
		{"空对象标记整个会话", `{}`, errorx.CodeSuccess, true, nil},
		{"按 ID 标记", `{"messageIds":["M1","M2"]}`, errorx.CodeSuccess, false, []string{"M1", "M2"}},
		{"JSON 格式错误", `{"messageIds":`, errorx.CodeInvalidParam, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipts := &stubReceipts{remaining: 3}
			r := newChatEngine(&stubMessages{}, receipts, stubNotify{})

			_, b := do(t, r, http.MethodPost, "/chat/conversation/C1/read", tt.payload)
			assert.Equal(t, tt.wantCode, b.Code)
			assert.Equal(t, tt.wantWhole, receipts.wholeCalls == 1)
			assert.Equal(t, tt.wantIds, receipts.gotIds)
		})
	}
}

func TestReceiptHandler_UnreadCount(t *testing.T) {
	r := newChatEngine(&stubMessages{}, &stubReceipts{}, stubNotify{count: 2})
	_, b := do(t, r, http.MethodGet, "/chat/unreadCount", "")
	assert.Equal(t, errorx.CodeSuccess, b.Code)
	assert.JSONEq(t, `{"count":2}`, string(b.Data))
}
