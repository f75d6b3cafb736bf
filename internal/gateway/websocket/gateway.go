// Package websocket 实现实时推送网关
// 每个连接订阅未读会话数与会话列表，客户端打开具体会话后再订阅该会话的消息并驱动被动已读
package websocket

import (
	"net/http"
	"sync"
	"time"

	"support_chat_server/internal/model"
	"support_chat_server/internal/service"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxFrameSize   = 16 * 1024
	actionTimeout  = 10 * time.Second
	closeReasonBye = "server shutting down"
)

// Gateway 管理所有在线连接
type Gateway struct {
	svc      *service.Services
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*Client
	closed  bool
}

// NewGateway 创建网关
func NewGateway(svc *service.Services) *Gateway {
	return &Gateway{
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  2048,
			WriteBufferSize: 2048,
			// 跨域由 CORS 与鉴权控制，这里放行所有 Origin
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[string]*Client),
	}
}

// Serve 升级连接并启动读写协程，立即返回
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request, actor model.Identity) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("ws 升级失败", zap.String("user_id", actor.Id), zap.Error(err))
		return
	}

	client := newClient(g, conn, actor)
	if !g.register(client) {
		client.Close(websocket.CloseGoingAway, closeReasonBye)
		return
	}
	client.start()
	zap.L().Info("ws连接成功",
		zap.String("conn_id", client.Id),
		zap.String("user_id", actor.Id),
		zap.String("role", string(actor.Role)),
	)
}

func (g *Gateway) register(c *Client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.clients[c.Id] = c
	return true
}

func (g *Gateway) unregister(c *Client) {
	g.mu.Lock()
	delete(g.clients, c.Id)
	g.mu.Unlock()
}

// Count 当前在线连接数
func (g *Gateway) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.clients)
}

// Close 关闭所有连接，之后的新连接直接拒绝
func (g *Gateway) Close() {
	g.mu.Lock()
	g.closed = true
	clients := make([]*Client, 0, len(g.clients))
	for _, c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.Unlock()

	for _, c := range clients {
		c.Close(websocket.CloseGoingAway, closeReasonBye)
	}
	zap.L().Info("ws 网关已关闭", zap.Int("connections", len(clients)))
}
