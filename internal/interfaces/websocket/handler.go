package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diarist/server/internal/application/usecase"
	"github.com/diarist/server/internal/domain/valueobject"
	"github.com/diarist/server/internal/infrastructure/auth"
	"github.com/diarist/server/internal/interfaces/http/handlers"
	"github.com/diarist/server/pkg/safego"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxFrame   = 512 * 1024
)

// MessageType 消息类型
type MessageType string

const (
	MessageTypeChat       MessageType = "chat"
	MessageTypeTextDelta  MessageType = "text_delta"
	MessageTypeToolResult MessageType = "tool_result"
	MessageTypeDone       MessageType = "done"
	MessageTypeError      MessageType = "error"
	MessageTypePing       MessageType = "ping"
	MessageTypePong       MessageType = "pong"
)

// WSMessage WebSocket 消息。客户端发送 chat 帧，服务端回推事件帧。
type WSMessage struct {
	Type      MessageType          `json:"type"`
	ID        string               `json:"id,omitempty"`
	Chat      *usecase.ChatRequest `json:"chat,omitempty"`
	Content   string               `json:"content,omitempty"`
	Data      interface{}          `json:"data,omitempty"`
	Timestamp int64                `json:"timestamp"`
}

// Hub 记录在线连接
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

// NewHub 创建连接中心
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{clients: make(map[string]*Client), logger: logger}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.logger.Info("Client connected", zap.String("client_id", c.ID), zap.String("user_id", c.identity.UserID()))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()
	h.logger.Info("Client disconnected", zap.String("client_id", c.ID))
}

// GetClientCount 获取客户端数量
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler WebSocket 聊天处理器
type Handler struct {
	hub      *Hub
	chat     handlers.ChatRunner
	streams  handlers.StreamObserver
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler 创建处理器。allowedOrigins 为空时只接受同源请求。
func NewHandler(hub *Hub, chat handlers.ChatRunner, streams handlers.StreamObserver, allowedOrigins []string, logger *zap.Logger) *Handler {
	h := &Handler{hub: hub, chat: chat, streams: streams, logger: logger.With(zap.String("handler", "ws"))}
	h.upgrader = websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]bool, len(allowedOrigins))
		for _, o := range allowedOrigins {
			allowed[o] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return allowed[r.Header.Get("Origin")]
		}
	}
	return h
}

// ServeWS 升级连接。调用前认证中间件已把身份写入请求上下文。
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFrom(r.Context())
	if id.IsAnonymous() {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", zap.Error(err))
		return
	}

	// 连接断开时取消正在进行的轮次，不依赖请求上下文
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	client := &Client{
		ID:       uuid.NewString(),
		identity: id,
		conn:     conn,
		send:     make(chan []byte, 256),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		handler:  h,
		logger:   h.logger,
	}
	h.hub.register(client)

	safego.Go(h.logger, "ws-write", client.writePump)
	safego.Go(h.logger, "ws-read", client.readPump)
}

// Client 一个 websocket 连接。同一时间只处理一个轮次。
type Client struct {
	ID       string
	identity valueobject.Identity
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	busy     atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	handler  *Handler
	logger   *zap.Logger
}

// readPump 读取消息
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		close(c.done)
		c.handler.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendMessage(&WSMessage{Type: MessageTypeError, Content: "invalid frame"})
			continue
		}

		switch msg.Type {
		case MessageTypePing:
			c.SendMessage(&WSMessage{Type: MessageTypePong, ID: msg.ID})
		case MessageTypeChat:
			c.startTurn(msg)
		default:
			c.SendMessage(&WSMessage{Type: MessageTypeError, ID: msg.ID, Content: "unsupported message type"})
		}
	}
}

// startTurn 在独立协程中运行轮次，读循环继续处理 ping/pong
func (c *Client) startTurn(msg WSMessage) {
	if msg.Chat == nil {
		c.SendMessage(&WSMessage{Type: MessageTypeError, ID: msg.ID, Content: "chat payload is required"})
		return
	}
	if !c.busy.CompareAndSwap(false, true) {
		c.SendMessage(&WSMessage{Type: MessageTypeError, ID: msg.ID, Content: "a turn is already running"})
		return
	}

	req := *msg.Chat
	safego.Go(c.logger, "ws-turn", func() {
		defer c.busy.Store(false)
		c.runTurn(msg.ID, &req)
	})
}

func (c *Client) runTurn(frameID string, req *usecase.ChatRequest) {
	h := c.handler
	if err := h.chat.Prepare(c.ctx, c.identity, req); err != nil {
		c.sendError(frameID, req, err)
		return
	}

	if h.streams != nil {
		h.streams.StreamOpened()
		defer h.streams.StreamClosed()
	}

	result, err := h.chat.Execute(c.ctx, req, clientSink{client: c, frameID: frameID})
	if err != nil {
		if c.ctx.Err() == nil {
			c.sendError(frameID, req, err)
		}
		return
	}
	c.SendMessage(&WSMessage{Type: MessageTypeDone, ID: frameID, Data: result})
}

func (c *Client) sendError(frameID string, req *usecase.ChatRequest, err error) {
	c.SendMessage(&WSMessage{
		Type:    MessageTypeError,
		ID:      frameID,
		Content: err.Error(),
		Data:    map[string]interface{}{"status": handlers.StatusFor(err), "conversationId": req.ConversationID},
	})
}

type clientSink struct {
	client  *Client
	frameID string
}

func (s clientSink) TextDelta(delta string) {
	s.client.SendMessage(&WSMessage{Type: MessageTypeTextDelta, ID: s.frameID, Content: delta})
}

func (s clientSink) ToolResult(ev usecase.ToolResultEvent) {
	s.client.SendMessage(&WSMessage{Type: MessageTypeToolResult, ID: s.frameID, Data: ev})
}

// writePump 写入消息
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 发送消息给客户端。连接关闭后丢弃。
func (c *Client) SendMessage(msg *WSMessage) {
	msg.Timestamp = time.Now().Unix()
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to encode frame", zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	}
}
