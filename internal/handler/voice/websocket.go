package voice

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/persona"
	chatservice "github.com/lilhelper-coder/Asset-Architect-sub000/internal/service/chat"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// HandlerOptions configure the transport listener.
type HandlerOptions struct {
	Session         Options
	MaxMessageBytes int64
	// AllowedOrigins restricts browser origins; empty allows any.
	AllowedOrigins map[string]struct{}
}

// WebSocketHandler accepts voice connections at /api/voice.
type WebSocketHandler struct {
	registry *chatservice.Registry
	replier  Replier
	persona  persona.Persona
	opts     HandlerOptions
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(registry *chatservice.Registry, replier Replier, p persona.Persona, opts HandlerOptions) *WebSocketHandler {
	h := &WebSocketHandler{
		registry: registry,
		replier:  replier,
		persona:  p,
		opts:     opts,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:     h.checkOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return h
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/voice", h.handleWebSocket)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	_, ok := h.opts.AllowedOrigins[origin]
	return ok
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	info := h.registry.Open(r.RemoteAddr, cancel)
	session := NewSession(ctx, cancel, info, conn, h.replier, h.persona, h.opts.Session)
	defer func() {
		session.Close()
		h.registry.Close(info.ID)
		log.WithFields(log.Fields{"session": info.ID}).Info("[websocket] connection closed")
	}()

	log.WithFields(log.Fields{"session": info.ID, "remote": r.RemoteAddr}).Info("[websocket] new connection")

	if h.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.opts.MaxMessageBytes)
	}
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go session.Run()
	go h.pingLoop(ctx, conn)
	go func() {
		// Unblocks the read loop when the registry or a failed write cancels the session.
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		session.Enqueue(messageType, data)
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
