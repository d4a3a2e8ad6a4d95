package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/LENAX/flow-engine/pkg/core/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// API层已有CORS中间件，这里不再做来源限制
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventStreamHandler 引擎事件WebSocket推送处理器
// 每个连接独立订阅事件总线，连接断开即退订
type EventStreamHandler struct {
	engine *engine.Engine
}

// NewEventStreamHandler 创建EventStreamHandler
func NewEventStreamHandler(eng *engine.Engine) *EventStreamHandler {
	return &EventStreamHandler{engine: eng}
}

// Stream 建立WebSocket连接并持续推送引擎事件
// GET /api/v1/events/stream
func (h *EventStreamHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ [EventStream] WebSocket升级失败: %v", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	messages, err := h.engine.Events().SubscribeEvents(ctx)
	if err != nil {
		log.Printf("❌ [EventStream] 订阅事件流失败: %v", err)
		return
	}

	// 读循环只用于感知客户端断开
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg.Payload); err != nil {
				msg.Nack()
				return
			}
			msg.Ack()
		}
	}
}
