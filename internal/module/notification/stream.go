package notification

import (
	"net/http"
	"time"

	"meetup-backend/internal/global/jwt"
	"meetup-backend/internal/global/redisclient"
	"meetup-backend/internal/global/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 来源校验由 CORS 配置负责
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Stream 通过 WebSocket 转发 Redis 频道中的通知
func Stream(c *gin.Context) {
	payload, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	if redisclient.Client == nil {
		response.Fail(c, response.ErrRealtime)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写回了错误响应
		log.Warn("WebSocket 升级失败", "error", err, "user_id", payload.UserID)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	sub := redisclient.Client.Subscribe(ctx, Channel(payload.UserID))
	defer sub.Close()

	log.Info("通知连接建立", "user_id", payload.UserID)
	defer log.Info("通知连接断开", "user_id", payload.UserID)

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(Message{Type: "connected", Data: gin.H{"user_id": payload.UserID}}); err != nil {
		return
	}

	// 读循环只用于感知断开与处理 pong
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	messages := sub.Channel()
	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
