package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"storefront/internal/cache"
	"storefront/internal/notify"
	"storefront/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	wsPingInterval = 30 * time.Second
	wsPollInterval = time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// notificationsHandler drains the session's pending notifications.
func notificationsHandler(c *gin.Context) {
	items := currentSession(c).Notifications.Drain()
	c.JSON(http.StatusOK, notificationsResponse{Notifications: items})
}

type wsMessage struct {
	Type         string               `json:"type"`
	SessionID    string               `json:"sessionId,omitempty"`
	Notification *notify.Notification `json:"notification,omitempty"`
	Cart         *cartResponse        `json:"cart,omitempty"`
}

// websocketHandler pushes notifications and the cart snapshot that follows
// each one. With Redis it relays the session's pub/sub channel; without it
// it polls the session queue, which then has two consumers: a notification
// is delivered either here or by GET /notifications, never both.
func websocketHandler(c *cache.Cache, logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if sessionDetached(ctx) {
			abortWithError(ctx, http.StatusUnauthorized, "session required")
			return
		}
		sess := currentSession(ctx)
		conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			logger.Warn("ws_upgrade_failed", zap.String("session_id", sess.ID), zap.Error(err))
			return
		}
		defer conn.Close()

		wsCtx, cancel := context.WithCancel(context.WithoutCancel(ctx.Request.Context()))
		defer cancel()
		go readPump(conn, cancel)

		if err := writeWS(conn, wsMessage{Type: "connected", SessionID: sess.ID, Cart: cartSnapshot(sess)}); err != nil {
			return
		}

		var messages <-chan string
		if pubsub := c.Subscribe(wsCtx, notify.ChannelFor(sess.ID)); pubsub != nil {
			defer pubsub.Close()
			messages = relayPayloads(wsCtx, pubsub.Channel())
		} else {
			messages = pollQueue(wsCtx, sess)
		}

		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()
		for {
			select {
			case <-wsCtx.Done():
				return
			case payload, ok := <-messages:
				if !ok {
					return
				}
				var n notify.Notification
				if err := json.Unmarshal([]byte(payload), &n); err != nil {
					logger.Warn("ws_bad_payload", zap.String("session_id", sess.ID), zap.Error(err))
					continue
				}
				if err := writeWS(conn, wsMessage{Type: "notification", Notification: &n, Cart: cartSnapshot(sess)}); err != nil {
					logger.Debug("ws_write_failed", zap.String("session_id", sess.ID), zap.Error(err))
					return
				}
			case <-ping.C:
				deadline := time.Now().Add(wsWriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}
}

func writeWS(conn *websocket.Conn, msg wsMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(msg)
}

func cartSnapshot(sess *session.Session) *cartResponse {
	resp := toCartResponse(sess.Cart.State())
	return &resp
}

// readPump discards client frames and cancels once the peer goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func relayPayloads(ctx context.Context, in <-chan *redis.Message) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// pollQueue drains the session queue on a ticker and emits each entry as JSON.
func pollQueue(ctx context.Context, sess *session.Session) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		ticker := time.NewTicker(wsPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			for _, n := range sess.Notifications.Drain() {
				payload, err := json.Marshal(n)
				if err != nil {
					continue
				}
				select {
				case out <- string(payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
