package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocket_PushesNotificationsWithCart(t *testing.T) {
	h := newHarness(t)
	sessionID := signedInSession(t, h, "ws@example.com")
	h.do(t, http.MethodGet, "/notifications", sessionID, "")

	srv := httptest.NewServer(h.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello wsMessage
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != "connected" || hello.SessionID != sessionID || hello.Cart == nil {
		t.Fatalf("unexpected hello %+v", hello)
	}

	rec := h.do(t, http.MethodPost, "/cart/items", sessionID, `{"productId":"`+wandID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add: %d %s", rec.Code, rec.Body.String())
	}

	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read notification: %v", err)
	}
	if msg.Type != "notification" || msg.Notification == nil || msg.Notification.Message != "Added to cart!" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.Cart == nil || msg.Cart.TotalItems != 1 {
		t.Fatalf("expected cart snapshot with the new line, got %+v", msg.Cart)
	}
}

func TestWebSocket_RequiresSession(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/ws", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if h.sessions.Len() != 0 {
		t.Fatalf("expected no sessions, got %d", h.sessions.Len())
	}
}
