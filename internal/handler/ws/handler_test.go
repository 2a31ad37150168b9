package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/aura/backend/internal/model/chat"
	"github.com/zhouzirui/aura/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/aura/backend/internal/service/chat"
)

type gatedExchanger struct {
	entered chan struct{}
	release chan struct{}
	reply   string
}

func (g *gatedExchanger) Exchange(_ context.Context, _ []chat.Turn, _ string) ai.Result {
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.release != nil {
		<-g.release
	}
	return ai.Result{Reply: g.reply}
}

func setup(t *testing.T, exchanger chatservice.Exchanger) (*chatservice.Service, *httptest.Server) {
	t.Helper()
	chatSvc := chatservice.NewService(exchanger)
	r := chi.NewRouter()
	New(chatSvc).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return chatSvc, srv
}

func dial(t *testing.T, srv *httptest.Server, conversationID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/conversations/" + conversationID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) outgoingMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg outgoingMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

// readUntil skips messages until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(outgoingMessage) bool) outgoingMessage {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := readMessage(t, conn)
		if match(msg) {
			return msg
		}
	}
	t.Fatal("expected message never arrived")
	return outgoingMessage{}
}

func TestWebSocketSubmitRoundTrip(t *testing.T) {
	chatSvc, srv := setup(t, &gatedExchanger{reply: "Hello!"})
	state, _ := chatSvc.CreateConversation(context.Background())
	conn := dial(t, srv, state.ConversationID)

	first := readMessage(t, conn)
	if first.Type != "event" || first.Event == nil || first.Event.Type != chat.EventState {
		t.Fatalf("expected initial state, got %+v", first)
	}

	if err := conn.WriteJSON(inboundMessage{Type: "submit", Text: "Hi"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	reply := readUntil(t, conn, func(m outgoingMessage) bool {
		return m.Event != nil && m.Event.Message != nil && m.Event.Message.Role == chat.RoleModel
	})
	if reply.Event.Message.Text != "Hello!" {
		t.Fatalf("unexpected reply %q", reply.Event.Message.Text)
	}

	got, _ := chatSvc.State(context.Background(), state.ConversationID)
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got.Messages))
	}
}

func TestWebSocketRejectsSubmitWhileBusy(t *testing.T) {
	exchanger := &gatedExchanger{
		reply:   "done",
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	chatSvc, srv := setup(t, exchanger)
	state, _ := chatSvc.CreateConversation(context.Background())
	conn := dial(t, srv, state.ConversationID)
	readMessage(t, conn)

	if err := conn.WriteJSON(inboundMessage{Type: "submit", Text: "first"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-exchanger.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("exchange never started")
	}

	if err := conn.WriteJSON(inboundMessage{Type: "submit", Text: "second"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	errMsg := readUntil(t, conn, func(m outgoingMessage) bool { return m.Type == "error" })
	if errMsg.Error != chatservice.ErrBusy.Error() {
		t.Fatalf("expected busy error, got %q", errMsg.Error)
	}

	close(exchanger.release)
	readUntil(t, conn, func(m outgoingMessage) bool {
		return m.Event != nil && m.Event.Type == chat.EventBusy && !m.Event.Busy
	})

	got, _ := chatSvc.State(context.Background(), state.ConversationID)
	if len(got.Messages) != 2 {
		t.Fatalf("expected only the first exchange to be recorded, got %d messages", len(got.Messages))
	}
}

func TestWebSocketUnsupportedType(t *testing.T) {
	chatSvc, srv := setup(t, &gatedExchanger{reply: "x"})
	state, _ := chatSvc.CreateConversation(context.Background())
	conn := dial(t, srv, state.ConversationID)
	readMessage(t, conn)

	if err := conn.WriteJSON(inboundMessage{Type: "audio"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readMessage(t, conn)
	if msg.Type != "error" || !strings.Contains(msg.Error, "audio") {
		t.Fatalf("expected unsupported type error, got %+v", msg)
	}
}

func TestWebSocketUnknownConversation(t *testing.T) {
	_, srv := setup(t, &gatedExchanger{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/conversations/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %+v", resp)
	}
}
