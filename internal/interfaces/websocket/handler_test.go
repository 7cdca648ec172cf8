package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diarist/server/internal/application/usecase"
	"github.com/diarist/server/internal/domain/valueobject"
	"github.com/diarist/server/internal/infrastructure/auth"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChat struct {
	prepareErr error
}

func (f *fakeChat) Prepare(_ context.Context, _ valueobject.Identity, req *usecase.ChatRequest) error {
	if f.prepareErr != nil {
		return f.prepareErr
	}
	if req.ConversationID == "" {
		req.ConversationID = "conv-ws"
	}
	return nil
}

func (f *fakeChat) Execute(_ context.Context, req *usecase.ChatRequest, sink usecase.TurnSink) (*usecase.ChatResult, error) {
	sink.TextDelta("hello ")
	sink.TextDelta(req.Message)
	return &usecase.ChatResult{ConversationID: req.ConversationID, NextSeq: 2, Persisted: 1}, nil
}

func dial(t *testing.T, chat *fakeChat, authed bool) (*websocket.Conn, *Hub) {
	t.Helper()
	hub := NewHub(zap.NewNop())
	h := NewHandler(hub, chat, nil, nil, zap.NewNop())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authed {
			r = r.WithContext(auth.WithIdentity(r.Context(), valueobject.NewIdentity("alice", "")))
		}
		h.ServeWS(w, r)
	}))
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if !authed {
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		return nil, hub
	}
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, hub
}

func readUntil(t *testing.T, conn *websocket.Conn, want MessageType) []WSMessage {
	t.Helper()
	var got []WSMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
		got = append(got, msg)
		if msg.Type == want {
			return got
		}
	}
}

func TestServeWS_ChatTurn(t *testing.T) {
	conn, hub := dial(t, &fakeChat{}, true)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageTypePing, ID: "p1"}))
	pong := readUntil(t, conn, MessageTypePong)
	assert.Equal(t, "p1", pong[len(pong)-1].ID)
	assert.Equal(t, 1, hub.GetClientCount())

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageTypeChat, ID: "t1", Chat: &usecase.ChatRequest{Message: "world"}}))
	frames := readUntil(t, conn, MessageTypeDone)

	var text strings.Builder
	for _, f := range frames {
		if f.Type == MessageTypeTextDelta {
			assert.Equal(t, "t1", f.ID)
			text.WriteString(f.Content)
		}
	}
	assert.Equal(t, "hello world", text.String())
	done := frames[len(frames)-1].Data.(map[string]interface{})
	assert.Equal(t, "conv-ws", done["conversationId"])
}

func TestServeWS_PrepareError(t *testing.T) {
	conn, _ := dial(t, &fakeChat{prepareErr: errors.New("boom")}, true)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageTypeChat, ID: "t1", Chat: &usecase.ChatRequest{Message: "x"}}))
	frames := readUntil(t, conn, MessageTypeError)
	assert.Equal(t, "boom", frames[len(frames)-1].Content)
}

func TestServeWS_RequiresIdentity(t *testing.T) {
	dial(t, &fakeChat{}, false)
}
