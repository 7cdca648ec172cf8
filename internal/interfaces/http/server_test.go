package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/diarist/server/internal/application/usecase"
	"github.com/diarist/server/internal/domain/service"
	domaintool "github.com/diarist/server/internal/domain/tool"
	"github.com/diarist/server/internal/domain/valueobject"
	"github.com/diarist/server/internal/infrastructure/auth"
	"github.com/diarist/server/internal/infrastructure/imagegen"
	"github.com/diarist/server/internal/infrastructure/monitoring"
	"github.com/diarist/server/internal/infrastructure/persistence"
	toolpkg "github.com/diarist/server/internal/infrastructure/tool"
	httpServer "github.com/diarist/server/internal/interfaces/http"
	"github.com/diarist/server/internal/interfaces/http/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// scriptedSource 按脚本返回一个带工具调用的轮次
type scriptedSource struct{}

func (scriptedSource) Name() string { return "scripted" }

func (scriptedSource) StreamTurn(_ context.Context, _ *service.TurnRequest, onDelta func(string)) (*service.StreamedTurn, error) {
	onDelta("Sure, ")
	onDelta("here is a picture.")
	return &service.StreamedTurn{
		Text: "Sure, here is a picture.",
		ToolCalls: []service.ToolCall{
			{ID: "call_1", Name: domaintool.NameGenerateImage, Arguments: json.RawMessage(`{"prompt":"a sunny park"}`)},
			{ID: "call_2", Name: domaintool.NameEditContent, Arguments: json.RawMessage(`{"content":"Walked in the **park**.","summary":"Rewrote the entry"}`)},
		},
		ModelUsed: "scripted-1",
	}, nil
}

type testEnv struct {
	server *httptest.Server
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	convs := persistence.NewMemoryConversationRepository()
	messages := persistence.NewMemoryMessageRepository()
	journals := persistence.NewMemoryJournalRepository()
	links := persistence.NewMemoryGitHubLinkRepository()

	metrics := monitoring.NewMetrics()
	hooks := service.NewHookChain(monitoring.NewMetricsHook(metrics))

	registry, err := domaintool.NewInMemoryRegistry()
	require.NoError(t, err)
	toolpkg.RegisterAllTools(toolpkg.ToolLayerDeps{
		Registry:       registry,
		Logger:         logger,
		Images:         imagegen.Placeholder{URL: "https://img.example/placeholder.png"},
		PlaceholderURL: "https://img.example/placeholder.png",
	})
	executor := toolpkg.NewExecutor(registry, hooks, logger)

	chat := usecase.NewChatTurnUseCase(convs, messages, usecase.NewTurnRecorder(messages, hooks, logger),
		scriptedSource{}, executor, valueobject.NewModelConfig("scripted", "scripted-1", 256, "be kind"), hooks, logger)
	history := usecase.NewHistoryUseCase(convs, messages, hooks, logger)
	journalUC := usecase.NewJournalUseCase(journals, convs, messages, logger)
	drafts := usecase.NewDraftUseCase(convs, messages, journals, logger)
	githubUC := usecase.NewGitHubUseCase(links, nil, nil, auth.NewStateSigner("secret", time.Minute), time.UTC, logger)

	resolver, err := auth.NewJWTResolver("secret", "", "")
	require.NoError(t, err)
	token, err := resolver.Issue("alice", "alice@example.com", time.Hour)
	require.NoError(t, err)

	srv := httpServer.NewServer(httpServer.Config{Mode: "release", MetricsPath: "/metrics"}, httpServer.Deps{
		Resolver:       resolver,
		Chat:           handlers.NewChatHandler(chat, metrics, logger),
		Conversations:  handlers.NewConversationHandler(history, logger),
		Journals:       handlers.NewJournalHandler(journalUC, logger),
		Drafts:         handlers.NewDraftHandler(drafts, logger),
		GitHub:         handlers.NewGitHubHandler(githubUC, "http://app.example", logger),
		Registry:       metrics.Registry(),
		MetricsHandler: metrics.Handler(),
	}, logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{server: ts, token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readJSON(t *testing.T, resp *http.Response) gjson.Result {
	t.Helper()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return gjson.ParseBytes(buf.Bytes())
}

type sseEvent struct {
	name string
	data gjson.Result
}

func readSSE(t *testing.T, resp *http.Response) []sseEvent {
	t.Helper()
	var events []sseEvent
	var name string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			events = append(events, sseEvent{name: name, data: gjson.Parse(strings.TrimSpace(strings.TrimPrefix(line, "data:")))})
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", readJSON(t, resp).Get("status").String())

	resp2, err := http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/v1/journals")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// 浏览器跳转使用查询参数
	resp2, err := http.Get(env.server.URL + "/api/v1/journals?access_token=" + url.QueryEscape(env.token))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestChatStreamsAndPersists(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/chat", map[string]string{
		"message":       "Draw me something",
		"editorContent": "<p>Went to the park.</p>",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	events := readSSE(t, resp)
	require.NotEmpty(t, events)

	var text strings.Builder
	var tools []gjson.Result
	for _, ev := range events {
		switch ev.name {
		case "text_delta":
			text.WriteString(ev.data.Get("content").String())
		case "tool_result":
			tools = append(tools, ev.data)
		}
	}
	assert.Equal(t, "Sure, here is a picture.", text.String())
	require.Len(t, tools, 2)
	assert.Equal(t, "https://img.example/placeholder.png", tools[0].Get("result.url").String())
	assert.Contains(t, tools[1].Get("result.content").String(), "<strong>park</strong>")
	assert.True(t, tools[1].Get("diff").IsArray())

	done := events[len(events)-1]
	require.Equal(t, "done", done.name)
	convID := done.data.Get("conversationId").String()
	require.NotEmpty(t, convID)
	// user + text + image + edit-proposal
	assert.Equal(t, int64(4), done.data.Get("seq").Int())

	hist := readJSON(t, env.do(t, http.MethodGet, "/api/v1/conversations/"+convID+"/messages", nil))
	msgs := hist.Get("messages").Array()
	require.Len(t, msgs, 4)
	assert.Equal(t, "user", msgs[0].Get("role").String())
	assert.Equal(t, "tool-result", msgs[2].Get("parts.0.type").String())
	assert.Equal(t, "generateImage", msgs[2].Get("parts.0.toolName").String())
	assert.Equal(t, "editContent", msgs[3].Get("parts.0.toolName").String())

	// 接受修改建议
	created := readJSON(t, env.do(t, http.MethodPost, "/api/v1/journals", map[string]interface{}{
		"title": "Park", "content": "<p>Went to the park.</p>", "conversationId": convID,
	}))
	journalID := created.Get("id").String()
	assert.Equal(t, convID, created.Get("conversationId").String())

	accept := env.do(t, http.MethodPost, "/api/v1/journals/"+journalID+"/proposals/"+msgs[3].Get("id").String()+"/accept", nil)
	require.Equal(t, http.StatusOK, accept.StatusCode)
	assert.Contains(t, readJSON(t, accept).Get("content").String(), "<strong>park</strong>")
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/api/v1/chat", map[string]string{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJournalCRUD(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/journals", map[string]interface{}{
		"title": "Day one", "content": `<p onclick="x()">hello</p>`, "isDraft": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := readJSON(t, resp)
	id := created.Get("id").String()
	assert.Equal(t, "<p>hello</p>", created.Get("content").String())
	assert.False(t, created.Get("conversationId").Exists())

	resp = env.do(t, http.MethodPut, "/api/v1/journals/"+id, map[string]interface{}{"title": "Day 1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Day 1", readJSON(t, resp).Get("title").String())

	list := readJSON(t, env.do(t, http.MethodGet, "/api/v1/journals", nil))
	assert.Len(t, list.Get("journals").Array(), 1)

	resp = env.do(t, http.MethodDelete, "/api/v1/journals/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/journals/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "journal not found", readJSON(t, resp).Get("error").String())
}

func TestDiffAndDiscard(t *testing.T) {
	env := newTestEnv(t)

	diff := readJSON(t, env.do(t, http.MethodPost, "/api/v1/diff", map[string]string{
		"old": "<p>one</p><p>two</p>",
		"new": "<p>one</p><p>three</p>",
	}))
	assert.Equal(t, int64(1), diff.Get("added").Int())
	assert.Equal(t, int64(1), diff.Get("removed").Int())

	resp := env.do(t, http.MethodPost, "/api/v1/drafts/discard", map[string]interface{}{
		"conversationId": "does-not-exist", "journalId": "nope", "isDraft": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, readJSON(t, resp).Get("success").Bool())
}

func TestGitHubCallbackRejectsBadState(t *testing.T) {
	env := newTestEnv(t)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

	resp, err := client.Get(env.server.URL + "/api/v1/github/callback?state=forged&code=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "http://app.example/write?github_error=invalid_state", resp.Header.Get("Location"))

	status := readJSON(t, env.do(t, http.MethodGet, "/api/v1/github/status", nil))
	assert.False(t, status.Get("connected").Bool())
}
