package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/diarist/server/internal/domain/conversation"
	"github.com/diarist/server/internal/domain/service"
	domaintool "github.com/diarist/server/internal/domain/tool"
	"github.com/diarist/server/internal/domain/valueobject"
	"github.com/diarist/server/internal/infrastructure/imagegen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, string) (imagegen.ImageResult, error) {
	return imagegen.ImageResult{}, errors.New("quota exceeded")
}

type recordingHook struct {
	service.NoOpHook
	calls []string
}

func (h *recordingHook) AfterToolCall(_ context.Context, name string, success bool) {
	if success {
		h.calls = append(h.calls, name+":ok")
	} else {
		h.calls = append(h.calls, name+":fail")
	}
}

func newExecutor(t *testing.T, images imagegen.Generator, hook service.TurnHook) *Executor {
	t.Helper()
	reg, err := domaintool.NewInMemoryRegistry()
	require.NoError(t, err)
	n := RegisterAllTools(ToolLayerDeps{Registry: reg, Logger: zap.NewNop(), Images: images})
	require.Equal(t, 2, n)
	return NewExecutor(reg, hook, zap.NewNop())
}

func TestDefinitionsAreSortedWithSchemas(t *testing.T) {
	defs := newExecutor(t, nil, nil).Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, domaintool.NameEditContent, defs[0].Name)
	assert.Equal(t, domaintool.NameGenerateImage, defs[1].Name)
	assert.Equal(t, "object", defs[1].Parameters["type"])
	assert.NotContains(t, defs[1].Parameters, "$schema")
}

func TestGenerateImage_OutputDecomposesAsImage(t *testing.T) {
	hook := &recordingHook{}
	exec := newExecutor(t, imagegen.Placeholder{URL: "https://img/1.png"}, hook)

	res, err := exec.Execute(context.Background(), service.ToolCall{
		ID: "call_1", Name: domaintool.NameGenerateImage, Arguments: json.RawMessage(`{"prompt":"rainy street"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "call_1", res.ToolCallID)
	assert.JSONEq(t, `{"url":"https://img/1.png","prompt":"rainy street"}`, string(res.Output))
	assert.Equal(t, []string{"generateImage:ok"}, hook.calls)

	recs, err := conversation.Decompose(sessionAt(t, "c", 4), conversation.ModelTurn{ToolResults: []conversation.ToolResult{res}})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, valueobject.ImageContent{URL: "https://img/1.png"}, recs[0].Content())
}

func TestGenerateImage_FallsBackToPlaceholder(t *testing.T) {
	exec := newExecutor(t, failingGenerator{}, nil)
	res, err := exec.Execute(context.Background(), service.ToolCall{
		Name: domaintool.NameGenerateImage, Arguments: json.RawMessage(`{"prompt":"x"}`),
	})
	require.NoError(t, err)
	assert.Contains(t, string(res.Output), imagegen.DefaultPlaceholderURL)
}

func TestGenerateImage_RequiresPrompt(t *testing.T) {
	exec := newExecutor(t, nil, nil)
	_, err := exec.Execute(context.Background(), service.ToolCall{
		Name: domaintool.NameGenerateImage, Arguments: json.RawMessage(`{"prompt":"  "}`),
	})
	assert.Error(t, err)
}

func TestEditContent_NormalizesMarkdown(t *testing.T) {
	exec := newExecutor(t, nil, nil)
	res, err := exec.Execute(context.Background(), service.ToolCall{
		Name:      domaintool.NameEditContent,
		Arguments: json.RawMessage(`{"content":"# Today\n\nWent **home**.<script>x</script>","summary":"tidied","newTitle":" Home "}`),
	})
	require.NoError(t, err)

	p, err := valueobject.ParseEditProposal(string(res.Output))
	require.NoError(t, err)
	assert.Contains(t, p.Content, "<h1>Today</h1>")
	assert.Contains(t, p.Content, "<strong>home</strong>")
	assert.False(t, strings.Contains(p.Content, "<script>"))
	assert.Equal(t, "Home", p.NewTitle)
	assert.Equal(t, "tidied", p.Summary)
}

func TestEditContent_RequiresSummary(t *testing.T) {
	exec := newExecutor(t, nil, nil)
	_, err := exec.Execute(context.Background(), service.ToolCall{
		Name: domaintool.NameEditContent, Arguments: json.RawMessage(`{"content":"<p>x</p>"}`),
	})
	assert.Error(t, err)
}

func TestExecute_UnknownTool(t *testing.T) {
	hook := &recordingHook{}
	exec := newExecutor(t, nil, hook)
	_, err := exec.Execute(context.Background(), service.ToolCall{Name: "webSearch"})
	assert.Error(t, err)
	assert.Equal(t, []string{"webSearch:fail"}, hook.calls)
}

// maxSeqStub 固定返回 next-1 作为当前最大 seq
type maxSeqStub int64

func (m maxSeqStub) MaxSeq(context.Context, string) (int64, bool, error) {
	return int64(m), m >= 0, nil
}

func sessionAt(t *testing.T, conversationID string, next int64) *conversation.Session {
	t.Helper()
	s, err := conversation.Open(context.Background(), maxSeqStub(next-1), conversationID)
	require.NoError(t, err)
	return s
}
