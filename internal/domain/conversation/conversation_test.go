package conversation_test

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diarist/server/internal/domain/conversation"
	"github.com/diarist/server/internal/domain/entity"
	"github.com/diarist/server/internal/domain/tool"
	"github.com/diarist/server/internal/domain/valueobject"
)

// fakeStore 同时充当消息和会话存储
type fakeStore struct {
	mu            sync.Mutex
	records       []*entity.MessageRecord
	conversations map[string]*entity.Conversation
	upserts       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{conversations: make(map[string]*entity.Conversation)}
}

func (f *fakeStore) MaxSeq(_ context.Context, conversationID string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var maxSeq int64 = -1
	for _, r := range f.records {
		if r.ConversationID() == conversationID && r.Seq() > maxSeq {
			maxSeq = r.Seq()
		}
	}
	return maxSeq, maxSeq >= 0, nil
}

func (f *fakeStore) insert(recs ...*entity.MessageRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, recs...)
}

func (f *fakeStore) Upsert(_ context.Context, c *entity.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if _, ok := f.conversations[c.ID()]; !ok {
		f.conversations[c.ID()] = c
	}
	return nil
}

func (f *fakeStore) Exists(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.conversations[id]
	return ok, nil
}

func (f *fakeStore) FindByID(_ context.Context, id string) (*entity.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conversations[id], nil
}

func (f *fakeStore) DeleteOwned(_ context.Context, id, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.conversations[id]; ok && c.OwnerUserID() == owner {
		delete(f.conversations, id)
	}
	return nil
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestOpen_EmptyConversationStartsAtZero(t *testing.T) {
	s, err := conversation.Open(context.Background(), newFakeStore(), "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.NextSeq())
	assert.Equal(t, int64(0), s.Allocate())
	assert.Equal(t, int64(1), s.Allocate())
	assert.Equal(t, int64(2), s.NextSeq())
}

func TestOpen_ContinuesAfterMax(t *testing.T) {
	store := newFakeStore()
	rec, err := entity.NewMessageRecord("c1", valueobject.RoleUser, 7, valueobject.TextContent{Text: "hi"})
	require.NoError(t, err)
	store.insert(rec)

	s, err := conversation.Open(context.Background(), store, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(8), s.NextSeq())
}

func TestOpen_RejectsEmptyID(t *testing.T) {
	_, err := conversation.Open(context.Background(), newFakeStore(), "")
	assert.ErrorIs(t, err, entity.ErrInvalidConversationID)
}

// Across several back-to-back turns the stored seqs stay unique and increasing.
func TestSeqMonotonicityAcrossTurns(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()

	turns := []conversation.ModelTurn{
		{Text: "first"},
		{Text: "second", ToolResults: []conversation.ToolResult{
			{ToolName: tool.NameGenerateImage, Output: mustJSON(t, tool.ImageOutput{URL: "u1"})},
		}},
		{},
		{ToolResults: []conversation.ToolResult{
			{ToolName: "unknownTool", Output: json.RawMessage(`{}`)},
			{ToolName: tool.NameEditContent, Output: json.RawMessage(`{"content":"c","summary":"s"}`)},
		}},
	}

	for _, turn := range turns {
		s, err := conversation.Open(ctx, store, "c1")
		require.NoError(t, err)

		user, err := entity.NewMessageRecord("c1", valueobject.RoleUser, s.Allocate(), valueobject.TextContent{Text: "q"})
		require.NoError(t, err)
		store.insert(user)

		recs, err := conversation.Decompose(s, turn)
		require.NoError(t, err)
		store.insert(recs...)
	}

	seqs := make([]int64, 0, len(store.records))
	for _, r := range store.records {
		seqs = append(seqs, r.Seq())
	}
	assert.True(t, sort.SliceIsSorted(seqs, func(i, j int) bool { return seqs[i] < seqs[j] }))
	for i := 1; i < len(seqs); i++ {
		assert.Less(t, seqs[i-1], seqs[i], "seq must be strictly increasing: %v", seqs)
	}
}

func TestDecompose_Order(t *testing.T) {
	s := sessionAt(t, "c1", 5)
	turn := conversation.ModelTurn{
		Text: "Hello",
		ToolResults: []conversation.ToolResult{
			{ToolName: tool.NameGenerateImage, ToolCallID: "t1", Output: json.RawMessage(`{"url":"a","prompt":"p"}`)},
			{ToolName: tool.NameEditContent, ToolCallID: "t2", Output: json.RawMessage(`{"content":"<p>x</p>","summary":"s"}`)},
		},
	}

	recs, err := conversation.Decompose(s, turn)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	type flat struct {
		Type    valueobject.ContentType
		Content string
		Seq     int64
		Role    valueobject.Role
	}
	var got []flat
	for _, r := range recs {
		raw, err := r.Content().Encode()
		require.NoError(t, err)
		got = append(got, flat{r.Type(), raw, r.Seq(), r.Role()})
	}
	want := []flat{
		{valueobject.ContentTypeText, "Hello", 5, valueobject.RoleAssistant},
		{valueobject.ContentTypeImage, "a", 6, valueobject.RoleAssistant},
		{valueobject.ContentTypeEditProposal, `{"content":"<p>x</p>","summary":"s"}`, 7, valueobject.RoleAssistant},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decompose() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int64(8), s.NextSeq())
}

func TestDecompose_UnknownToolConsumesNoSeq(t *testing.T) {
	s := sessionAt(t, "c1", 0)
	turn := conversation.ModelTurn{
		Text: "Hello",
		ToolResults: []conversation.ToolResult{
			{ToolName: "unknownTool", Output: json.RawMessage(`{"x":1}`)},
			{ToolName: tool.NameGenerateImage, Output: json.RawMessage(`{"url":"a"}`)},
		},
	}

	recs, err := conversation.Decompose(s, turn)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(0), recs[0].Seq())
	assert.Equal(t, int64(1), recs[1].Seq())
	assert.Equal(t, valueobject.ImageContent{URL: "a"}, recs[1].Content())
	assert.Equal(t, int64(2), s.NextSeq())
}

func TestDecompose_InvalidKnownOutputReportedAndSkipped(t *testing.T) {
	s := sessionAt(t, "c1", 3)
	turn := conversation.ModelTurn{
		ToolResults: []conversation.ToolResult{
			{ToolName: tool.NameEditContent, ToolCallID: "bad", Output: json.RawMessage(`{"content":"x"}`)},
			{ToolName: tool.NameGenerateImage, Output: json.RawMessage(`{"url":"b"}`)},
		},
	}

	recs, err := conversation.Decompose(s, turn)
	require.Error(t, err)
	assert.ErrorIs(t, err, valueobject.ErrMalformedEditProposal)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(3), recs[0].Seq())
	assert.Equal(t, int64(4), s.NextSeq())
}

func TestDecompose_EmptyTurn(t *testing.T) {
	s := sessionAt(t, "c1", 4)
	recs, err := conversation.Decompose(s, conversation.ModelTurn{})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, int64(4), s.NextSeq())
}

func TestReplay_RoundTrip(t *testing.T) {
	s := sessionAt(t, "c1", 0)
	proposal := valueobject.EditProposalContent{Content: "<p>x</p>", NewTitle: "T", Summary: "s"}
	recs, err := conversation.Decompose(s, conversation.ModelTurn{
		Text: "Hello",
		ToolResults: []conversation.ToolResult{
			{ToolName: tool.NameGenerateImage, Output: json.RawMessage(`{"url":"a"}`)},
			{ToolName: tool.NameEditContent, Output: mustJSON(t, proposal)},
		},
	})
	require.NoError(t, err)

	// simulate the store assigning ids and round-tripping the content column
	stored := make([]*entity.MessageRecord, 0, len(recs))
	for i, r := range recs {
		raw, err := r.Content().Encode()
		require.NoError(t, err)
		c, err := valueobject.DecodeContent(r.Type(), raw)
		require.NoError(t, err)
		stored = append(stored, entity.ReconstructMessageRecord(
			string(rune('a'+i)), r.ConversationID(), r.Role(), r.Seq(), c, r.CreatedAt()))
	}

	msgs := conversation.Replay(stored)
	want := []conversation.RuntimeTurnMessage{
		{ID: "a", Role: valueobject.RoleAssistant, Parts: []conversation.Part{conversation.TextPart("Hello")}},
		{ID: "b", Role: valueobject.RoleAssistant, Parts: []conversation.Part{
			conversation.ToolResultPart(tool.NameGenerateImage, "history-b",
				tool.ImageOutput{URL: "a", Prompt: conversation.ReconstructedPrompt}),
		}},
		{ID: "c", Role: valueobject.RoleAssistant, Parts: []conversation.Part{
			conversation.ToolResultPart(tool.NameEditContent, "history-c", proposal),
		}},
	}
	if diff := cmp.Diff(want, msgs); diff != "" {
		t.Errorf("Replay() mismatch (-want +got):\n%s", diff)
	}
}

func TestReplay_MalformedEditProposalDoesNotStopReplay(t *testing.T) {
	bad, err := valueobject.DecodeContent(valueobject.ContentTypeEditProposal, "not json")
	require.NoError(t, err)

	records := []*entity.MessageRecord{
		entity.ReconstructMessageRecord("1", "c1", valueobject.RoleAssistant, 0, bad, timeZero),
		entity.ReconstructMessageRecord("2", "c1", valueobject.RoleUser, 1, valueobject.TextContent{Text: "after"}, timeZero),
	}

	msgs := conversation.Replay(records)
	require.Len(t, msgs, 2)
	assert.Equal(t, []conversation.Part{conversation.TextPart(conversation.UnavailablePlaceholder)}, msgs[0].Parts)
	assert.Equal(t, []conversation.Part{conversation.TextPart("after")}, msgs[1].Parts)

	malformed := conversation.MalformedRecords(records)
	require.Len(t, malformed, 1)
	assert.Equal(t, "1", malformed[0].ID())
}

func TestReplayAsModelInput(t *testing.T) {
	msgs := []conversation.RuntimeTurnMessage{
		{ID: "1", Role: valueobject.RoleUser, Parts: []conversation.Part{conversation.TextPart("draw a cat")}},
		{ID: "2", Role: valueobject.RoleAssistant, Parts: []conversation.Part{conversation.TextPart("Sure")}},
		{ID: "3", Role: valueobject.RoleAssistant, Parts: []conversation.Part{
			conversation.ToolResultPart(tool.NameGenerateImage, "history-3", tool.ImageOutput{URL: "u", Prompt: "p"}),
		}},
		{ID: "4", Role: valueobject.RoleUser, Parts: []conversation.Part{conversation.TextPart("now edit")}},
		{ID: "5", Role: valueobject.RoleAssistant, Parts: []conversation.Part{
			conversation.ToolResultPart(tool.NameEditContent, "history-5", valueobject.EditProposalContent{Content: "c", Summary: "shorter"}),
		}},
	}

	got := conversation.ReplayAsModelInput(msgs)
	want := []conversation.ModelMessage{
		{Role: valueobject.RoleUser, Text: "draw a cat"},
		{Role: valueobject.RoleAssistant, Text: "Sure\n\n[image generated: u]"},
		{Role: valueobject.RoleUser, Text: "now edit"},
		{Role: valueobject.RoleAssistant, Text: "[edit proposed: shorter]"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReplayAsModelInput() mismatch (-want +got):\n%s", diff)
	}
}

func TestEnsureConversationExists_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()

	require.NoError(t, conversation.EnsureConversationExists(ctx, store, "c1", "u1", "first title"))
	require.NoError(t, conversation.EnsureConversationExists(ctx, store, "c1", "u1", "second title"))

	assert.Len(t, store.conversations, 1)
	assert.Equal(t, 2, store.upserts)
	assert.Equal(t, "first title", store.conversations["c1"].Title())
}

func TestEnsureConversationExists_TruncatesTitle(t *testing.T) {
	store := newFakeStore()
	hint := "오늘은 정말 긴 하루였다. " +
		"아침부터 저녁까지 회의가 이어졌고 점심도 제대로 먹지 못했다. 그래도 저녁에는 산책을 했다."

	require.NoError(t, conversation.EnsureConversationExists(context.Background(), store, "c1", "u1", hint))
	title := store.conversations["c1"].Title()
	assert.Equal(t, entity.TitleHintMaxRunes, len([]rune(title)))
	assert.Equal(t, string([]rune(hint)[:entity.TitleHintMaxRunes]), title)
}

var timeZero = time.Time{}

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
