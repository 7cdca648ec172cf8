package conversation

import (
	"fmt"
	"strings"

	"github.com/diarist/server/internal/domain/entity"
	"github.com/diarist/server/internal/domain/tool"
	"github.com/diarist/server/internal/domain/valueobject"
)

const (
	// ReconstructedPrompt 图片的 prompt 没有持久化，回放时用这个占位
	ReconstructedPrompt = "(reconstructed)"
	// UnavailablePlaceholder 损坏的 edit-proposal 回放成这段文本
	UnavailablePlaceholder = "(history unavailable)"

	historyToolCallPrefix = "history-"
)

// PartType 消息片段类型
type PartType string

const (
	PartText       PartType = "text"
	PartToolResult PartType = "tool-result"
)

// Part 消息片段（标签联合）：text 使用 Text，tool-result 使用其余字段。
// Result 为 tool.ImageOutput 或 valueobject.EditProposalContent。
type Part struct {
	Type       PartType    `json:"type"`
	Text       string      `json:"text,omitempty"`
	ToolName   string      `json:"toolName,omitempty"`
	ToolCallID string      `json:"toolCallId,omitempty"`
	Result     interface{} `json:"result,omitempty"`
}

// RuntimeTurnMessage 恢复聊天界面所需的内存消息
type RuntimeTurnMessage struct {
	ID    string           `json:"id"`
	Role  valueobject.Role `json:"role"`
	Parts []Part           `json:"parts"`
}

// TextPart 构造文本片段
func TextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

// ToolResultPart 构造工具结果片段
func ToolResultPart(toolName, toolCallID string, result interface{}) Part {
	return Part{Type: PartToolResult, ToolName: toolName, ToolCallID: toolCallID, Result: result}
}

// HistoryToolCallID 为回放的工具结果合成稳定的调用ID
func HistoryToolCallID(recordID string) string {
	return historyToolCallPrefix + recordID
}

// Replay 把按 seq 升序排列的记录还原成消息列表。一条记录对应一条消息。
// 纯函数：调用方负责按 seq 升序读取。
func Replay(records []*entity.MessageRecord) []RuntimeTurnMessage {
	out := make([]RuntimeTurnMessage, 0, len(records))
	for _, rec := range records {
		out = append(out, RuntimeTurnMessage{
			ID:    rec.ID(),
			Role:  rec.Role(),
			Parts: []Part{replayPart(rec)},
		})
	}
	return out
}

func replayPart(rec *entity.MessageRecord) Part {
	switch c := rec.Content().(type) {
	case valueobject.TextContent:
		return TextPart(c.Text)
	case valueobject.ImageContent:
		return ToolResultPart(tool.NameGenerateImage, HistoryToolCallID(rec.ID()),
			tool.ImageOutput{URL: c.URL, Prompt: ReconstructedPrompt})
	case valueobject.EditProposalContent:
		return ToolResultPart(tool.NameEditContent, HistoryToolCallID(rec.ID()), c)
	default:
		// MalformedEditProposal 以及将来无法识别的内容
		return TextPart(UnavailablePlaceholder)
	}
}

// MalformedRecords 返回内容损坏的记录，供调用方记录日志
func MalformedRecords(records []*entity.MessageRecord) []*entity.MessageRecord {
	var bad []*entity.MessageRecord
	for _, rec := range records {
		if _, ok := rec.Content().(valueobject.MalformedEditProposal); ok {
			bad = append(bad, rec)
		}
	}
	return bad
}

// ModelMessage 与供应商无关的模型输入消息
type ModelMessage struct {
	Role valueobject.Role
	Text string
}

// ReplayAsModelInput 把回放结果转成模型上下文。工具结果变成简短的助手备注，
// 相邻同角色的消息合并，保证 user/assistant 交替。
func ReplayAsModelInput(messages []RuntimeTurnMessage) []ModelMessage {
	out := make([]ModelMessage, 0, len(messages))
	for _, m := range messages {
		texts := make([]string, 0, len(m.Parts))
		for _, p := range m.Parts {
			if t := partAsText(p); t != "" {
				texts = append(texts, t)
			}
		}
		if len(texts) == 0 {
			continue
		}
		text := strings.Join(texts, "\n")

		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Text += "\n\n" + text
			continue
		}
		out = append(out, ModelMessage{Role: m.Role, Text: text})
	}
	return out
}

func partAsText(p Part) string {
	switch p.Type {
	case PartText:
		return p.Text
	case PartToolResult:
		switch r := p.Result.(type) {
		case tool.ImageOutput:
			return fmt.Sprintf("[image generated: %s]", r.URL)
		case valueobject.EditProposalContent:
			return fmt.Sprintf("[edit proposed: %s]", r.Summary)
		}
	}
	return ""
}
