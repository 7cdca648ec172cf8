package conversation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/diarist/server/internal/domain/entity"
	"github.com/diarist/server/internal/domain/tool"
	"github.com/diarist/server/internal/domain/valueobject"
)

// ToolResult 轮次中一次工具调用的结果
type ToolResult struct {
	ToolName   string
	ToolCallID string
	Output     json.RawMessage
}

// ModelTurn 一个完成的模型轮次：最终文本加上按完成顺序排列的工具结果
type ModelTurn struct {
	Text        string
	ToolResults []ToolResult
}

// Decompose 把一个轮次拆成按回放顺序排列的消息记录：
// 非空文本在前，然后是工具结果（按完成顺序）。
//
// 未知工具被跳过；输出不合法的已知工具结果也被跳过并在返回的 error 中报告。
// 只有真正产生的记录才会消耗 seq。
func Decompose(s *Session, turn ModelTurn) ([]*entity.MessageRecord, error) {
	contents := make([]valueobject.Content, 0, len(turn.ToolResults)+1)
	var errs []error

	if turn.Text != "" {
		contents = append(contents, valueobject.TextContent{Text: turn.Text})
	}

	for _, tr := range turn.ToolResults {
		content, known, err := toolResultContent(tr)
		if !known {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("tool %s (%s): %w", tr.ToolName, tr.ToolCallID, err))
			continue
		}
		contents = append(contents, content)
	}

	records := make([]*entity.MessageRecord, 0, len(contents))
	for _, c := range contents {
		rec, err := entity.NewMessageRecord(s.ConversationID(), valueobject.RoleAssistant, s.Allocate(), c)
		if err != nil {
			// 只会在会话ID为空时发生
			return nil, err
		}
		records = append(records, rec)
	}

	return records, errors.Join(errs...)
}

func toolResultContent(tr ToolResult) (content valueobject.Content, known bool, err error) {
	switch tr.ToolName {
	case tool.NameGenerateImage:
		url := gjson.GetBytes(tr.Output, "url")
		if url.Type != gjson.String || url.String() == "" {
			return nil, true, errors.New("image result has no url")
		}
		return valueobject.ImageContent{URL: url.String()}, true, nil
	case tool.NameEditContent:
		p, err := valueobject.ParseEditProposal(string(tr.Output))
		if err != nil {
			return nil, true, err
		}
		return p, true, nil
	default:
		return nil, false, nil
	}
}
