package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	domaintool "github.com/diarist/server/internal/domain/tool"
	"github.com/diarist/server/internal/domain/valueobject"
	"github.com/diarist/server/internal/infrastructure/richtext"
	"go.uber.org/zap"
)

// EditContentTool editContent：提出整篇替换的修改建议，由用户决定是否接受
type EditContentTool struct {
	schema map[string]interface{}
	logger *zap.Logger
}

// NewEditContentTool 创建工具
func NewEditContentTool(logger *zap.Logger) *EditContentTool {
	return &EditContentTool{
		schema: domaintool.SchemaFor[domaintool.EditContentInput](),
		logger: logger.With(zap.String("tool", domaintool.NameEditContent)),
	}
}

func (t *EditContentTool) Name() string { return domaintool.NameEditContent }

func (t *EditContentTool) Description() string {
	return "Propose a rewrite of the whole diary entry. Provide the complete new content, " +
		"an optional new title, and a one-sentence summary of the change. The user reviews the diff before applying it."
}

func (t *EditContentTool) Schema() map[string]interface{} { return t.schema }

// Execute 规范化正文为编辑器 HTML，输出 edit-proposal
func (t *EditContentTool) Execute(_ context.Context, args json.RawMessage) (*domaintool.Result, error) {
	var in domaintool.EditContentInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid editContent arguments: %w", err)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("editContent requires content")
	}
	if strings.TrimSpace(in.Summary) == "" {
		return nil, fmt.Errorf("editContent requires a summary")
	}

	html, err := richtext.ToEditorHTML(in.Content)
	if err != nil {
		return nil, fmt.Errorf("normalize content: %w", err)
	}

	proposal := valueobject.EditProposalContent{
		Content:  html,
		NewTitle: strings.TrimSpace(in.NewTitle),
		Summary:  strings.TrimSpace(in.Summary),
	}
	encoded, err := proposal.Encode()
	if err != nil {
		return nil, err
	}
	t.logger.Debug("Edit proposed", zap.Int("content_len", len(html)), zap.Bool("retitle", proposal.NewTitle != ""))
	return &domaintool.Result{Output: json.RawMessage(encoded)}, nil
}
