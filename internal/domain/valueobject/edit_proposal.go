package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrMalformedEditProposal edit-proposal 内容无法解析或不符合 schema
var ErrMalformedEditProposal = errors.New("malformed edit proposal")

const editProposalSchemaURL = "https://diarist.app/schemas/edit-proposal.json"

// content 与 summary 必填，newTitle 可选；允许额外字段以兼容旧记录
const editProposalSchema = `{
  "type": "object",
  "properties": {
    "content":  {"type": "string"},
    "newTitle": {"type": "string"},
    "summary":  {"type": "string"}
  },
  "required": ["content", "summary"]
}`

var editProposalValidator = compileEditProposalSchema()

func compileEditProposalSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(editProposalSchema))
	if err != nil {
		panic(fmt.Sprintf("edit proposal schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(editProposalSchemaURL, doc); err != nil {
		panic(fmt.Sprintf("edit proposal schema: %v", err))
	}
	return c.MustCompile(editProposalSchemaURL)
}

// ParseEditProposal 解析并校验 edit-proposal 的 JSON 负载
func ParseEditProposal(raw string) (EditProposalContent, error) {
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return EditProposalContent{}, fmt.Errorf("%w: %v", ErrMalformedEditProposal, err)
	}
	if err := editProposalValidator.Validate(inst); err != nil {
		return EditProposalContent{}, fmt.Errorf("%w: %v", ErrMalformedEditProposal, err)
	}

	var p EditProposalContent
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return EditProposalContent{}, fmt.Errorf("%w: %v", ErrMalformedEditProposal, err)
	}
	return p, nil
}
