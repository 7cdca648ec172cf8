package tool

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateImageInput generateImage 的参数
type GenerateImageInput struct {
	Prompt string `json:"prompt" jsonschema_description:"A short visual description of the thumbnail to generate for the diary entry"`
}

// EditContentInput editContent 的参数。content 是完整替换后的正文。
type EditContentInput struct {
	Content  string `json:"content" jsonschema_description:"The full replacement content of the diary entry, as markdown or HTML"`
	NewTitle string `json:"newTitle,omitempty" jsonschema_description:"Optional new title for the entry"`
	Summary  string `json:"summary" jsonschema_description:"One sentence describing what was changed"`
}

// ImageOutput generateImage 的结果
type ImageOutput struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

// SchemaFor 由 Go 结构体反射出参数 schema（内联，无 $ref）
func SchemaFor[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	raw, err := json.Marshal(schema)
	if err != nil {
		panic(err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	// 供应商 API 不接受这两个字段
	delete(out, "$schema")
	delete(out, "$id")
	return out
}
