package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// 模型可以调用的工具名称。回放与拆分都依赖这两个名字。
const (
	NameGenerateImage = "generateImage"
	NameEditContent   = "editContent"
)

// Tool 工具接口 - 模型可调用能力的抽象
type Tool interface {
	// Name 返回工具名称
	Name() string
	// Description 返回工具描述
	Description() string
	// Schema 返回参数的 JSON Schema
	Schema() map[string]interface{}
	// Execute 执行工具，args 为模型给出的原始 JSON 参数
	Execute(ctx context.Context, args json.RawMessage) (*Result, error)
}

// Result 工具执行结果
type Result struct {
	Output json.RawMessage // 结构化结果，写入 ToolResult.Output
}

// Definition 工具定义，用于传递给模型
type Definition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Registry 工具注册表接口
type Registry interface {
	Register(tool Tool) error
	Get(name string) (Tool, bool)
	// List 按名称排序列出所有工具定义
	List() []Definition
	Has(name string) bool
}

// InMemoryRegistry 内存工具注册表
type InMemoryRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewInMemoryRegistry 创建内存注册表
func NewInMemoryRegistry(tools ...Tool) (*InMemoryRegistry, error) {
	r := &InMemoryRegistry{
		tools: make(map[string]Tool),
	}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register 注册工具
func (r *InMemoryRegistry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	r.tools[name] = tool
	return nil
}

// Get 获取工具
func (r *InMemoryRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// List 列出所有工具定义
func (r *InMemoryRegistry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, Definition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Schema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Has 检查工具是否存在
func (r *InMemoryRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tools[name]
	return exists
}
