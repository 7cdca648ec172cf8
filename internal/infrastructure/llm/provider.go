package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/diarist/server/internal/domain/service"
	"go.uber.org/zap"
)

// Provider 基础设施层的模型供应商，实现 service.TurnSource
type Provider interface {
	service.TurnSource
}

// ProviderConfig 供应商配置
type ProviderConfig struct {
	Type      string `json:"type"` // "openai"（默认）| "anthropic"
	BaseURL   string `json:"base_url"`
	APIKey    string `json:"api_key"`
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
}

// --- Provider Factory Registry ---
// 各供应商子包在 init() 中注册自己，新增供应商 = 实现 Provider + RegisterFactory。

// ProviderFactory 根据配置创建 Provider
type ProviderFactory func(cfg ProviderConfig, logger *zap.Logger) (Provider, error)

var (
	factoryMu sync.RWMutex
	factories = map[string]ProviderFactory{}
)

// RegisterFactory 注册供应商工厂
func RegisterFactory(typeName string, factory ProviderFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[typeName] = factory
}

// CreateProvider 按 cfg.Type 创建供应商，Type 为空时使用 openai
func CreateProvider(cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	t := cfg.Type
	if t == "" {
		t = "openai"
	}

	factoryMu.RLock()
	factory, ok := factories[t]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider type %q (available: %v)", t, Registered())
	}
	return factory(cfg, logger)
}

// Registered 返回已注册的供应商类型（排序）
func Registered() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for k := range factories {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
