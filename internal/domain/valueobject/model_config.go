package valueobject

// ModelConfig 模型配置值对象（不可变）
type ModelConfig struct {
	provider     string
	model        string
	maxTokens    int
	systemPrompt string
}

// NewModelConfig 创建模型配置
func NewModelConfig(provider, model string, maxTokens int, systemPrompt string) ModelConfig {
	if maxTokens <= 0 {
		maxTokens = DefaultModelConfig().maxTokens
	}
	return ModelConfig{
		provider:     provider,
		model:        model,
		maxTokens:    maxTokens,
		systemPrompt: systemPrompt,
	}
}

// DefaultModelConfig 默认模型配置
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		provider:  "openai",
		model:     "gpt-4o-mini",
		maxTokens: 2048,
	}
}

func (mc ModelConfig) Provider() string     { return mc.provider }
func (mc ModelConfig) Model() string        { return mc.model }
func (mc ModelConfig) MaxTokens() int       { return mc.maxTokens }
func (mc ModelConfig) SystemPrompt() string { return mc.systemPrompt }

// WithSystemPrompt 返回替换了系统提示词的副本
func (mc ModelConfig) WithSystemPrompt(prompt string) ModelConfig {
	mc.systemPrompt = prompt
	return mc
}
