package tool

import (
	domaintool "github.com/diarist/server/internal/domain/tool"
	"github.com/diarist/server/internal/infrastructure/imagegen"
	"go.uber.org/zap"
)

// ToolLayerDeps 工具层依赖
type ToolLayerDeps struct {
	Registry domaintool.Registry
	Logger   *zap.Logger

	// Images 为 nil 时使用占位图
	Images         imagegen.Generator
	PlaceholderURL string
}

// RegisterAllTools 唯一的工具注册入口，返回注册成功的数量
func RegisterAllTools(deps ToolLayerDeps) int {
	images := deps.Images
	if images == nil {
		images = imagegen.Placeholder{URL: deps.PlaceholderURL}
	}

	tools := []domaintool.Tool{
		NewGenerateImageTool(images, deps.PlaceholderURL, deps.Logger),
		NewEditContentTool(deps.Logger),
	}

	registered := 0
	for _, t := range tools {
		if err := deps.Registry.Register(t); err != nil {
			deps.Logger.Warn("Failed to register tool",
				zap.String("tool", t.Name()),
				zap.Error(err),
			)
			continue
		}
		deps.Logger.Debug("Registered tool", zap.String("tool", t.Name()))
		registered++
	}

	deps.Logger.Info("Tool layer initialized", zap.Int("total_registered", registered))
	return registered
}
