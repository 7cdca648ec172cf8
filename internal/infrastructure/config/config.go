package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix 环境变量前缀，如 DIARIST_DATABASE_DSN
const EnvPrefix = "DIARIST"

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Model    ModelConfig    `mapstructure:"model"`
	Image    ImageConfig    `mapstructure:"image"`
	Storage  StorageConfig  `mapstructure:"storage"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Mode          string `mapstructure:"mode"`            // debug, release
	PublicBaseURL string `mapstructure:"public_base_url"` // 前端地址，OAuth 回跳使用
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // sqlite, postgres
	DSN  string `mapstructure:"dsn"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json, console
	OutputPath string `mapstructure:"output_path"`
}

// AuthConfig 托管认证服务签发的 JWT 校验参数
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

// ModelConfig 对话模型
type ModelConfig struct {
	Provider     string `mapstructure:"provider"` // openai, anthropic
	Model        string `mapstructure:"model"`
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	MaxTokens    int    `mapstructure:"max_tokens"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

// ImageConfig 缩略图生成
type ImageConfig struct {
	Provider       string        `mapstructure:"provider"` // openai, placeholder
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"api_key"` // 为空时沿用 model.api_key
	PlaceholderURL string        `mapstructure:"placeholder_url"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
}

// StorageConfig 图片存储
type StorageConfig struct {
	Type            string `mapstructure:"type"` // gcs, local
	Bucket          string `mapstructure:"bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
	LocalDir        string `mapstructure:"local_dir"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
}

// GitHubConfig GitHub OAuth 与提交导入
type GitHubConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
	Timezone     string `mapstructure:"timezone"`
	RepoLimit    int    `mapstructure:"repo_limit"`
}

// MetricsConfig Prometheus 指标
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Addr 监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load 加载配置：默认值 → ~/.diarist/config.yaml → ./config/config.yaml 或 ./config.yaml → 环境变量
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(HomeDir())
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read global config: %w", err)
		}
	}

	if localPath := localConfigPath(); localPath != "" {
		v2 := viper.New()
		v2.SetConfigFile(localPath)
		if err := v2.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read local config %s: %w", localPath, err)
		}
		if err := v.MergeConfigMap(v2.AllSettings()); err != nil {
			return nil, fmt.Errorf("failed to merge local config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// ActiveFile 返回优先级最高的配置文件路径，没有任何配置文件时为空
func ActiveFile() string {
	if p := localConfigPath(); p != "" {
		return p
	}
	global := filepath.Join(HomeDir(), "config.yaml")
	if _, err := os.Stat(global); err == nil {
		return global
	}
	return ""
}

// Watch 监听配置文件变化并重新加载，onChange 收到完整的新配置。
// 没有配置文件时直接返回 false。
func Watch(logger *zap.Logger, onChange func(*Config)) bool {
	path := ActiveFile()
	if path == "" {
		return false
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load()
		if err != nil {
			logger.Warn("Config reload failed, keeping previous config",
				zap.String("path", e.Name),
				zap.Error(err),
			)
			return
		}
		logger.Info("Config reloaded", zap.String("path", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
	return true
}

func localConfigPath() string {
	for _, localDir := range []string{"./config", "."} {
		localPath := filepath.Join(localDir, "config.yaml")
		if _, err := os.Stat(localPath); err == nil {
			return localPath // 只取第一个找到的本地配置
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.public_base_url", "http://localhost:3000")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "diarist.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "authenticated")

	v.SetDefault("model.provider", "openai")
	v.SetDefault("model.model", "gpt-4o-mini")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.max_tokens", 2048)
	v.SetDefault("model.system_prompt", "")

	v.SetDefault("image.provider", "openai")
	v.SetDefault("image.model", "dall-e-3")
	v.SetDefault("image.api_key", "")
	v.SetDefault("image.placeholder_url", "https://placehold.co/600x400?text=Error+Generating+Image")
	v.SetDefault("image.fetch_timeout", "30s")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.credentials_file", "")
	v.SetDefault("storage.local_dir", filepath.Join(HomeDir(), "uploads"))
	v.SetDefault("storage.public_base_url", "http://localhost:8080/uploads")

	v.SetDefault("github.client_id", "")
	v.SetDefault("github.client_secret", "")
	v.SetDefault("github.redirect_url", "http://localhost:8080/api/v1/github/callback")
	v.SetDefault("github.timezone", "Asia/Seoul")
	v.SetDefault("github.repo_limit", 10)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
