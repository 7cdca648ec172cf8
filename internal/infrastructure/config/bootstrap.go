package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// AppName is the canonical application name
const AppName = "diarist"

// HomeDir returns the configuration home: ~/.diarist
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+AppName)
}

// SystemPromptPath is where the editable assistant prompt lives.
func SystemPromptPath() string {
	return filepath.Join(HomeDir(), "prompts", "system.md")
}

// Bootstrap ensures the ~/.diarist directory exists with default content.
// Safe to call multiple times; existing files are never overwritten.
func Bootstrap(logger *zap.Logger) error {
	root := HomeDir()

	dirs := []string{
		root,
		filepath.Join(root, "prompts"),
		filepath.Join(root, "uploads"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	defaults := map[string]string{
		filepath.Join(root, "config.yaml"): defaultConfig,
		SystemPromptPath():                 DefaultSystemPrompt,
	}

	created := 0
	for path, content := range defaults {
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			logger.Warn("Failed to write default file", zap.String("path", path), zap.Error(err))
			continue
		}
		created++
	}

	if created > 0 {
		logger.Info("Diarist bootstrap complete",
			zap.String("home", root),
			zap.Int("files_created", created),
		)
	} else {
		logger.Debug("Diarist home directory OK", zap.String("home", root))
	}

	return nil
}

// ResolveSystemPrompt picks the inline prompt, then the prompt file, then the built-in one.
func ResolveSystemPrompt(cfg ModelConfig) string {
	if strings.TrimSpace(cfg.SystemPrompt) != "" {
		return cfg.SystemPrompt
	}
	if data, err := os.ReadFile(SystemPromptPath()); err == nil && len(strings.TrimSpace(string(data))) > 0 {
		return string(data)
	}
	return DefaultSystemPrompt
}

// DefaultSystemPrompt is the assistant persona used when nothing else is configured.
const DefaultSystemPrompt = `You are a friendly and helpful diary assistant. You help the user write their daily journal.
- Encourage them to express their feelings and thoughts.
- If they ask for a thumbnail or image, use the generateImage tool.
- If they ask you to rewrite, polish or extend their entry, use the editContent tool with the full new content and a one sentence summary. Never claim the entry was changed; the user decides whether to accept the proposal.
- Formatting: use simple markdown if needed (bold, italic).
`

const defaultConfig = `# Diarist configuration
# Auto-generated on first launch. Environment variables override every key,
# e.g. DIARIST_MODEL_API_KEY, DIARIST_DATABASE_DSN.

server:
  host: 0.0.0.0
  port: 8080
  mode: release                # debug | release
  public_base_url: http://localhost:3000

database:
  type: sqlite                 # sqlite | postgres
  dsn: diarist.db

log:
  level: info                  # debug | info | warn | error (hot reloaded)
  format: json                 # json | console

auth:
  jwt_secret: ""               # HS256 secret of the hosted auth provider
  issuer: ""
  audience: authenticated

model:
  provider: openai             # openai | anthropic
  model: gpt-4o-mini
  api_key: ""
  max_tokens: 2048
  system_prompt: ""            # empty: use prompts/system.md

image:
  provider: openai             # openai | placeholder
  model: dall-e-3
  fetch_timeout: 30s

storage:
  type: local                  # local | gcs
  bucket: ""
  credentials_file: ""
  public_base_url: http://localhost:8080/uploads

github:
  client_id: ""
  client_secret: ""
  redirect_url: http://localhost:8080/api/v1/github/callback
  timezone: Asia/Seoul
  repo_limit: 10

metrics:
  enabled: true
  path: /metrics
`
