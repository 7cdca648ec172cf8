// Package cli renders replayed conversations in the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/diarist/server/internal/domain/conversation"
	domaintool "github.com/diarist/server/internal/domain/tool"
	"github.com/diarist/server/internal/domain/valueobject"
	"github.com/diarist/server/internal/infrastructure/richtext"
	"gopkg.in/yaml.v3"
)

// brand colors
var (
	colorCyan   = lipgloss.Color("#00D7FF")
	colorGray   = lipgloss.Color("#6C6C6C")
	colorGreen  = lipgloss.Color("#00FF87")
	colorYellow = lipgloss.Color("#FFD75F")
)

// Renderer 把回放的消息渲染成终端输出
type Renderer struct {
	glamour *glamour.TermRenderer
	width   int
}

// NewRenderer creates a renderer with the given terminal width.
// style 为空时自动检测终端配色，测试中使用 "notty"。
func NewRenderer(width int, style string) *Renderer {
	if width <= 0 {
		width = 80
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width - 4)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, _ := glamour.NewTermRenderer(opts...)
	return &Renderer{glamour: r, width: width}
}

// RenderMarkdown renders markdown text to styled terminal output
func (r *Renderer) RenderMarkdown(md string) string {
	if r.glamour == nil {
		return md
	}
	out, err := r.glamour.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

// RenderHistory 渲染整段会话
func (r *Renderer) RenderHistory(conversationID string, messages []conversation.RuntimeTurnMessage) string {
	var sb strings.Builder

	header := lipgloss.NewStyle().Foreground(colorCyan).Bold(true).
		Render(fmt.Sprintf("Conversation %s", conversationID))
	count := lipgloss.NewStyle().Foreground(colorGray).
		Render(fmt.Sprintf(" · %d messages", len(messages)))
	sb.WriteString(header + count + "\n\n")

	for _, msg := range messages {
		sb.WriteString(r.roleLabel(msg.Role) + "\n")
		for _, part := range msg.Parts {
			sb.WriteString(r.renderPart(part))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func (r *Renderer) roleLabel(role valueobject.Role) string {
	if role == valueobject.RoleUser {
		return lipgloss.NewStyle().Foreground(colorCyan).Bold(true).Render("● you")
	}
	return lipgloss.NewStyle().Foreground(colorGreen).Bold(true).Render("● assistant")
}

func (r *Renderer) renderPart(p conversation.Part) string {
	if p.Type == conversation.PartText {
		return r.RenderMarkdown(p.Text)
	}

	nameStyle := lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	dim := lipgloss.NewStyle().Foreground(colorGray)

	switch res := p.Result.(type) {
	case domaintool.ImageOutput:
		return fmt.Sprintf("  %s %s", nameStyle.Render("image"), dim.Render(res.URL))
	case valueobject.EditProposalContent:
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorYellow).
			Padding(0, 1).
			Width(r.width - 4)
		body := nameStyle.Render("edit proposal") + "  " + res.Summary
		if res.NewTitle != "" {
			body += "\n" + dim.Render("title: ") + res.NewTitle
		}
		body += "\n\n" + richtext.PlainText(res.Content)
		return box.Render(body)
	default:
		return fmt.Sprintf("  %s", nameStyle.Render(p.ToolName))
	}
}

// Encode 以 json 或 yaml 输出消息。yaml 的键与 json 保持一致。
func Encode(w io.Writer, format string, messages []conversation.RuntimeTurnMessage) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		var out interface{}
		if err := json.Unmarshal(data, &out); err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	case "yaml":
		var out interface{}
		if err := json.Unmarshal(data, &out); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(out)
	default:
		return fmt.Errorf("unsupported format %q (want text, json or yaml)", format)
	}
}
