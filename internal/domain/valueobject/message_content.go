package valueobject

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole 解析持久化的角色字符串
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAssistant:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown message role %q", s)
	}
}

// ContentType 内容类型，决定 content 字段的解释方式
type ContentType string

const (
	ContentTypeText         ContentType = "text"
	ContentTypeImage        ContentType = "image"
	ContentTypeEditProposal ContentType = "edit-proposal"
)

// Content 消息内容（标签联合）。只有 persistence 层接触字符串形式。
type Content interface {
	Type() ContentType
	// Encode 返回写入 content 列的字符串
	Encode() (string, error)
	isContent()
}

// TextContent 纯文本
type TextContent struct {
	Text string
}

func (TextContent) Type() ContentType         { return ContentTypeText }
func (c TextContent) Encode() (string, error) { return c.Text, nil }
func (TextContent) isContent()                {}

// ImageContent 生成的缩略图，仅保存 URL（prompt 不持久化）
type ImageContent struct {
	URL string
}

func (ImageContent) Type() ContentType         { return ContentTypeImage }
func (c ImageContent) Encode() (string, error) { return c.URL, nil }
func (ImageContent) isContent()                {}

// EditProposalContent 对日记正文的整体替换建议，需要用户显式接受
type EditProposalContent struct {
	Content  string `json:"content"`
	NewTitle string `json:"newTitle,omitempty"`
	Summary  string `json:"summary"`
}

func (EditProposalContent) Type() ContentType { return ContentTypeEditProposal }

func (c EditProposalContent) Encode() (string, error) {
	// 正文是 HTML，不转义 < > &
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("encode edit proposal: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func (EditProposalContent) isContent() {}

// MalformedEditProposal 存储中无法解析的 edit-proposal。保留原文，回放时降级为占位文本。
type MalformedEditProposal struct {
	Raw string
	Err error
}

func (MalformedEditProposal) Type() ContentType         { return ContentTypeEditProposal }
func (c MalformedEditProposal) Encode() (string, error) { return c.Raw, nil }
func (MalformedEditProposal) isContent()                {}

// DecodeContent 从存储形式恢复内容（存储边界使用）。
// 损坏的 edit-proposal 不返回错误，而是得到 MalformedEditProposal。
func DecodeContent(t ContentType, raw string) (Content, error) {
	switch t {
	case ContentTypeText:
		return TextContent{Text: raw}, nil
	case ContentTypeImage:
		return ImageContent{URL: raw}, nil
	case ContentTypeEditProposal:
		p, err := ParseEditProposal(raw)
		if errors.Is(err, ErrMalformedEditProposal) {
			return MalformedEditProposal{Raw: raw, Err: err}, nil
		}
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown content type %q", t)
	}
}
