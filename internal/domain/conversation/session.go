// Package conversation 对话轮次的持久化与回放模型：
// seq 分配（Session）、轮次拆分（Decompose）和历史回放（Replay）。
package conversation

import (
	"context"
	"fmt"

	"github.com/diarist/server/internal/domain/entity"
	"github.com/diarist/server/internal/domain/repository"
)

// MaxSeqReader 读取会话当前最大 seq
type MaxSeqReader interface {
	MaxSeq(ctx context.Context, conversationID string) (seq int64, ok bool, err error)
}

// Session 单个轮次内的 seq 分配器。每个请求创建一次，轮次结束后丢弃。
//
// 读取最大值到插入之间不加锁：同一会话的两个轮次并发时可能分配出相同的 seq，
// 存储层的 (conversation_id, seq) 唯一索引会让冲突以写入失败的形式暴露出来。
type Session struct {
	conversationID string
	nextSeq        int64
}

// Open 读取当前最大 seq，返回 nextSeq = max+1（无记录时为 0）的会话
func Open(ctx context.Context, store MaxSeqReader, conversationID string) (*Session, error) {
	if conversationID == "" {
		return nil, entity.ErrInvalidConversationID
	}
	maxSeq, ok, err := store.MaxSeq(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("read max seq for %s: %w", conversationID, err)
	}
	if !ok {
		maxSeq = -1
	}
	return &Session{conversationID: conversationID, nextSeq: maxSeq + 1}, nil
}

// ConversationID 返回会话ID
func (s *Session) ConversationID() string {
	return s.conversationID
}

// Allocate 返回当前 nextSeq 并自增
func (s *Session) Allocate() int64 {
	seq := s.nextSeq
	s.nextSeq++
	return seq
}

// NextSeq 查看下一个将被分配的 seq，不消耗
func (s *Session) NextSeq() int64 {
	return s.nextSeq
}

// EnsureConversationExists 幂等地创建父会话记录。已存在时不做任何修改。
func EnsureConversationExists(
	ctx context.Context,
	store repository.ConversationRepository,
	conversationID, ownerUserID, titleHint string,
) error {
	conv, err := entity.NewConversation(conversationID, ownerUserID, titleHint)
	if err != nil {
		return err
	}
	if err := store.Upsert(ctx, conv); err != nil {
		return fmt.Errorf("ensure conversation %s: %w", conversationID, err)
	}
	return nil
}
