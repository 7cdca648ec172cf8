package handlers

import (
	"net/http"

	"github.com/diarist/server/internal/application/usecase"
	"github.com/diarist/server/pkg/linediff"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DraftHandler 放弃草稿与 diff 预览
type DraftHandler struct {
	drafts *usecase.DraftUseCase
	logger *zap.Logger
}

// NewDraftHandler 创建处理器
func NewDraftHandler(drafts *usecase.DraftUseCase, logger *zap.Logger) *DraftHandler {
	return &DraftHandler{drafts: drafts, logger: logger}
}

// Discard POST /api/v1/drafts/discard，单步失败只记日志，始终返回成功
func (h *DraftHandler) Discard(c *gin.Context) {
	var in usecase.DiscardInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.drafts.Discard(c.Request.Context(), identity(c), in)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type diffRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Diff POST /api/v1/diff
func (h *DraftHandler) Diff(c *gin.Context) {
	var req diffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lines := linediff.HTML(req.Old, req.New)
	added, removed := linediff.Stats(lines)
	c.JSON(http.StatusOK, gin.H{
		"lines":   lines,
		"added":   added,
		"removed": removed,
	})
}
