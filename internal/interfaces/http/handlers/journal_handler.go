package handlers

import (
	"net/http"
	"time"

	"github.com/diarist/server/internal/application/usecase"
	"github.com/diarist/server/internal/domain/entity"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JournalHandler 日记 CRUD 与修改建议
type JournalHandler struct {
	journals *usecase.JournalUseCase
	logger   *zap.Logger
}

// NewJournalHandler 创建处理器
func NewJournalHandler(journals *usecase.JournalUseCase, logger *zap.Logger) *JournalHandler {
	return &JournalHandler{journals: journals, logger: logger}
}

// JournalResponse 日记的 JSON 形式
type JournalResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	ThumbnailURL   string    `json:"thumbnailUrl,omitempty"`
	ConversationID string    `json:"conversationId,omitempty"`
	IsDraft        bool      `json:"isDraft"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toJournalResponse(j *entity.Journal) JournalResponse {
	return JournalResponse{
		ID:             j.ID(),
		Title:          j.Title(),
		Content:        j.Content(),
		ThumbnailURL:   j.ThumbnailURL(),
		ConversationID: j.ConversationID(),
		IsDraft:        j.IsDraft(),
		CreatedAt:      j.CreatedAt(),
		UpdatedAt:      j.UpdatedAt(),
	}
}

// Create POST /api/v1/journals
func (h *JournalHandler) Create(c *gin.Context) {
	var in usecase.CreateJournalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	j, err := h.journals.Create(c.Request.Context(), identity(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toJournalResponse(j))
}

// List GET /api/v1/journals
func (h *JournalHandler) List(c *gin.Context) {
	list, err := h.journals.List(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	out := make([]JournalResponse, 0, len(list))
	for _, j := range list {
		out = append(out, toJournalResponse(j))
	}
	c.JSON(http.StatusOK, gin.H{"journals": out})
}

// Get GET /api/v1/journals/:id
func (h *JournalHandler) Get(c *gin.Context) {
	j, err := h.journals.Get(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toJournalResponse(j))
}

// Update PUT /api/v1/journals/:id
func (h *JournalHandler) Update(c *gin.Context) {
	var in usecase.UpdateJournalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	j, err := h.journals.Update(c.Request.Context(), identity(c), c.Param("id"), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toJournalResponse(j))
}

// Delete DELETE /api/v1/journals/:id
func (h *JournalHandler) Delete(c *gin.Context) {
	if err := h.journals.Delete(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AcceptProposal POST /api/v1/journals/:id/proposals/:messageId/accept
func (h *JournalHandler) AcceptProposal(c *gin.Context) {
	j, err := h.journals.AcceptProposal(c.Request.Context(), identity(c), c.Param("id"), c.Param("messageId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toJournalResponse(j))
}
