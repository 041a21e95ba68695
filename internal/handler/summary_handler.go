package handler

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/webrecap/webrecap/internal/pkg/errcode"
	"github.com/webrecap/webrecap/internal/pkg/response"
	"github.com/webrecap/webrecap/internal/service"
)

type SummaryHandler struct {
	documents *service.DocumentService
}

func NewSummaryHandler(documents *service.DocumentService) *SummaryHandler {
	return &SummaryHandler{documents: documents}
}

type summarizeRequest struct {
	URL string `json:"url"`
}

type summarizeResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Existing bool   `json:"existing"`
}

type summaryResponse struct {
	Summary   json.RawMessage `json:"summary"`
	Type      string          `json:"type"`
	CreatedAt string          `json:"created_at"`
}

// Submit enqueues a URL for summarization and returns the document id the
// caller can watch on the progress stream.
func (h *SummaryHandler) Submit(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	doc, existing, err := h.documents.Submit(c.Request.Context(), req.URL, getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, summarizeResponse{
		ID:       doc.ID,
		Status:   doc.Status,
		Existing: existing,
	})
}

func (h *SummaryHandler) Get(c *gin.Context) {
	docID := c.Param("docId")
	if docID == "" {
		response.Error(c, errcode.ErrInvalid, "docId required")
		return
	}
	summary, err := h.documents.GetSummary(c.Request.Context(), docID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, summaryResponse{
		Summary:   summary.Content,
		Type:      summary.Type,
		CreatedAt: time.Unix(summary.Ctime, 0).UTC().Format(time.RFC3339),
	})
}
