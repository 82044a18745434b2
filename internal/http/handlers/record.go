package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hswtrack/compliance-backend/internal/http/response"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
	"github.com/hswtrack/compliance-backend/internal/services"
)

type RecordHandler struct {
	log     *logger.Logger
	records services.RecordService
}

func NewRecordHandler(log *logger.Logger, records services.RecordService) *RecordHandler {
	return &RecordHandler{
		log:     log.With("handler", "RecordHandler"),
		records: records,
	}
}

// GET /api/records/:id
func (h *RecordHandler) Get(c *gin.Context) {
	recordID, ok := parseIDParam(c)
	if !ok {
		return
	}
	record, fieldValues, err := h.records.Get(c.Request.Context(), recordID)
	if err != nil {
		response.RespondMapped(c, "record_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"record": record, "field_values": fieldValues})
}

// POST /api/records/:id/revoke
// body: { "notes": "..." }
func (h *RecordHandler) Revoke(c *gin.Context) {
	recordID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	record, err := h.records.Revoke(c.Request.Context(), recordID, strings.TrimSpace(req.Notes))
	if err != nil {
		response.RespondMapped(c, "revoke_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"record": record})
}

// POST /api/records/sweep-expiry
func (h *RecordHandler) SweepExpiry(c *gin.Context) {
	flipped, err := h.records.SweepExpiry(c.Request.Context())
	if err != nil {
		response.RespondMapped(c, "sweep_expiry_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"expired": flipped})
}
