package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/hswtrack/compliance-backend/internal/domain"
	"github.com/hswtrack/compliance-backend/internal/http/response"
	"github.com/hswtrack/compliance-backend/internal/pkg/ctxutil"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
	"github.com/hswtrack/compliance-backend/internal/services"
)

// uploads above this size are rejected before staging
const maxUploadBytes = 32 << 20

type BatchHandler struct {
	log      *logger.Logger
	staging  services.StagingService
	pipeline services.PipelineService
}

func NewBatchHandler(log *logger.Logger, staging services.StagingService, pipeline services.PipelineService) *BatchHandler {
	return &BatchHandler{
		log:      log.With("handler", "BatchHandler"),
		staging:  staging,
		pipeline: pipeline,
	}
}

// POST /api/batches (multipart/form-data)
// fields: "file", "template"
func (h *BatchHandler) Upload(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	templateName := strings.TrimSpace(c.PostForm("template"))
	if templateName == "" {
		response.RespondError(c, http.StatusBadRequest, "template_required", nil)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "open_file_failed", err)
		return
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "read_file_failed", err)
		return
	}
	if len(raw) > maxUploadBytes {
		response.RespondError(c, http.StatusBadRequest, "file_too_large", nil)
		return
	}

	batch, err := h.staging.StageBatch(c.Request.Context(), rd.UserID, templateName, fh.Filename, raw)
	if err != nil {
		h.log.Warn("stage batch failed", "error", err, "template", templateName, "file", fh.Filename)
		response.RespondMapped(c, "stage_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"batch": batch})
}

// GET /api/batches
func (h *BatchHandler) List(c *gin.Context) {
	limit, offset := paginate(c)
	batches, err := h.staging.ListBatches(c.Request.Context(), limit, offset)
	if err != nil {
		response.RespondMapped(c, "list_batches_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"batches": batches})
}

// GET /api/batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	batchID, ok := parseIDParam(c)
	if !ok {
		return
	}
	batch, err := h.staging.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		response.RespondMapped(c, "batch_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"batch": batch})
}

// GET /api/batches/:id/rows?status=&limit=&offset=
func (h *BatchHandler) ListRows(c *gin.Context) {
	batchID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var status *types.RowStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, err := parseRowStatus(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_status", err)
			return
		}
		status = &parsed
	}
	limit, offset := paginate(c)
	rows, err := h.staging.ListRows(c.Request.Context(), batchID, status, limit, offset)
	if err != nil {
		response.RespondMapped(c, "list_rows_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"rows": rows})
}

// POST /api/batches/:id/process
func (h *BatchHandler) Process(c *gin.Context) {
	batchID, ok := parseIDParam(c)
	if !ok {
		return
	}
	result, err := h.pipeline.Process(c.Request.Context(), batchID)
	if err != nil {
		h.log.Warn("process batch failed", "error", err, "batch_id", batchID)
		response.RespondMapped(c, "process_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"result": result})
}

// POST /api/batches/:id/materialize
func (h *BatchHandler) Materialize(c *gin.Context) {
	batchID, ok := parseIDParam(c)
	if !ok {
		return
	}
	result, err := h.pipeline.MaterializeAccepted(c.Request.Context(), batchID)
	if err != nil {
		h.log.Warn("materialize batch failed", "error", err, "batch_id", batchID)
		response.RespondMapped(c, "materialize_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"result": result})
}

// POST /api/batches/:id/retry
func (h *BatchHandler) Retry(c *gin.Context) {
	batchID, ok := parseIDParam(c)
	if !ok {
		return
	}
	batch, err := h.pipeline.RetryBatch(c.Request.Context(), batchID)
	if err != nil {
		response.RespondMapped(c, "retry_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"batch": batch})
}

// POST /api/batches/:id/retry-failed
func (h *BatchHandler) RetryFailedRows(c *gin.Context) {
	batchID, ok := parseIDParam(c)
	if !ok {
		return
	}
	reset, err := h.pipeline.RetryFailedRows(c.Request.Context(), batchID)
	if err != nil {
		response.RespondMapped(c, "retry_failed_rows_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"reset": reset})
}

func parseRowStatus(raw string) (types.RowStatus, error) {
	switch types.RowStatus(strings.ToLower(raw)) {
	case types.RowStatusPending:
		return types.RowStatusPending, nil
	case types.RowStatusAccepted:
		return types.RowStatusAccepted, nil
	case types.RowStatusSkipped:
		return types.RowStatusSkipped, nil
	case types.RowStatusError:
		return types.RowStatusError, nil
	case types.RowStatusProcessed:
		return types.RowStatusProcessed, nil
	default:
		return "", fmt.Errorf("unknown row status %q", raw)
	}
}

// ---- shared helpers ----

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}

func paginate(c *gin.Context) (limit, offset int) {
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
