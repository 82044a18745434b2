package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/hswtrack/compliance-backend/internal/data/repos"
	types "github.com/hswtrack/compliance-backend/internal/domain"
	"github.com/hswtrack/compliance-backend/internal/http/response"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
	"github.com/hswtrack/compliance-backend/internal/services"
)

type TrainingHandler struct {
	log          *logger.Logger
	trainingRepo repos.TrainingRepo
	fieldDefRepo repos.FieldDefRepo
	records      services.RecordService
}

func NewTrainingHandler(
	log *logger.Logger,
	trainingRepo repos.TrainingRepo,
	fieldDefRepo repos.FieldDefRepo,
	records services.RecordService,
) *TrainingHandler {
	return &TrainingHandler{
		log:          log.With("handler", "TrainingHandler"),
		trainingRepo: trainingRepo,
		fieldDefRepo: fieldDefRepo,
		records:      records,
	}
}

// POST /api/trainings
// body: { "code": "...", "title": "...", "description": "...", "expiry_mode": "fixed_days", "default_expiry_days": 365 }
func (h *TrainingHandler) Create(c *gin.Context) {
	var req struct {
		Code              string `json:"code"`
		Title             string `json:"title"`
		Description       string `json:"description"`
		ExpiryMode        string `json:"expiry_mode"`
		DefaultExpiryDays *int   `json:"default_expiry_days"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	req.Title = strings.TrimSpace(req.Title)
	if req.Code == "" || req.Title == "" {
		response.RespondError(c, http.StatusBadRequest, "code_and_title_required", nil)
		return
	}
	mode, err := parseExpiryMode(req.ExpiryMode)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_expiry_mode", err)
		return
	}
	if mode == types.ExpiryModeFixedDays && (req.DefaultExpiryDays == nil || *req.DefaultExpiryDays <= 0) {
		response.RespondError(c, http.StatusBadRequest, "default_expiry_days_required", nil)
		return
	}

	training, err := h.trainingRepo.Create(c.Request.Context(), nil, &types.Training{
		Code:              req.Code,
		Title:             req.Title,
		Description:       strings.TrimSpace(req.Description),
		Active:            true,
		ExpiryMode:        mode,
		DefaultExpiryDays: req.DefaultExpiryDays,
	})
	if err != nil {
		response.RespondMapped(c, "create_training_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"training": training})
}

// GET /api/trainings
func (h *TrainingHandler) List(c *gin.Context) {
	limit, offset := paginate(c)
	trainings, err := h.trainingRepo.List(c.Request.Context(), nil, limit, offset)
	if err != nil {
		response.RespondMapped(c, "list_trainings_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"trainings": trainings})
}

// GET /api/trainings/:id
func (h *TrainingHandler) Get(c *gin.Context) {
	trainingID, ok := parseIDParam(c)
	if !ok {
		return
	}
	training, err := h.trainingRepo.GetByID(c.Request.Context(), nil, trainingID)
	if err != nil {
		response.RespondMapped(c, "training_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"training": training})
}

// POST /api/trainings/:id/fields
// body: { "key": "...", "label": "...", "data_type": "text", "required": false, "options": {...}, "global": false }
// With "global": true the definition applies to every training and the path
// id only names the route.
func (h *TrainingHandler) CreateFieldDef(c *gin.Context) {
	trainingID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Key      string          `json:"key"`
		Label    string          `json:"label"`
		DataType string          `json:"data_type"`
		Required bool            `json:"required"`
		Options  json.RawMessage `json:"options"`
		Global   bool            `json:"global"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" {
		response.RespondError(c, http.StatusBadRequest, "key_required", nil)
		return
	}
	dataType, err := parseFieldDataType(req.DataType)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_data_type", err)
		return
	}
	if len(req.Options) > 0 && !json.Valid(req.Options) {
		response.RespondError(c, http.StatusBadRequest, "invalid_options", nil)
		return
	}

	def := &types.TrainingFieldDef{
		Key:      req.Key,
		Label:    strings.TrimSpace(req.Label),
		DataType: dataType,
		Required: req.Required,
		Options:  datatypes.JSON(req.Options),
		Active:   true,
	}
	if !req.Global {
		if _, err := h.trainingRepo.GetByID(c.Request.Context(), nil, trainingID); err != nil {
			response.RespondMapped(c, "training_not_found", err)
			return
		}
		def.TrainingID = &trainingID
	}

	created, err := h.fieldDefRepo.Create(c.Request.Context(), nil, def)
	if err != nil {
		response.RespondMapped(c, "create_field_def_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"field_def": created})
}

// GET /api/trainings/:id/fields
// Returns the effective set: global definitions plus this training's own.
func (h *TrainingHandler) ListFieldDefs(c *gin.Context) {
	trainingID, ok := parseIDParam(c)
	if !ok {
		return
	}
	defs, err := h.fieldDefRepo.ListForTraining(c.Request.Context(), nil, trainingID)
	if err != nil {
		response.RespondMapped(c, "list_field_defs_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"field_defs": defs})
}

// GET /api/trainings/:id/records
func (h *TrainingHandler) ListRecords(c *gin.Context) {
	trainingID, ok := parseIDParam(c)
	if !ok {
		return
	}
	limit, offset := paginate(c)
	records, err := h.records.ListForTraining(c.Request.Context(), trainingID, limit, offset)
	if err != nil {
		response.RespondMapped(c, "list_records_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"records": records})
}

func parseExpiryMode(raw string) (types.ExpiryMode, error) {
	switch types.ExpiryMode(strings.TrimSpace(raw)) {
	case "", types.ExpiryModeNone:
		return types.ExpiryModeNone, nil
	case types.ExpiryModeFixedDays:
		return types.ExpiryModeFixedDays, nil
	case types.ExpiryModePerRecord:
		return types.ExpiryModePerRecord, nil
	default:
		return "", fmt.Errorf("unknown expiry mode %q", raw)
	}
}

func parseFieldDataType(raw string) (types.FieldDataType, error) {
	switch types.FieldDataType(strings.TrimSpace(raw)) {
	case "", types.FieldTypeText:
		return types.FieldTypeText, nil
	case types.FieldTypeNumber:
		return types.FieldTypeNumber, nil
	case types.FieldTypeDate:
		return types.FieldTypeDate, nil
	case types.FieldTypeBoolean:
		return types.FieldTypeBoolean, nil
	case types.FieldTypeSelect:
		return types.FieldTypeSelect, nil
	case types.FieldTypeJSON:
		return types.FieldTypeJSON, nil
	default:
		return "", fmt.Errorf("unknown field data type %q", raw)
	}
}
