package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hswtrack/compliance-backend/internal/data/repos"
	types "github.com/hswtrack/compliance-backend/internal/domain"
	"github.com/hswtrack/compliance-backend/internal/http/response"
	"github.com/hswtrack/compliance-backend/internal/pkg/dbctx"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
	"github.com/hswtrack/compliance-backend/internal/services"
)

type PersonHandler struct {
	log        *logger.Logger
	identity   services.IdentityService
	records    services.RecordService
	personRepo repos.PersonRepo
	aliasRepo  repos.AliasRepo
}

func NewPersonHandler(
	log *logger.Logger,
	identity services.IdentityService,
	records services.RecordService,
	personRepo repos.PersonRepo,
	aliasRepo repos.AliasRepo,
) *PersonHandler {
	return &PersonHandler{
		log:        log.With("handler", "PersonHandler"),
		identity:   identity,
		records:    records,
		personRepo: personRepo,
		aliasRepo:  aliasRepo,
	}
}

// POST /api/people
// body: { "alias": "...", "first_name": "...", "last_name": "...", "email": "...", "external_id": "...", "person_type": "staff" }
func (h *PersonHandler) Create(c *gin.Context) {
	var req struct {
		Alias      string `json:"alias"`
		FirstName  string `json:"first_name"`
		LastName   string `json:"last_name"`
		Email      string `json:"email"`
		ExternalID string `json:"external_id"`
		PersonType string `json:"person_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Alias) == "" {
		response.RespondError(c, http.StatusBadRequest, "alias_required", nil)
		return
	}

	person := &types.Person{
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		ExternalID: strings.TrimSpace(req.ExternalID),
		Active:     true,
	}
	switch types.PersonType(strings.TrimSpace(req.PersonType)) {
	case types.PersonTypeStaff:
		person.PersonType = types.PersonTypeStaff
	case types.PersonTypeStudent:
		person.PersonType = types.PersonTypeStudent
	default:
		person.PersonType = types.PersonTypeOther
	}

	created, err := h.identity.CreatePerson(dbctx.Context{Ctx: c.Request.Context()}, req.Alias, person)
	if err != nil {
		response.RespondMapped(c, "create_person_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"person": created})
}

// GET /api/people
func (h *PersonHandler) List(c *gin.Context) {
	limit, offset := paginate(c)
	people, err := h.personRepo.List(c.Request.Context(), nil, limit, offset)
	if err != nil {
		response.RespondMapped(c, "list_people_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"people": people})
}

// GET /api/people/resolve?alias=...
func (h *PersonHandler) Resolve(c *gin.Context) {
	alias := strings.TrimSpace(c.Query("alias"))
	if alias == "" {
		response.RespondError(c, http.StatusBadRequest, "alias_required", nil)
		return
	}
	person, err := h.identity.Resolve(dbctx.Context{Ctx: c.Request.Context()}, alias)
	if err != nil {
		response.RespondMapped(c, "resolve_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"person": person})
}

// GET /api/people/:id
func (h *PersonHandler) Get(c *gin.Context) {
	personID, ok := parseIDParam(c)
	if !ok {
		return
	}
	person, err := h.identity.GetPerson(c.Request.Context(), personID)
	if err != nil {
		response.RespondMapped(c, "person_not_found", err)
		return
	}
	aliases, err := h.aliasRepo.ListByPerson(c.Request.Context(), nil, personID)
	if err != nil {
		response.RespondMapped(c, "list_aliases_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"person": person, "aliases": aliases})
}

// POST /api/people/:id/aliases
// body: { "alias": "..." }
func (h *PersonHandler) AddAlias(c *gin.Context) {
	personID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Alias string `json:"alias"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Alias) == "" {
		response.RespondError(c, http.StatusBadRequest, "alias_required", err)
		return
	}
	if err := h.identity.AddAlias(dbctx.Context{Ctx: c.Request.Context()}, personID, req.Alias); err != nil {
		response.RespondMapped(c, "add_alias_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// DELETE /api/people/:id/aliases
// body: { "alias": "..." }
func (h *PersonHandler) RemoveAlias(c *gin.Context) {
	personID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Alias string `json:"alias"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Alias) == "" {
		response.RespondError(c, http.StatusBadRequest, "alias_required", err)
		return
	}
	if err := h.identity.RemoveAlias(c.Request.Context(), personID, req.Alias); err != nil {
		response.RespondMapped(c, "remove_alias_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/people/:id/merge
// body: { "donor_id": "..." }
// The path person survives; the donor's aliases and records move over.
func (h *PersonHandler) Merge(c *gin.Context) {
	survivorID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req struct {
		DonorID uuid.UUID `json:"donor_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.DonorID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "donor_id_required", err)
		return
	}
	survivor, err := h.identity.Merge(c.Request.Context(), survivorID, req.DonorID)
	if err != nil {
		h.log.Warn("merge failed", "error", err, "survivor_id", survivorID, "donor_id", req.DonorID)
		response.RespondMapped(c, "merge_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"person": survivor})
}

// GET /api/people/:id/records
func (h *PersonHandler) ListRecords(c *gin.Context) {
	personID, ok := parseIDParam(c)
	if !ok {
		return
	}
	records, err := h.records.ListForPerson(c.Request.Context(), personID)
	if err != nil {
		response.RespondMapped(c, "list_records_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"records": records})
}
