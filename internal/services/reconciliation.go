package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hswtrack/compliance-backend/internal/data/repos"
	types "github.com/hswtrack/compliance-backend/internal/domain"
	"github.com/hswtrack/compliance-backend/internal/pkg/dbctx"
	pkgerrors "github.com/hswtrack/compliance-backend/internal/pkg/errors"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
	"github.com/hswtrack/compliance-backend/internal/templates"
)

// MaterializeResult aggregates one materialization pass over a batch's
// accepted rows.
type MaterializeResult struct {
	Created           int `json:"created"`
	Updated           int `json:"updated"`
	Unchanged         int `json:"unchanged"`
	SkippedNoIdentity int `json:"skipped_no_identity"`
	Errors            int `json:"errors"`
}

// ReconciliationService converts accepted rows into durable records. The
// whole pass for a batch runs in one transaction: either every eligible row's
// effects commit or none do.
type ReconciliationService interface {
	MaterializeBatch(ctx context.Context, batchID uuid.UUID) (*MaterializeResult, error)
}

type reconciliationService struct {
	db             *gorm.DB
	log            *logger.Logger
	registry       *templates.Registry
	identity       IdentityService
	batchRepo      repos.BatchRepo
	rowRepo        repos.RowRepo
	trainingRepo   repos.TrainingRepo
	fieldDefRepo   repos.FieldDefRepo
	recordRepo     repos.RecordRepo
	fieldValueRepo repos.FieldValueRepo
	personRepo     repos.PersonRepo
	departmentRepo repos.DepartmentRepo
	categoryRepo   repos.CategoryRepo
	groupRepo      repos.GroupRepo
}

func NewReconciliationService(
	db *gorm.DB,
	log *logger.Logger,
	registry *templates.Registry,
	identity IdentityService,
	batchRepo repos.BatchRepo,
	rowRepo repos.RowRepo,
	trainingRepo repos.TrainingRepo,
	fieldDefRepo repos.FieldDefRepo,
	recordRepo repos.RecordRepo,
	fieldValueRepo repos.FieldValueRepo,
	personRepo repos.PersonRepo,
	departmentRepo repos.DepartmentRepo,
	categoryRepo repos.CategoryRepo,
	groupRepo repos.GroupRepo,
) ReconciliationService {
	serviceLog := log.With("service", "ReconciliationService")
	return &reconciliationService{
		db:             db,
		log:            serviceLog,
		registry:       registry,
		identity:       identity,
		batchRepo:      batchRepo,
		rowRepo:        rowRepo,
		trainingRepo:   trainingRepo,
		fieldDefRepo:   fieldDefRepo,
		recordRepo:     recordRepo,
		fieldValueRepo: fieldValueRepo,
		personRepo:     personRepo,
		departmentRepo: departmentRepo,
		categoryRepo:   categoryRepo,
		groupRepo:      groupRepo,
	}
}

func (rs *reconciliationService) MaterializeBatch(ctx context.Context, batchID uuid.UUID) (*MaterializeResult, error) {
	result := &MaterializeResult{}
	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := rs.batchRepo.GetForUpdate(ctx, tx, batchID)
		if err != nil {
			return err
		}
		tpl, ok := rs.registry.Get(batch.TemplateUsed)
		if !ok {
			return fmt.Errorf("%w: batch declares unknown template %q", pkgerrors.ErrInvalidArgument, batch.TemplateUsed)
		}

		rows, err := rs.rowRepo.GetAcceptedForUpdate(ctx, tx, batchID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, row := range rows {
			fields, err := decodeRowFields(row)
			if err != nil {
				rs.failRow(ctx, tx, row, result, fmt.Sprintf("row %d: %v", row.RowNumber, err))
				continue
			}

			var outcome rowOutcome
			switch tpl.Name {
			case "people":
				outcome = rs.materializePersonRow(ctx, tx, tpl, row, fields)
			default:
				outcome = rs.materializeTrainingRow(ctx, tx, tpl, row, fields, now)
			}

			switch outcome.kind {
			case outcomeError:
				rs.failRow(ctx, tx, row, result, fmt.Sprintf("row %d: %s", row.RowNumber, outcome.reason))
			case outcomeSkippedNoIdentity:
				result.SkippedNoIdentity++
				if err := rs.rowRepo.UpdateFields(ctx, tx, row.ID, map[string]any{
					"action_taken": "skipped: no resolvable identity",
				}); err != nil {
					return err
				}
			default:
				switch outcome.kind {
				case outcomeCreated:
					result.Created++
				case outcomeUpdated:
					result.Updated++
				case outcomeUnchanged:
					result.Unchanged++
				}
				processedAt := time.Now().UTC()
				if err := rs.rowRepo.UpdateFields(ctx, tx, row.ID, map[string]any{
					"status":        types.RowStatusProcessed,
					"action_taken":  outcome.action,
					"related_model": outcome.relatedModel,
					"related_id":    outcome.relatedID,
					"processed_at":  processedAt,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	rs.log.Info("batch materialized",
		"batch_id", batchID,
		"created", result.Created,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"skipped_no_identity", result.SkippedNoIdentity,
		"errors", result.Errors)
	return result, nil
}

type outcomeKind int

const (
	outcomeCreated outcomeKind = iota
	outcomeUpdated
	outcomeUnchanged
	outcomeSkippedNoIdentity
	outcomeError
)

type rowOutcome struct {
	kind         outcomeKind
	action       string
	relatedModel string
	relatedID    string
	reason       string
}

func rowFailure(format string, args ...any) rowOutcome {
	return rowOutcome{kind: outcomeError, reason: fmt.Sprintf(format, args...)}
}

// failRow records a per-row reconciliation failure without advancing the row
// past ACCEPTED, so a later pass can pick it up again.
func (rs *reconciliationService) failRow(ctx context.Context, tx *gorm.DB, row *types.ImportRow, result *MaterializeResult, reason string) {
	result.Errors++
	if err := rs.rowRepo.UpdateFields(ctx, tx, row.ID, map[string]any{
		"error_details": reason,
	}); err != nil {
		rs.log.Error("failed to record row error", "row_id", row.ID, "error", err)
	}
}

func decodeRowFields(row *types.ImportRow) (map[string]string, error) {
	raw := row.Normalized
	if len(raw) == 0 {
		raw = row.Raw
	}
	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("undecodable field map: %v", err)
	}
	return fields, nil
}

func firstValue(fields map[string]string, columns []string) string {
	for _, column := range columns {
		if v := strings.TrimSpace(fields[column]); v != "" {
			return v
		}
	}
	return ""
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify collapses a free-text training title into a stable code.
func slugify(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	if len(slug) > 50 {
		slug = slug[:50]
	}
	return strings.Trim(slug, "-")
}

func (rs *reconciliationService) materializeTrainingRow(
	ctx context.Context,
	tx *gorm.DB,
	tpl templates.Template,
	row *types.ImportRow,
	fields map[string]string,
	now time.Time,
) rowOutcome {
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	person, _, identityNote, outcome := rs.resolveOrCreatePerson(dbc, tpl, fields)
	if outcome != nil {
		return *outcome
	}

	training, err := rs.resolveOrCreateTraining(ctx, tx, tpl, fields)
	if err != nil {
		return rowFailure("%v", err)
	}

	completedAt := now
	if raw := firstValue(fields, tpl.CompletionColumns); raw != "" {
		ts, err := ParseTimestamp(raw)
		if err != nil {
			return rowFailure("completion timestamp: %v", err)
		}
		completedAt = ts
	}

	expiryAt, err := rs.computeExpiry(training, tpl, fields, completedAt)
	if err != nil {
		return rowFailure("%v", err)
	}

	fieldValues, missing, err := rs.collectFieldValues(ctx, tx, training, fields)
	if err != nil {
		return rowFailure("%v", err)
	}
	if len(missing) > 0 {
		return rowFailure("missing required fields: %s", strings.Join(missing, ", "))
	}

	status := types.RecordStatusValid
	if expiryAt != nil && now.After(*expiryAt) {
		status = types.RecordStatusExpired
	}

	evidence, _ := json.Marshal(fields)

	existing, err := rs.recordRepo.GetForUpdate(ctx, tx, person.ID, training.ID)
	if errors.Is(err, pkgerrors.ErrNotFound) {
		rowID := row.ID
		record, err := rs.recordRepo.Create(ctx, tx, &types.TrainingRecord{
			PersonID:    person.ID,
			TrainingID:  training.ID,
			CompletedAt: &completedAt,
			ExpiryAt:    expiryAt,
			Status:      status,
			Source:      types.RecordSourceBulkUpload,
			Evidence:    datatypes.JSON(evidence),
			ImportRowID: &rowID,
		})
		if err != nil {
			return rowFailure("create record: %v", err)
		}
		if err := rs.writeFieldValues(ctx, tx, record.ID, fieldValues); err != nil {
			return rowFailure("%v", err)
		}
		return rowOutcome{
			kind:         outcomeCreated,
			action:       appendNote(fmt.Sprintf("created record for %s / %s", person.DisplayName(), training.Code), identityNote),
			relatedModel: "training_record",
			relatedID:    record.ID.String(),
		}
	}
	if err != nil {
		return rowFailure("load record: %v", err)
	}

	// latest wins: an equal or newer stored completion makes this row a no-op
	if !newerCompletion(&completedAt, existing.CompletedAt) {
		return rowOutcome{
			kind:         outcomeUnchanged,
			action:       appendNote("ignored: stored completion is equal or newer", identityNote),
			relatedModel: "training_record",
			relatedID:    existing.ID.String(),
		}
	}

	rowID := row.ID
	if err := rs.recordRepo.UpdateFields(ctx, tx, existing.ID, map[string]any{
		"completed_at":  completedAt,
		"expiry_at":     expiryAt,
		"status":        status,
		"source":        types.RecordSourceBulkUpload,
		"evidence":      datatypes.JSON(evidence),
		"import_row_id": rowID,
	}); err != nil {
		return rowFailure("update record: %v", err)
	}
	if err := rs.writeFieldValues(ctx, tx, existing.ID, fieldValues); err != nil {
		return rowFailure("%v", err)
	}
	return rowOutcome{
		kind:         outcomeUpdated,
		action:       appendNote(fmt.Sprintf("updated record for %s / %s", person.DisplayName(), training.Code), identityNote),
		relatedModel: "training_record",
		relatedID:    existing.ID.String(),
	}
}

func appendNote(action, note string) string {
	if note == "" {
		return action
	}
	return action + "; " + note
}

// resolveOrCreatePerson walks the template's identity columns in priority
// order. When nothing resolves, a person can still be created from the row's
// own data, but only if the row carries an email to anchor the new identity.
// Identity values already owned by a different person do not block the row,
// but the returned note names them so the collision lands on the row's
// action_taken for operators to see.
func (rs *reconciliationService) resolveOrCreatePerson(dbc dbctx.Context, tpl templates.Template, fields map[string]string) (*types.Person, bool, string, *rowOutcome) {
	candidates := make([]string, 0, len(tpl.IdentityColumns))
	for _, column := range tpl.IdentityColumns {
		if v := strings.TrimSpace(fields[column]); v != "" {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		skipped := rowOutcome{kind: outcomeSkippedNoIdentity}
		return nil, false, "", &skipped
	}

	person, err := rs.identity.ResolveFirst(dbc, candidates)
	if err == nil {
		// make sure every identity value on the row resolves here next time
		note, failure := rs.registerAliases(dbc, person.ID, candidates)
		if failure != nil {
			return nil, false, "", failure
		}
		return person, false, note, nil
	}
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		failure := rowFailure("resolve identity: %v", err)
		return nil, false, "", &failure
	}

	email := strings.TrimSpace(fields["email"])
	if email == "" {
		skipped := rowOutcome{kind: outcomeSkippedNoIdentity}
		return nil, false, "", &skipped
	}

	firstName, lastName := splitName(fields)
	created, err := rs.identity.CreatePerson(dbc, email, &types.Person{
		FirstName:  firstName,
		LastName:   lastName,
		Email:      strings.ToLower(email),
		ExternalID: firstValue(fields, []string{"user_id", "uwa_id", "staff_id"}),
		PersonType: types.PersonTypeOther,
		Active:     true,
	})
	if err != nil {
		failure := rowFailure("create person: %v", err)
		return nil, false, "", &failure
	}
	note, failure := rs.registerAliases(dbc, created.ID, candidates)
	if failure != nil {
		return nil, false, "", failure
	}
	return created, true, note, nil
}

func (rs *reconciliationService) registerAliases(dbc dbctx.Context, personID uuid.UUID, candidates []string) (string, *rowOutcome) {
	var conflicts []string
	for _, candidate := range candidates {
		aerr := rs.identity.AddAlias(dbc, personID, candidate)
		if aerr == nil {
			continue
		}
		if errors.Is(aerr, pkgerrors.ErrConflict) {
			conflicts = append(conflicts, candidate)
			continue
		}
		failure := rowFailure("add alias: %v", aerr)
		return "", &failure
	}
	if len(conflicts) == 0 {
		return "", nil
	}
	return fmt.Sprintf("identity conflict: %s already belongs to another person", strings.Join(conflicts, ", ")), nil
}

func splitName(fields map[string]string) (string, string) {
	first := strings.TrimSpace(fields["first_name"])
	last := strings.TrimSpace(fields["last_name"])
	if first != "" || last != "" {
		return first, last
	}
	full := strings.TrimSpace(fields["name"])
	if full == "" {
		full = strings.TrimSpace(fields["full_name"])
	}
	if full == "" {
		return "", ""
	}
	parts := strings.Fields(full)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

func (rs *reconciliationService) resolveOrCreateTraining(ctx context.Context, tx *gorm.DB, tpl templates.Template, fields map[string]string) (*types.Training, error) {
	code := firstValue(fields, tpl.TrainingCodeColumns)
	title := firstValue(fields, tpl.TrainingTitleColumns)
	if code == "" {
		if title == "" {
			return nil, fmt.Errorf("no training code or title present")
		}
		code = slugify(title)
		if code == "" {
			return nil, fmt.Errorf("training title %q yields an empty code", title)
		}
	}
	if title == "" {
		title = code
	}

	training, err := rs.trainingRepo.GetByCode(ctx, tx, code)
	if err == nil {
		return training, nil
	}
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		return nil, fmt.Errorf("load training %q: %w", code, err)
	}
	created, err := rs.trainingRepo.Create(ctx, tx, &types.Training{
		Code:       code,
		Title:      title,
		Active:     true,
		ExpiryMode: types.ExpiryModeNone,
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrConflict) {
			return rs.trainingRepo.GetByCode(ctx, tx, code)
		}
		return nil, fmt.Errorf("create training %q: %w", code, err)
	}
	return created, nil
}

func (rs *reconciliationService) computeExpiry(training *types.Training, tpl templates.Template, fields map[string]string, completedAt time.Time) (*time.Time, error) {
	switch training.ExpiryMode {
	case types.ExpiryModeFixedDays:
		return types.ComputeExpiry(training, &completedAt), nil
	case types.ExpiryModePerRecord:
		raw := firstValue(fields, tpl.ExpiryColumns)
		if raw == "" {
			return nil, nil
		}
		ts, err := ParseTimestamp(raw)
		if err != nil {
			return nil, fmt.Errorf("expiry timestamp: %v", err)
		}
		return &ts, nil
	default:
		return nil, nil
	}
}

// collectFieldValues coerces every dynamic field present on the row and
// reports the required keys that are absent. Nothing is written here, so a
// failed row leaves no partial field values behind.
func (rs *reconciliationService) collectFieldValues(ctx context.Context, tx *gorm.DB, training *types.Training, fields map[string]string) (map[uuid.UUID]types.TypedValue, []string, error) {
	defs, err := rs.fieldDefRepo.ListForTraining(ctx, tx, training.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load field definitions: %w", err)
	}

	values := make(map[uuid.UUID]types.TypedValue)
	var missing []string
	for _, def := range defs {
		raw := strings.TrimSpace(fields[def.Key])
		if raw == "" {
			if def.Required {
				missing = append(missing, def.Key)
			}
			continue
		}
		value, err := CoerceFieldValue(def, raw)
		if err != nil {
			return nil, nil, err
		}
		values[def.ID] = value
	}
	sort.Strings(missing)
	return values, missing, nil
}

func (rs *reconciliationService) writeFieldValues(ctx context.Context, tx *gorm.DB, recordID uuid.UUID, values map[uuid.UUID]types.TypedValue) error {
	for fieldDefID, value := range values {
		fv, err := types.NewFieldValue(recordID, fieldDefID, value)
		if err != nil {
			return err
		}
		if err := rs.fieldValueRepo.Upsert(ctx, tx, fv); err != nil {
			return fmt.Errorf("store field value: %w", err)
		}
	}
	return nil
}

// materializePersonRow applies a people-template row: update the resolved
// person in place or create a new one anchored on the row's email.
func (rs *reconciliationService) materializePersonRow(
	ctx context.Context,
	tx *gorm.DB,
	tpl templates.Template,
	row *types.ImportRow,
	fields map[string]string,
) rowOutcome {
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	var departmentID *uuid.UUID
	if name := strings.TrimSpace(fields["department"]); name != "" {
		department, err := rs.departmentRepo.GetOrCreateByName(ctx, tx, name)
		if err != nil {
			return rowFailure("department %q: %v", name, err)
		}
		departmentID = &department.ID
	}

	personType := types.PersonTypeOther
	switch strings.ToLower(strings.TrimSpace(fields["person_type"])) {
	case "staff":
		personType = types.PersonTypeStaff
	case "student":
		personType = types.PersonTypeStudent
	}

	person, createdNew, identityNote, outcome := rs.resolveOrCreatePerson(dbc, tpl, fields)
	if outcome != nil {
		return *outcome
	}

	firstName, lastName := splitName(fields)
	updates := map[string]any{}
	if firstName != "" {
		updates["first_name"] = firstName
	}
	if lastName != "" {
		updates["last_name"] = lastName
	}
	if email := strings.TrimSpace(fields["email"]); email != "" {
		updates["email"] = strings.ToLower(email)
	}
	if departmentID != nil {
		updates["department_id"] = *departmentID
	}
	if strings.TrimSpace(fields["person_type"]) != "" {
		updates["person_type"] = personType
	}
	if len(updates) > 0 {
		if err := rs.personRepo.UpdateFields(ctx, tx, person.ID, updates); err != nil {
			return rowFailure("update person: %v", err)
		}
	}

	if outcome := rs.enrolPerson(ctx, tx, person.ID, fields); outcome != nil {
		return *outcome
	}

	kind := outcomeUpdated
	action := fmt.Sprintf("updated person %s", person.DisplayName())
	if createdNew {
		kind = outcomeCreated
		action = fmt.Sprintf("created person %s", person.DisplayName())
	}
	return rowOutcome{
		kind:         kind,
		action:       appendNote(action, identityNote),
		relatedModel: "person",
		relatedID:    person.ID.String(),
	}
}

// enrolPerson attaches the person to any categories and groups named on the
// row. Both columns accept comma-separated lists and memberships are
// idempotent, so re-running a batch never duplicates an enrolment.
func (rs *reconciliationService) enrolPerson(ctx context.Context, tx *gorm.DB, personID uuid.UUID, fields map[string]string) *rowOutcome {
	for _, name := range splitList(firstValue(fields, []string{"categories", "category"})) {
		category, err := rs.categoryRepo.GetOrCreateBySlug(ctx, tx, slugify(name), name, types.CategoryScopeUser)
		if err != nil {
			failure := rowFailure("category %q: %v", name, err)
			return &failure
		}
		if err := rs.categoryRepo.EnsureMembership(ctx, tx, personID, category.ID); err != nil {
			failure := rowFailure("enrol category %q: %v", name, err)
			return &failure
		}
	}
	for _, name := range splitList(firstValue(fields, []string{"groups", "group"})) {
		group, err := rs.groupRepo.GetOrCreateByName(ctx, tx, name)
		if err != nil {
			failure := rowFailure("group %q: %v", name, err)
			return &failure
		}
		if err := rs.groupRepo.EnsureMembership(ctx, tx, group.ID, personID); err != nil {
			failure := rowFailure("enrol group %q: %v", name, err)
			return &failure
		}
	}
	return nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
