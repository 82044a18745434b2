package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hswtrack/compliance-backend/internal/data/repos"
	"github.com/hswtrack/compliance-backend/internal/data/repos/testutil"
	types "github.com/hswtrack/compliance-backend/internal/domain"
	"github.com/hswtrack/compliance-backend/internal/ingestion/tabular"
	"github.com/hswtrack/compliance-backend/internal/pkg/dbctx"
	pkgerrors "github.com/hswtrack/compliance-backend/internal/pkg/errors"
	"github.com/hswtrack/compliance-backend/internal/realtime/bus"
	"github.com/hswtrack/compliance-backend/internal/templates"
)

const harnessTemplates = `
templates:
  training_records:
    version: "1"
    identity_columns: [email, user_id]
    required_columns: [course]
    training_code_columns: [course_code]
    training_title_columns: [course]
    completion_columns: [completed_at]
    expiry_columns: [expires_at]
  people:
    version: "1"
    identity_columns: [email, staff_id]
    required_columns: []
`

type harness struct {
	db *gorm.DB

	staging        StagingService
	pipeline       PipelineService
	reconciliation ReconciliationService
	identity       IdentityService
	records        RecordService

	batchRepo      repos.BatchRepo
	rowRepo        repos.RowRepo
	personRepo     repos.PersonRepo
	aliasRepo      repos.AliasRepo
	trainingRepo   repos.TrainingRepo
	fieldDefRepo   repos.FieldDefRepo
	recordRepo     repos.RecordRepo
	fieldValueRepo repos.FieldValueRepo
	categoryRepo   repos.CategoryRepo
	groupRepo      repos.GroupRepo
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	registry, err := templates.Parse([]byte(harnessTemplates))
	if err != nil {
		t.Fatalf("parse harness templates: %v", err)
	}

	h := &harness{
		db:             db,
		batchRepo:      repos.NewBatchRepo(db, log),
		rowRepo:        repos.NewRowRepo(db, log),
		personRepo:     repos.NewPersonRepo(db, log),
		aliasRepo:      repos.NewAliasRepo(db, log),
		trainingRepo:   repos.NewTrainingRepo(db, log),
		fieldDefRepo:   repos.NewFieldDefRepo(db, log),
		recordRepo:     repos.NewRecordRepo(db, log),
		fieldValueRepo: repos.NewFieldValueRepo(db, log),
		categoryRepo:   repos.NewCategoryRepo(db, log),
		groupRepo:      repos.NewGroupRepo(db, log),
	}
	departmentRepo := repos.NewDepartmentRepo(db, log)

	h.identity = NewIdentityService(db, log, h.personRepo, h.aliasRepo, h.recordRepo, h.categoryRepo, h.groupRepo)
	h.staging = NewStagingService(db, log, tabular.NewCSVSource(), registry, h.batchRepo, h.rowRepo)
	h.reconciliation = NewReconciliationService(db, log, registry, h.identity,
		h.batchRepo, h.rowRepo, h.trainingRepo, h.fieldDefRepo, h.recordRepo, h.fieldValueRepo,
		h.personRepo, departmentRepo, h.categoryRepo, h.groupRepo)
	h.pipeline = NewPipelineService(db, log, registry, NewRowValidator(), h.staging, h.reconciliation,
		h.batchRepo, h.rowRepo, bus.NewNoopBus())
	h.records = NewRecordService(db, log, h.recordRepo, h.fieldValueRepo)
	return h
}

// uniq makes emails and file contents unique per run so tests do not collide
// with leftovers from earlier runs against the same database.
func uniq() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

func dbcOf(ctx context.Context) dbctx.Context { return dbctx.Context{Ctx: ctx} }

func (h *harness) stage(t *testing.T, csv string) *types.ImportBatch {
	t.Helper()
	batch, err := h.staging.StageBatch(context.Background(), uuid.New(), "training_records", "test.csv", []byte(csv))
	if err != nil {
		t.Fatalf("stage batch: %v", err)
	}
	return batch
}

func TestPipelineEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tag := uniq()

	csv := fmt.Sprintf(
		"email,course,completed_at\n"+
			"alice.%s@example.com,Fire Safety %s,2024-03-01\n"+
			"bob.%s@example.com,Fire Safety %s,not-a-date\n"+
			"carol.%s@example.com,Fire Safety %s,2024-03-02\n",
		tag, tag, tag, tag, tag, tag)

	batch := h.stage(t, csv)
	if batch.TotalRows != 3 {
		t.Fatalf("total rows = %d, want 3", batch.TotalRows)
	}
	if batch.Status != types.BatchStatusPartial {
		t.Fatalf("staged status = %s, want %s", batch.Status, types.BatchStatusPartial)
	}

	// identical content hash must be rejected
	if _, err := h.staging.StageBatch(ctx, uuid.New(), "training_records", "again.csv", []byte(csv)); !errors.Is(err, pkgerrors.ErrDuplicateUpload) {
		t.Fatalf("second upload error = %v, want ErrDuplicateUpload", err)
	}

	result, err := h.pipeline.Process(ctx, batch.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Accepted != 2 || result.Errors != 1 {
		t.Fatalf("process = %+v, want accepted 2 error 1", result)
	}

	settled, err := h.batchRepo.GetByID(ctx, nil, batch.ID)
	if err != nil {
		t.Fatalf("reload batch: %v", err)
	}
	if settled.Status != types.BatchStatusPartial {
		t.Fatalf("settled status = %s, want %s", settled.Status, types.BatchStatusPartial)
	}
	if settled.AcceptedRows+settled.ErrorRows+settled.SkippedRows != settled.TotalRows {
		t.Fatalf("settle invariant broken: %d+%d+%d != %d",
			settled.AcceptedRows, settled.ErrorRows, settled.SkippedRows, settled.TotalRows)
	}

	// the error names the offending row and reason
	errStatus := types.RowStatusError
	errRows, err := h.rowRepo.ListByBatch(ctx, nil, batch.ID, &errStatus, 10, 0)
	if err != nil {
		t.Fatalf("list error rows: %v", err)
	}
	if len(errRows) != 1 || errRows[0].RowNumber != 3 {
		t.Fatalf("expected the bad-date row (line 3) in error, got %+v", errRows)
	}
	if !strings.Contains(errRows[0].ErrorDetails, "row 3") || !strings.Contains(errRows[0].ErrorDetails, "not-a-date") {
		t.Fatalf("error details not row-addressable: %q", errRows[0].ErrorDetails)
	}

	mat, err := h.pipeline.MaterializeAccepted(ctx, batch.ID)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if mat.Created != 2 || mat.Errors != 0 {
		t.Fatalf("materialize = %+v, want created 2", mat)
	}

	// the training was created from the title, and the record carries the
	// row's completion timestamp
	training, err := h.trainingRepo.GetByCode(ctx, nil, slugify("Fire Safety "+tag))
	if err != nil {
		t.Fatalf("training not created: %v", err)
	}
	alice, err := h.identity.Resolve(dbcOf(ctx), "alice."+tag+"@example.com")
	if err != nil {
		t.Fatalf("alice not resolvable: %v", err)
	}
	record, err := h.recordRepo.GetForUpdate(ctx, h.db, alice.ID, training.ID)
	if err != nil {
		t.Fatalf("record missing: %v", err)
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if record.CompletedAt == nil || !record.CompletedAt.Equal(want) {
		t.Fatalf("record completed_at = %v, want %v", record.CompletedAt, want)
	}

	// retryFailedRows resets only the error row, and reprocessing reproduces
	// the same failure
	reset, err := h.pipeline.RetryFailedRows(ctx, batch.ID)
	if err != nil {
		t.Fatalf("retry failed rows: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset = %d, want 1", reset)
	}
	again, err := h.pipeline.Process(ctx, batch.ID)
	if err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	if again.Errors != 1 || again.Accepted != 0 {
		t.Fatalf("reprocess = %+v, want the same single error", again)
	}

	// full retry restages every row from the stored upload, twice in a row
	// giving the same result
	for i := 0; i < 2; i++ {
		restaged, err := h.pipeline.RetryBatch(ctx, batch.ID)
		if err != nil {
			t.Fatalf("retry batch (pass %d): %v", i+1, err)
		}
		if restaged.TotalRows != 3 {
			t.Fatalf("restaged rows = %d, want 3", restaged.TotalRows)
		}
		pending := types.RowStatusPending
		rows, err := h.rowRepo.ListByBatch(ctx, nil, batch.ID, &pending, 10, 0)
		if err != nil {
			t.Fatalf("list rows: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("pending rows after retry = %d, want 3", len(rows))
		}
	}
}

func TestStageBatchParseFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// whitespace-only upload: non-empty bytes, no header row
	batch, err := h.staging.StageBatch(ctx, uuid.New(), "training_records", "broken.csv", []byte(" \n"))
	if !errors.Is(err, pkgerrors.ErrParseFailure) {
		t.Fatalf("error = %v, want ErrParseFailure", err)
	}
	if batch == nil {
		t.Fatalf("a parse failure must still leave a batch behind")
	}
	reloaded, err := h.batchRepo.GetByID(ctx, nil, batch.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != types.BatchStatusFailed {
		t.Fatalf("status = %s, want %s", reloaded.Status, types.BatchStatusFailed)
	}
	if reloaded.TotalRows != 0 {
		t.Fatalf("no partial row set may survive a parse failure, got %d rows", reloaded.TotalRows)
	}
}

func TestLatestWinsUpsert(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tag := uniq()
	email := "dana." + tag + "@example.com"
	code := "code-" + tag

	run := func(completedAt string) {
		t.Helper()
		csv := fmt.Sprintf("email,course,course_code,completed_at\n%s,Working at Heights,%s,%s\n", email, code, completedAt)
		batch := h.stage(t, csv)
		if _, err := h.pipeline.Process(ctx, batch.ID); err != nil {
			t.Fatalf("process: %v", err)
		}
		if _, err := h.pipeline.MaterializeAccepted(ctx, batch.ID); err != nil {
			t.Fatalf("materialize: %v", err)
		}
	}

	run("2024-01-10")
	run("2024-02-20")
	run("2023-12-01") // stale re-upload must not clobber

	person, err := h.identity.Resolve(dbcOf(ctx), email)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	training, err := h.trainingRepo.GetByCode(ctx, nil, code)
	if err != nil {
		t.Fatalf("training: %v", err)
	}
	record, err := h.recordRepo.GetForUpdate(ctx, h.db, person.ID, training.ID)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	want := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	if record.CompletedAt == nil || !record.CompletedAt.Equal(want) {
		t.Fatalf("completed_at = %v, want latest %v", record.CompletedAt, want)
	}
}

func TestRequiredFieldEnforcement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tag := uniq()
	code := "first-aid-" + tag

	training, err := h.trainingRepo.Create(ctx, nil, &types.Training{
		Code:   code,
		Title:  "First Aid",
		Active: true,
	})
	if err != nil {
		t.Fatalf("create training: %v", err)
	}
	trainingID := training.ID
	if _, err := h.fieldDefRepo.Create(ctx, nil, &types.TrainingFieldDef{
		TrainingID: &trainingID,
		Key:        "site_code",
		Label:      "Site code",
		DataType:   types.FieldTypeText,
		Required:   true,
		Active:     true,
	}); err != nil {
		t.Fatalf("create field def: %v", err)
	}

	email := "erin." + tag + "@example.com"
	csv := fmt.Sprintf("email,course,course_code,completed_at\n%s,First Aid,%s,2024-04-01\n", email, code)
	batch := h.stage(t, csv)
	if _, err := h.pipeline.Process(ctx, batch.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	mat, err := h.pipeline.MaterializeAccepted(ctx, batch.ID)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if mat.Created != 0 || mat.Errors != 1 {
		t.Fatalf("materialize = %+v, want 1 error and nothing created", mat)
	}

	accepted := types.RowStatusAccepted
	rows, err := h.rowRepo.ListByBatch(ctx, nil, batch.ID, &accepted, 10, 0)
	if err != nil {
		t.Fatalf("list rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("row must stay ACCEPTED on reconciliation failure, got %d accepted rows", len(rows))
	}
	if !strings.Contains(rows[0].ErrorDetails, "site_code") {
		t.Fatalf("error must list the missing key, got %q", rows[0].ErrorDetails)
	}

	// no record and no partial field values exist for the failed row
	person, err := h.identity.Resolve(dbcOf(ctx), email)
	if err == nil {
		if _, rerr := h.recordRepo.GetForUpdate(ctx, h.db, person.ID, training.ID); !errors.Is(rerr, pkgerrors.ErrNotFound) {
			t.Fatalf("no training record may exist, got err=%v", rerr)
		}
	}
}

func TestSkippedNoIdentityLeavesRowAccepted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tag := uniq()

	// user_id satisfies validation but resolves to nobody, and with no email
	// the engine cannot create a person either
	csv := fmt.Sprintf("user_id,course,completed_at\nghost-%s,Manual Handling %s,2024-05-01\n", tag, tag)
	batch := h.stage(t, csv)
	if _, err := h.pipeline.Process(ctx, batch.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	mat, err := h.pipeline.MaterializeAccepted(ctx, batch.ID)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if mat.SkippedNoIdentity != 1 || mat.Created != 0 {
		t.Fatalf("materialize = %+v, want 1 skipped_no_identity", mat)
	}

	accepted := types.RowStatusAccepted
	rows, err := h.rowRepo.ListByBatch(ctx, nil, batch.ID, &accepted, 10, 0)
	if err != nil {
		t.Fatalf("list rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("skipped row must stay ACCEPTED, got %d accepted rows", len(rows))
	}
}

func TestExpiryModes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tag := uniq()

	days := 30
	fixed, err := h.trainingRepo.Create(ctx, nil, &types.Training{
		Code:              "fixed-" + tag,
		Title:             "Fixed Expiry",
		Active:            true,
		ExpiryMode:        types.ExpiryModeFixedDays,
		DefaultExpiryDays: &days,
	})
	if err != nil {
		t.Fatalf("create training: %v", err)
	}

	email := "frank." + tag + "@example.com"
	csv := fmt.Sprintf("email,course,course_code,completed_at\n%s,Fixed Expiry,%s,2020-01-01\n", email, fixed.Code)
	batch := h.stage(t, csv)
	if _, err := h.pipeline.Process(ctx, batch.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	if _, err := h.pipeline.MaterializeAccepted(ctx, batch.ID); err != nil {
		t.Fatalf("materialize: %v", err)
	}

	person, err := h.identity.Resolve(dbcOf(ctx), email)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	record, err := h.recordRepo.GetForUpdate(ctx, h.db, person.ID, fixed.ID)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	wantExpiry := time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)
	if record.ExpiryAt == nil || !record.ExpiryAt.Equal(wantExpiry) {
		t.Fatalf("expiry_at = %v, want %v", record.ExpiryAt, wantExpiry)
	}
	// a 2020 completion with 30-day expiry is long expired
	if record.Status != types.RecordStatusExpired {
		t.Fatalf("status = %s, want %s", record.Status, types.RecordStatusExpired)
	}
}

func TestCrossPersonIdentityConflictSurfaced(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tag := uniq()
	email := "avery." + tag + "@example.com"
	sharedID := "emp-" + tag

	if _, err := h.identity.CreatePerson(dbcOf(ctx), email, &types.Person{
		Email: email, PersonType: types.PersonTypeStaff, Active: true,
	}); err != nil {
		t.Fatalf("create person: %v", err)
	}
	otherEmail := "blair." + tag + "@example.com"
	other, err := h.identity.CreatePerson(dbcOf(ctx), otherEmail, &types.Person{
		Email: otherEmail, PersonType: types.PersonTypeStaff, Active: true,
	})
	if err != nil {
		t.Fatalf("create other person: %v", err)
	}
	if err := h.identity.AddAlias(dbcOf(ctx), other.ID, sharedID); err != nil {
		t.Fatalf("add alias: %v", err)
	}

	// the row resolves by email, but its user_id belongs to somebody else
	csv := fmt.Sprintf("email,user_id,course,completed_at\n%s,%s,Confined Spaces %s,2024-06-01\n",
		email, sharedID, tag)
	batch := h.stage(t, csv)
	if _, err := h.pipeline.Process(ctx, batch.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	mat, err := h.pipeline.MaterializeAccepted(ctx, batch.ID)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if mat.Created != 1 || mat.Errors != 0 {
		t.Fatalf("materialize = %+v, want 1 created and no errors", mat)
	}

	processed := types.RowStatusProcessed
	rows, err := h.rowRepo.ListByBatch(ctx, nil, batch.ID, &processed, 10, 0)
	if err != nil {
		t.Fatalf("list rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("processed rows = %d, want 1", len(rows))
	}
	if !strings.Contains(rows[0].ActionTaken, "identity conflict") || !strings.Contains(rows[0].ActionTaken, sharedID) {
		t.Fatalf("action_taken must name the contested value, got %q", rows[0].ActionTaken)
	}

	// the contested alias stays with its original owner
	resolved, err := h.identity.Resolve(dbcOf(ctx), sharedID)
	if err != nil {
		t.Fatalf("resolve contested alias: %v", err)
	}
	if resolved.ID != other.ID {
		t.Fatalf("contested alias moved: resolved to %s, want %s", resolved.ID, other.ID)
	}
}

func TestPeopleImportMaterialization(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tag := uniq()
	email := "grace." + tag + "@example.com"

	run := func(csv string) {
		t.Helper()
		batch, err := h.staging.StageBatch(ctx, uuid.New(), "people", "people.csv", []byte(csv))
		if err != nil {
			t.Fatalf("stage: %v", err)
		}
		if _, err := h.pipeline.Process(ctx, batch.ID); err != nil {
			t.Fatalf("process: %v", err)
		}
		mat, err := h.pipeline.MaterializeAccepted(ctx, batch.ID)
		if err != nil {
			t.Fatalf("materialize: %v", err)
		}
		if mat.Errors != 0 {
			t.Fatalf("materialize = %+v, want no errors", mat)
		}
	}

	run(fmt.Sprintf(
		"email,first_name,last_name,department,person_type,categories,groups\n"+
			"%s,Grace,Hopper,Engineering %s,staff,\"Contractors %s, Night Shift %s\",Wardens %s\n",
		email, tag, tag, tag, tag))

	person, err := h.identity.Resolve(dbcOf(ctx), email)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if person.FirstName != "Grace" || person.LastName != "Hopper" {
		t.Fatalf("name = %q %q, want Grace Hopper", person.FirstName, person.LastName)
	}
	if person.PersonType != types.PersonTypeStaff {
		t.Fatalf("person_type = %s, want %s", person.PersonType, types.PersonTypeStaff)
	}
	if person.DepartmentID == nil {
		t.Fatalf("department not assigned")
	}

	categories, err := h.categoryRepo.ListByPerson(ctx, nil, person.ID)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(categories))
	}
	groups, err := h.groupRepo.ListByPerson(ctx, nil, person.ID)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "Wardens "+tag {
		t.Fatalf("groups = %+v, want single Wardens group", groups)
	}

	// a second import naming the same categories and groups updates the person
	// in place without duplicating any membership
	run(fmt.Sprintf(
		"email,first_name,last_name,department,person_type,categories,groups\n"+
			"%s,Grace,Hopper,Operations %s,staff,\"Contractors %s, Night Shift %s\",Wardens %s\n",
		email, tag, tag, tag, tag))

	categories, err = h.categoryRepo.ListByPerson(ctx, nil, person.ID)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("categories after re-import = %d, want 2", len(categories))
	}
	groups, err = h.groupRepo.ListByPerson(ctx, nil, person.ID)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups after re-import = %d, want 1", len(groups))
	}
}
