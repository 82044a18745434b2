package services

import (
	"context"
	"errors"
	"testing"
	"time"

	types "github.com/hswtrack/compliance-backend/internal/domain"
	pkgerrors "github.com/hswtrack/compliance-backend/internal/pkg/errors"
)

func newPerson(t *testing.T, h *harness, alias string) *types.Person {
	t.Helper()
	person, err := h.identity.CreatePerson(dbcOf(context.Background()), alias, &types.Person{
		FirstName:  "Test",
		LastName:   "Person",
		Email:      alias,
		PersonType: types.PersonTypeStaff,
		Active:     true,
	})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	return person
}

func TestCreatePersonConflictsOnOwnedAlias(t *testing.T) {
	h := newHarness(t)
	alias := "owned." + uniq() + "@example.com"
	newPerson(t, h, alias)

	_, err := h.identity.CreatePerson(dbcOf(context.Background()), alias, &types.Person{Active: true})
	if !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

func TestAddAlias(t *testing.T) {
	h := newHarness(t)
	dbc := dbcOf(context.Background())
	tag := uniq()
	a := newPerson(t, h, "a."+tag+"@example.com")
	b := newPerson(t, h, "b."+tag+"@example.com")

	// fresh alias attaches
	if err := h.identity.AddAlias(dbc, a.ID, "legacy-"+tag); err != nil {
		t.Fatalf("add alias: %v", err)
	}
	// re-adding the same alias to the same person is a no-op success
	if err := h.identity.AddAlias(dbc, a.ID, "LEGACY-"+tag); err != nil {
		t.Fatalf("same-person re-add must succeed: %v", err)
	}
	// the same alias on a different person conflicts
	if err := h.identity.AddAlias(dbc, b.ID, "legacy-"+tag); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("cross-person add error = %v, want ErrConflict", err)
	}

	got, err := h.identity.Resolve(dbc, " Legacy-"+tag+" ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != a.ID {
		t.Fatalf("alias resolves to %s, want %s", got.ID, a.ID)
	}
}

func TestRemoveAliasInvariants(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	dbc := dbcOf(ctx)
	tag := uniq()
	person := newPerson(t, h, "only."+tag+"@example.com")
	other := newPerson(t, h, "other."+tag+"@example.com")

	// the last alias cannot be removed
	err := h.identity.RemoveAlias(ctx, person.ID, "only."+tag+"@example.com")
	if !errors.Is(err, pkgerrors.ErrInvariantViolation) {
		t.Fatalf("removing last alias: error = %v, want ErrInvariantViolation", err)
	}

	// an alias belonging to someone else cannot be removed through this person
	err = h.identity.RemoveAlias(ctx, person.ID, "other."+tag+"@example.com")
	if !errors.Is(err, pkgerrors.ErrInvariantViolation) {
		t.Fatalf("removing foreign alias: error = %v, want ErrInvariantViolation", err)
	}
	_ = other

	// with a second alias in place, removal works
	if err := h.identity.AddAlias(dbc, person.ID, "spare-"+tag); err != nil {
		t.Fatalf("add alias: %v", err)
	}
	if err := h.identity.RemoveAlias(ctx, person.ID, "only."+tag+"@example.com"); err != nil {
		t.Fatalf("remove alias: %v", err)
	}
	if _, err := h.identity.Resolve(dbc, "only."+tag+"@example.com"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("removed alias still resolves, err = %v", err)
	}
}

func TestMergeRepointsEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	dbc := dbcOf(ctx)
	tag := uniq()

	survivor := newPerson(t, h, "survivor."+tag+"@example.com")
	donor := newPerson(t, h, "donor."+tag+"@example.com")

	training, err := h.trainingRepo.Create(ctx, nil, &types.Training{
		Code:   "merge-" + tag,
		Title:  "Merge Training",
		Active: true,
	})
	if err != nil {
		t.Fatalf("create training: %v", err)
	}
	shared, err := h.trainingRepo.Create(ctx, nil, &types.Training{
		Code:   "shared-" + tag,
		Title:  "Shared Training",
		Active: true,
	})
	if err != nil {
		t.Fatalf("create training: %v", err)
	}

	older := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// donor-only record moves; on the shared training the newer completion
	// must win
	if _, err := h.recordRepo.Create(ctx, nil, &types.TrainingRecord{
		PersonID: donor.ID, TrainingID: training.ID,
		CompletedAt: &older, Status: types.RecordStatusValid, Source: types.RecordSourceManual,
	}); err != nil {
		t.Fatalf("seed donor record: %v", err)
	}
	if _, err := h.recordRepo.Create(ctx, nil, &types.TrainingRecord{
		PersonID: donor.ID, TrainingID: shared.ID,
		CompletedAt: &newer, Status: types.RecordStatusValid, Source: types.RecordSourceManual,
	}); err != nil {
		t.Fatalf("seed donor shared record: %v", err)
	}
	if _, err := h.recordRepo.Create(ctx, nil, &types.TrainingRecord{
		PersonID: survivor.ID, TrainingID: shared.ID,
		CompletedAt: &older, Status: types.RecordStatusValid, Source: types.RecordSourceManual,
	}); err != nil {
		t.Fatalf("seed survivor shared record: %v", err)
	}

	if _, err := h.identity.Merge(ctx, survivor.ID, survivor.ID); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("self-merge error = %v, want ErrInvalidArgument", err)
	}

	merged, err := h.identity.Merge(ctx, survivor.ID, donor.ID)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.ID != survivor.ID {
		t.Fatalf("merge returned %s, want survivor %s", merged.ID, survivor.ID)
	}

	// every former donor alias now resolves to the survivor
	got, err := h.identity.Resolve(dbc, "donor."+tag+"@example.com")
	if err != nil {
		t.Fatalf("donor alias no longer resolves: %v", err)
	}
	if got.ID != survivor.ID {
		t.Fatalf("donor alias resolves to %s, want survivor", got.ID)
	}

	// the donor is gone
	if _, err := h.identity.GetPerson(ctx, donor.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("donor lookup error = %v, want ErrNotFound", err)
	}

	// donor-only record repointed
	moved, err := h.recordRepo.GetForUpdate(ctx, h.db, survivor.ID, training.ID)
	if err != nil {
		t.Fatalf("moved record: %v", err)
	}
	if moved.CompletedAt == nil || !moved.CompletedAt.Equal(older) {
		t.Fatalf("moved record completed_at = %v, want %v", moved.CompletedAt, older)
	}

	// shared training keeps exactly one record, with the newer completion
	kept, err := h.recordRepo.GetForUpdate(ctx, h.db, survivor.ID, shared.ID)
	if err != nil {
		t.Fatalf("shared record: %v", err)
	}
	if kept.CompletedAt == nil || !kept.CompletedAt.Equal(newer) {
		t.Fatalf("shared record completed_at = %v, want newer %v", kept.CompletedAt, newer)
	}
	records, err := h.recordRepo.ListByPerson(ctx, nil, survivor.ID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("survivor records = %d, want 2", len(records))
	}
}
