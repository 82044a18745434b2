package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/hswtrack/compliance-backend/internal/data/repos/testutil"
	types "github.com/hswtrack/compliance-backend/internal/domain"
	pkgerrors "github.com/hswtrack/compliance-backend/internal/pkg/errors"
)

func TestAliasGlobalUniqueness(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	repo := NewAliasRepo(db, log)
	a := testutil.SeedPerson(t, ctx, tx, "alias-a@example.com")
	b := testutil.SeedPerson(t, ctx, tx, "alias-b@example.com")

	value := "shared-" + uuid.NewString()
	if err := repo.Create(ctx, tx, []*types.PersonAlias{{Value: value, PersonID: a.ID}}); err != nil {
		t.Fatalf("create alias: %v", err)
	}

	found, err := repo.GetByValue(ctx, tx, value)
	if err != nil {
		t.Fatalf("get by value: %v", err)
	}
	if found.PersonID != a.ID {
		t.Fatalf("alias owner = %s, want %s", found.PersonID, a.ID)
	}

	// a unique violation aborts the surrounding transaction, so this check
	// comes last
	if err := repo.Create(ctx, tx, []*types.PersonAlias{{Value: value, PersonID: b.ID}}); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("duplicate alias error = %v, want ErrConflict", err)
	}
}

func TestAliasRepointPerson(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	repo := NewAliasRepo(db, log)
	from := testutil.SeedPerson(t, ctx, tx, "from@example.com")
	to := testutil.SeedPerson(t, ctx, tx, "to@example.com")
	testutil.SeedAlias(t, ctx, tx, from.ID, "one-"+uuid.NewString())
	testutil.SeedAlias(t, ctx, tx, from.ID, "two-"+uuid.NewString())

	if err := repo.RepointPerson(ctx, tx, from.ID, to.ID); err != nil {
		t.Fatalf("repoint: %v", err)
	}

	moved, err := repo.ListByPerson(ctx, tx, to.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(moved) != 2 {
		t.Fatalf("moved aliases = %d, want 2", len(moved))
	}
	remaining, err := repo.CountByPerson(ctx, tx, from.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("source still owns %d aliases", remaining)
	}
}
