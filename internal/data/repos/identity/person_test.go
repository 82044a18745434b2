package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/hswtrack/compliance-backend/internal/data/repos/testutil"
	types "github.com/hswtrack/compliance-backend/internal/domain"
)

func TestPersonRepoCreateAndLoad(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	repo := NewPersonRepo(db, log)
	created, err := repo.Create(ctx, tx, &types.Person{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada-" + uuid.NewString() + "@example.com",
		PersonType: types.PersonTypeStaff,
		Active:     true,
	})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("create did not assign an id")
	}

	loaded, err := repo.GetByID(ctx, tx, created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if loaded.Email != created.Email {
		t.Fatalf("email = %q, want %q", loaded.Email, created.Email)
	}
}
