package services

import (
	"context"
	"testing"
	"time"

	"github.com/hswtrack/compliance-backend/internal/data/repos"
	"github.com/hswtrack/compliance-backend/internal/data/repos/testutil"
	types "github.com/hswtrack/compliance-backend/internal/domain"
	"github.com/hswtrack/compliance-backend/internal/pkg/ctxutil"
)

func TestAuthTokenRoundTrip(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	accountRepo := repos.NewAccountRepo(db, log)
	auth := NewAuthService(db, log, accountRepo, "test-secret", time.Hour)

	subject := "oidc|" + uniq()
	account, err := accountRepo.Upsert(ctx, nil, &types.Account{
		Subject:     subject,
		DisplayName: "Importer",
		Role:        types.AccountRoleAdmin,
		Active:      true,
	})
	if err != nil {
		t.Fatalf("upsert account: %v", err)
	}

	token, err := auth.IssueToken(subject, 0)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	authedCtx, err := auth.SetContextFromToken(ctx, token)
	if err != nil {
		t.Fatalf("set context from token: %v", err)
	}
	rd := ctxutil.GetRequestData(authedCtx)
	if rd == nil {
		t.Fatal("no request data attached")
	}
	if rd.Subject != subject {
		t.Fatalf("subject = %q, want %q", rd.Subject, subject)
	}
	if rd.UserID != account.ID {
		t.Fatalf("user id = %s, want %s", rd.UserID, account.ID)
	}
	if !IsAdmin(authedCtx) {
		t.Fatal("admin account not recognized as admin")
	}
}

func TestAuthRejections(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	accountRepo := repos.NewAccountRepo(db, log)
	auth := NewAuthService(db, log, accountRepo, "test-secret", time.Hour)

	if _, err := auth.SetContextFromToken(ctx, ""); err == nil {
		t.Fatal("empty token accepted")
	}

	// token signed with a different secret
	other := NewAuthService(db, log, accountRepo, "other-secret", time.Hour)
	subject := "oidc|" + uniq()
	if _, err := accountRepo.Upsert(ctx, nil, &types.Account{
		Subject: subject,
		Role:    types.AccountRoleViewer,
		Active:  true,
	}); err != nil {
		t.Fatalf("upsert account: %v", err)
	}
	forged, err := other.IssueToken(subject, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := auth.SetContextFromToken(ctx, forged); err == nil {
		t.Fatal("token with wrong signature accepted")
	}

	// token for a subject with no account
	orphan, err := auth.IssueToken("oidc|"+uniq(), time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := auth.SetContextFromToken(ctx, orphan); err == nil {
		t.Fatal("token for unknown subject accepted")
	}

	// deactivated account
	deadSubject := "oidc|" + uniq()
	if _, err := accountRepo.Upsert(ctx, nil, &types.Account{
		Subject: deadSubject,
		Role:    types.AccountRoleViewer,
		Active:  false,
	}); err != nil {
		t.Fatalf("upsert account: %v", err)
	}
	deadToken, err := auth.IssueToken(deadSubject, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := auth.SetContextFromToken(ctx, deadToken); err == nil {
		t.Fatal("token for deactivated account accepted")
	}

	// viewer is not admin
	viewerCtx, err := auth.SetContextFromToken(ctx, mustToken(t, auth, subject))
	if err != nil {
		t.Fatalf("set context from token: %v", err)
	}
	if IsAdmin(viewerCtx) {
		t.Fatal("viewer recognized as admin")
	}
}

func mustToken(t *testing.T, auth AuthService, subject string) string {
	t.Helper()
	token, err := auth.IssueToken(subject, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}
