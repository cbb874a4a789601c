package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harborbank/harbor-core/internal/user"
)

func seedUser(t *testing.T) (user.Repository, string) {
	t.Helper()
	repo := user.NewMemoryRepository()
	u := user.User{
		ID:         "user-1",
		FullName:   "Ama Mensah",
		Email:      "ama@example.com",
		Role:       user.RoleUser,
		TwoFAToken: "totp-secret",
		CreatedAt:  time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return repo, u.ID
}

func TestIssueAndVerify(t *testing.T) {
	repo, uid := seedUser(t)
	svc := NewService(repo, 24*time.Hour)
	ctx := context.Background()

	grant, err := svc.Issue(ctx, uid, PurposeAML)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(grant.Code) != 6 {
		t.Fatalf("code %q is not 6 digits", grant.Code)
	}
	for _, c := range grant.Code {
		if c < '0' || c > '9' {
			t.Fatalf("code %q contains non-digit", grant.Code)
		}
	}

	if err := svc.Verify(ctx, uid, PurposeAML, grant.Code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	// Verify is a pure check; the code stays valid until explicitly consumed.
	if err := svc.Verify(ctx, uid, PurposeAML, " "+grant.Code+" "); err != nil {
		t.Fatalf("verify with whitespace: %v", err)
	}
}

func TestConsumeSpendsCode(t *testing.T) {
	repo, uid := seedUser(t)
	svc := NewService(repo, 24*time.Hour)
	ctx := context.Background()

	grant, err := svc.Issue(ctx, uid, PurposeAML)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Verify(ctx, uid, PurposeAML, grant.Code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.Consume(ctx, uid, PurposeAML); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := svc.Verify(ctx, uid, PurposeAML, grant.Code); !errors.Is(err, ErrCodeNotIssued) {
		t.Fatalf("spent code err = %v, want ErrCodeNotIssued", err)
	}

	// A fresh issue reopens the slot.
	if _, err := svc.Issue(ctx, uid, PurposeAML); err != nil {
		t.Fatalf("reissue: %v", err)
	}
}

func TestVerifyFailures(t *testing.T) {
	repo, uid := seedUser(t)
	svc := NewService(repo, 24*time.Hour)
	ctx := context.Background()

	if err := svc.Verify(ctx, uid, PurposeAML, "123456"); !errors.Is(err, ErrCodeNotIssued) {
		t.Fatalf("unissued err = %v, want ErrCodeNotIssued", err)
	}

	grant, err := svc.Issue(ctx, uid, PurposeAML)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	wrong := "000000"
	if wrong == grant.Code {
		wrong = "000001"
	}
	if err := svc.Verify(ctx, uid, PurposeAML, wrong); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("mismatch err = %v, want ErrCodeMismatch", err)
	}
}

func TestExpiredCode(t *testing.T) {
	repo, uid := seedUser(t)
	svc := NewService(repo, -time.Minute)
	ctx := context.Background()

	grant, err := svc.Issue(ctx, uid, PurposeUnlock)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Verify(ctx, uid, PurposeUnlock, grant.Code); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("err = %v, want ErrCodeExpired", err)
	}
}

func TestReissueInvalidatesPreviousCode(t *testing.T) {
	repo, uid := seedUser(t)
	svc := NewService(repo, 24*time.Hour)
	ctx := context.Background()

	first, err := svc.Issue(ctx, uid, PurposeAML)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := svc.Issue(ctx, uid, PurposeAML)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}

	if first.Code != second.Code {
		if err := svc.Verify(ctx, uid, PurposeAML, first.Code); !errors.Is(err, ErrCodeMismatch) {
			t.Fatalf("stale code err = %v, want ErrCodeMismatch", err)
		}
	}
	if err := svc.Verify(ctx, uid, PurposeAML, second.Code); err != nil {
		t.Fatalf("fresh code: %v", err)
	}
}

func TestTwoFAResetClearsToken(t *testing.T) {
	repo, uid := seedUser(t)
	svc := NewService(repo, 24*time.Hour)
	ctx := context.Background()

	grant, err := svc.Issue(ctx, uid, PurposeTwoFAReset)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Verify(ctx, uid, PurposeTwoFAReset, grant.Code); err != nil {
		t.Fatalf("verify: %v", err)
	}

	u, err := repo.FindByID(ctx, uid)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if u.TwoFAToken != "" {
		t.Fatalf("2fa token not cleared: %q", u.TwoFAToken)
	}
}

func TestIssueAllCoversEveryPurpose(t *testing.T) {
	repo, uid := seedUser(t)
	svc := NewService(repo, 24*time.Hour)
	ctx := context.Background()

	bundle, err := svc.IssueAll(ctx, uid)
	if err != nil {
		t.Fatalf("issue all: %v", err)
	}
	if err := svc.Verify(ctx, uid, PurposeAML, bundle.AML.Code); err != nil {
		t.Fatalf("aml: %v", err)
	}
	if err := svc.Verify(ctx, uid, PurposeTwoFAReset, bundle.TwoFAReset.Code); err != nil {
		t.Fatalf("twofa reset: %v", err)
	}
	if err := svc.Verify(ctx, uid, PurposeUnlock, bundle.Unlock.Code); err != nil {
		t.Fatalf("unlock: %v", err)
	}
}
