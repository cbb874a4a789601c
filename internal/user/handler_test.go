package user

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/audit"
	"github.com/harborbank/harbor-core/internal/ledger"
	"github.com/harborbank/harbor-core/internal/logging"
)

func newHandlerApp(t *testing.T) (*fiber.App, ledger.Store, audit.Repository) {
	t.Helper()
	ctx := context.Background()

	repo := NewMemoryRepository()
	store := ledger.NewInMemory()
	trail := audit.NewMemoryRepository()

	if err := repo.Create(ctx, User{ID: "user-1", FullName: "Esi Owusu", Email: "esi@example.com", Role: RoleUser}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := store.CreateAccount(ctx, ledger.Account{
		ID: "acc-1", UserID: "user-1", AccountNumber: "7000000001", Activated: true,
	}); err != nil {
		t.Fatalf("create account: %v", err)
	}

	h := NewHandler(repo, store, trail, logging.Discard())
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "admin-1")
		return c.Next()
	})
	app.Put("/admin/users/:id/activation", h.SetActivation)
	return app, store, trail
}

func putActivation(t *testing.T, app *fiber.App, userID, body string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPut, "/admin/users/"+userID+"/activation", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp.StatusCode
}

func TestSetActivationTogglesAccount(t *testing.T) {
	app, store, trail := newHandlerApp(t)
	ctx := context.Background()

	if code := putActivation(t, app, "user-1", `{"activated": false}`); code != fiber.StatusOK {
		t.Fatalf("freeze status = %d", code)
	}
	acc, err := store.AccountByID(ctx, "acc-1")
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if acc.Activated {
		t.Fatal("account still activated after freeze")
	}

	if code := putActivation(t, app, "user-1", `{"activated": true}`); code != fiber.StatusOK {
		t.Fatalf("unfreeze status = %d", code)
	}
	acc, _ = store.AccountByID(ctx, "acc-1")
	if !acc.Activated {
		t.Fatal("account not reactivated")
	}

	entries, err := trail.ListByEntity(ctx, "account", "acc-1")
	if err != nil {
		t.Fatalf("audit trail: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Action != audit.ActionSetActivation {
			t.Fatalf("audit action = %s", e.Action)
		}
		if e.ActorID != "admin-1" {
			t.Fatalf("audit actor = %s", e.ActorID)
		}
	}
	if entries[0].Details != "activated=false" || entries[1].Details != "activated=true" {
		t.Fatalf("audit details = %q, %q", entries[0].Details, entries[1].Details)
	}
}

func TestSetActivationGuards(t *testing.T) {
	app, _, _ := newHandlerApp(t)

	if code := putActivation(t, app, "user-without-account", `{"activated": false}`); code != fiber.StatusNotFound {
		t.Fatalf("missing account status = %d", code)
	}
	if code := putActivation(t, app, "user-1", `{}`); code != fiber.StatusBadRequest {
		t.Fatalf("missing flag status = %d", code)
	}
}
