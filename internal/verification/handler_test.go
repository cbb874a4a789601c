package verification

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/audit"
	"github.com/harborbank/harbor-core/internal/logging"
)

func newHandlerApp(t *testing.T) (*fiber.App, *Service, audit.Repository) {
	t.Helper()
	repo, _ := seedUser(t)
	svc := NewService(repo, 24*time.Hour)
	trail := audit.NewMemoryRepository()
	h := NewHandler(svc, trail, logging.Discard())

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		return c.Next()
	})
	app.Post("/admin/users/:id/codes", func(c *fiber.Ctx) error {
		c.Locals("user_id", "admin-1")
		return h.IssueAll(c)
	})
	app.Post("/codes/unlock/verify", h.VerifyUnlock)
	return app, svc, trail
}

func TestIssueAllWritesAuditEntry(t *testing.T) {
	app, _, trail := newHandlerApp(t)
	ctx := context.Background()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/admin/users/user-1/codes", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, field := range []string{"aml_code", "twofa_reset_code", "unlock_code"} {
		code, _ := decoded[field].(string)
		if len(code) != 6 {
			t.Fatalf("%s = %q, want 6 digits", field, code)
		}
	}

	entries, err := trail.ListByEntity(ctx, "user", "user-1")
	if err != nil {
		t.Fatalf("audit trail: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	if entries[0].Action != audit.ActionIssueCodes || entries[0].ActorID != "admin-1" {
		t.Fatalf("audit entry = %+v", entries[0])
	}
}

func TestVerifyEndpointSpendsCode(t *testing.T) {
	app, svc, _ := newHandlerApp(t)
	ctx := context.Background()

	grant, err := svc.Issue(ctx, "user-1", PurposeUnlock)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	verify := func() int {
		req := httptest.NewRequest(fiber.MethodPost, "/codes/unlock/verify",
			strings.NewReader(`{"code": "`+grant.Code+`"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		return resp.StatusCode
	}

	if code := verify(); code != fiber.StatusOK {
		t.Fatalf("first verify status = %d", code)
	}
	if code := verify(); code != fiber.StatusUnauthorized {
		t.Fatalf("replayed verify status = %d, want 401", code)
	}
}

func TestIssueAllUnknownUser(t *testing.T) {
	app, _, trail := newHandlerApp(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/admin/users/ghost/codes", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if entries, _ := trail.ListByEntity(context.Background(), "user", "ghost"); len(entries) != 0 {
		t.Fatalf("audit entry written for failed issue: %d", len(entries))
	}
}
