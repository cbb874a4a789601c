package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/deposit"
	"github.com/harborbank/harbor-core/internal/loan"
	"github.com/harborbank/harbor-core/internal/middleware"
	"github.com/harborbank/harbor-core/internal/trash"
	"github.com/harborbank/harbor-core/internal/user"
	"github.com/harborbank/harbor-core/internal/verification"
)

// RegisterAdminRoutes wires the admin review surface. The group is already
// gated on the admin role; delete/restore additionally require the
// super-admin flag.
func RegisterAdminRoutes(r fiber.Router, loans *loan.Handler, deposits *deposit.Handler,
	codes *verification.Handler, trashH *trash.Handler, users *user.Handler) {
	r.Post("/users", users.Onboard)
	r.Put("/users/:id/role", users.ChangeRole)
	r.Put("/users/:id/activation", users.SetActivation)
	r.Post("/users/:id/codes", codes.IssueAll)

	r.Post("/loans/:id/approve", loans.Approve)
	r.Post("/loans/:id/reject", loans.Reject)
	r.Post("/repayments/:id/approve", loans.ApproveRepayment)
	r.Post("/repayments/:id/reject", loans.RejectRepayment)

	r.Post("/deposits/:id/approve", deposits.Approve)
	r.Post("/deposits/:id/reject", deposits.Reject)

	r.Get("/trash/users", trashH.List)

	super := r.Group("", middleware.RequireSuperAdmin())
	super.Delete("/users/:id", trashH.Delete)
	super.Post("/users/:id/restore", trashH.Restore)
}
