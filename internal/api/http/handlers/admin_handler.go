package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/panchayat-portal/internal/api/dto"
	"github.com/spec-kit/panchayat-portal/internal/observability"
	"github.com/spec-kit/panchayat-portal/internal/service"
)

// AdminHandler serves dashboard statistics and account approval.
type AdminHandler struct {
	auth         *service.AuthService
	applications *service.ApplicationService
	complaints   *service.ComplaintService
	metrics      *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService, applications *service.ApplicationService, complaints *service.ComplaintService, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{auth: authService, applications: applications, complaints: complaints, metrics: metrics}
}

// Stats GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	appStats, err := h.applications.Statistics(c.UserContext(), nil)
	if err != nil {
		return err
	}
	complaintStats, err := h.complaints.Statistics(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"applications": appStats,
		"complaints":   complaintStats,
		"security":     h.metrics.Snapshot().Security,
	}})
}

// PendingUsers GET /admin/users.
func (h *AdminHandler) PendingUsers(c *fiber.Ctx) error {
	users, err := h.auth.ListPendingApprovals(c.UserContext(), parsePage(c))
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ApproveUser POST /admin/users/:id/approve.
func (h *AdminHandler) ApproveUser(c *fiber.Ctx) error {
	admin, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := h.auth.ApproveAccount(c.UserContext(), admin, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
