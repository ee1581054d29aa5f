package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/panchayat-portal/internal/api/dto"
	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/repository"
	"github.com/spec-kit/panchayat-portal/internal/service"
	apperrors "github.com/spec-kit/panchayat-portal/pkg/util/errorutil"
)

// ComplaintsHandler serves grievance endpoints.
type ComplaintsHandler struct {
	service *service.ComplaintService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaintService *service.ComplaintService) *ComplaintsHandler {
	return &ComplaintsHandler{service: complaintService}
}

// Create POST /complaints.
func (h *ComplaintsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	complaint, err := h.service.File(c.UserContext(), user, service.ComplaintInput{
		Category:    req.Category,
		Subject:     req.Subject,
		Description: req.Description,
		Location:    req.Location,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint)})
}

// ListMine GET /complaints.
func (h *ComplaintsHandler) ListMine(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	complaints, err := h.service.ListForComplainant(c.UserContext(), user, parseComplaintQuery(c, user))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintList(complaints)})
}

// Get GET /complaints/:id including the history.
func (h *ComplaintsHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	complaint, err := h.service.Get(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	history, err := h.service.History(c.UserContext(), user, complaint.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"complaint": dto.NewComplaintResponse(complaint),
		"history":   dto.NewComplaintHistory(history),
	}})
}

// AdminList GET /admin/complaints.
func (h *ComplaintsHandler) AdminList(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	complaints, err := h.service.List(c.UserContext(), parseComplaintQuery(c, user))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintList(complaints)})
}

// Update POST /admin/complaints/:id/update.
func (h *ComplaintsHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	complaint, err := h.service.Update(c.UserContext(), user, c.Params("id"), service.ComplaintUpdate{
		Status:            req.Status,
		Priority:          req.Priority,
		AssigneeID:        req.AssignedTo,
		ResolutionRemarks: req.ResolutionRemarks,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint)})
}

// parseComplaintQuery reads status, category, priority, q and assigned
// (me or unassigned) filters.
func parseComplaintQuery(c *fiber.Ctx, viewer *domain.User) repository.ComplaintFilter {
	filter := repository.ComplaintFilter{
		Statuses:   csv[domain.ComplaintStatus](c.Query("status")),
		Categories: csv[domain.ComplaintCategory](c.Query("category")),
		Priorities: csv[domain.ComplaintPriority](c.Query("priority")),
		Page:       parsePage(c),
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.SearchTerm = &q
	}
	switch c.Query("assigned") {
	case "me":
		filter.AssigneeID = &viewer.ID
	case "unassigned":
		filter.Unassigned = true
	}
	return filter
}

func complaintList(complaints []domain.Complaint) []dto.ComplaintResponse {
	items := make([]dto.ComplaintResponse, 0, len(complaints))
	for i := range complaints {
		items = append(items, dto.NewComplaintResponse(&complaints[i]))
	}
	return items
}
