package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/panchayat-portal/internal/api/dto"
	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/repository"
	"github.com/spec-kit/panchayat-portal/internal/service"
	apperrors "github.com/spec-kit/panchayat-portal/pkg/util/errorutil"
)

// ApplicationsHandler serves certificate and tax applications.
type ApplicationsHandler struct {
	service *service.ApplicationService
}

// NewApplicationsHandler constructs handler.
func NewApplicationsHandler(applicationService *service.ApplicationService) *ApplicationsHandler {
	return &ApplicationsHandler{service: applicationService}
}

// Create POST /applications.
func (h *ApplicationsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.Details) == 0 {
		return apperrors.NewValidationError("details required", nil)
	}
	app, err := h.service.Create(c.UserContext(), user, req.ApplicationType, req.Details)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewApplicationResponse(app)})
}

// ListMine GET /applications.
func (h *ApplicationsHandler) ListMine(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	apps, err := h.service.ListForApplicant(c.UserContext(), user, parseApplicationQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationList(apps)})
}

// Get GET /applications/:id including the status history.
func (h *ApplicationsHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	app, err := h.service.Get(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	history, err := h.service.History(c.UserContext(), user, app.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"application": dto.NewApplicationResponse(app),
		"history":     dto.NewStatusHistory(history),
	}})
}

// Track GET /track/:number. Public.
func (h *ApplicationsHandler) Track(c *fiber.Ctx) error {
	app, err := h.service.GetByNumber(c.UserContext(), c.Params("number"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTrackingResponse(app)})
}

// AdminList GET /admin/applications.
func (h *ApplicationsHandler) AdminList(c *fiber.Ctx) error {
	apps, err := h.service.List(c.UserContext(), parseApplicationQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationList(apps)})
}

// Review POST /admin/applications/:id/review.
func (h *ApplicationsHandler) Review(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ReviewApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	app, err := h.service.Review(c.UserContext(), user, c.Params("id"), req.Status, req.Remarks)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewApplicationResponse(app)})
}

// RecordPayment POST /admin/applications/:id/payment.
func (h *ApplicationsHandler) RecordPayment(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.TaxPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	app, err := h.service.RecordTaxPayment(c.UserContext(), user, c.Params("id"), req.PaymentMethod, req.TransactionID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewApplicationResponse(app)})
}

func parseApplicationQuery(c *fiber.Ctx) repository.ApplicationFilter {
	return repository.ApplicationFilter{
		Statuses: csv[domain.ApplicationStatus](c.Query("status")),
		Types:    csv[domain.ApplicationType](c.Query("type")),
		Page:     parsePage(c),
	}
}

func applicationList(apps []domain.Application) []dto.ApplicationResponse {
	items := make([]dto.ApplicationResponse, 0, len(apps))
	for i := range apps {
		items = append(items, dto.NewApplicationResponse(&apps[i]))
	}
	return items
}
