package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/panchayat-portal/internal/api/dto"
	"github.com/spec-kit/panchayat-portal/internal/ratelimit"
	"github.com/spec-kit/panchayat-portal/internal/service"
	apperrors "github.com/spec-kit/panchayat-portal/pkg/util/errorutil"
)

// AuthHandler exposes registration, login and OTP endpoints.
type AuthHandler struct {
	auth  *service.AuthService
	otps  *service.OTPService
	guard *ratelimit.Guard
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, otpService *service.OTPService, guard *ratelimit.Guard) *AuthHandler {
	return &AuthHandler{auth: authService, otps: otpService, guard: guard}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	reg, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		AadharNumber: req.AadharNumber,
		Address:      req.Address,
		Village:      req.Village,
		District:     req.District,
		Pincode:      req.Pincode,
		Role:         req.Role,
	})
	if reg == nil {
		return err
	}

	status := http.StatusCreated
	body := fiber.Map{
		"user":                dto.NewUserResponse(reg.User),
		"verification_ticket": dto.TicketResponse{Ticket: reg.VerificationTicket, ExpiresAt: reg.TicketExpiresAt},
		"message":             reg.Message,
	}
	if err != nil {
		// the account exists; report the delivery problem next to it
		de := apperrors.ToDomainError(err)
		status = http.StatusAccepted
		body["warning"] = fiber.Map{"code": de.Code, "message": de.Message}
	}
	return c.Status(status).JSON(fiber.Map{"data": body})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !h.guard.Allow(c.UserContext(), ratelimit.LoginRule, req.Username, c.IP()) {
		return apperrors.NewRateLimited("Too many login attempts. Please try again in a few minutes.")
	}
	session, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(session.User),
			"auth": dto.AuthResponse{Token: session.AccessToken, ExpiresAt: session.ExpiresAt},
		},
	})
}

// VerifyOTP handles POST /auth/otp/verify.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req dto.VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.auth.UserForTicket(c.UserContext(), req.Ticket)
	if err != nil {
		return err
	}
	if !h.guard.Allow(c.UserContext(), ratelimit.OTPVerifyRule, user.ID, c.IP()) {
		return apperrors.NewRateLimited("Too many verification attempts. Please try again later.")
	}
	res, err := h.otps.Verify(c.UserContext(), user.ID, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": res.Message, "state": res.State}})
}

// ResendOTP handles POST /auth/otp/resend.
func (h *AuthHandler) ResendOTP(c *fiber.Ctx) error {
	var req dto.ResendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.auth.UserForTicket(c.UserContext(), req.Ticket)
	if err != nil {
		return err
	}
	if !h.guard.Allow(c.UserContext(), ratelimit.OTPResendRule, user.ID, c.IP()) {
		return apperrors.NewRateLimited("Too many OTP requests. Please try again later.")
	}
	res, err := h.otps.Resend(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": res.Message}})
}

// OTPStatus handles GET /auth/otp/status.
func (h *AuthHandler) OTPStatus(c *fiber.Ctx) error {
	user, err := h.auth.UserForTicket(c.UserContext(), c.Query("ticket"))
	if err != nil {
		return err
	}
	st, err := h.otps.Status(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.OTPStatusResponse{
		Email:             st.Email,
		Active:            st.Active,
		ExpiresInSeconds:  int(st.ExpiresIn.Seconds()),
		AttemptsRemaining: st.AttemptsRemaining,
	}})
}
