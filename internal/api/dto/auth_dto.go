package dto

import (
	"time"

	"github.com/spec-kit/panchayat-portal/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	Password     string      `json:"password"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	PhoneNumber  string      `json:"phone_number"`
	AadharNumber string      `json:"aadhar_number"`
	Address      string      `json:"address"`
	Village      string      `json:"village"`
	District     string      `json:"district"`
	Pincode      string      `json:"pincode"`
	Role         domain.Role `json:"role"`
}

// LoginRequest accepts a username or an email as identifier.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// VerifyOTPRequest payload.
type VerifyOTPRequest struct {
	Ticket string `json:"ticket"`
	Code   string `json:"code"`
}

// ResendOTPRequest payload.
type ResendOTPRequest struct {
	Ticket string `json:"ticket"`
}

// AuthResponse standard response for login.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TicketResponse carries the email verification ticket.
type TicketResponse struct {
	Ticket    string    `json:"ticket"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OTPStatusResponse drives the verify page countdown.
type OTPStatusResponse struct {
	Email             string `json:"email"`
	Active            bool   `json:"active"`
	ExpiresInSeconds  int    `json:"expires_in_seconds"`
	AttemptsRemaining int    `json:"attempts_remaining"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID            string                      `json:"id"`
	Username      string                      `json:"username"`
	Email         string                      `json:"email"`
	FullName      string                      `json:"full_name"`
	Role          domain.Role                 `json:"role"`
	State         domain.AccountApprovalState `json:"state"`
	EmailVerified bool                        `json:"email_verified"`
	IsActive      bool                        `json:"is_active"`
	CreatedAt     time.Time                   `json:"created_at"`
}

func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FullName:      u.FullName(),
		Role:          u.Role,
		State:         u.ApprovalState(),
		EmailVerified: u.EmailVerified,
		IsActive:      u.IsActive,
		CreatedAt:     u.CreatedAt,
	}
}
