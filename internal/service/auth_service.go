package service

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/panchayat-portal/internal/auth"
	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/events"
	"github.com/spec-kit/panchayat-portal/internal/observability"
	"github.com/spec-kit/panchayat-portal/internal/repository"
	apperrors "github.com/spec-kit/panchayat-portal/pkg/util/errorutil"
)

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	phonePattern    = regexp.MustCompile(`^[6-9]\d{9}$`)
	aadharPattern   = regexp.MustCompile(`^\d{12}$`)
	pincodePattern  = regexp.MustCompile(`^\d{6}$`)
)

// RegisterInput carries the registration form.
type RegisterInput struct {
	Username     string
	Email        string
	Password     string
	FirstName    string
	LastName     string
	PhoneNumber  string
	AadharNumber string
	Address      string
	Village      string
	District     string
	Pincode      string
	Role         domain.Role
}

// Registration is returned when an account was created, even if the OTP mail
// could not be delivered.
type Registration struct {
	User               *domain.User
	VerificationTicket string
	TicketExpiresAt    time.Time
	Message            string
}

// Session is a successful login.
type Session struct {
	User        *domain.User
	AccessToken string
	ExpiresAt   time.Time
}

// AuthService coordinates registration, login and account approval.
type AuthService struct {
	store      repository.Store
	otps       *OTPService
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
	clock      clockwork.Clock
	logger     *zap.Logger
	metrics    *observability.Metrics
	bcryptCost int
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Store      repository.Store
	OTPs       *OTPService
	Tokens     *auth.TokenManager
	Dispatcher events.Dispatcher
	Clock      clockwork.Clock
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	BcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		store:      deps.Store,
		otps:       deps.OTPs,
		tokens:     deps.Tokens,
		dispatcher: deps.Dispatcher,
		clock:      clock,
		logger:     logger,
		metrics:    deps.Metrics,
		bcryptCost: deps.BcryptCost,
	}
}

// Register creates an inactive account and mails its first OTP. When only the
// mail fails the account and ticket are returned alongside a DISPATCH_FAILED
// error so the caller can offer a resend.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Role == "" {
		in.Role = domain.RoleCitizen
	}
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	if _, err := s.store.Users().GetByUsername(ctx, in.Username); err == nil {
		return nil, apperrors.NewConflict("A user with that username already exists.", map[string]any{"field": "username"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}
	if _, err := s.store.Users().GetByEmail(ctx, in.Email); err == nil {
		return nil, apperrors.NewConflict("This email is already registered.", map[string]any{"field": "email"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.clock.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PhoneNumber:  in.PhoneNumber,
		Address:      in.Address,
		Village:      in.Village,
		District:     in.District,
		Pincode:      in.Pincode,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.AadharNumber != "" {
		aadhar := in.AadharNumber
		user.AadharNumber = &aadhar
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.NewConflict("An account with these details already exists.", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	if _, err := s.otps.Issue(ctx, user); err != nil {
		s.logger.Error("otp issuance failed during registration, removing account",
			zap.String("username", user.Username), zap.Error(err))
		if derr := s.store.Users().Delete(ctx, user.ID); derr != nil {
			s.logger.Error("remove account", zap.String("username", user.Username), zap.Error(derr))
		}
		return nil, apperrors.NewInternalError(err)
	}

	ticket, exp, err := s.tokens.IssueVerificationTicket(user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	reg := &Registration{
		User:               user,
		VerificationTicket: ticket,
		TicketExpiresAt:    exp,
		Message:            "Registration successful! Please check your email for the OTP to verify your account.",
	}

	record, err := s.store.OTPs().LatestActive(ctx, user.ID, false)
	if err != nil {
		return reg, apperrors.NewInternalError(err)
	}
	if err := s.otps.dispatch(ctx, user, record); err != nil {
		reg.Message = "Account created but failed to send OTP email. Please request a new OTP."
		return reg, err
	}
	s.logger.Info("account registered", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return reg, nil
}

// Login authenticates by username or email. Accounts that still need email
// verification receive a fresh ticket in the error details and a new OTP.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperrors.NewValidationError("username and password are required", nil)
	}

	user, err := s.lookup(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		_ = auth.RejectPassword(password, s.bcryptCost)
		s.loginFailed(identifier, "unknown account")
		return nil, apperrors.NewUnauthorized("Invalid username or password.")
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.loginFailed(identifier, "bad password")
		return nil, apperrors.NewUnauthorized("Invalid username or password.")
	}

	switch user.ApprovalState() {
	case domain.ApprovalPendingEmail:
		ticket, _, err := s.tokens.IssueVerificationTicket(user.ID)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if _, err := s.otps.Resend(ctx, user.ID); err != nil && !apperrors.HasCode(err, apperrors.CodeRateLimited) {
			s.logger.Warn("resend on login failed", zap.String("username", user.Username), zap.Error(err))
		}
		return nil, apperrors.NewDomainError(apperrors.CodeUnauthorized,
			"Please verify your email first. A new OTP has been sent to your email.", 401,
			map[string]any{"verification_ticket": ticket})
	case domain.ApprovalPendingAdmin:
		return nil, apperrors.NewForbidden("Your account is pending administrator approval.")
	}

	token, exp, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("login", zap.String("username", user.Username))
	return &Session{User: user, AccessToken: token, ExpiresAt: exp}, nil
}

// ApproveAccount records administrator approval of a staff or admin account.
func (s *AuthService) ApproveAccount(ctx context.Context, admin *domain.User, userID string) (*domain.User, error) {
	if admin == nil || admin.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("Only administrators can approve accounts.")
	}
	var user *domain.User
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		user, err = tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		user.Approve()
		user.UpdatedAt = s.clock.Now().UTC()
		return tx.Users().Update(ctx, user)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("account", map[string]any{"id": userID})
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("account approved",
		zap.String("username", user.Username),
		zap.String("approved_by", admin.Username),
		zap.String("state", string(user.ApprovalState())),
	)
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.New(events.EventAccountApproved, user.ID, &admin.ID, s.clock.Now().UTC(),
			events.AccountPayload{UserID: user.ID, State: user.ApprovalState()}))
	}
	return user, nil
}

// ListPendingApprovals returns staff and admin accounts awaiting approval.
func (s *AuthService) ListPendingApprovals(ctx context.Context, page repository.Page) ([]domain.User, error) {
	users, err := s.store.Users().List(ctx, repository.UserFilter{PendingApproval: true, Page: page})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

// UserForTicket resolves a verification ticket to its account.
func (s *AuthService) UserForTicket(ctx context.Context, ticket string) (*domain.User, error) {
	userID, err := s.tokens.ParseVerificationTicket(ticket)
	if err != nil {
		return nil, apperrors.NewUnauthorized("Verification session expired. Please login again.")
	}
	user, err := s.store.Users().GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewUnauthorized("Verification session expired. Please login again.")
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

func (s *AuthService) lookup(ctx context.Context, identifier string) (*domain.User, error) {
	if strings.Contains(identifier, "@") {
		user, err := s.store.Users().GetByEmail(ctx, identifier)
		if err == nil || !errors.Is(err, repository.ErrNotFound) {
			return user, err
		}
	}
	return s.store.Users().GetByUsername(ctx, identifier)
}

func (s *AuthService) loginFailed(identifier, reason string) {
	s.metrics.RecordSecurity("LOGIN_FAILED")
	observability.SecurityWarning(s.logger, "LOGIN_FAILED",
		zap.String("identifier", identifier), zap.String("reason", reason))
}

func validateRegistration(in RegisterInput) error {
	fields := map[string]any{}
	if in.Username == "" || len(in.Username) > 150 || !usernamePattern.MatchString(in.Username) {
		fields["username"] = "letters, digits and @/./+/-/_ only, at most 150 characters"
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		fields["email"] = "enter a valid email address"
	}
	switch {
	case len(in.Password) < 8:
		fields["password"] = "must be at least 8 characters"
	case len(in.Password) > auth.MaxPasswordBytes:
		fields["password"] = "must be at most 72 bytes"
	}
	if !phonePattern.MatchString(in.PhoneNumber) {
		fields["phone_number"] = "enter a valid 10-digit mobile number"
	}
	if in.AadharNumber != "" && !aadharPattern.MatchString(in.AadharNumber) {
		fields["aadhar_number"] = "must be 12 digits"
	}
	if in.Pincode != "" && !pincodePattern.MatchString(in.Pincode) {
		fields["pincode"] = "must be 6 digits"
	}
	if !in.Role.Valid() {
		fields["role"] = "must be citizen, staff or admin"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("registration details are invalid", fields)
	}
	return nil
}
