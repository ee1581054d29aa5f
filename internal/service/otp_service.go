package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/events"
	"github.com/spec-kit/panchayat-portal/internal/mailer"
	"github.com/spec-kit/panchayat-portal/internal/observability"
	"github.com/spec-kit/panchayat-portal/internal/repository"
	apperrors "github.com/spec-kit/panchayat-portal/pkg/util/errorutil"
)

// User-facing OTP messages.
const (
	msgOTPNotFound      = "No OTP found. Please request a new one."
	msgOTPExpired       = "OTP has expired. Please request a new one."
	msgOTPExhausted     = "Maximum attempts exceeded. Please request a new OTP."
	msgOTPBadFormat     = "OTP must be exactly 6 digits."
	msgOTPResendTooSoon = "Please wait 1 minute before requesting a new OTP."
	msgOTPSendFailed    = "Failed to send OTP email. Please try again later."
)

// OTPSettings tunes the verification window.
type OTPSettings struct {
	TTL         time.Duration
	MaxAttempts int
	ResendGap   time.Duration
}

// DefaultOTPSettings are 10 minutes, 3 attempts and a 60 second resend gap.
var DefaultOTPSettings = OTPSettings{TTL: 10 * time.Minute, MaxAttempts: 3, ResendGap: time.Minute}

// OTPResult is the outcome of a successful OTP operation.
type OTPResult struct {
	Message string
	State   domain.AccountApprovalState
}

// OTPStatus describes the active code for the verify page countdown.
type OTPStatus struct {
	Email             string
	Active            bool
	ExpiresIn         time.Duration
	AttemptsRemaining int
}

// OTPService issues, delivers and verifies email OTP codes.
type OTPService struct {
	store      repository.Store
	sender     mailer.Sender
	renderer   *mailer.Renderer
	dispatcher events.Dispatcher
	clock      clockwork.Clock
	logger     *zap.Logger
	metrics    *observability.Metrics
	settings   OTPSettings
}

// OTPDependencies bundles collaborators for the OTP service.
type OTPDependencies struct {
	Store      repository.Store
	Sender     mailer.Sender
	Renderer   *mailer.Renderer
	Dispatcher events.Dispatcher
	Clock      clockwork.Clock
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Settings   OTPSettings
}

func NewOTPService(deps OTPDependencies) *OTPService {
	settings := deps.Settings
	if settings.TTL <= 0 {
		settings.TTL = DefaultOTPSettings.TTL
	}
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = DefaultOTPSettings.MaxAttempts
	}
	if settings.ResendGap <= 0 {
		settings.ResendGap = DefaultOTPSettings.ResendGap
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OTPService{
		store:      deps.Store,
		sender:     deps.Sender,
		renderer:   deps.Renderer,
		dispatcher: deps.Dispatcher,
		clock:      clock,
		logger:     logger,
		metrics:    deps.Metrics,
		settings:   settings,
	}
}

// Issue supersedes every live code of the user and stores a fresh one. It has
// no side effect beyond persistence.
func (s *OTPService) Issue(ctx context.Context, user *domain.User) (*domain.OTPRecord, error) {
	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	record := &domain.OTPRecord{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.settings.TTL),
	}
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.OTPs().Supersede(ctx, user.ID); err != nil {
			return err
		}
		return tx.OTPs().Create(ctx, record)
	})
	if err != nil {
		return nil, fmt.Errorf("issue otp: %w", err)
	}
	observability.SecurityEvent(s.logger, "OTP_GENERATED",
		zap.String("username", user.Username),
		zap.Time("expires_at", record.ExpiresAt),
	)
	return record, nil
}

// IssueAndSend issues a code and mails it. A DISPATCH_FAILED error means the
// code was stored but not delivered; it stays valid.
func (s *OTPService) IssueAndSend(ctx context.Context, user *domain.User) (OTPResult, error) {
	record, err := s.Issue(ctx, user)
	if err != nil {
		return OTPResult{}, err
	}
	if err := s.dispatch(ctx, user, record); err != nil {
		return OTPResult{}, err
	}
	return OTPResult{
		Message: fmt.Sprintf("An OTP has been sent to %s", user.Email),
		State:   user.ApprovalState(),
	}, nil
}

// Verify checks a submitted code against the user's newest live record. Every
// well-formed guess consumes an attempt before the code is compared.
func (s *OTPService) Verify(ctx context.Context, userID, submitted string) (OTPResult, error) {
	if !isSixDigits(submitted) {
		return OTPResult{}, apperrors.NewValidationError(msgOTPBadFormat, nil)
	}

	var (
		result  OTPResult
		failure error
		user    *domain.User
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		user, err = tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		otp, err := tx.OTPs().LatestActive(ctx, userID, true)
		if errors.Is(err, repository.ErrNotFound) {
			s.securityFailure("OTP_VERIFICATION_FAILED", user, zap.String("reason", "no active otp"))
			failure = apperrors.NewNotFoundMessage(msgOTPNotFound)
			return nil
		}
		if err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		if otp.Expired(now) {
			s.securityFailure("OTP_EXPIRED", user, zap.Time("expired_at", otp.ExpiresAt))
			failure = apperrors.NewExpired(msgOTPExpired)
			return nil
		}
		if otp.VerificationAttempts >= s.settings.MaxAttempts {
			if err := tx.OTPs().MarkUsed(ctx, otp.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			s.securityFailure("OTP_MAX_ATTEMPTS", user)
			failure = apperrors.NewAttemptsExhausted(msgOTPExhausted)
			return nil
		}

		attempts, err := tx.OTPs().IncrementAttempts(ctx, otp.ID, s.settings.MaxAttempts)
		if errors.Is(err, repository.ErrNotFound) {
			s.securityFailure("OTP_MAX_ATTEMPTS", user)
			failure = apperrors.NewAttemptsExhausted(msgOTPExhausted)
			return nil
		}
		if err != nil {
			return err
		}

		if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(submitted)) != 1 {
			remaining := s.settings.MaxAttempts - attempts
			s.securityFailure("OTP_VERIFICATION_FAILED", user,
				zap.Int("attempt", attempts), zap.Int("max_attempts", s.settings.MaxAttempts))
			failure = apperrors.NewDomainError(apperrors.CodeValidation,
				fmt.Sprintf("Invalid OTP code. %d attempt(s) remaining.", remaining),
				400, map[string]any{"attempts_remaining": remaining})
			return nil
		}

		if err := tx.OTPs().MarkVerified(ctx, otp.ID, now); err != nil {
			return err
		}
		user.MarkEmailVerified(now)
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		result = OTPResult{State: user.ApprovalState(), Message: activationMessage(user)}
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return OTPResult{}, apperrors.NewNotFound("account", nil)
	}
	if err != nil {
		return OTPResult{}, apperrors.NewInternalError(err)
	}
	if failure != nil {
		return OTPResult{}, failure
	}

	observability.SecurityEvent(s.logger, "OTP_VERIFIED_SUCCESS",
		zap.String("username", user.Username),
		zap.String("state", string(result.State)),
	)
	s.publish(ctx, events.New(events.EventAccountVerified, user.ID, &user.ID, s.clock.Now().UTC(),
		events.AccountPayload{UserID: user.ID, State: result.State}))
	return result, nil
}

// Resend issues and mails a new code unless one was issued within the resend gap.
func (s *OTPService) Resend(ctx context.Context, userID string) (OTPResult, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return OTPResult{}, apperrors.NewNotFound("account", nil)
	}
	if err != nil {
		return OTPResult{}, apperrors.NewInternalError(err)
	}
	if user.EmailVerified {
		return OTPResult{}, apperrors.NewConflict("Email is already verified.", nil)
	}

	last, err := s.store.OTPs().LatestIssuedAt(ctx, userID)
	switch {
	case err == nil:
		if s.clock.Since(last) <= s.settings.ResendGap {
			s.securityFailure("OTP_RESEND_RATE_LIMITED", user)
			return OTPResult{}, apperrors.NewRateLimited(msgOTPResendTooSoon)
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return OTPResult{}, apperrors.NewInternalError(err)
	}

	record, err := s.Issue(ctx, user)
	if err != nil {
		return OTPResult{}, apperrors.NewInternalError(err)
	}
	if err := s.dispatch(ctx, user, record); err != nil {
		return OTPResult{}, err
	}
	return OTPResult{
		Message: fmt.Sprintf("A new OTP has been sent to %s", user.Email),
		State:   user.ApprovalState(),
	}, nil
}

// Status reports the countdown and remaining attempts of the live code.
func (s *OTPService) Status(ctx context.Context, userID string) (OTPStatus, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return OTPStatus{}, apperrors.NewNotFound("account", nil)
	}
	if err != nil {
		return OTPStatus{}, apperrors.NewInternalError(err)
	}
	status := OTPStatus{Email: user.Email, AttemptsRemaining: s.settings.MaxAttempts}

	otp, err := s.store.OTPs().LatestActive(ctx, userID, false)
	if errors.Is(err, repository.ErrNotFound) {
		return status, nil
	}
	if err != nil {
		return OTPStatus{}, apperrors.NewInternalError(err)
	}
	now := s.clock.Now().UTC()
	status.Active = !otp.Expired(now)
	status.ExpiresIn = otp.Remaining(now)
	status.AttemptsRemaining = s.settings.MaxAttempts - otp.VerificationAttempts
	if status.AttemptsRemaining < 0 {
		status.AttemptsRemaining = 0
	}
	return status, nil
}

func (s *OTPService) dispatch(ctx context.Context, user *domain.User, record *domain.OTPRecord) error {
	env, err := s.renderer.OTP(user.Email, mailer.OTPData{
		Name:          user.FullName(),
		Code:          record.Code,
		ExpiryMinutes: int(s.settings.TTL / time.Minute),
	}, s.clock.Now().UTC())
	if err == nil {
		err = s.sender.Send(ctx, env)
	}
	if err != nil {
		s.metrics.RecordSecurity("OTP_EMAIL_FAILED")
		s.logger.Error("security event",
			zap.String("event", "OTP_EMAIL_FAILED"),
			zap.String("username", user.Username),
			zap.Error(err),
		)
		return apperrors.NewDispatchFailed(msgOTPSendFailed, err)
	}
	observability.SecurityEvent(s.logger, "OTP_EMAIL_SENT",
		zap.String("username", user.Username),
		zap.String("email", user.Email),
	)
	return nil
}

func (s *OTPService) securityFailure(event string, user *domain.User, fields ...zap.Field) {
	s.metrics.RecordSecurity(event)
	observability.SecurityWarning(s.logger, event, append([]zap.Field{zap.String("username", user.Username)}, fields...)...)
}

func (s *OTPService) publish(ctx context.Context, ev events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, ev)
}

func activationMessage(user *domain.User) string {
	if user.ApprovalState() == domain.ApprovalActive {
		return "Email verified successfully! You can now login."
	}
	return "Email verified successfully! Your account is pending administrator approval."
}

// generateCode draws uniformly from [100000, 999999] using crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func isSixDigits(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
