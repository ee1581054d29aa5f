package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/spec-kit/panchayat-portal/internal/domain"
)

// Token purposes. A token minted for one purpose is rejected for the other.
const (
	PurposeAccess            = "access"
	PurposeEmailVerification = "email_verification"
)

var ErrWrongPurpose = errors.New("token purpose mismatch")

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret    []byte
	accessTTL time.Duration
	ticketTTL time.Duration
	clock     clockwork.Clock
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, accessTTLMinutes, ticketTTLMinutes int, clock clockwork.Clock) *TokenManager {
	if accessTTLMinutes <= 0 {
		accessTTLMinutes = 60
	}
	if ticketTTLMinutes <= 0 {
		ticketTTLMinutes = 30
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenManager{
		secret:    []byte(secret),
		accessTTL: time.Duration(accessTTLMinutes) * time.Minute,
		ticketTTL: time.Duration(ticketTTLMinutes) * time.Minute,
		clock:     clock,
	}
}

// Claims describes JWT payload.
type Claims struct {
	Purpose string      `json:"purpose"`
	Role    domain.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IssueAccessToken signs a bearer token for an active account.
func (tm *TokenManager) IssueAccessToken(user *domain.User) (string, time.Time, error) {
	return tm.sign(user.ID, PurposeAccess, user.Role, tm.accessTTL)
}

// IssueVerificationTicket signs a short-lived ticket naming the account that
// is waiting for OTP verification.
func (tm *TokenManager) IssueVerificationTicket(userID string) (string, time.Time, error) {
	return tm.sign(userID, PurposeEmailVerification, "", tm.ticketTTL)
}

// ParseAccessToken validates an access token.
func (tm *TokenManager) ParseAccessToken(tokenStr string) (*Claims, error) {
	return tm.parse(tokenStr, PurposeAccess)
}

// ParseVerificationTicket validates a ticket and returns the user id it names.
func (tm *TokenManager) ParseVerificationTicket(tokenStr string) (string, error) {
	claims, err := tm.parse(tokenStr, PurposeEmailVerification)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (tm *TokenManager) sign(subject, purpose string, role domain.Role, ttl time.Duration) (string, time.Time, error) {
	now := tm.clock.Now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Purpose: purpose,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

func (tm *TokenManager) parse(tokenStr, purpose string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.clock.Now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
