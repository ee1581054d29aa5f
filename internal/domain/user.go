package domain

import "time"

// Role enumerates portal account roles.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may review applications and complaints.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// AccountApprovalState is derived from the two activation events: email
// verification and, for staff/admin accounts, administrator approval.
type AccountApprovalState string

const (
	ApprovalPendingEmail AccountApprovalState = "pending_email"
	ApprovalPendingAdmin AccountApprovalState = "pending_admin_approval"
	ApprovalActive       AccountApprovalState = "active"
)

// User is a registered portal account.
type User struct {
	ID              string
	Username        string
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	PhoneNumber     string
	AadharNumber    *string
	Address         string
	Village         string
	District        string
	Pincode         string
	Role            Role
	EmailVerified   bool
	EmailVerifiedAt *time.Time
	AdminApproved   bool
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ApprovalState computes where the account sits in the activation flow.
func (u *User) ApprovalState() AccountApprovalState {
	if !u.EmailVerified {
		return ApprovalPendingEmail
	}
	if u.Role != RoleCitizen && !u.AdminApproved {
		return ApprovalPendingAdmin
	}
	return ApprovalActive
}

// MarkEmailVerified records a successful OTP verification and recomputes IsActive.
func (u *User) MarkEmailVerified(at time.Time) {
	u.EmailVerified = true
	u.EmailVerifiedAt = &at
	u.IsActive = u.ApprovalState() == ApprovalActive
}

// Approve records an administrator approval and recomputes IsActive.
func (u *User) Approve() {
	u.AdminApproved = true
	u.IsActive = u.ApprovalState() == ApprovalActive
}

// FullName returns the display name, falling back to the username.
func (u *User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}
