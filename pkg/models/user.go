package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents the marketplace role of an account
type UserRole string

const (
	RoleBuyer  UserRole = "buyer"
	RoleSeller UserRole = "seller"
	RoleAdmin  UserRole = "admin"
)

// AdminRole is the moderation tier of an admin account
type AdminRole string

const (
	AdminRoleSuperAdmin AdminRole = "super_admin"
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleModerator  AdminRole = "moderator"
)

// Permission is a capability granted to an admin
type Permission string

const (
	PermissionManageFraud   Permission = "manage_fraud"
	PermissionManageReports Permission = "manage_reports"
	PermissionManageUsers   Permission = "manage_users"
)

// PermissionSet is a set of admin permissions
type PermissionSet map[Permission]struct{}

// Has reports whether p is in the set
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// PermissionsFor resolves the effective permissions of an admin. Super admins
// hold every permission regardless of what was granted explicitly.
func PermissionsFor(role AdminRole, granted []string) PermissionSet {
	set := PermissionSet{}
	if role == AdminRoleSuperAdmin {
		set[PermissionManageFraud] = struct{}{}
		set[PermissionManageReports] = struct{}{}
		set[PermissionManageUsers] = struct{}{}
		return set
	}
	for _, g := range granted {
		set[Permission(g)] = struct{}{}
	}
	return set
}

// User is the subset of a marketplace account the trust engine reads.
type User struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	Email            string     `json:"email" db:"email"`
	Username         string     `json:"username" db:"username"`
	PhoneNumber      *string    `json:"phone_number,omitempty" db:"phone_number"`
	Role             UserRole   `json:"role" db:"role"`
	IsActive         bool       `json:"is_active" db:"is_active"`
	EmailVerified    bool       `json:"email_verified" db:"email_verified"`
	PhoneVerified    bool       `json:"phone_verified" db:"phone_verified"`
	IdentityVerified bool       `json:"identity_verified" db:"identity_verified"`
	SuspendedReason  *string    `json:"suspended_reason,omitempty" db:"suspended_reason"`
	SuspendedAt      *time.Time `json:"suspended_at,omitempty" db:"suspended_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// AccountAgeDays returns the whole number of days since the account was created.
func (u *User) AccountAgeDays(now time.Time) int {
	if u.CreatedAt.IsZero() || now.Before(u.CreatedAt) {
		return 0
	}
	return int(now.Sub(u.CreatedAt).Hours() / 24)
}
