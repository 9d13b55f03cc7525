// Package account models the parties of the internship workflow. Accounts
// are owned by the external identity directory; the workflow only reads them
// to resolve roles and lock counters.
package account

import (
	"context"
	"strings"

	"github.com/internhub/internhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROLES
// ══════════════════════════════════════════════════════════════════════════════

// Role is the capability an account holds in the workflow.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleCompany Role = "COMPANY"
	RoleTutor   Role = "TUTOR"
	RoleAdmin   Role = "ADMIN"
)

// IsValid checks that the role is one of the four known capabilities.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleCompany, RoleTutor, RoleAdmin:
		return true
	}
	return false
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", shared.InvalidInput("account", "ParseRole", "unknown role "+s)
	}
	return r, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PRINCIPAL
// ══════════════════════════════════════════════════════════════════════════════

// Principal is an authenticated caller as resolved by the identity layer.
type Principal struct {
	UserID string
	Role   Role
}

// SystemPrincipal acts on behalf of background jobs and internal retries.
var SystemPrincipal = Principal{UserID: "00000000-0000-0000-0000-000000000000", Role: RoleAdmin}

// Is reports whether the principal holds the given role.
func (p Principal) Is(role Role) bool {
	return p.Role == role
}

// IsAdmin reports whether the principal is an administrator.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Validate checks the principal is usable.
func (p Principal) Validate() error {
	if !shared.IsValidID(p.UserID) {
		return shared.NewDomainError("account", "Principal", shared.ErrForbidden, "caller identity is missing")
	}
	if !p.Role.IsValid() {
		return shared.NewDomainError("account", "Principal", shared.ErrForbidden, "caller role is missing")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT VARIANTS
// ══════════════════════════════════════════════════════════════════════════════

// Account is the tagged union over the four roles. Each variant carries only
// its own attributes; the identity key is shared.
type Account interface {
	ID() string
	Role() Role
	DisplayName() string
	Email() string
}

// Identity holds the fields common to every variant.
type Identity struct {
	UserID string
	Name   string
	Mail   string
}

func (i Identity) ID() string          { return i.UserID }
func (i Identity) DisplayName() string { return i.Name }
func (i Identity) Email() string       { return i.Mail }

// Student is an account that can apply to offers.
type Student struct {
	Identity
	Program string
	Level   string
}

// Role implements Account.
func (Student) Role() Role { return RoleStudent }

// Company is an account that owns offers and decides applications.
type Company struct {
	Identity
	LegalName string
	Sector    string
}

// Role implements Account.
func (Company) Role() Role { return RoleCompany }

// Tutor is an academic supervisor.
type Tutor struct {
	Identity
	Department string
}

// Role implements Account.
func (Tutor) Role() Role { return RoleTutor }

// Admin is a member of the administration that countersigns agreements.
type Admin struct {
	Identity
}

// Role implements Account.
func (Admin) Role() Role { return RoleAdmin }

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY
// ══════════════════════════════════════════════════════════════════════════════

// ErrNotFound is returned for an unknown account id.
var ErrNotFound = shared.NewDomainError("account", "Get", shared.ErrNotFound, "account not found")

// Directory resolves accounts by id.
type Directory interface {
	// Get returns the account or ErrNotFound.
	Get(ctx context.Context, id string) (Account, error)

	// GetForUpdate returns the account and locks it until the surrounding
	// transaction ends. Per-account counters are serialized on this lock.
	GetForUpdate(ctx context.Context, id string) (Account, error)
}
