package domain

import "fmt"

// Role is one of the closed set of roles a subject can hold.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleDriver   Role = "driver"
	RolePartner  Role = "partner"
	RoleAdmin    Role = "admin"
	RoleOps      Role = "ops"
)

// DefaultRole is used when a caller does not name a role.
const DefaultRole = RoleCustomer

// Roles lists the role vocabulary in a stable order.
var Roles = []Role{RoleCustomer, RoleDriver, RolePartner, RoleAdmin, RoleOps}

var rolePrefixes = map[Role]string{
	RoleCustomer: "OGC",
	RoleDriver:   "OGD",
	RolePartner:  "OGP",
	RoleAdmin:    "OGA",
	RoleOps:      "OGO",
}

const fallbackPrefix = "OGX"

// ParseRole returns the Role for s, or an error if s is not in the vocabulary.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := rolePrefixes[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := rolePrefixes[r]
	return ok
}

// Prefix returns the external identifier prefix for r.
func (r Role) Prefix() string {
	if p, ok := rolePrefixes[r]; ok {
		return p
	}
	return fallbackPrefix
}

// CounterName is the name of the sequence counter backing r.
func (r Role) CounterName() string { return string(r) }

// FormatExternalID renders n for role as prefix + n zero-padded to six digits.
// Values wider than six digits are printed in full.
func FormatExternalID(role Role, n int64) ExternalID {
	return ExternalID(fmt.Sprintf("%s%06d", role.Prefix(), n))
}
