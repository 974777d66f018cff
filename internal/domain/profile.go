package domain

import "time"

// Profile is the multi-role profile of a subject.
//
// IDs entries are assigned once and never change. Roles entries are never revoked.
type Profile struct {
	Subject     SubjectID
	Roles       map[Role]bool
	IDs         map[Role]ExternalID
	DisplayName *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasRole reports whether the role flag is set.
func (p Profile) HasRole(r Role) bool { return p.Roles[r] }

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	out := p
	out.Roles = make(map[Role]bool, len(p.Roles))
	for k, v := range p.Roles {
		out.Roles[k] = v
	}
	out.IDs = make(map[Role]ExternalID, len(p.IDs))
	for k, v := range p.IDs {
		out.IDs[k] = v
	}
	if p.DisplayName != nil {
		v := *p.DisplayName
		out.DisplayName = &v
	}
	return out
}
