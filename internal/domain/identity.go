package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownRole is returned when a role string does not name one of the
// identity collections.
var ErrUnknownRole = errors.New("unknown role")

// Sentinel errors shared by the store, the RPC edge and the clients.
var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid argument")
	ErrConflict = errors.New("already exists")
)

// Role is the kind of identity using the portal.
type Role string

const (
	Staff   Role = "staff"
	Student Role = "student"
	Parent  Role = "parent"
)

// ParseRole validates s as a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, err := r.Collection(); err != nil {
		return "", err
	}
	return r, nil
}

// Collection returns the identity collection that stores profiles of this role.
func (r Role) Collection() (string, error) {
	switch r {
	case Staff:
		return "staff", nil
	case Student:
		return "students", nil
	case Parent:
		return "parents", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
	}
}

// Identity is an (id, role) pair.
type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (i Identity) String() string {
	return string(i.Role) + ":" + i.ID
}

// ParseIdentity parses the "role:id" form produced by String.
func ParseIdentity(s string) (Identity, error) {
	role, id, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || id == "" {
		return Identity{}, fmt.Errorf("%w: identity %q, want role:id", ErrInvalid, s)
	}
	r, err := ParseRole(role)
	if err != nil {
		return Identity{}, err
	}
	return Identity{ID: id, Role: r}, nil
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool {
	return i.ID == ""
}

// PairKey returns the canonical key of an unordered participant pair.
func PairKey(a, b Identity) string {
	keys := []string{a.String(), b.String()}
	sort.Strings(keys)
	return keys[0] + "|" + keys[1]
}

// Profile is the display identity of a staff member, student or parent.
type Profile struct {
	Identity
	Name        string `json:"name"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatar_url"`
	InstituteID string `json:"institute_id"`
}

// DisplayName returns the profile name, falling back to the identity.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	if p.Email != "" {
		return p.Email
	}
	return p.Identity.String()
}
