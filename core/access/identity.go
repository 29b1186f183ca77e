package access

import (
	"github.com/trezcool/darasa/core"
)

// Identity is the verified caller of an operation. It is always passed explicitly.
type Identity struct {
	UserID string
	Role   Role
}

func NewIdentity(userID string, role Role) Identity {
	return Identity{UserID: userID, Role: role}
}

// Validate rejects identities that did not come out of authentication.
func (id Identity) Validate() error {
	if id.UserID == "" || !id.Role.IsValid() {
		return core.ErrNotAuthenticated
	}
	return nil
}

func (id Identity) IsStudent() bool { return id.Role == Student }
func (id Identity) IsTeacher() bool { return id.Role == Teacher }
func (id Identity) IsAdmin() bool   { return id.Role == Admin }

// Require fails with a core.PermissionError unless the identity holds one of `roles`.
func (id Identity) Require(roles ...Role) error {
	if err := id.Validate(); err != nil {
		return err
	}
	for _, r := range roles {
		if id.Role == r {
			return nil
		}
	}
	return core.ErrPermissionDenied
}
