// Package access holds the role model and the visibility rules deciding which records an identity may read.
package access

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Role is the closed set of user roles.
// The zero Role is invalid and values can only come from the exported vars or ParseRole.
type Role struct {
	name string
}

var (
	Student = Role{"student"}
	Teacher = Role{"teacher"}
	Admin   = Role{"admin"}

	Roles = []Role{Student, Teacher, Admin}

	ErrInvalidRole = errors.New("invalid role")
)

// ParseRole returns the Role named `s` (case-insensitive).
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case Student.name:
		return Student, nil
	case Teacher.name:
		return Teacher, nil
	case Admin.name:
		return Admin, nil
	}
	return Role{}, errors.Wrapf(ErrInvalidRole, "%q", s)
}

func (r Role) String() string { return r.name }

func (r Role) IsValid() bool {
	return r == Student || r == Teacher || r == Admin
}

func (r Role) MarshalJSON() ([]byte, error) {
	if !r.IsValid() {
		return nil, ErrInvalidRole
	}
	return json.Marshal(r.name)
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	role, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Scan implements sql.Scanner.
func (r *Role) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("access: cannot scan %T into Role", src)
	}
	role, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Value implements driver.Valuer.
func (r Role) Value() (driver.Value, error) {
	if !r.IsValid() {
		return nil, ErrInvalidRole
	}
	return r.name, nil
}
