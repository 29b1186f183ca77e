package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
)

type User struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         access.Role `json:"role"`
	PhotoURL     string      `json:"photo_url"`
	IsActive     bool        `json:"is_active"`
	PasswordHash []byte      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
	LastLogin    time.Time   `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Identity returns the access.Identity the user acts as.
func (u User) Identity() access.Identity {
	return access.NewIdentity(u.ID, u.Role)
}

func (u User) IsAdmin() bool   { return u.Role == access.Admin }
func (u User) IsTeacher() bool { return u.Role == access.Teacher }
func (u User) IsStudent() bool { return u.Role == access.Student }

// NewUser contains information needed to register a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required,notblank"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"omitempty,role"`
	PhotoURL        string `json:"photo_url" validate:"omitempty,url"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.PhotoURL = core.CleanString(nu.PhotoURL)
	if nu.Role == "" {
		nu.Role = access.Student.String()
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Email)
}

// UpdateProfile defines what a user may change on their own profile.
type UpdateProfile struct {
	Name            string  `json:"name"`
	PhotoURL        *string `json:"photo_url" validate:"omitempty,url"`
	Password        string  `json:"password" validate:"omitempty"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`

	email string // used by the password similarity check
}

func (up *UpdateProfile) Validate(validate *validator.Validate, origUsr User) error {
	if name := core.CleanString(up.Name); name != "" {
		up.Name = name
	} else {
		up.Name = origUsr.Name
	}
	if up.PhotoURL != nil {
		photo := core.CleanString(*up.PhotoURL)
		up.PhotoURL = &photo
	}
	up.email = origUsr.Email
	return validate.Struct(up)
}

type GetFilter struct {
	ID    string
	Email string
}

// OrderFields lists the fields the user list can be ordered by.
var OrderFields = []string{"name", "email", "role", "is_active", "created_at", "last_login"}

type QueryFilter struct {
	Search    string   `query:"search"`
	Roles     []string `query:"role"`
	IsActive  *bool    `query:"is_active"`
	ExcludeID string   `query:"-"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.ExcludeID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	var roles []string
	for _, r := range qf.Roles {
		for _, part := range strings.Split(r, ",") {
			if part = core.CleanString(part, true /* lower */); part != "" {
				roles = append(roles, part)
			}
		}
	}
	qf.Roles = roles
}

// Match reports whether `usr` passes the filter. Search is a case-insensitive match on name or email.
func (qf *QueryFilter) Match(usr User) bool {
	if qf == nil {
		return true
	}
	if qf.ExcludeID != "" && usr.ID == qf.ExcludeID {
		return false
	}
	if qf.Search != "" {
		term := strings.ToLower(qf.Search)
		if !(strings.Contains(strings.ToLower(usr.Name), term) || strings.Contains(strings.ToLower(usr.Email), term)) {
			return false
		}
	}
	if len(qf.Roles) > 0 {
		var found bool
		for _, r := range qf.Roles {
			if usr.Role.String() == r {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if qf.IsActive != nil && usr.IsActive != *qf.IsActive {
		return false
	}
	return true
}
