package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("user not found")
	ErrEmailExists   = errors.New("a user with this email already exists")
	ErrAdminRegister = errors.New("admins cannot self-register")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User) (User, error)
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error
		Register(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, ident access.Identity, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		Search(ctx context.Context, ident access.Identity, search string) ([]User, error)
		Retrieve(ctx context.Context, ident access.Identity, id string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		UpdateProfile(ctx context.Context, ident access.Identity, up UpdateProfile) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		notifier core.ChangeNotifier
		conf     *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, notifier core.ChangeNotifier, conf *core.Config) *Service {
	if notifier == nil {
		notifier = core.NoopNotifier
	}
	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		notifier: notifier,
		conf:     conf,
	}
}

func (svc *Service) CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	ids := make([]string, 0, len(exclUsers))
	for _, u := range exclUsers {
		ids = append(ids, u.ID)
	}
	if err := svc.repo.CheckEmailUniqueness(ctx, email, ids...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates a student or teacher account and sends the welcome email.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	role, err := access.ParseRole(nu.Role)
	if err != nil {
		return User{}, core.NewValidationError(err, core.FieldError{Field: "role", Error: roleText})
	}
	if role == access.Admin {
		return User{}, core.NewValidationError(ErrAdminRegister, core.FieldError{Field: "role", Error: ErrAdminRegister.Error()})
	}

	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      role,
		PhotoURL:  nu.PhotoURL,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	if usr, err = svc.repo.CreateUser(ctx, usr); err != nil {
		if core.IsConflict(err) {
			return User{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return User{}, errors.Wrap(err, "creating user")
	}
	svc.notifier.NotifyChange(ctx)

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Welcome to " + svc.conf.AppName,
		TemplateName: "welcome",
		TemplateData: map[string]interface{}{
			"Name": usr.Name,
			"Role": usr.Role.String(),
		},
	})
	return usr, nil
}

// Query lists users for admins and teachers.
func (svc *Service) Query(ctx context.Context, ident access.Identity, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if err := ident.Require(access.Admin, access.Teacher); err != nil {
		return nil, err
	}
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

// Search lists every active user but the caller, for picking a message recipient.
func (svc *Service) Search(ctx context.Context, ident access.Identity, search string) ([]User, error) {
	if err := ident.Validate(); err != nil {
		return nil, err
	}
	active := true
	filter := &QueryFilter{
		Search:    core.CleanString(search),
		IsActive:  &active,
		ExcludeID: ident.UserID,
	}
	return svc.repo.QueryUsers(ctx, filter, []core.DBOrdering{{Field: "name", Ascending: true}})
}

// Retrieve returns any user to an admin.
func (svc *Service) Retrieve(ctx context.Context, ident access.Identity, id string) (User, error) {
	if err := ident.Require(access.Admin); err != nil {
		return User{}, err
	}
	return svc.GetByID(ctx, id)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

// GetName returns the name of user `id`.
func (svc *Service) GetName(ctx context.Context, id string) (string, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return usr.Name, nil
}

func (svc *Service) UserExists(ctx context.Context, id string) (bool, error) {
	if _, err := svc.GetByID(ctx, id); err != nil {
		if core.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

// UpdateProfile changes the caller's own name, photo or password.
func (svc *Service) UpdateProfile(ctx context.Context, ident access.Identity, up UpdateProfile) (User, error) {
	if err := ident.Validate(); err != nil {
		return User{}, err
	}
	usr, err := svc.GetByID(ctx, ident.UserID)
	if err != nil {
		return User{}, err
	}

	usr.Name = up.Name
	if up.PhotoURL != nil {
		usr.PhotoURL = *up.PhotoURL
	}
	if up.Password != "" {
		if err = usr.SetPassword(up.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}
