package boiledrepos

import (
	"context"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/user"
)

const userTable = "user"

var (
	userColumns      = []string{"id", "name", "email", "role", "photo_url", "is_active", "password_hash", "created_at", "updated_at", "last_login"}
	userUpdateFields = []string{"name", "email", "role", "photo_url", "is_active", "password_hash", "updated_at", "last_login"}
	userOrderFields  = fieldSet(user.OrderFields)
)

// userRow is the database shape of a user.User.
type userRow struct {
	ID           string      `boil:"id"`
	Name         string      `boil:"name"`
	Email        string      `boil:"email"`
	Role         access.Role `boil:"role"`
	PhotoURL     string      `boil:"photo_url"`
	IsActive     bool        `boil:"is_active"`
	PasswordHash []byte      `boil:"password_hash"`
	CreatedAt    time.Time   `boil:"created_at"`
	UpdatedAt    time.Time   `boil:"updated_at"`
	LastLogin    null.Time   `boil:"last_login"`
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) boil(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         usr.Role,
		PhotoURL:     usr.PhotoURL,
		IsActive:     usr.IsActive,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) unboil(u userRow) user.User {
	return user.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		PhotoURL:     u.PhotoURL,
		IsActive:     u.IsActive,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLogin:    u.LastLogin.Time,
	}
}

// trapErr maps psql errors to user errors
func (repo userRepository) trapErr(err error, msg string) error {
	switch {
	case isNoRows(err):
		return user.ErrNotFound
	case isUniqueViolation(err):
		return core.NewConflictError(user.ErrEmailExists.Error())
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	mods := []qm.QueryMod{qm.From(quote(userTable)), qm.Where(`"email" = ?`, email)}
	if len(excludedIDs) > 0 {
		ids := make([]interface{}, 0, len(excludedIDs))
		for _, id := range excludedIDs {
			ids = append(ids, id)
		}
		mods = append(mods, qm.WhereNotIn(`"id" NOT IN ?`, ids...))
	}

	found, err := exists(ctx, repo.exec, mods...)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if found {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = newID()
	u := repo.boil(usr)
	err := insert(ctx, repo.exec, userTable, userColumns,
		u.ID, u.Name, u.Email, u.Role, u.PhotoURL, u.IsActive, u.PasswordHash, u.CreatedAt, u.UpdatedAt, u.LastLogin)
	if err != nil {
		return user.User{}, repo.trapErr(err, "inserting user")
	}
	return repo.unboil(u), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	mods := []qm.QueryMod{selectCols(userTable, userColumns), qm.From(quote(userTable))}

	if filter != nil {
		// users with Name or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			mods = append(mods, qm.Expr(qm.Where(`"name" ILIKE ?`, val), qm.Or(`"email" ILIKE ?`, val)))
		}
		if len(filter.Roles) > 0 {
			roles := make([]interface{}, 0, len(filter.Roles))
			for _, r := range filter.Roles {
				roles = append(roles, r)
			}
			mods = append(mods, qm.WhereIn(`"role" IN ?`, roles...))
		}
		if filter.IsActive != nil {
			mods = append(mods, qm.Where(`"is_active" = ?`, *filter.IsActive))
		}
		if filter.ExcludeID != "" && validID(filter.ExcludeID) {
			mods = append(mods, qm.Where(`"id" <> ?`, filter.ExcludeID))
		}
	}
	mods = append(mods, orderBy(ordering, userOrderFields, `"created_at" DESC`))

	var rows []userRow
	if err := newQuery(mods...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, u := range rows {
		users = append(users, repo.unboil(u))
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	mods := []qm.QueryMod{selectCols(userTable, userColumns), qm.From(quote(userTable))}
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		mods = append(mods, qm.Where(`"id" = ?`, filter.ID))
	case filter.Email != "":
		mods = append(mods, qm.Where(`"email" = ?`, filter.Email))
	default:
		return user.User{}, user.ErrNotFound
	}

	var u userRow
	if err := newQuery(mods...).Bind(ctx, repo.exec, &u); err != nil {
		return user.User{}, repo.trapErr(err, "finding user")
	}
	return repo.unboil(u), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if !validID(usr.ID) {
		return user.User{}, user.ErrNotFound
	}
	u := repo.boil(usr)
	res, err := queries.Raw(updateQuery(userTable, userUpdateFields, []string{"id"}),
		u.Name, u.Email, u.Role, u.PhotoURL, u.IsActive, u.PasswordHash, u.UpdatedAt, u.LastLogin, u.ID,
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return user.User{}, repo.trapErr(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.unboil(u), nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}
	return repo.UpdateUser(ctx, usr)
}
