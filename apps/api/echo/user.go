package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/stats"
	"github.com/trezcool/darasa/core/user"
)

type userApi struct {
	conf       *core.Config
	svc        user.ServiceInterface
	statsSvc   *stats.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerUserAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{
		conf:       deps.Conf,
		svc:        deps.UserSvc,
		statsSvc:   deps.StatsSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	ug := g.Group("/auth")

	// un-authed endpoints
	ug.POST("/register", api.register)
	ug.POST("/login", api.login)

	// authed endpoints
	ag := ug.Group("", authed...)
	ag.POST("/refresh", api.refreshToken)
	ag.GET("/me", api.me)
	ag.PATCH("/me", api.updateProfile)
	ag.GET("/users", api.query)
	ag.GET("/users/:id", api.retrieve)
	ag.GET("/search-users", api.search)
	ag.GET("/stats", api.globalStats)
	ag.GET("/teacher-stats", api.teacherStats)
	ag.GET("/student-stats", api.studentStats)
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	token, err := GenerateToken(GetUserClaims(usr, api.conf), api.conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, AuthResponse{User: usr, Token: token})
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := authenticate(ctx.Request().Context(), data.Email, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(GetUserClaims(usr, api.conf), api.conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, AuthResponse{User: usr, Token: token})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updateProfile(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(api.validate, usr); err != nil {
		return err
	}

	usr, err = api.svc.UpdateProfile(ctx.Request().Context(), getIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering, err := bindOrdering(ctx, user.OrderFields)
	if err != nil {
		return err
	}

	users, err := api.svc.Query(ctx.Request().Context(), getIdentity(ctx), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := api.svc.Retrieve(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) search(ctx echo.Context) error {
	users, err := api.svc.Search(ctx.Request().Context(), getIdentity(ctx), ctx.QueryParam("search"))
	if err != nil {
		return errors.Wrap(err, "searching users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

// Stats

func (api *userApi) globalStats(ctx echo.Context) error {
	st, err := api.statsSvc.Global(ctx.Request().Context(), getIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *userApi) teacherStats(ctx echo.Context) error {
	st, err := api.statsSvc.Teacher(ctx.Request().Context(), getIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "computing teacher stats")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *userApi) studentStats(ctx echo.Context) error {
	st, err := api.statsSvc.Student(ctx.Request().Context(), getIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "computing student stats")
	}
	return ctx.JSON(http.StatusOK, st)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	AuthResponse struct {
		User  user.User `json:"user"`
		Token string    `json:"token"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
