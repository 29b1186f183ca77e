package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/coursework"
)

const attachmentFormField = "file"

type assignmentApi struct {
	svc      *coursework.Service
	validate *validator.Validate
}

func registerAssignmentAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := assignmentApi{svc: deps.CourseworkSvc, validate: deps.Validate}

	ag := g.Group("/assignments", authed...)
	ag.GET("", api.query)
	ag.POST("", api.create)
	ag.GET("/submissions/pending", api.pendingSubmissions)
	ag.POST("/submissions/:id/grade", api.grade)
	ag.GET("/:id", api.retrieve)
	ag.PATCH("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
	ag.POST("/:id/submit", api.submit)
	ag.GET("/:id/submissions", api.submissions)
}

func (api *assignmentApi) query(ctx echo.Context) error {
	filter := new(coursework.ListFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to ListFilter")
	}
	filter.Clean()

	list, err := api.svc.QueryAssignments(ctx.Request().Context(), getIdentity(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	var data coursework.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asgmt, err := api.svc.CreateAssignment(ctx.Request().Context(), getIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asgmt)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	asgmt, err := api.svc.GetAssignment(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving assignment")
	}
	return ctx.JSON(http.StatusOK, asgmt)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	var data coursework.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asgmt, err := api.svc.UpdateAssignment(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, asgmt)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteAssignment(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// submit accepts a JSON body or a multipart form carrying the attachment in the `file` field.
func (api *assignmentApi) submit(ctx echo.Context) error {
	var data coursework.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}

	var upload *coursework.Upload
	if strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := ctx.FormFile(attachmentFormField)
		switch {
		case err == nil:
			file, err := fh.Open()
			if err != nil {
				return errors.Wrap(err, "opening attachment")
			}
			defer file.Close()
			upload = &coursework.Upload{Filename: fh.Filename, Reader: file}
		case err != http.ErrMissingFile:
			return errors.Wrap(err, "reading attachment")
		}
	}
	if err := data.Validate(api.validate, upload); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"), data, upload)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *assignmentApi) submissions(ctx echo.Context) error {
	list, err := api.svc.QuerySubmissions(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *assignmentApi) pendingSubmissions(ctx echo.Context) error {
	list, err := api.svc.PendingSubmissions(ctx.Request().Context(), getIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "querying pending submissions")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *assignmentApi) grade(ctx echo.Context) error {
	var data coursework.GradeSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Grade(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
