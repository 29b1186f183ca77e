package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/services/report"
)

type classroomApi struct {
	svc      *classroom.Service
	validate *validator.Validate
}

func registerClassroomAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := classroomApi{svc: deps.ClassroomSvc, validate: deps.Validate}

	cg := g.Group("/classrooms", authed...)
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.POST("/join", api.join)

	cg.GET("/announcements", api.queryAnnouncements)
	cg.POST("/announcements", api.createAnnouncement)
	cg.GET("/announcements/:id", api.retrieveAnnouncement)
	cg.PATCH("/announcements/:id", api.updateAnnouncement)
	cg.DELETE("/announcements/:id", api.destroyAnnouncement)

	cg.GET("/attendance", api.queryAttendance)
	cg.POST("/attendance", api.markAttendance)
	cg.GET("/attendance/:id", api.retrieveAttendance)
	cg.PATCH("/attendance/:id", api.updateAttendance)
	cg.DELETE("/attendance/:id", api.destroyAttendance)

	cg.GET("/grades", api.queryGrades)
	cg.POST("/grades", api.recordGrade)
	cg.GET("/grades/export", api.exportGradebook)
	cg.GET("/grades/:id", api.retrieveGrade)
	cg.PATCH("/grades/:id", api.updateGrade)
	cg.DELETE("/grades/:id", api.destroyGrade)

	// detail endpoints
	cg.GET("/:id", api.retrieve)
	cg.DELETE("/:id", api.destroy)
	cg.GET("/:id/students", api.students)
}

// bindListFilter reads the `courseId` & `classroomId` query params.
func bindListFilter(ctx echo.Context) (*classroom.ListFilter, error) {
	filter := new(classroom.ListFilter)
	if err := ctx.Bind(filter); err != nil {
		return nil, errors.Wrap(err, "binding to ListFilter")
	}
	filter.Clean()
	return filter, nil
}

func (api *classroomApi) query(ctx echo.Context) error {
	filter, err := bindListFilter(ctx)
	if err != nil {
		return err
	}
	rooms, err := api.svc.QueryClassrooms(ctx.Request().Context(), getIdentity(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying classrooms")
	}
	return ctx.JSON(http.StatusOK, rooms)
}

func (api *classroomApi) create(ctx echo.Context) error {
	var data classroom.NewClassroom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassroom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	room, err := api.svc.CreateClassroom(ctx.Request().Context(), getIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating classroom")
	}
	return ctx.JSON(http.StatusCreated, room)
}

func (api *classroomApi) retrieve(ctx echo.Context) error {
	room, err := api.svc.GetClassroom(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving classroom")
	}
	return ctx.JSON(http.StatusOK, room)
}

func (api *classroomApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteClassroom(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting classroom")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomApi) students(ctx echo.Context) error {
	students, err := api.svc.Students(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classroomApi) join(ctx echo.Context) error {
	var data classroom.JoinRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	room, err := api.svc.Join(ctx.Request().Context(), getIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "joining classroom")
	}
	return ctx.JSON(http.StatusOK, room)
}

// Announcements

func (api *classroomApi) queryAnnouncements(ctx echo.Context) error {
	filter, err := bindListFilter(ctx)
	if err != nil {
		return err
	}
	anns, err := api.svc.QueryAnnouncements(ctx.Request().Context(), getIdentity(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	return ctx.JSON(http.StatusOK, anns)
}

func (api *classroomApi) createAnnouncement(ctx echo.Context) error {
	var data classroom.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ann, err := api.svc.CreateAnnouncement(ctx.Request().Context(), getIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	return ctx.JSON(http.StatusCreated, ann)
}

func (api *classroomApi) retrieveAnnouncement(ctx echo.Context) error {
	ann, err := api.svc.GetAnnouncement(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving announcement")
	}
	return ctx.JSON(http.StatusOK, ann)
}

func (api *classroomApi) updateAnnouncement(ctx echo.Context) error {
	var data classroom.UpdateAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAnnouncement")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ann, err := api.svc.UpdateAnnouncement(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating announcement")
	}
	return ctx.JSON(http.StatusOK, ann)
}

func (api *classroomApi) destroyAnnouncement(ctx echo.Context) error {
	if err := api.svc.DeleteAnnouncement(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Attendance

func (api *classroomApi) queryAttendance(ctx echo.Context) error {
	filter, err := bindListFilter(ctx)
	if err != nil {
		return err
	}
	records, err := api.svc.QueryAttendance(ctx.Request().Context(), getIdentity(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *classroomApi) markAttendance(ctx echo.Context) error {
	var data classroom.NewAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttendance")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	att, err := api.svc.MarkAttendance(ctx.Request().Context(), getIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api *classroomApi) retrieveAttendance(ctx echo.Context) error {
	att, err := api.svc.GetAttendance(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving attendance")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *classroomApi) updateAttendance(ctx echo.Context) error {
	var data classroom.UpdateAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAttendance")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	att, err := api.svc.UpdateAttendance(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating attendance")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *classroomApi) destroyAttendance(ctx echo.Context) error {
	if err := api.svc.DeleteAttendance(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Grades

func (api *classroomApi) queryGrades(ctx echo.Context) error {
	filter, err := bindListFilter(ctx)
	if err != nil {
		return err
	}
	grades, err := api.svc.QueryGrades(ctx.Request().Context(), getIdentity(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *classroomApi) recordGrade(ctx echo.Context) error {
	var data classroom.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grade, err := api.svc.RecordGrade(ctx.Request().Context(), getIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "recording grade")
	}
	return ctx.JSON(http.StatusCreated, grade)
}

func (api *classroomApi) retrieveGrade(ctx echo.Context) error {
	grade, err := api.svc.GetGrade(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving grade")
	}
	return ctx.JSON(http.StatusOK, grade)
}

func (api *classroomApi) updateGrade(ctx echo.Context) error {
	var data classroom.UpdateGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grade, err := api.svc.UpdateGrade(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, grade)
}

func (api *classroomApi) destroyGrade(ctx echo.Context) error {
	if err := api.svc.DeleteGrade(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomApi) exportGradebook(ctx echo.Context) error {
	filter, err := bindListFilter(ctx)
	if err != nil {
		return err
	}
	book, err := api.svc.Gradebook(ctx.Request().Context(), getIdentity(ctx), filter.ClassroomID)
	if err != nil {
		return errors.Wrap(err, "building gradebook")
	}

	var buf bytes.Buffer
	if err = reportsvc.WriteGradebook(&buf, book); err != nil {
		return errors.Wrap(err, "writing gradebook")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", reportsvc.GradebookFilename(book.Classroom)))
	return ctx.Blob(http.StatusOK, reportsvc.GradebookContentType, buf.Bytes())
}
