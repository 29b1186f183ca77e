package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/message"
)

type messageApi struct {
	svc      *message.Service
	validate *validator.Validate
}

func registerMessageAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := messageApi{svc: deps.MessageSvc, validate: deps.Validate}

	mg := g.Group("/messages", authed...)
	mg.GET("", api.query)
	mg.POST("", api.send)
	mg.POST("/:id/read", api.markRead)
}

func (api *messageApi) query(ctx echo.Context) error {
	var filter message.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	msgs, err := api.svc.Query(ctx.Request().Context(), getIdentity(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying messages")
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *messageApi) send(ctx echo.Context) error {
	var data message.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	msg, err := api.svc.Send(ctx.Request().Context(), getIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messageApi) markRead(ctx echo.Context) error {
	msg, err := api.svc.MarkRead(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking message read")
	}
	return ctx.JSON(http.StatusOK, msg)
}
