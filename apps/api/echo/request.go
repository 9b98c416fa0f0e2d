package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/passify/backend/core/request"
)

type requestApi struct {
	deps *Deps
}

func registerRequestAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := requestApi{deps: deps}

	rg := g.Group("/requests", jwt)
	rg.POST("", api.create)
	rg.GET("/own", api.listOwn)
	rg.GET("", api.listAll, adminMiddleware())
	rg.PATCH("/:id", api.disposition, adminMiddleware())
}

// Handlers

func (api *requestApi) create(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	var data request.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	req, hint, err := api.deps.RequestSvc.Create(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}

	return ctx.JSON(http.StatusCreated, CreateRequestResponse{Request: req, Prediction: hint})
}

func (api *requestApi) listOwn(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	reqs, err := api.deps.RequestSvc.ListOwn(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "listing own requests")
	}
	if reqs == nil {
		reqs = []request.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *requestApi) listAll(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	filter := new(request.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []request.Request{})
	}

	reqs, err := api.deps.RequestSvc.ListAll(ctx.Request().Context(), caller, filter)
	if err != nil {
		return errors.Wrap(err, "listing requests")
	}
	if reqs == nil {
		reqs = []request.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *requestApi) disposition(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	var data request.Disposition
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Disposition")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	req, err := api.deps.RequestSvc.Disposition(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "disposing request")
	}
	return ctx.JSON(http.StatusOK, req)
}

type CreateRequestResponse struct {
	Request    request.Request `json:"request"`
	Prediction request.Hint    `json:"prediction"`
}
