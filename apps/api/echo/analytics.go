package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/passify/backend/core/report"
)

type analyticsApi struct {
	deps *Deps
}

func registerAnalyticsAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := analyticsApi{deps: deps}

	ag := g.Group("/analytics", jwt, adminMiddleware())
	ag.GET("/overview", api.overview)
	ag.GET("/time-slots", api.byTimeSlot)
	ag.GET("/reasons", api.byReason)
}

// Handlers

func (api *analyticsApi) overview(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	overview, err := api.deps.ReportSvc.Overview(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "reporting overview")
	}
	return ctx.JSON(http.StatusOK, overview)
}

func (api *analyticsApi) byTimeSlot(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	stats, err := api.deps.ReportSvc.ByTimeSlot(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "reporting time slots")
	}
	if stats == nil {
		stats = []report.TimeSlotStat{}
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *analyticsApi) byReason(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	stats, err := api.deps.ReportSvc.ByReason(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "reporting reasons")
	}
	if stats == nil {
		stats = []report.ReasonStat{}
	}
	return ctx.JSON(http.StatusOK, stats)
}
