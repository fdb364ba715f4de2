package api

import (
	"errors"

	"PropRecon/internal/domain/models"
	domrepo "PropRecon/internal/domain/repository"
	"PropRecon/internal/usecase"
	xhttp "PropRecon/pkg/http"
	xlogger "PropRecon/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SignalsHandler exposes the reconciliation engine over HTTP: browse the
// outstanding signal set, trigger runs, and move signals through their
// governance lifecycle.
type SignalsHandler struct {
	logger *xlogger.Logger
	run    *usecase.RunUseCase
	store  domrepo.SignalStore
}

func NewSignalsHandler(logger *xlogger.Logger, run *usecase.RunUseCase, store domrepo.SignalStore) *SignalsHandler {
	return &SignalsHandler{logger: logger, run: run, store: store}
}

func (h *SignalsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/signals", h.ListSignals)
	g.GET("/signals/summary", h.Summary)
	g.PATCH("/signals/:id/status", h.UpdateStatus)
	g.POST("/runs", h.TriggerRun)
}

func (h *SignalsHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *SignalsHandler) ListSignals(c echo.Context) error {
	req := &models.ListSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	filter := domrepo.SignalFilter{
		Type:     models.SignalType(req.Type),
		Severity: models.Severity(req.Severity),
		Status:   models.SignalStatus(req.Status),
		Limit:    req.Limit,
	}
	signals, err := h.store.List(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("list signals failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	total, err := h.store.Count(c.Request().Context())
	if err != nil {
		h.logger.Error("count signals failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if signals == nil {
		signals = []models.Signal{}
	}
	return xhttp.ListResponse(c, signals, int64(total))
}

func (h *SignalsHandler) Summary(c echo.Context) error {
	counts, err := h.store.CountByType(c.Request().Context())
	if err != nil {
		h.logger.Error("signal summary failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	total := 0
	byType := make(map[string]int, len(counts))
	for t, n := range counts {
		byType[string(t)] = n
		total += n
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"total":   total,
		"by_type": byType,
	})
}

func (h *SignalsHandler) UpdateStatus(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code: "ERR_REQUIRED", Field: "id", Message: "id is required",
		}})
	}
	req := &models.UpdateSignalStatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	err := h.store.UpdateStatus(c.Request().Context(), id, models.SignalStatus(req.Status))
	switch {
	case errors.Is(err, domrepo.ErrSignalNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("signal %s not found", id).WithError(err))
	case errors.Is(err, domrepo.ErrIllegalTransition):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()).WithError(err))
	case err != nil:
		h.logger.Error("status update failed", xlogger.String("id", id), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"id": id, "status": req.Status})
}

func (h *SignalsHandler) TriggerRun(c echo.Context) error {
	req := &models.TriggerRunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.run.Run(c.Request().Context(), req.DryRun)
	switch {
	case errors.Is(err, usecase.ErrRunInProgress):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()).WithError(err))
	case errors.Is(err, usecase.ErrNoObservedData):
		return xhttp.AppErrorResponse(c, xhttp.UnprocessableError(err.Error()).WithError(err))
	case err != nil:
		h.logger.Error("run failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}
