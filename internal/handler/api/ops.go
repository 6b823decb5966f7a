package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"CandleCast/internal/domain/models"
	"CandleCast/internal/service/ratelimit"
	"CandleCast/internal/usecase"
	xhttp "CandleCast/pkg/http"
	xlogger "CandleCast/pkg/logger"
)

// Collector is implemented by usecase.Collector.
type Collector interface {
	Collect(ctx context.Context, limit int) (usecase.DeliveryResult, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// OpsHandler exposes a stage's state, its last snapshot and manual
// triggers.
type OpsHandler struct {
	logger    *xlogger.Logger
	stage     *usecase.Stage
	collector Collector
	limiter   *ratelimit.Limiter
	checks    map[string]HealthCheck
}

// NewOpsHandler builds the handler. collector and limiter are nil on stages
// that are not triggered by command.
func NewOpsHandler(logger *xlogger.Logger, stage *usecase.Stage, collector Collector, limiter *ratelimit.Limiter, checks map[string]HealthCheck) *OpsHandler {
	return &OpsHandler{logger: logger, stage: stage, collector: collector, limiter: limiter, checks: checks}
}

func (h *OpsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/snapshot", h.Snapshot)
	g.POST("/resend", h.Resend)
	if h.collector != nil {
		g.POST("/collect", h.Collect)
	}
}

type healthResponse struct {
	Stage      string                  `json:"stage"`
	State      string                  `json:"state"`
	Peer       string                  `json:"peer,omitempty"`
	LastResult *usecase.DeliveryResult `json:"last_result,omitempty"`
	Checks     map[string]string       `json:"checks,omitempty"`
}

func (h *OpsHandler) Health(c echo.Context) error {
	res := healthResponse{
		Stage: h.stage.Name(),
		State: h.stage.State().String(),
		Peer:  h.stage.Peer(),
	}
	if last, ok := h.stage.LastResult(); ok {
		res.LastResult = &last
	}

	status := http.StatusOK
	if len(h.checks) > 0 {
		res.Checks = make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			if err := check(c.Request().Context()); err != nil {
				res.Checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			res.Checks[name] = "ok"
		}
	}
	return xhttp.DataResponse(c, status, res)
}

// Snapshot returns the last persisted payload as JSON, or as plain text
// for the advisor's narrative.
func (h *OpsHandler) Snapshot(c echo.Context) error {
	b, err := h.stage.Snapshot(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, h.stageError("snapshot", err))
	}
	if json.Valid(b) {
		return c.JSONBlob(http.StatusOK, b)
	}
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, b)
}

func (h *OpsHandler) Resend(c echo.Context) error {
	res, err := h.stage.Resend(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, h.stageError("resend", err))
	}
	return h.deliveryResponse(c, res)
}

func (h *OpsHandler) Collect(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("collection rate limit exceeded"))
	}
	req := &models.CollectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.collector.Collect(c.Request().Context(), req.Limit)
	if err != nil {
		return xhttp.AppErrorResponse(c, h.stageError("collect", err))
	}
	return h.deliveryResponse(c, res)
}

func (h *OpsHandler) deliveryResponse(c echo.Context, res usecase.DeliveryResult) error {
	if !res.Delivered() {
		h.logger.Error("delivery failed", xlogger.RunID(res.RunID), xlogger.Error(res.Err))
		appErr := xhttp.BadGatewayError("delivery to peer failed").
			WithParam("run_id", res.RunID).
			WithParam("address", res.Address).
			WithParam("snapshot_path", res.SnapshotPath)
		if res.Err != nil {
			appErr = appErr.WithParam("reason", res.Err.Error()).WithError(res.Err)
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *OpsHandler) stageError(op string, err error) error {
	switch {
	case errors.Is(err, usecase.ErrStageBusy):
		return xhttp.ConflictError("stage is busy").WithError(err)
	case errors.Is(err, models.ErrNoSnapshot):
		return xhttp.NotFoundError("no snapshot persisted yet").WithError(err)
	case errors.Is(err, models.ErrUpstreamTimeout):
		return xhttp.NewAppError("ERR_UPSTREAM_TIMEOUT", "upstream timed out", http.StatusGatewayTimeout).WithError(err)
	default:
		h.logger.Error(op+" failed", xlogger.Error(err))
		return xhttp.BadGatewayError(op+" failed").WithParam("reason", err.Error()).WithError(err)
	}
}
