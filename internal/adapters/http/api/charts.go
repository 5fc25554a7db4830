package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/asinrank/internal/domain/types"
	"github.com/okian/asinrank/pkg/logger"
	"github.com/okian/asinrank/pkg/metrics"
)

// ChartDependencies defines the interface for chart reporting.
type ChartDependencies interface {
	Charts(ctx context.Context, asin string) (types.ChartsResponse, error)
}

// ChartsHandler handles chart requests.
type ChartsHandler struct {
	deps ChartDependencies
	log  logger.Logger
}

// NewChartsHandler creates a new charts handler.
func NewChartsHandler(deps ChartDependencies, log logger.Logger) *ChartsHandler {
	return &ChartsHandler{deps: deps, log: log}
}

// HandleCharts handles GET /api/charts/{asin} requests. Failures, including
// panics while rendering, are reported in the body's error field with status 200.
func (h *ChartsHandler) HandleCharts(w http.ResponseWriter, r *http.Request) {
	const op = "api.charts"
	ctx := r.Context()
	asin := chi.URLParam(r, "asin")

	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
			panic(rec)
		}
		msg := fmt.Sprint(rec)
		metrics.RecordChartError()
		h.log.Error(ctx, "chart building panicked",
			logger.String("asin", asin),
			logger.Error(Wrap(op, fmt.Errorf("%w: panic: %s", ErrChart, msg))),
		)
		writeJSON(w, http.StatusOK, types.ChartsResponse{Error: msg})
	}()

	resp, err := h.deps.Charts(ctx, asin)
	if err != nil {
		metrics.RecordChartError()
		h.log.Error(ctx, "failed to build charts",
			logger.String("asin", asin),
			logger.Error(WrapKind(op, ErrChart, err)),
		)
		writeJSON(w, http.StatusOK, types.ChartsResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
