package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/okian/asinrank/internal/domain/model"
	"github.com/okian/asinrank/internal/domain/types"
	"github.com/okian/asinrank/pkg/logger"
	"github.com/okian/asinrank/pkg/metrics"
)

// IngestDependencies defines the interface for observation ingestion.
type IngestDependencies interface {
	Ingest(ctx context.Context, obs model.RankObservation) (model.RankObservation, error)
}

// IngestHandler handles ingestion requests.
type IngestHandler struct {
	deps IngestDependencies
	log  logger.Logger
}

// NewIngestHandler creates a new ingestion handler.
func NewIngestHandler(deps IngestDependencies, log logger.Logger) *IngestHandler {
	return &IngestHandler{deps: deps, log: log}
}

// ingestRequest binds the query parameters of GET /. Ranks stay strings until
// validated so that "abc" is reported instead of silently dropped.
type ingestRequest struct {
	ASIN          string `query:"asin" validate:"asinlen"`
	Category1Name string `query:"category1_name" validate:"namelen"`
	Category1Rank string `query:"category1_rank" validate:"omitempty,number"`
	Category2Name string `query:"category2_name" validate:"namelen"`
	Category2Rank string `query:"category2_rank" validate:"omitempty,number"`
}

func bindIngestRequest(q url.Values) ingestRequest {
	return ingestRequest{
		ASIN:          q.Get("asin"),
		Category1Name: q.Get("category1_name"),
		Category1Rank: q.Get("category1_rank"),
		Category2Name: q.Get("category2_name"),
		Category2Rank: q.Get("category2_rank"),
	}
}

// observation carries the identifying fields of the request. Ranks are
// attached by withRanks once the request has been validated.
func (r ingestRequest) observation() model.RankObservation {
	return model.RankObservation{
		ASIN:      r.ASIN,
		Category1: model.Category{Name: r.Category1Name},
		Category2: model.Category{Name: r.Category2Name},
	}
}

// withRanks parses both rank parameters into obs.
func (r ingestRequest) withRanks(obs model.RankObservation) (model.RankObservation, *validationError) {
	rank1, ferr1 := parseRank("category1_rank", r.Category1Rank)
	rank2, ferr2 := parseRank("category2_rank", r.Category2Rank)
	var fields []fieldError
	for _, fe := range []*fieldError{ferr1, ferr2} {
		if fe != nil {
			fields = append(fields, *fe)
		}
	}
	if len(fields) > 0 {
		return model.RankObservation{}, &validationError{fields: fields}
	}
	obs.Category1.Rank = rank1
	obs.Category2.Rank = rank2
	return obs, nil
}

// parseRank turns a digits-only parameter into a rank no larger than
// model.MaxRank. Empty means absent.
func parseRank(field, raw string) (*int, *fieldError) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || v < 0 {
		return nil, &fieldError{
			Field:   field,
			Tag:     "number",
			Message: fmt.Sprintf("%s must be a non-negative integer no larger than %d", field, model.MaxRank),
		}
	}
	return model.RankOf(int(v)), nil
}

// HandleIngest handles GET / requests.
func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	const op = "api.ingest"
	ctx := r.Context()
	req := bindIngestRequest(r.URL.Query())
	obs := req.observation()

	if !obs.HasInput() {
		metrics.RecordObservationRejected("no_input")
		writeJSON(w, http.StatusOK, types.MessageResponse{Message: types.MessageNoInput})
		return
	}

	verr := validateStruct(&req)
	if verr == nil {
		obs, verr = req.withRanks(obs)
	}
	if verr != nil {
		metrics.RecordObservationRejected("invalid")
		h.log.Debug(ctx, "rejected observation", logger.Error(WrapKind(op, ErrBadRequest, verr)))
		writeJSON(w, http.StatusBadRequest, verr.response())
		return
	}

	stored, err := h.deps.Ingest(ctx, obs)
	if err != nil {
		metrics.RecordObservationRejected("store_error")
		h.log.Error(ctx, "failed to store observation",
			logger.String("asin", obs.ASIN),
			logger.Error(WrapKind(op, ErrStore, err)),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to store observation")
		return
	}

	h.log.Debug(ctx, "observation stored",
		logger.Int64("id", stored.ID),
		logger.String("asin", stored.ASIN),
	)
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: types.MessageStored})
}
