// Package web exposes the feasibility pipeline over HTTP for the
// presentation collaborator. Handlers translate the sentinel taxonomy into
// status codes; all payloads are the engine's structured values, unformatted.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lotefacil/feasibility-cli/internal/engine"
	"github.com/lotefacil/feasibility-cli/internal/rules"
	"github.com/lotefacil/feasibility-cli/internal/spatial"
)

type ctxKey int

const requestIDKey ctxKey = 0

// WithRequestID stores the request id on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom reads the request id back, empty if unset.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// API holds the wired pipeline.
type API struct {
	resolver *spatial.Resolver
	repo     rules.Repository
	study    *engine.Study
	log      *zap.Logger
}

// NewAPI wires the handlers.
func NewAPI(resolver *spatial.Resolver, repo rules.Repository) *API {
	return &API{
		resolver: resolver,
		repo:     repo,
		study:    engine.NewStudy(resolver, repo),
		log:      zap.L().With(zap.String("component", "api")),
	}
}

// Health reports liveness.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Resolve handles GET /resolve?lat=..&lon=..
func (a *API) Resolve(w http.ResponseWriter, r *http.Request) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required numbers")
		return
	}

	loc := a.resolver.Resolve(lat, lon)
	if loc.Zone == nil {
		writeError(w, http.StatusNotFound, "coordinate outside every known zone")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// Uses handles GET /uses.
func (a *API) Uses(w http.ResponseWriter, r *http.Request) {
	uses, err := a.repo.ListActiveUseTypes(r.Context())
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uses)
}

// Study handles POST /study with an engine.StudyRequest body.
func (a *API) Study(w http.ResponseWriter, r *http.Request) {
	var req engine.StudyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UseCode == "" {
		writeError(w, http.StatusBadRequest, "use_code is required")
		return
	}

	result, err := a.study.Run(r.Context(), req)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeFailure maps the sentinel taxonomy onto status codes. Every outcome
// stays distinguishable from a successful zero-valued result.
func (a *API) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case eris.Is(err, spatial.ErrZoneNotFound),
		eris.Is(err, spatial.ErrStreetNotFound),
		eris.Is(err, rules.ErrRuleNotFound):
		status = http.StatusNotFound
	case eris.Is(err, engine.ErrInvalidLotDimensions):
		status = http.StatusBadRequest
	case eris.Is(err, rules.ErrRuleIncomplete),
		eris.Is(err, rules.ErrMalformedRuleData):
		status = http.StatusUnprocessableEntity
	case eris.Is(err, rules.ErrRepositoryUnavailable):
		status = http.StatusBadGateway
	}

	a.log.Warn("request failed",
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.Int("status", status),
		zap.Error(err))
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
