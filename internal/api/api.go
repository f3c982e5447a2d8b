// Package api exposes the session over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/matrixise/balance-lookup/internal/address"
	"github.com/matrixise/balance-lookup/internal/balance"
	"github.com/matrixise/balance-lookup/internal/chain"
	"github.com/matrixise/balance-lookup/internal/session"
	"github.com/matrixise/balance-lookup/internal/vesting"
)

// Service is the part of a session the API serves.
type Service interface {
	Validate(input string) address.Result
	LookupBalance(ctx context.Context, input, note string) (balance.Record, error)
	LookupVesting(ctx context.Context, input string) (session.VestingReport, error)
	Lookup(ctx context.Context, input, note string) (session.Lookup, error)
	Log() *balance.Log
	Params() chain.NetworkParameters
}

// API holds the handlers.
type API struct {
	svc      Service
	location *time.Location
	logger   *slog.Logger
}

// New returns an API rendering unlock estimates in loc.
func New(svc Service, loc *time.Location, logger *slog.Logger) *API {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &API{svc: svc, location: loc, logger: logger}
}

// Router mounts the API and the health handler.
func (a *API) Router(health http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)

	if health != nil {
		r.Method(http.MethodGet, "/health", health)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/address/{address}", a.checkAddress)
		r.Get("/accounts/{address}", a.lookup)
		r.Get("/accounts/{address}/balance", a.balance)
		r.Get("/accounts/{address}/vesting", a.vesting)
		r.Get("/log", a.listLog)
		r.Get("/log.tsv", a.exportLog)
		r.Delete("/log", a.clearLog)
	})
	return r
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// VestingResponse carries the classification and its text rendering.
type VestingResponse struct {
	session.VestingReport
	Lines []string `json:"lines"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func (a *API) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Error("Failed to encode JSON response", "error", err)
	}
}

// writeError maps lookup errors onto status codes.
func (a *API) writeError(w http.ResponseWriter, err error) {
	var invalid *session.InvalidAddressError
	switch {
	case errors.As(err, &invalid):
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid address", Reason: invalid.Reason})
	case errors.Is(err, session.ErrNotConnected):
		a.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.Is(err, session.ErrStaleResponse):
		a.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		a.logger.Error("Lookup failed", "error", err)
		a.writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	}
}

func (a *API) checkAddress(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.svc.Validate(chi.URLParam(r, "address")))
}

func (a *API) balance(w http.ResponseWriter, r *http.Request) {
	rec, err := a.svc.LookupBalance(r.Context(), chi.URLParam(r, "address"), r.URL.Query().Get("note"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, rec)
}

func (a *API) vesting(w http.ResponseWriter, r *http.Request) {
	report, err := a.svc.LookupVesting(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, VestingResponse{
		VestingReport: report,
		Lines:         vesting.Render(report.Result, a.svc.Params(), a.location),
	})
}

func (a *API) lookup(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Lookup(r.Context(), chi.URLParam(r, "address"), r.URL.Query().Get("note"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) listLog(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.svc.Log().Records())
}

func (a *API) exportLog(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="balances.tsv"`)
	if err := a.svc.Log().WriteTSV(w); err != nil {
		a.logger.Error("Failed to export log", "error", err)
	}
}

func (a *API) clearLog(w http.ResponseWriter, r *http.Request) {
	a.svc.Log().Clear()
	a.logger.Info("Log cleared")
	w.WriteHeader(http.StatusNoContent)
}
