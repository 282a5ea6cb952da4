// Package http exposes the consolidation API surface.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-fin/meridian/internal/consol"
	"github.com/meridian-fin/meridian/internal/platform/httpx"
)

// ConsolidationService describes the behaviour required from the service layer.
type ConsolidationService interface {
	RunConsolidation(ctx context.Context, scope consol.Scope) (*consol.ConsolidatedResult, error)
	GetRun(ctx context.Context, id string) (*consol.ConsolidatedResult, error)
}

// Handler wires consolidation endpoints.
type Handler struct {
	logger    *slog.Logger
	service   ConsolidationService
	validate  *validator.Validate
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs the consolidation handler.
func NewHandler(logger *slog.Logger, service ConsolidationService) *Handler {
	limiter := httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))
	return &Handler{
		logger:    logger,
		service:   service,
		validate:  validator.New(),
		rateLimit: limiter,
	}
}

// RunRequest is the consolidation run payload.
type RunRequest struct {
	Period                    string `json:"period" validate:"required"`
	DefaultMethod             string `json:"consolidation_method" validate:"omitempty,oneof=full proportionate equity"`
	EliminateIntercompany     bool   `json:"eliminate_intercompany"`
	CalculateMinorityInterest bool   `json:"calculate_minority_interest"`
	TranslateCurrency         bool   `json:"translate_currency"`
	TargetCurrency            string `json:"target_currency" validate:"omitempty,len=3,alpha"`
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	scope := consol.Scope{
		Period:                    req.Period,
		DefaultMethod:             consol.Method(req.DefaultMethod),
		EliminateIntercompany:     req.EliminateIntercompany,
		CalculateMinorityInterest: req.CalculateMinorityInterest,
		TranslateCurrency:         req.TranslateCurrency,
		TargetCurrency:            req.TargetCurrency,
	}
	result, err := h.service.RunConsolidation(r.Context(), scope)
	if err != nil {
		if errors.Is(err, consol.ErrNoRootEntity) || errors.Is(err, consol.ErrDuplicateEntity) {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Malformed Hierarchy", err.Error())
			return
		}
		h.log().Error("consolidation run failed", slog.String("period", req.Period), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.loadRun(r.Context(), id)
	if err != nil {
		h.respondRunError(w, id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExportEliminations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.loadRun(r.Context(), id)
	if err != nil {
		h.respondRunError(w, id, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=eliminations_%s.csv", id))
	if err := writeEliminationsCSV(w, result); err != nil {
		h.log().Error("eliminations export failed", slog.String("run_id", id), slog.Any("error", err))
	}
}

// loadRun collapses concurrent reads of the same run into one service call.
func (h *Handler) loadRun(ctx context.Context, id string) (*consol.ConsolidatedResult, error) {
	value, err, _ := singleflightLoad(ctx, "run:"+id, func(ctx context.Context) (any, error) {
		return h.service.GetRun(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	result, ok := value.(*consol.ConsolidatedResult)
	if !ok {
		return nil, fmt.Errorf("consol http: unexpected singleflight value")
	}
	return result, nil
}

func (h *Handler) respondRunError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, consol.ErrRunNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", fmt.Sprintf("run %s not found", id))
		return
	}
	h.log().Error("run lookup failed", slog.String("run_id", id), slog.Any("error", err))
	httpx.RespondError(w, err)
}

func (h *Handler) log() *slog.Logger {
	if h != nil && h.logger != nil {
		return h.logger.With(slog.String("component", "consol_http"))
	}
	return slog.Default().With(slog.String("component", "consol_http"))
}
