// Package transport provides HTTP handlers for the networks domain.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pendergraft/netprofile/internal/chains"
	"github.com/pendergraft/netprofile/internal/networks/domain"
	"github.com/pendergraft/netprofile/internal/profile"
)

// Service defines the networks service interface for HTTP transport.
type Service interface {
	Info(ctx context.Context) domain.DocumentInfo
	List(ctx context.Context) ([]domain.Summary, error)
	Get(ctx context.Context, name string) (*domain.Detail, error)
	Compilers(ctx context.Context) (profile.Compilers, error)
	Environment(ctx context.Context) (*domain.EnvReport, error)
	Report(ctx context.Context) (*profile.Report, error)
	Validate(ctx context.Context, data []byte, format profile.Format) (*profile.Report, error)
	Probe(ctx context.Context, name string) (*chains.ProbeResult, error)
}

// Handler handles HTTP requests for networks.
type Handler struct {
	svc Service
}

// NewHandler creates a new networks HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterReadRoutes registers read-only routes (no auth required).
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/networks", h.handleList)
	r.Get("/networks/{name}", h.handleGet)
	r.Get("/compilers", h.handleCompilers)
	r.Get("/env", h.handleEnv)
	r.Get("/report", h.handleReport)
}

// RegisterWriteRoutes registers routes that reach out to networks or accept
// uploads (auth required).
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/networks/{name}/probe", h.handleProbe)
	r.Post("/validate", h.handleValidate)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list networks")
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Document: h.svc.Info(r.Context()),
		Data:     list,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	d, err := h.svc.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Network not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get network")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleCompilers(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Compilers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get compilers")
		return
	}
	writeJSON(w, http.StatusOK, CompilersResponse{Solc: SolcResponse{Version: c.Solc.Version}})
}

func (h *Handler) handleEnv(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Environment(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to build environment report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Report(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to validate document")
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(report))
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	format := profile.FormatTOML
	if f := r.URL.Query().Get("format"); f != "" {
		parsed, err := profile.ParseFormat(f)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "format must be toml, yaml or json")
			return
		}
		format = parsed
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body is empty")
		return
	}

	report, err := h.svc.Validate(r.Context(), body, format)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDocument) {
			writeError(w, http.StatusUnprocessableEntity, "INVALID_DOCUMENT", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to validate document")
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(report))
}

func (h *Handler) handleProbe(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	res, err := h.svc.Probe(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Network not found")
		case errors.Is(err, domain.ErrNotConfigured):
			writeError(w, http.StatusConflict, "NOT_CONFIGURED", err.Error())
		case errors.Is(err, domain.ErrUnsupportedProbe):
			writeError(w, http.StatusUnprocessableEntity, "INVALID_PROFILE", err.Error())
		case errors.Is(err, domain.ErrProbeFailed):
			writeError(w, http.StatusBadGateway, "PROBE_FAILED", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to probe network")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
