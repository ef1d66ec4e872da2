package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"mfgverify/internal/registry/models"
	"mfgverify/internal/registry/ports"
	"mfgverify/pkg/domain"
	dErrors "mfgverify/pkg/domain-errors"
	"mfgverify/pkg/platform/httputil"
	"mfgverify/pkg/platform/middleware/auth"
	"mfgverify/pkg/platform/middleware/request"
	"mfgverify/pkg/platform/sentinel"
	"mfgverify/pkg/requestcontext"
)

// Service is the registry as seen by the HTTP layer.
type Service interface {
	Register(ctx context.Context, caller domain.Principal, req *models.RegisterRequest) error
	Verify(ctx context.Context, caller domain.Principal, id domain.ManufacturerID, height domain.Height) (*models.Manufacturer, error)
	IsVerified(ctx context.Context, id domain.ManufacturerID) (bool, error)
	GetDetails(ctx context.Context, id domain.ManufacturerID) (*models.Manufacturer, bool)
	TransferAdmin(ctx context.Context, caller, newAdmin domain.Principal) error
	Admin(ctx context.Context) domain.Principal
}

// Handler exposes the registry over HTTP.
type Handler struct {
	registry Service
	heights  ports.HeightSource
	logger   *slog.Logger
}

func New(registry Service, heights ports.HeightSource, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, heights: heights, logger: logger}
}

type okResponse struct {
	OK bool `json:"ok"`
}

type verifyResponse struct {
	OK                 bool          `json:"ok"`
	VerificationHeight domain.Height `json:"verification_height"`
}

type detailsResponse struct {
	Found        bool                 `json:"found"`
	Manufacturer *models.Manufacturer `json:"manufacturer"`
}

type adminResponse struct {
	Admin domain.Principal `json:"admin"`
}

// Register mounts the registry routes. Mutating routes require an
// authenticated caller; queries are open to anyone.
func (h *Handler) Register(r chi.Router) {
	r.Get("/manufacturers/{id}", h.handleGetDetails)
	r.Get("/manufacturers/{id}/verified", h.handleIsVerified)
	r.Get("/registry/admin", h.handleGetAdmin)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireCaller(h.logger))
		r.Post("/manufacturers", h.handleRegister)
		r.Post("/manufacturers/{id}/verify", h.handleVerify)
		r.Post("/registry/admin", h.handleTransferAdmin)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[models.RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.registry.Register(ctx, requestcontext.Caller(ctx), req); err != nil {
		h.logFailure(ctx, "register manufacturer failed", err, "manufacturer_id", req.ID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, okResponse{OK: true})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.manufacturerID(w, r)
	if !ok {
		return
	}

	height, err := h.heights.Current(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "ledger height unavailable",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		if errors.Is(err, sentinel.ErrUnavailable) {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger height unavailable"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read ledger height"))
		return
	}

	m, err := h.registry.Verify(ctx, requestcontext.Caller(ctx), id, height)
	if err != nil {
		h.logFailure(ctx, "verify manufacturer failed", err, "manufacturer_id", id)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verifyResponse{OK: true, VerificationHeight: m.VerificationHeight})
}

func (h *Handler) handleIsVerified(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.manufacturerID(w, r)
	if !ok {
		return
	}
	verified, err := h.registry.IsVerified(ctx, id)
	if err != nil {
		h.logFailure(ctx, "verification status lookup failed", err, "manufacturer_id", id)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, okResponse{OK: verified})
}

// handleGetDetails answers 200 for unknown ids too; absence is part of the
// result, not an error.
func (h *Handler) handleGetDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteJSON(w, http.StatusOK, detailsResponse{})
		return
	}
	m, found := h.registry.GetDetails(ctx, domain.ManufacturerID(raw))
	httputil.WriteJSON(w, http.StatusOK, detailsResponse{Found: found, Manufacturer: m})
}

func (h *Handler) handleTransferAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[models.TransferAdminRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req.Normalize()
	if err := h.registry.TransferAdmin(ctx, requestcontext.Caller(ctx), domain.Principal(req.NewAdmin)); err != nil {
		h.logFailure(ctx, "admin transfer failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) handleGetAdmin(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, adminResponse{Admin: h.registry.Admin(r.Context())})
}

func (h *Handler) manufacturerID(w http.ResponseWriter, r *http.Request) (domain.ManufacturerID, bool) {
	raw, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid manufacturer id"))
		return "", false
	}
	id, err := domain.ParseManufacturerID(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid manufacturer id"))
		return "", false
	}
	return id, true
}

// logFailure logs caller-facing failures at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	args := append([]any{"error", err, "request_id", request.GetRequestID(ctx)}, attrs...)
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.WarnContext(ctx, msg, args...)
}
