package marketplace

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dealerdesk/dealerdesk/internal/platform/httpx"
	"github.com/dealerdesk/dealerdesk/internal/rbac"
	"github.com/dealerdesk/dealerdesk/internal/shared"
)

// SyncEnqueuer schedules a background full sync.
type SyncEnqueuer interface {
	EnqueueMarketplaceSync(ctx context.Context) error
}

// Handler serves marketplace listing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	enqueue  SyncEnqueuer
	rbac     rbac.Middleware
	audit    *shared.AuditLogger
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, enqueue SyncEnqueuer, guard rbac.Middleware, audit *shared.AuditLogger) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		enqueue:  enqueue,
		rbac:     guard,
		audit:    audit,
		validate: validator.New(),
	}
}

// MountRoutes registers marketplace routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(shared.PermMarketplaceRead)).Get("/channels", h.channels)
	r.With(h.rbac.Require(shared.PermMarketplaceRead)).Get("/listings", h.list)
	r.With(h.rbac.Require(shared.PermMarketplacePublish)).Post("/listings", h.publish)
	r.With(h.rbac.Require(shared.PermMarketplacePublish)).Delete("/listings/{listingID}", h.delist)
	r.With(h.rbac.Require(shared.PermMarketplaceSync)).Post("/sync", h.sync)
}

func (h *Handler) channels(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"channels": h.service.Channels()})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	listings, err := h.service.List(r.Context(), r.URL.Query().Get("channel"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"listings": listings})
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	listing, err := h.service.Publish(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, "listing.publish", listing.ID, map[string]any{
		"vehicle_id": listing.VehicleID, "channel": listing.Channel,
	})
	httpx.JSON(w, http.StatusCreated, listing)
}

func (h *Handler) delist(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "listingID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid listing id")
		return
	}
	if err := h.service.Delist(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, "listing.delist", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// sync enqueues the full sync instead of running it inline; the worker owns
// the long-running pass.
func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	if err := h.enqueue.EnqueueMarketplaceSync(r.Context()); err != nil {
		h.logger.Error("enqueue marketplace sync", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	h.recordAudit(r, "listing.sync", 0, nil)
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "listing or vehicle not found")
	case errors.Is(err, ErrUnknownChannel):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown channel")
	case errors.Is(err, ErrVehicleNotListed):
		httpx.Problem(w, http.StatusConflict, "Conflict", "vehicle is not available for listing")
	case errors.Is(err, ErrDuplicateListing):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "vehicle already listed on channel")
	default:
		h.logger.Error("marketplace service", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) recordAudit(r *http.Request, action string, entityID int64, meta map[string]any) {
	actorID, _ := shared.UserIDFromContext(r.Context())
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "listing",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
