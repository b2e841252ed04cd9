package vehicles

import (
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

// Handler serves vehicle inventory endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	audit    *shared.AuditLogger
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware, audit *shared.AuditLogger) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		rbac:     guard,
		audit:    audit,
		validate: validator.New(),
	}
}

// MountRoutes registers vehicle routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(shared.PermVehiclesRead)).Get("/", h.list)
	r.With(h.rbac.Require(shared.PermVehiclesRead)).Get("/{vehicleID}", h.get)
	r.With(h.rbac.Require(shared.PermVehiclesCreate)).Post("/", h.create)
	r.With(h.rbac.Require(shared.PermVehiclesUpdate)).Put("/{vehicleID}", h.update)
	r.With(h.rbac.Require(shared.PermVehiclesUpdate)).Put("/{vehicleID}/status", h.transition)
	r.With(h.rbac.Require(shared.PermVehiclesPublish)).Post("/{vehicleID}/publish", h.publish)
	r.With(h.rbac.Require(shared.PermVehiclesDelete)).Delete("/{vehicleID}", h.delete)
}

type transitionRequest struct {
	Status string `json:"status" validate:"required,oneof=available reserved sold"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	status := r.URL.Query().Get("status")

	items, pagination, err := h.service.List(r.Context(), status, page, perPage)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"vehicles": items, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.vehicleID(w, r)
	if !ok {
		return
	}
	v, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateVehicleRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID, _ := shared.UserIDFromContext(r.Context())
	v, err := h.service.Create(r.Context(), req, actorID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, "vehicle.create", v.ID, map[string]any{"vin": v.VIN})
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.vehicleID(w, r)
	if !ok {
		return
	}
	var req UpdateVehicleRequest
	if !h.decode(w, r, &req) {
		return
	}
	v, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, "vehicle.update", id, nil)
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.vehicleID(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if !h.decode(w, r, &req) {
		return
	}
	v, err := h.service.Transition(r.Context(), id, req.Status)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, "vehicle.status", id, map[string]any{"status": req.Status})
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	id, ok := h.vehicleID(w, r)
	if !ok {
		return
	}
	v, err := h.service.Publish(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, "vehicle.publish", id, nil)
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.vehicleID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, "vehicle.delete", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) vehicleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "vehicleID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid vehicle id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "vehicle not found")
	case errors.Is(err, ErrDuplicateVIN):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "vin already registered")
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("vehicles service", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) recordAudit(r *http.Request, action string, entityID int64, meta map[string]any) {
	actorID, _ := shared.UserIDFromContext(r.Context())
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "vehicle",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
