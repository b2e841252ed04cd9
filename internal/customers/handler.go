package customers

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

// Handler serves customer endpoints.
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

// MountRoutes registers customer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(shared.PermCustomersRead)).Get("/", h.list)
	r.With(h.rbac.Require(shared.PermCustomersRead)).Get("/{customerID}", h.get)
	r.With(h.rbac.Require(shared.PermCustomersCreate)).Post("/", h.create)
	r.With(h.rbac.Require(shared.PermCustomersUpdate)).Put("/{customerID}", h.update)
	r.With(h.rbac.Require(shared.PermCustomersDelete)).Delete("/{customerID}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	query := r.URL.Query().Get("q")

	items, pagination, err := h.service.List(r.Context(), query, page, perPage)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"customers": items, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.customerID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID, _ := shared.UserIDFromContext(r.Context())
	c, err := h.service.Create(r.Context(), req, actorID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, "customer.create", c.ID, map[string]any{"email": c.Email})
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.customerID(w, r)
	if !ok {
		return
	}
	var req UpdateCustomerRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, "customer.update", id, nil)
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.customerID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, "customer.delete", id, nil)
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

func (h *Handler) customerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid customer id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "customer not found")
	case errors.Is(err, ErrDuplicateEmail):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "email already registered")
	default:
		h.logger.Error("customers service", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) recordAudit(r *http.Request, action string, entityID int64, meta map[string]any) {
	actorID, _ := shared.UserIDFromContext(r.Context())
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "customer",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
