package leads

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

// Handler serves lead endpoints.
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

// MountRoutes registers lead routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(shared.PermLeadsRead)).Get("/", h.list)
	r.With(h.rbac.Require(shared.PermLeadsRead)).Get("/{leadID}", h.get)
	r.With(h.rbac.Require(shared.PermLeadsCreate)).Post("/", h.create)
	r.With(h.rbac.Require(shared.PermLeadsUpdate)).Put("/{leadID}", h.update)
	r.With(h.rbac.Require(shared.PermLeadsAssign)).Put("/{leadID}/assignee", h.assign)
	r.With(h.rbac.Require(shared.PermLeadsConvert)).Post("/{leadID}/convert", h.convert)
}

type assignRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	assignedTo, _ := strconv.ParseInt(r.URL.Query().Get("assigned_to"), 10, 64)
	status := r.URL.Query().Get("status")

	items, pagination, err := h.service.List(r.Context(), status, assignedTo, page, perPage)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"leads": items, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	l, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, l)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if !h.decode(w, r, &req) {
		return
	}
	l, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, "lead.create", l.ID, map[string]any{"email": l.Email, "source": l.Source})
	httpx.JSON(w, http.StatusCreated, l)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	var req UpdateLeadRequest
	if !h.decode(w, r, &req) {
		return
	}
	l, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, "lead.update", id, nil)
	httpx.JSON(w, http.StatusOK, l)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if !h.decode(w, r, &req) {
		return
	}
	l, err := h.service.Assign(r.Context(), id, req.UserID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, "lead.assign", id, map[string]any{"user_id": req.UserID})
	httpx.JSON(w, http.StatusOK, l)
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	actorID, _ := shared.UserIDFromContext(r.Context())
	l, err := h.service.Convert(r.Context(), id, actorID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, "lead.convert", id, map[string]any{"customer_id": l.CustomerID})
	httpx.JSON(w, http.StatusOK, l)
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

func (h *Handler) leadID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "leadID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid lead id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "lead not found")
	case errors.Is(err, ErrAlreadyConverted):
		httpx.Problem(w, http.StatusConflict, "Conflict", "lead already converted")
	case errors.Is(err, ErrLeadLost):
		httpx.Problem(w, http.StatusConflict, "Conflict", "lost leads cannot be converted")
	case errors.Is(err, ErrUnknownAssignee):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "assignee does not exist")
	default:
		h.logger.Error("leads service", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) recordAudit(r *http.Request, action string, entityID int64, meta map[string]any) {
	actorID, _ := shared.UserIDFromContext(r.Context())
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "lead",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
