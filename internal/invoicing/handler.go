package invoicing

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

// Handler serves invoice endpoints.
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

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(shared.PermInvoicesRead)).Get("/", h.list)
	r.With(h.rbac.Require(shared.PermInvoicesRead)).Get("/{invoiceID}", h.get)
	r.With(h.rbac.Require(shared.PermInvoicesCreate)).Post("/", h.create)
	r.With(h.rbac.Require(shared.PermInvoicesUpdate)).Put("/{invoiceID}", h.update)
	r.With(h.rbac.Require(shared.PermInvoicesUpdate)).Post("/{invoiceID}/issue", h.issue)
	r.With(h.rbac.Require(shared.PermInvoicesUpdate)).Post("/{invoiceID}/pay", h.pay)
	r.With(h.rbac.Require(shared.PermInvoicesVoid)).Post("/{invoiceID}/void", h.void)
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
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": items, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID, _ := shared.UserIDFromContext(r.Context())
	inv, err := h.service.Create(r.Context(), req, actorID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, "invoice.create", inv.ID, map[string]any{"number": inv.Number, "total_cents": inv.TotalCents})
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	var req UpdateInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	inv, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, "invoice.update", id, map[string]any{"total_cents": inv.TotalCents})
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "invoice.issue", h.service.Issue)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "invoice.pay", h.service.Pay)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "invoice.void", h.service.Void)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action string,
	fn func(context.Context, int64) (Invoice, error)) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	inv, err := fn(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.recordAudit(r, action, id, map[string]any{"status": inv.Status})
	httpx.JSON(w, http.StatusOK, inv)
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

func (h *Handler) invoiceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "invoiceID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrVehicleNotSold):
		httpx.Problem(w, http.StatusConflict, "Conflict", "vehicle is not sold")
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrNotEditable):
		httpx.Problem(w, http.StatusConflict, "Conflict", "only draft invoices can be edited")
	default:
		h.logger.Error("invoicing service", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) recordAudit(r *http.Request, action string, entityID int64, meta map[string]any) {
	actorID, _ := shared.UserIDFromContext(r.Context())
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "invoice",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
