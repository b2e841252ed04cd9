package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dealerdesk/dealerdesk/internal/platform/httpx"
	"github.com/dealerdesk/dealerdesk/internal/rbac"
	"github.com/dealerdesk/dealerdesk/internal/shared"
)

// Handler serves the audit trail.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: guard}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(shared.PermAuditRead))
		r.Get("/", h.list)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	actorID, _ := strconv.ParseInt(r.URL.Query().Get("actor_id"), 10, 64)

	entries, pagination, err := h.service.List(r.Context(), Filter{
		Entity:  r.URL.Query().Get("entity"),
		ActorID: actorID,
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.logger.Error("list audit", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries, "pagination": pagination})
}
