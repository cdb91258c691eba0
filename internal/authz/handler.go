package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/KyleQD/Flow-sub006/internal/platform/httpx"
)

// Handler exposes the enforcement surface over HTTP: the caller's own
// resolved contexts and accessible resources, plus role assignment
// management.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountMeRoutes registers self-service routes (caller's own reach).
func (h *Handler) MountMeRoutes(r chi.Router) {
	r.Get("/permissions", h.myPermissions)
	r.Get("/tours", h.myTours)
	r.Get("/events", h.myEvents)
}

// MountAssignmentRoutes registers role assignment management routes.
func (h *Handler) MountAssignmentRoutes(r chi.Router) {
	r.Post("/", h.assignRole)
	r.Delete("/", h.removeRole)
}

type permissionContextResponse struct {
	UserID      string        `json:"user_id"`
	TourID      *string       `json:"tour_id,omitempty"`
	Permissions []string      `json:"permissions"`
	Roles       []roleSummary `json:"roles"`
	ResolvedAt  time.Time     `json:"resolved_at"`
}

type roleSummary struct {
	RoleID      string  `json:"role_id"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	TourID      *string `json:"tour_id,omitempty"`
}

type tourResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type eventResponse struct {
	ID     string    `json:"id"`
	TourID string    `json:"tour_id"`
	Name   string    `json:"name"`
	Date   time.Time `json:"date"`
}

type assignmentRequest struct {
	UserID string  `json:"user_id" validate:"required,max=64"`
	RoleID string  `json:"role_id" validate:"required,max=64"`
	TourID *string `json:"tour_id" validate:"omitempty,max=64"`
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing caller identity")
		return
	}
	var tourID *string
	if v := r.URL.Query().Get("tour_id"); v != "" {
		tourID = &v
	}
	pc, err := h.service.GetPermissionContext(r.Context(), userID, tourID)
	if err != nil {
		h.logger.Error("resolve permission context", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	resp := permissionContextResponse{
		UserID:      pc.UserID,
		TourID:      pc.TourID,
		Permissions: pc.Permissions.Names(),
		Roles:       make([]roleSummary, 0, len(pc.Roles)),
		ResolvedAt:  pc.ResolvedAt,
	}
	for _, role := range pc.Roles {
		resp.Roles = append(resp.Roles, roleSummary{
			RoleID:      role.RoleID,
			Name:        role.RoleName,
			DisplayName: role.DisplayName,
			TourID:      role.TourID,
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) myTours(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing caller identity")
		return
	}
	tours, err := h.service.GetAccessibleTours(r.Context(), userID)
	if err != nil {
		h.logger.Error("list accessible tours", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]tourResponse, 0, len(tours))
	for _, t := range tours {
		out = append(out, tourResponse{ID: t.ID, Name: t.Name, Status: t.Status})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) myEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing caller identity")
		return
	}
	events, err := h.service.GetAccessibleEvents(r.Context(), userID)
	if err != nil {
		h.logger.Error("list accessible events", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{ID: e.ID, TourID: e.TourID, Name: e.Name, Date: e.Date})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var assignedBy *string
	if caller, ok := UserIDFromContext(r.Context()); ok {
		assignedBy = &caller
	}
	assignment, err := h.service.AssignRole(r.Context(), req.UserID, req.RoleID, req.TourID, assignedBy)
	if err != nil {
		h.logger.Error("assign role", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":          assignment.ID,
		"user_id":     assignment.UserID,
		"role_id":     assignment.RoleID,
		"tour_id":     assignment.TourID,
		"assigned_at": assignment.AssignedAt,
	})
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.RemoveRole(r.Context(), req.UserID, req.RoleID, req.TourID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "no active assignment matches")
			return
		}
		h.logger.Error("remove role", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.NoContent(w)
}
