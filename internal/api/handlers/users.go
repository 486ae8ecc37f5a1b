package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hugh/go-accounts/internal/api/dto"
	"github.com/hugh/go-accounts/internal/api/middleware"
	"github.com/hugh/go-accounts/internal/api/validation"
	"github.com/hugh/go-accounts/internal/database/models"
	"github.com/hugh/go-accounts/internal/users"
)

type UserHandler struct {
	userService *users.Service
	logger      *slog.Logger
}

func NewUserHandler(userService *users.Service, logger *slog.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := h.userService.Me(middleware.GetUser(r.Context()))
	writeJSON(w, http.StatusOK, dto.NewUserResponse(user))
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	details := make(map[string]string)

	params := dto.DefaultPagination()
	if v := query.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			details["page"] = "Page must be an integer"
		}
		params.Page = n
	}
	if v := query.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			details["page_size"] = "Page size must be an integer"
		}
		params.PageSize = n
	}

	input := users.ListInput{}
	if v := query.Get("is_verified"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			details["is_verified"] = "is_verified must be a boolean"
		}
		input.IsVerified = &b
	}
	if v := query.Get("role"); v != "" {
		role := models.Role(v)
		if !role.Valid() {
			details["role"] = "role must be one of: user, admin"
		}
		input.Role = &role
	}

	if len(details) > 0 {
		writeValidation(w, details)
		return
	}

	input.Page = params.Page
	input.PageSize = params.PageSize

	page, err := h.userService.List(r.Context(), middleware.GetUser(r.Context()), input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := dto.UserListResponse{
		Users:      make([]dto.UserResponse, len(page.Users)),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: params.TotalPages(page.Total),
	}
	for i := range page.Users {
		resp.Users[i] = dto.NewUserResponse(&page.Users[i])
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := externalID(w, r)
	if !ok {
		return
	}

	user, err := h.userService.Get(r.Context(), middleware.GetUser(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewUserResponse(user))
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := externalID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := users.UpdateInput{
		FirstName: sanitizeOptional(req.FirstName),
		LastName:  sanitizeOptional(req.LastName),
		Email:     req.Email,
	}

	user, err := h.userService.Update(r.Context(), middleware.GetUser(r.Context()), id, input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewUserResponse(user))
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := externalID(w, r)
	if !ok {
		return
	}

	if err := h.userService.Delete(r.Context(), middleware.GetUser(r.Context()), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := externalID(w, r)
	if !ok {
		return
	}

	user, err := h.userService.Deactivate(r.Context(), middleware.GetUser(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewUserResponse(user))
}

func (h *UserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, ok := externalID(w, r)
	if !ok {
		return
	}

	user, err := h.userService.Activate(r.Context(), middleware.GetUser(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewUserResponse(user))
}

func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := externalID(w, r)
	if !ok {
		return
	}

	var req dto.ChangeRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	user, err := h.userService.ChangeRole(r.Context(), middleware.GetUser(r.Context()), id, req.Role)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewUserResponse(user))
}

func sanitizeOptional(o dto.Optional[string]) dto.Optional[string] {
	if o.Set && !o.Null {
		o.Value = validation.SanitizeString(o.Value)
	}
	return o
}
