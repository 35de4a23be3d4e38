package api

import (
	"net/http"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// USER ENDPOINTS
// =============================================================================

// GET /api/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GET /api/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.Users.Get(r.Context(), inventory.UserID(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// CreateUser creates an account. Role accepts the names (read, write,
// admin, disabled) and the single-letter forms.
// POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	role, err := access.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, inventory.ErrInvalidRole)
		return
	}
	id, err := h.Users.Create(r.Context(), inventory.NewUser{Username: req.Username, Password: req.Password, Role: role})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "User has been created.", int64(id))
}

// PATCH /api/users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req UpdateUserRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	upd, err := req.update()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Users.Update(r.Context(), inventory.UserID(id), upd); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User has been updated.", 0)
}

// DELETE /api/users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Users.Delete(r.Context(), inventory.UserID(id)); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User has been deleted.", 0)
}
