package services

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/rentdesk/models"
	"github.com/krshsl/rentdesk/repository"
)

// UserEndpoints lets admins manage staff accounts
type UserEndpoints struct {
	repo *repository.GORMRepository
}

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=admin staff"`
	IsActive *bool  `json:"is_active"`
}

type UpdateUserRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=admin staff"`
	IsActive *bool  `json:"is_active"`
	Password string `json:"password" validate:"omitempty,min=8"`
}

func NewUserEndpoints(repo *repository.GORMRepository) *UserEndpoints {
	return &UserEndpoints{repo: repo}
}

func (e *UserEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Use(RequireAdmin)
		r.Get("/", e.ListUsersHandler)
		r.Post("/", e.CreateUserHandler)
		r.Get("/{id}", e.GetUserHandler)
		r.Put("/{id}", e.UpdateUserHandler)
		r.Delete("/{id}", e.DeleteUserHandler)
	})
}

func (e *UserEndpoints) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	p := parseListParams(r)
	users, total, err := e.repo.ListUsers(r.Context(), p)
	if err != nil {
		handleError(w, r, err, "list users")
		return
	}
	respondList(w, users, p, total)
}

func (e *UserEndpoints) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := e.repo.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err, "get user")
		return
	}
	if user == nil {
		handleError(w, r, notFound("User"), "get user")
		return
	}
	respondData(w, http.StatusOK, user)
}

func (e *UserEndpoints) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "create user")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := e.repo.GetUserByEmail(r.Context(), email)
	if err != nil {
		handleError(w, r, err, "create user")
		return
	}
	if existing != nil {
		handleError(w, r, badRequest("User with this email already exists"), "create user")
		return
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		handleError(w, r, err, "create user")
		return
	}
	role := req.Role
	if role == "" {
		role = models.RoleStaff
	}
	user := &models.User{Email: email, Password: hashed, FullName: req.FullName, Role: role, IsActive: true}
	if err := e.repo.CreateUser(r.Context(), user); err != nil {
		handleError(w, r, err, "create user")
		return
	}
	// is_active has a column default, so false only sticks through an update
	if req.IsActive != nil && !*req.IsActive {
		user.IsActive = false
		if err := e.repo.UpdateUser(r.Context(), user); err != nil {
			handleError(w, r, err, "create user")
			return
		}
	}
	respondCreated(w, user, "User created")
}

func (e *UserEndpoints) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "update user")
		return
	}

	user, err := e.repo.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err, "update user")
		return
	}
	if user == nil {
		handleError(w, r, notFound("User"), "update user")
		return
	}

	current, _ := UserFromContext(r.Context())
	if current != nil && current.ID == user.ID && (req.Role != models.RoleAdmin || (req.IsActive != nil && !*req.IsActive)) {
		handleError(w, r, badRequest("You cannot demote or deactivate your own account"), "update user")
		return
	}

	user.FullName = req.FullName
	user.Role = req.Role
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.Password != "" {
		if user.Password, err = HashPassword(req.Password); err != nil {
			handleError(w, r, err, "update user")
			return
		}
	}
	if err := e.repo.UpdateUser(r.Context(), user); err != nil {
		handleError(w, r, err, "update user")
		return
	}
	if !user.IsActive || req.Password != "" {
		if err := e.repo.DeleteAllUserTokens(r.Context(), user.ID); err != nil {
			handleError(w, r, err, "update user")
			return
		}
	}
	respondData(w, http.StatusOK, user)
}

func (e *UserEndpoints) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if current, ok := UserFromContext(r.Context()); ok && current.ID == id {
		handleError(w, r, badRequest("You cannot delete your own account"), "delete user")
		return
	}
	user, err := e.repo.GetUserByID(r.Context(), id)
	if err != nil {
		handleError(w, r, err, "delete user")
		return
	}
	if user == nil {
		handleError(w, r, notFound("User"), "delete user")
		return
	}
	if err := e.repo.DeleteUser(r.Context(), id); err != nil {
		handleError(w, r, err, "delete user")
		return
	}
	respondMessage(w, "User deleted")
}
