package services

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/rentdesk/models"
)

type AuthEndpoints struct {
	authService  *AuthService
	allowSignup  bool
	loginLimiter func(http.Handler) http.Handler
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
}

type userView struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func newUserView(u *models.User) userView {
	return userView{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role}
}

func NewAuthEndpoints(authService *AuthService, allowSignup bool, loginLimiter func(http.Handler) http.Handler) *AuthEndpoints {
	return &AuthEndpoints{
		authService:  authService,
		allowSignup:  allowSignup,
		loginLimiter: loginLimiter,
	}
}

func (e *AuthEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		// Public auth routes
		r.Group(func(r chi.Router) {
			if e.loginLimiter != nil {
				r.Use(e.loginLimiter)
			}
			r.Post("/login", e.LoginHandler)
			r.Post("/signup", e.SignupHandler)
		})
		r.Post("/refresh", e.RefreshHandler)

		// Protected auth routes
		r.Group(func(r chi.Router) {
			r.Use(e.authService.Middleware)
			r.Post("/logout", e.LogoutHandler)
			r.Get("/me", e.MeHandler)
		})
	})
}

func (e *AuthEndpoints) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "sign in")
		return
	}

	authResponse, err := e.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			slog.Warn("Login failed", "email", req.Email)
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		handleError(w, r, err, "sign in")
		return
	}

	e.authService.SetAuthCookies(w, authResponse.AccessToken, authResponse.RefreshToken, authResponse.PermanentToken)
	writeJSON(w, http.StatusOK, dataResponse{
		Success: true,
		Data: map[string]interface{}{
			"user":         newUserView(authResponse.User),
			"access_token": authResponse.AccessToken,
		},
		Message: "Login successful",
	})
}

func (e *AuthEndpoints) SignupHandler(w http.ResponseWriter, r *http.Request) {
	if !e.allowSignup {
		respondError(w, http.StatusForbidden, "Signup is disabled")
		return
	}

	var req SignupRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "sign up")
		return
	}

	authResponse, err := e.authService.Signup(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		handleError(w, r, err, "sign up")
		return
	}

	e.authService.SetAuthCookies(w, authResponse.AccessToken, authResponse.RefreshToken, authResponse.PermanentToken)
	respondCreated(w, map[string]interface{}{
		"user":         newUserView(authResponse.User),
		"access_token": authResponse.AccessToken,
	}, "Signup successful")
}

func (e *AuthEndpoints) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	refreshToken := e.authService.GetTokenFromCookie(r, "refresh_token")
	if refreshToken == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	authResponse, err := e.authService.RefreshToken(r.Context(), refreshToken)
	if err != nil {
		slog.Warn("Token refresh failed", "error", err)
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	e.authService.SetAuthCookies(w, authResponse.AccessToken, "", "")
	respondMessage(w, "Token refreshed successfully")
}

func (e *AuthEndpoints) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := e.authService.Logout(r.Context(), user.ID); err != nil {
		handleError(w, r, err, "sign out")
		return
	}

	e.authService.ClearAuthCookies(w)
	respondMessage(w, "Logout successful")
}

func (e *AuthEndpoints) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	respondData(w, http.StatusOK, newUserView(user))
}
