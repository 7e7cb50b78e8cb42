package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/krshsl/rentdesk/repository"
)

// Pagination is the paging block of list responses
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type dataResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Message    string      `json:"message,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// apiError is an error that already knows its HTTP status and client message
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return e.Message
}

func badRequest(msg string) error {
	return &apiError{Status: http.StatusBadRequest, Message: msg}
}

func notFound(entity string) error {
	return &apiError{Status: http.StatusNotFound, Message: entity + " not found"}
}

func forbidden(msg string) error {
	return &apiError{Status: http.StatusForbidden, Message: msg}
}

var pageDefaults = struct {
	limit int
	max   int
}{limit: 10, max: 100}

// ConfigurePagination sets the default and maximum page size of list endpoints
func ConfigurePagination(defaultLimit, maxLimit int) {
	if defaultLimit > 0 {
		pageDefaults.limit = defaultLimit
	}
	if maxLimit > 0 {
		pageDefaults.max = maxLimit
	}
	if pageDefaults.limit > pageDefaults.max {
		pageDefaults.limit = pageDefaults.max
	}
}

// parseListParams reads page, limit and search; invalid values fall back to the defaults
func parseListParams(r *http.Request) repository.ListParams {
	q := r.URL.Query()
	p := repository.ListParams{Page: 1, Limit: pageDefaults.limit, Search: strings.TrimSpace(q.Get("search"))}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		p.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		p.Limit = limit
	}
	if p.Limit > pageDefaults.max {
		p.Limit = pageDefaults.max
	}
	return p
}

// parseBool reads an optional boolean query parameter
func parseBool(r *http.Request, name string) *bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	if err != nil {
		return nil
	}
	return &v
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, dataResponse{Success: true, Data: data})
}

func respondCreated(w http.ResponseWriter, data interface{}, message string) {
	writeJSON(w, http.StatusCreated, dataResponse{Success: true, Data: data, Message: message})
}

func respondList(w http.ResponseWriter, data interface{}, p repository.ListParams, total int64) {
	pages := 0
	if p.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	writeJSON(w, http.StatusOK, dataResponse{
		Success: true,
		Data:    data,
		Pagination: &Pagination{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      total,
			TotalPages: pages,
		},
	})
}

func respondMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: message})
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: message})
}

// handleError maps service and repository errors onto status codes. Validation and
// conflict errors are 400, unknown failures are logged and reported as 500.
func handleError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var apiErr *apiError
	var constraintErr *repository.ConstraintError
	switch {
	case errors.As(err, &apiErr):
		respondError(w, apiErr.Status, apiErr.Message)
	case errors.As(err, &constraintErr):
		respondError(w, http.StatusBadRequest, constraintErr.Error())
	case errors.Is(err, repository.ErrDuplicate):
		respondError(w, http.StatusBadRequest, "A record with the same unique value already exists")
	case errors.Is(err, repository.ErrInUse):
		respondError(w, http.StatusBadRequest, "Record is referenced by existing records")
	case errors.Is(err, repository.ErrStatusConflict):
		respondError(w, http.StatusBadRequest, "Record was changed by another request, reload and try again")
	case errors.Is(err, repository.ErrVehicleUnavailable):
		respondError(w, http.StatusBadRequest, "Vehicle is not available")
	default:
		slog.Error("Request failed", "error", err, "action", action, "request_id", middleware.GetReqID(r.Context()))
		respondError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}
