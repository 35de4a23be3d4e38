/*
handlers.go - HTTP API handlers for the inventory ledger

PURPOSE:
  Exposes the inventory engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the inventory services. Access
  checks happen inside the services; handlers only install the actor.

ENDPOINTS:
  Sessions (sessions.go):
    POST   /api/login                  Log in, returns token + cookie
    POST   /api/logout                 Revoke the current token
    GET    /api/me                     Current actor

  Catalog (catalog.go):
    /api/categories, /api/customers, /api/products   CRUD
    GET    /api/products/{id}/stock    Quantity on hand

  Ledger (ledger.go):
    /api/logs                          CRUD for manual entries

  Sales (sales.go):
    GET    /api/sales[/{id}]           Read sales with details
    POST   /api/sales                  Record a sale
    DELETE /api/sales/{id}             Delete a sale and its stock movements

  Users (users.go):
    /api/users                         CRUD

ERROR HANDLING:
  Errors are returned as {"error": msg, "details": ...} with the status
  of the error's class (inventory.ClassOf):
  - 400: Validation errors, unknown references
  - 401: Missing or invalid session
  - 403: Disabled account or insufficient role
  - 404: Resource not found
  - 409: Duplicate or in-use conflicts
  - 500: Internal errors (logged, message hidden)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/auth"
	"github.com/warp/inventory-ledger/inventory"
	"github.com/warp/inventory-ledger/logger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the inventory services the API exposes.
type Services struct {
	Sales     *inventory.Sales
	Ledger    *inventory.Ledger
	Projector *inventory.Projector
	Catalog   *inventory.Catalog
	Users     *inventory.Users
	Sessions  *auth.Sessions
	Health    Pinger
}

// CookieOptions configures the session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Services
	cookie      CookieOptions
	maxBodySize int64
	validate    *validator.Validate
}

// NewHandler creates a handler for the given services.
func NewHandler(svc Services, cookie CookieOptions, maxBodySize int64) *Handler {
	if cookie.Name == "" {
		cookie.Name = "session"
	}
	if maxBodySize <= 0 {
		maxBodySize = 1 << 20
	}
	return &Handler{
		Services:    svc,
		cookie:      cookie,
		maxBodySize: maxBodySize,
		validate:    newValidator(),
	}
}

// newValidator reports field names by their JSON tag.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// =============================================================================
// HEALTH
// =============================================================================

// Healthz reports whether the store answers.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health.Ping(r.Context()); err != nil {
			logger.FromContext(r.Context()).Error("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeMessage(w http.ResponseWriter, status int, message string, id int64) {
	writeJSON(w, status, MessageResponse{Message: message, ID: id})
}

var (
	errBodyRequired = errors.New("a JSON body is required")
	errInvalidID    = errors.New("invalid id")
)

// validationError carries field failures from the validator.
type validationError struct {
	fields []FieldError
}

func (e *validationError) Error() string { return "request validation failed" }

// writeError renders err with the status of its class. Internal errors are
// logged and their message is not shown to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Request validation failed.", Details: ve.fields})
		return
	case errors.Is(err, errBodyRequired), errors.Is(err, errInvalidID):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: sentence(err.Error())})
		return
	}

	class := inventory.ClassOf(err)
	resp := ErrorResponse{Error: sentence(err.Error())}
	switch class {
	case inventory.ClassUnauthenticated:
		resp.Error = "You are not authorized."
		if errors.Is(err, inventory.ErrInvalidCredentials) {
			resp.Error = "Invalid credentials."
		}
	case inventory.ClassForbidden:
		resp.Error = "You may not perform this operation."
		if errors.Is(err, access.ErrDisabled) {
			resp.Error = "Your authorization was revoked."
		}
	case inventory.ClassInternal:
		logger.FromContext(r.Context()).Error("request failed", zap.Error(err))
		resp.Error = "Internal server error."
	}

	var le *inventory.LineError
	if errors.As(err, &le) {
		resp.Details = map[string]int{"line": le.Line + 1}
	}
	writeJSON(w, class.HTTPStatus(), resp)
}

// sentence capitalizes msg and ends it with a period.
func sentence(msg string) string {
	if msg == "" {
		return msg
	}
	runes := []rune(msg)
	runes[0] = unicode.ToUpper(runes[0])
	if !strings.HasSuffix(msg, ".") {
		runes = append(runes, '.')
	}
	return string(runes)
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errBodyRequired
		}
		return fmt.Errorf("%w: %v", errBodyRequired, err)
	}
	return h.check(dst)
}

func (h *Handler) check(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	ve := &validationError{}
	for _, fe := range fieldErrs {
		ve.fields = append(ve.fields, FieldError{Field: fe.Namespace(), Message: validationMessage(fe)})
	}
	return ve
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "max":
		if fe.Kind() == reflect.String {
			return "Must be at most " + fe.Param() + " characters"
		}
		return "Must be at most " + fe.Param()
	case "gt":
		return "Must be greater than " + fe.Param()
	default:
		return "Invalid value"
	}
}

// idParam parses the {id} URL parameter.
func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
