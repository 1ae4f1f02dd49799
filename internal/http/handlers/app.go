package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"storefront/internal/domain"
	"storefront/internal/infra"
	"storefront/internal/middleware"
	"storefront/internal/providers/prompt"
	"storefront/internal/quota"
	"storefront/internal/storage"
)

const maxBodyBytes = 1 << 20

// ImageGenerator produces artwork from a prompt.
type ImageGenerator interface {
	HasCredentials() bool
	Generate(ctx context.Context, req domain.GenerateRequest) ([]domain.GeneratedImage, error)
}

// PromptStreamer opens a streaming chat completion.
type PromptStreamer interface {
	HasCredentials() bool
	Stream(ctx context.Context, system, user string) (io.ReadCloser, error)
}

// ImageFetcher downloads a remote raster.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

// OrderService is the subset of WooCommerce the storefront uses.
type OrderService interface {
	GetOrder(ctx context.Context, id string) (json.RawMessage, error)
	SearchOrders(ctx context.Context, search string) ([]json.RawMessage, error)
	CreateOrder(ctx context.Context, order domain.NewOrder) (json.RawMessage, error)
}

// HealthCheck pings one optional dependency.
type HealthCheck func(ctx context.Context) error

// App carries the dependencies shared by every handler.
type App struct {
	Config  *infra.Config
	Logger  zerolog.Logger
	Gate    quota.Gate
	Images  ImageGenerator
	Prompts PromptStreamer
	Catalog *prompt.Catalog
	Orders  OrderService
	Store   storage.Store
	Designs domain.DesignRepository

	// Fetcher is restricted to allowlisted hosts and serves browser-supplied
	// URLs. Raster fetches the generator's own result URLs.
	Fetcher ImageFetcher
	Raster  ImageFetcher

	Checks map[string]HealthCheck

	validate *validator.Validate
}

// NewApp wires the validator; callers fill in the dependencies.
func NewApp(cfg *infra.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger, validate: newValidator(), Checks: map[string]HealthCheck{}}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) raw(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

func (a *App) log(r *http.Request) *zerolog.Logger {
	l := a.Logger.With().Str("request_id", middleware.RequestIDFromContext(r.Context())).Logger()
	return &l
}

// decode reads a JSON body into dst and validates it. An empty body decodes
// as an empty object. The returned message is safe to show to the caller.
func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) (string, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return "invalid JSON body", false
	}
	if err := a.validate.Struct(dst); err != nil {
		return validationMessage(err), false
	}
	return "", true
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return strings.Join(msgs, "; ")
}

// fieldError converts a single validation failure into a readable message.
func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "url", "http_url":
		return field + " must be an absolute URL"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s item(s)", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

// statusFor maps domain errors to an HTTP status. Upstream statuses are
// forwarded only when forward is set; otherwise upstream failures are 500.
func statusFor(err error, forward bool) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrHostNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	}
	if forward {
		if status := domain.StatusOf(err); status != 0 {
			return status
		}
	}
	return http.StatusInternalServerError
}

// publicMessage returns the text shown to callers for err.
func publicMessage(err error, fallback string) string {
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) && upstream.Message != "" {
		return upstream.Message
	}
	switch {
	case errors.Is(err, domain.ErrHostNotAllowed):
		return domain.ErrHostNotAllowed.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid request"
	}
	return fallback
}
