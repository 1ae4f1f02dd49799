package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/storage"
)

type imagineRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	Model  string `json:"model"`
	Size   string `json:"size" validate:"omitempty,oneof=1024x1024 1024x1792 1792x1024"`
	Style  string `json:"style" validate:"omitempty,oneof=vivid natural"`
}

type imagineResponse struct {
	Success   bool                 `json:"success"`
	Data      []domain.StoredImage `json:"data,omitempty"`
	Error     string               `json:"error,omitempty"`
	Remaining *int                 `json:"remaining,omitempty"`
}

func (a *App) imagineError(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, imagineResponse{Success: false, Error: msg})
}

// Imagine generates one image, copies it into owned storage and returns the
// owned URL. Each allowed call counts against the caller's daily quota.
func (a *App) Imagine(w http.ResponseWriter, r *http.Request) {
	if a.Images == nil || !a.Images.HasCredentials() {
		a.imagineError(w, http.StatusInternalServerError, "image generation is not configured")
		return
	}

	var req imagineRequest
	if msg, ok := a.decodeImagine(w, r, &req); !ok {
		a.imagineError(w, http.StatusBadRequest, msg)
		return
	}

	identity := middleware.Identity(r)
	decision, err := a.Gate.Allow(r.Context(), identity)
	if err != nil {
		a.log(r).Error().Err(err).Str("identity", identity).Msg("quota check failed")
		a.imagineError(w, http.StatusInternalServerError, "could not check generation quota")
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	if !decision.Allowed {
		metrics.QuotaDecisionsTotal.WithLabelValues("denied").Inc()
		remaining := 0
		a.json(w, http.StatusTooManyRequests, imagineResponse{
			Success:   false,
			Error:     domain.ErrQuotaExceeded.Error(),
			Remaining: &remaining,
		})
		return
	}
	metrics.QuotaDecisionsTotal.WithLabelValues("allowed").Inc()

	stored, err := a.generate(r.Context(), req)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("error").Inc()
		a.log(r).Error().Err(err).Msg("image generation failed")
		switch {
		case errors.Is(err, domain.ErrNoResult):
			a.imagineError(w, http.StatusInternalServerError, "no image was generated")
		default:
			a.imagineError(w, http.StatusInternalServerError, publicMessage(err, "image generation failed"))
		}
		return
	}
	metrics.GenerationsTotal.WithLabelValues("success").Inc()

	if userID := a.currentUserID(r); userID != "" && a.Designs != nil {
		design := &domain.Design{
			UserID:      userID,
			Prompt:      req.Prompt,
			Style:       req.Style,
			Size:        req.Size,
			ImageURL:    stored.URL,
			StoragePath: stored.StoragePath,
			Overlays:    []domain.Overlay{},
		}
		if err := a.Designs.Create(r.Context(), design); err != nil {
			a.log(r).Warn().Err(err).Str("user_id", userID).Msg("save generated design")
		}
	}

	a.json(w, http.StatusOK, imagineResponse{Success: true, Data: []domain.StoredImage{stored}})
}

func (a *App) decodeImagine(w http.ResponseWriter, r *http.Request, req *imagineRequest) (string, bool) {
	msg, ok := a.decode(w, r, req)
	if !ok {
		return msg, false
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return "prompt is required", false
	}
	return "", true
}

func (a *App) generate(ctx context.Context, req imagineRequest) (domain.StoredImage, error) {
	start := time.Now()
	results, err := a.Images.Generate(ctx, domain.GenerateRequest{
		Prompt: req.Prompt,
		Model:  req.Model,
		Size:   req.Size,
		Style:  req.Style,
	})
	metrics.ObserveUpstream("image", start, err)
	if err != nil {
		return domain.StoredImage{}, err
	}
	if len(results) == 0 {
		return domain.StoredImage{}, domain.ErrNoResult
	}

	first := results[0]
	data, contentType := first.Data, "image/png"
	if len(data) == 0 {
		start = time.Now()
		data, contentType, err = a.Raster.Fetch(ctx, first.URL)
		metrics.ObserveUpstream("download", start, err)
		if err != nil {
			return domain.StoredImage{}, err
		}
	}

	start = time.Now()
	key, err := a.Store.Put(ctx, storage.GeneratedKey("png"), data, contentType)
	metrics.ObserveUpstream("storage", start, err)
	if err != nil {
		return domain.StoredImage{}, err
	}
	return domain.StoredImage{URL: a.Store.PublicURL(key), StoragePath: key}, nil
}
