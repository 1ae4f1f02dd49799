package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/providers/prompt"
	"storefront/internal/relay"
)

type enhanceRequest struct {
	Prompt    string `json:"prompt" validate:"required"`
	StyleType string `json:"styleType"`
	Size      string `json:"size"`
}

// EnhancePrompt streams a rewritten prompt back to the browser as
// server-sent events.
func (a *App) EnhancePrompt(w http.ResponseWriter, r *http.Request) {
	if a.Prompts == nil || !a.Prompts.HasCredentials() {
		a.error(w, http.StatusInternalServerError, "prompt enhancement is not configured")
		return
	}

	var req enhanceRequest
	if msg, ok := a.decode(w, r, &req); !ok {
		a.error(w, http.StatusBadRequest, msg)
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "prompt is required")
		return
	}

	instruction := a.Catalog.Instruction(prompt.InstructionRequest{
		Style:  req.StyleType,
		Size:   req.Size,
		Locale: middleware.LocaleFromContext(r.Context()),
	})

	start := time.Now()
	body, err := a.Prompts.Stream(r.Context(), instruction, req.Prompt)
	metrics.ObserveUpstream("chat", start, err)
	if err != nil {
		a.log(r).Error().Err(err).Msg("open prompt stream")
		a.error(w, http.StatusInternalServerError, publicMessage(err, "prompt enhancement failed"))
		return
	}

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	relay.StartStream(w)
	n, err := relay.Relay(r.Context(), body, relay.NewHTTPWriter(w))
	metrics.StreamChunksTotal.Add(float64(n))
	if err != nil && !errors.Is(err, context.Canceled) {
		a.log(r).Warn().Err(err).Int("chunks", n).Msg("prompt stream ended early")
		return
	}
	a.log(r).Debug().
		Int("chunks", n).
		Str("country", middleware.CountryFromContext(r.Context())).
		Msg("prompt stream finished")
}
