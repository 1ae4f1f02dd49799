package handlers

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"time"

	_ "golang.org/x/image/webp"

	"storefront/internal/compositor"
	"storefront/internal/domain"
	"storefront/internal/metrics"
)

type composeRequest struct {
	ImageURL string `json:"imageUrl" validate:"required,http_url"`
	compositor.Params
}

// Compose renders the print file server side and returns it as a PNG download.
func (a *App) Compose(w http.ResponseWriter, r *http.Request) {
	req := composeRequest{Params: compositor.NewParams()}
	if msg, ok := a.decode(w, r, &req); !ok {
		a.error(w, http.StatusBadRequest, msg)
		return
	}

	start := time.Now()
	data, _, err := a.Fetcher.Fetch(r.Context(), req.ImageURL)
	metrics.ObserveUpstream("download", start, err)
	if err != nil {
		a.log(r).Warn().Err(err).Str("url", req.ImageURL).Msg("fetch compose source")
		a.error(w, statusFor(err, true), publicMessage(err, "failed to download image"))
		return
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		a.error(w, http.StatusUnprocessableEntity, "source is not a supported image")
		return
	}

	out, err := compositor.Compose(src, req.Params)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			a.error(w, http.StatusBadRequest, err.Error())
			return
		}
		a.log(r).Error().Err(err).Msg("compose design")
		a.error(w, http.StatusInternalServerError, "failed to render design")
		return
	}

	var buf bytes.Buffer
	if err := compositor.EncodePNG(out, &buf); err != nil {
		a.log(r).Error().Err(err).Msg("encode design")
		a.error(w, http.StatusInternalServerError, "failed to render design")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="design.png"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
