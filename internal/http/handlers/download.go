package handlers

import (
	"encoding/base64"
	"net/http"
	"time"

	"storefront/internal/metrics"
)

type downloadRequest struct {
	ImageURL string `json:"imageUrl" validate:"required,http_url"`
}

// DownloadImage proxies an allowlisted image and returns it as a data URL so
// the browser can draw it on a canvas without tainting it.
func (a *App) DownloadImage(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if msg, ok := a.decode(w, r, &req); !ok {
		a.error(w, http.StatusBadRequest, msg)
		return
	}

	start := time.Now()
	data, mime, err := a.Fetcher.Fetch(r.Context(), req.ImageURL)
	metrics.ObserveUpstream("download", start, err)
	if err != nil {
		a.log(r).Warn().Err(err).Str("url", req.ImageURL).Msg("download image")
		a.error(w, statusFor(err, true), publicMessage(err, "failed to download image"))
		return
	}

	a.json(w, http.StatusOK, map[string]string{
		"imageData": "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
	})
}
