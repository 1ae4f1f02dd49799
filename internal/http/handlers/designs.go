package handlers

import (
	"net/http"
	"strconv"

	"storefront/internal/adapter/repo"
	"storefront/internal/domain"
)

type saveDesignRequest struct {
	Prompt      string           `json:"prompt"`
	Style       string           `json:"style"`
	Size        string           `json:"size"`
	ImageURL    string           `json:"imageUrl" validate:"required,http_url"`
	StoragePath string           `json:"storagePath"`
	Overlays    []domain.Overlay `json:"overlays"`
}

// SaveDesign stores a design for the signed-in user.
func (a *App) SaveDesign(w http.ResponseWriter, r *http.Request) {
	if a.Designs == nil {
		a.error(w, http.StatusServiceUnavailable, "designs are not available")
		return
	}
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req saveDesignRequest
	if msg, ok := a.decode(w, r, &req); !ok {
		a.error(w, http.StatusBadRequest, msg)
		return
	}
	overlays := req.Overlays
	if overlays == nil {
		overlays = []domain.Overlay{}
	}
	design := &domain.Design{
		UserID:      userID,
		Prompt:      req.Prompt,
		Style:       req.Style,
		Size:        req.Size,
		ImageURL:    req.ImageURL,
		StoragePath: req.StoragePath,
		Overlays:    overlays,
	}
	if err := a.Designs.Create(r.Context(), design); err != nil {
		a.log(r).Error().Err(err).Str("user_id", userID).Msg("save design")
		a.error(w, http.StatusInternalServerError, "failed to save design")
		return
	}
	a.json(w, http.StatusCreated, design)
}

// ListDesigns returns the caller's designs, newest first.
func (a *App) ListDesigns(w http.ResponseWriter, r *http.Request) {
	if a.Designs == nil {
		a.error(w, http.StatusServiceUnavailable, "designs are not available")
		return
	}
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, offset = repo.ClampPage(limit, offset)

	designs, err := a.Designs.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		a.log(r).Error().Err(err).Str("user_id", userID).Msg("list designs")
		a.error(w, http.StatusInternalServerError, "failed to list designs")
		return
	}
	if designs == nil {
		designs = []domain.Design{}
	}
	a.json(w, http.StatusOK, designs)
}
