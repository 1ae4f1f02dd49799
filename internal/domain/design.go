package domain

import (
	"context"
	"time"
)

// Overlay is a piece of text placed on a design. X and Y are percentages of
// the image width and height; FontSize is in pixels at natural resolution.
type Overlay struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"fontSize,omitempty"`
	Color    string  `json:"color,omitempty"`
}

// Design is a generated artwork a signed-in shopper saved for later.
type Design struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Prompt      string    `json:"prompt"`
	Style       string    `json:"style,omitempty"`
	Size        string    `json:"size,omitempty"`
	ImageURL    string    `json:"imageUrl"`
	StoragePath string    `json:"storagePath,omitempty"`
	Overlays    []Overlay `json:"overlays"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DesignRepository persists saved designs.
type DesignRepository interface {
	Create(ctx context.Context, design *Design) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Design, error)
}
