// Package storage persists generated images where the storefront owns them.
package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Store writes objects and reports the public URL they are served from. Put
// returns the normalised key the object was stored under.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	PublicURL(key string) string
}

// GeneratedKey returns a fresh object key for a generated image.
func GeneratedKey(ext string) string {
	if ext == "" {
		ext = "png"
	}
	return fmt.Sprintf("generated/%s.%s", uuid.NewString(), ext)
}
