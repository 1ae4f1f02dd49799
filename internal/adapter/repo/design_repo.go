package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/infra"
	"storefront/internal/sqlinline"
)

const (
	DefaultDesignPageSize = 20
	MaxDesignPageSize     = 100
)

// DesignRepositoryPG implements domain.DesignRepository on the hosted Postgres.
type DesignRepositoryPG struct {
	db infra.SQLExecutor
}

func NewDesignRepository(db infra.SQLExecutor) *DesignRepositoryPG {
	return &DesignRepositoryPG{db: db}
}

// Create inserts the design, assigning an id when missing and filling CreatedAt.
func (r *DesignRepositoryPG) Create(ctx context.Context, d *domain.Design) error {
	if d == nil {
		return fmt.Errorf("repo: design is required: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(d.UserID) == "" || strings.TrimSpace(d.ImageURL) == "" {
		return fmt.Errorf("repo: design needs user and image url: %w", domain.ErrInvalidInput)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Overlays == nil {
		d.Overlays = []domain.Overlay{}
	}
	overlays, err := json.Marshal(d.Overlays)
	if err != nil {
		return fmt.Errorf("repo: encode overlays: %w", err)
	}
	row := r.db.QueryRow(ctx, sqlinline.QInsertDesign,
		d.ID, d.UserID, d.Prompt, d.Style, d.Size, d.ImageURL, d.StoragePath, string(overlays),
	)
	if err := row.Scan(&d.CreatedAt); err != nil {
		return fmt.Errorf("repo: insert design: %w", err)
	}
	return nil
}

// ListByUser returns the user's designs, newest first.
func (r *DesignRepositoryPG) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Design, error) {
	limit, offset = ClampPage(limit, offset)
	rows, err := r.db.Query(ctx, sqlinline.QListDesignsByUser, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("repo: list designs: %w", err)
	}
	defer rows.Close()

	designs := make([]domain.Design, 0)
	for rows.Next() {
		var (
			d        domain.Design
			overlays []byte
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.Prompt, &d.Style, &d.Size, &d.ImageURL, &d.StoragePath, &overlays, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("repo: scan design: %w", err)
		}
		d.Overlays = []domain.Overlay{}
		if len(overlays) > 0 {
			if err := json.Unmarshal(overlays, &d.Overlays); err != nil {
				return nil, fmt.Errorf("repo: decode overlays: %w", err)
			}
		}
		designs = append(designs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list designs: %w", err)
	}
	return designs, nil
}

// ClampPage applies the default and maximum page size.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultDesignPageSize
	}
	if limit > MaxDesignPageSize {
		limit = MaxDesignPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

var _ domain.DesignRepository = (*DesignRepositoryPG)(nil)
