package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/infra"
	"storefront/internal/sqlinline"
)

func TestDesignRepositoryCreate(t *testing.T) {
	created := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	exec := &fakeExecutor{row: simpleRow{scan: func(dest ...any) error {
		*(dest[0].(*time.Time)) = created
		return nil
	}}}
	repo := NewDesignRepository(exec)

	d := &domain.Design{UserID: "user-1", Prompt: "a fox", ImageURL: "https://cdn.example.com/a.png"}
	if err := repo.Create(context.Background(), d); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.ID == "" || !d.CreatedAt.Equal(created) {
		t.Fatalf("design not populated: %+v", d)
	}
	if len(exec.calls) != 1 || exec.calls[0].query != sqlinline.QInsertDesign {
		t.Fatalf("unexpected calls: %+v", exec.calls)
	}
	if got := exec.calls[0].args[7]; got != "[]" {
		t.Fatalf("overlays arg = %v, want []", got)
	}
	if _, _, err := infra.SplitMarker(exec.calls[0].query); err != nil {
		t.Fatalf("query marker invalid: %v", err)
	}
}

func TestDesignRepositoryCreateValidates(t *testing.T) {
	repo := NewDesignRepository(&fakeExecutor{})
	if err := repo.Create(context.Background(), &domain.Design{Prompt: "p"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDesignRepositoryListByUser(t *testing.T) {
	created := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	rows := &sliceRows{scans: []func(dest ...any) error{
		func(dest ...any) error {
			*(dest[0].(*string)) = "d1"
			*(dest[1].(*string)) = "user-1"
			*(dest[2].(*string)) = "a fox"
			*(dest[5].(*string)) = "https://cdn.example.com/a.png"
			*(dest[7].(*[]byte)) = []byte(`[{"text":"HI","x":50,"y":20,"fontSize":64,"color":"#ff0000"}]`)
			*(dest[8].(*time.Time)) = created
			return nil
		},
	}}
	exec := &fakeExecutor{rows: rows}
	repo := NewDesignRepository(exec)

	designs, err := repo.ListByUser(context.Background(), "user-1", 500, -3)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(designs) != 1 || designs[0].ID != "d1" || len(designs[0].Overlays) != 1 || designs[0].Overlays[0].Text != "HI" {
		t.Fatalf("unexpected designs: %+v", designs)
	}
	if !rows.closed {
		t.Fatalf("rows not closed")
	}
	args := exec.calls[0].args
	if args[1] != MaxDesignPageSize || args[2] != 0 {
		t.Fatalf("page args = %v, want limit %d offset 0", args, MaxDesignPageSize)
	}
}

func TestClampPage(t *testing.T) {
	tests := []struct{ limit, offset, wantLimit, wantOffset int }{
		{0, 0, DefaultDesignPageSize, 0},
		{10, 5, 10, 5},
		{1000, 0, MaxDesignPageSize, 0},
		{-1, -1, DefaultDesignPageSize, 0},
	}
	for _, tc := range tests {
		l, o := ClampPage(tc.limit, tc.offset)
		if l != tc.wantLimit || o != tc.wantOffset {
			t.Fatalf("ClampPage(%d,%d) = %d,%d", tc.limit, tc.offset, l, o)
		}
	}
}
