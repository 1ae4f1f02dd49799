package infra

import (
	"errors"
	"testing"
)

func TestSplitMarker(t *testing.T) {
	cases := []struct {
		name       string
		query      string
		wantMarker string
		wantBody   string
		wantErr    bool
	}{
		{
			name:       "valid",
			query:      "\n  --sql 4f1c2a0e-9b7d-4c1e-8a55-0d2b6f3e9a11\nSELECT 1\n",
			wantMarker: "4f1c2a0e-9b7d-4c1e-8a55-0d2b6f3e9a11",
			wantBody:   "SELECT 1",
		},
		{name: "missing", query: "SELECT 1", wantErr: true},
		{name: "uppercase uuid", query: "--sql 4F1C2A0E-9B7D-4C1E-8A55-0D2B6F3E9A11\nSELECT 1", wantErr: true},
		{name: "empty", query: "   ", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			marker, body, err := SplitMarker(tc.query)
			if tc.wantErr {
				if !errors.Is(err, ErrSQLMarker) {
					t.Fatalf("expected ErrSQLMarker, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if marker != tc.wantMarker || body != tc.wantBody {
				t.Fatalf("got (%q, %q), want (%q, %q)", marker, body, tc.wantMarker, tc.wantBody)
			}
		})
	}
}
