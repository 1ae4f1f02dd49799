package geoip

import (
	"errors"
	"testing"
)

func TestOpenEmptyPath(t *testing.T) {
	r, err := Open("  ")
	if err != nil || r != nil {
		t.Fatalf("Open(empty) = %v, %v; want nil, nil", r, err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close on nil reader: %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open("/nonexistent/GeoLite2-Country.mmdb"); err == nil {
		t.Fatalf("expected error for missing database")
	}
}

func TestCountryWithoutDatabase(t *testing.T) {
	var r *Reader
	cases := []struct {
		ip      string
		want    string
		wantErr error
	}{
		{ip: "127.0.0.1", want: ""},
		{ip: "10.1.2.3", want: ""},
		{ip: "::1", want: ""},
		{ip: "81.2.69.142", wantErr: ErrUnavailable},
	}
	for _, tc := range cases {
		got, err := r.Country(tc.ip)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Country(%s) err = %v, want %v", tc.ip, err, tc.wantErr)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("Country(%s) = %q, %v; want %q", tc.ip, got, err, tc.want)
		}
	}

	if _, err := r.Country("not-an-ip"); err == nil {
		t.Fatalf("expected error for invalid ip")
	}
}
