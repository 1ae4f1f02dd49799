package image

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"storefront/internal/domain"
)

func TestOpenAIClientGenerate(t *testing.T) {
	var got generationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images/generations" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Fatalf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"url":"https://cdn.example.com/a.png","revised_prompt":"a cat"}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(Options{APIKey: "key", BaseURL: srv.URL + "/v1/", HTTPClient: srv.Client(), Logger: zerolog.Nop()})
	images, err := client.Generate(context.Background(), domain.GenerateRequest{Prompt: " a cat ", Size: "1792x1024", Style: "vivid"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.N != 1 || got.Prompt != "a cat" || got.Model != "dall-e-3" || got.Size != "1792x1024" || got.Style != "vivid" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if len(images) != 1 || images[0].URL != "https://cdn.example.com/a.png" {
		t.Fatalf("unexpected images: %+v", images)
	}
}

func TestOpenAIClientGenerateB64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("raw-png"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"b64_json":"` + encoded + `"}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(Options{APIKey: "key", BaseURL: srv.URL, HTTPClient: srv.Client()})
	images, err := client.Generate(context.Background(), domain.GenerateRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(images[0].Data) != "raw-png" {
		t.Fatalf("data = %q", images[0].Data)
	}
}

func TestOpenAIClientGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		want    int
	}{
		{name: "upstream error", status: http.StatusBadRequest, body: `{"error":{"message":"content policy violation"}}`, wantErr: domain.ErrUpstream, want: http.StatusBadRequest},
		{name: "empty data", status: http.StatusOK, body: `{"data":[]}`, wantErr: domain.ErrNoResult},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := NewOpenAIClient(Options{APIKey: "key", BaseURL: srv.URL, HTTPClient: srv.Client()})
			_, err := client.Generate(context.Background(), domain.GenerateRequest{Prompt: "p"})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if got := domain.StatusOf(err); got != tc.want {
				t.Fatalf("StatusOf = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestUpstreamMessage(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: `{"error":{"message":"Billing hard limit reached","type":"invalid_request_error"}}`, want: "Billing hard limit reached"},
		{raw: `bad gateway`, want: "bad gateway"},
		{raw: `{"error":"flat"}`, want: `{"error":"flat"}`},
		{raw: ``, want: "upstream status 502"},
	}
	for _, tc := range tests {
		if got := upstreamMessage([]byte(tc.raw), http.StatusBadGateway); got != tc.want {
			t.Fatalf("upstreamMessage(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestOpenAIClientWithoutKey(t *testing.T) {
	client := NewOpenAIClient(Options{})
	if _, err := client.Generate(context.Background(), domain.GenerateRequest{Prompt: "p"}); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.jpg":
			w.Header().Set("Content-Type", "image/jpeg; charset=binary")
			_, _ = w.Write([]byte("jpeg"))
		case "/untyped":
			w.Header()["Content-Type"] = nil
			_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), []string{"127.0.0.1"})

	data, mt, err := f.Fetch(context.Background(), srv.URL+"/a.jpg")
	if err != nil || string(data) != "jpeg" || mt != "image/jpeg" {
		t.Fatalf("Fetch = %q %q %v", data, mt, err)
	}
	if _, mt, err = f.Fetch(context.Background(), srv.URL+"/untyped"); err != nil || mt != "image/png" {
		t.Fatalf("untyped Fetch = %q %v", mt, err)
	}
	if _, _, err = f.Fetch(context.Background(), srv.URL+"/missing"); domain.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected forwarded 404, got %v", err)
	}
	if _, err = f.Check("https://evil.example.com/x.png"); !errors.Is(err, domain.ErrHostNotAllowed) {
		t.Fatalf("expected ErrHostNotAllowed, got %v", err)
	}
	if _, err = f.Check("file:///etc/passwd"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestFetcherRedirects(t *testing.T) {
	var hits atomic.Int32
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	}))
	defer target.Close()
	// Same listener under a hostname that is not allowlisted.
	foreign := strings.Replace(target.URL, "127.0.0.1", "localhost", 1)

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/away":
			http.Redirect(w, r, foreign+"/secret.png", http.StatusFound)
		case "/local":
			http.Redirect(w, r, target.URL+"/ok.png", http.StatusFound)
		case "/loop":
			http.Redirect(w, r, "/loop", http.StatusFound)
		}
	}))
	defer origin.Close()

	f := NewFetcher(origin.Client(), []string{"127.0.0.1"})

	if _, _, err := f.Fetch(context.Background(), origin.URL+"/away"); !errors.Is(err, domain.ErrHostNotAllowed) {
		t.Fatalf("redirect to foreign host: err = %v, want ErrHostNotAllowed", err)
	}
	if n := hits.Load(); n != 0 {
		t.Fatalf("foreign host was contacted %d time(s)", n)
	}
	if data, _, err := f.Fetch(context.Background(), origin.URL+"/local"); err != nil || string(data) != "png" {
		t.Fatalf("redirect within allowlist = %q, %v", data, err)
	}
	if _, _, err := f.Fetch(context.Background(), origin.URL+"/loop"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("redirect loop: err = %v, want ErrInvalidInput", err)
	}

	open := NewFetcher(origin.Client(), nil)
	if _, _, err := open.Fetch(context.Background(), origin.URL+"/away"); err != nil {
		t.Fatalf("unrestricted fetcher should follow redirects: %v", err)
	}
}
