package prompt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"storefront/internal/domain"
)

func TestLoadCatalogStyles(t *testing.T) {
	cat, err := LoadCatalog()
	require.NoError(t, err)

	key, style := cat.Style("VIVID")
	require.Equal(t, "vivid", key)
	require.Contains(t, style.Text, "saturated")

	key, style = cat.Style("baroque-noir")
	require.Equal(t, DefaultStyle, key)
	require.Equal(t, cat.Styles[DefaultStyle], style)
}

func TestParseCatalogRequiresDefault(t *testing.T) {
	_, err := ParseCatalog([]byte("styles:\n  vivid:\n    label: vivid\n"))
	require.Error(t, err)
}

func TestInstruction(t *testing.T) {
	cat, err := LoadCatalog()
	require.NoError(t, err)

	got := cat.Instruction(InstructionRequest{Style: "streetwear", Size: "1024x1792", Locale: "es"})
	require.Contains(t, got, "t-shirt")
	require.Contains(t, got, "Style: Streetwear.")
	require.Contains(t, got, "(1024x1792)")
	require.Contains(t, got, "Spanish")

	plain := cat.Instruction(InstructionRequest{Locale: "en"})
	require.Contains(t, plain, "Style: Balanced.")
	require.NotContains(t, plain, "Format:")
	require.NotContains(t, plain, "The shopper writes in")
}

func TestStreamClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.True(t, gjson.GetBytes(body, "stream").Bool())
		require.Equal(t, "system", gjson.GetBytes(body, "messages.0.role").String())
		require.Equal(t, "a fox", gjson.GetBytes(body, "messages.1.content").String())
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewStreamClient(StreamOptions{APIKey: "key", BaseURL: srv.URL + "/v1", HTTPClient: srv.Client()})
	body, err := client.Stream(context.Background(), "sys", "a fox")
	require.NoError(t, err)
	defer body.Close()
	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), "data: [DONE]"))
}

func TestStreamClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided"}}`)
	}))
	defer srv.Close()

	client := NewStreamClient(StreamOptions{APIKey: "bad", BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := client.Stream(context.Background(), "sys", "user")
	var upstream *domain.UpstreamError
	require.True(t, errors.As(err, &upstream))
	require.Equal(t, http.StatusUnauthorized, upstream.Status)
	require.Equal(t, "Incorrect API key provided", upstream.Message)

	_, err = NewStreamClient(StreamOptions{}).Stream(context.Background(), "s", "u")
	require.ErrorIs(t, err, domain.ErrNotConfigured)
}
