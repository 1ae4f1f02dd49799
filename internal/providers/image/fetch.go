package image

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront/internal/domain"
)

// MaxImageBytes bounds how much of a remote image is read into memory.
const MaxImageBytes = 20 << 20

const maxRedirects = 5

// Fetcher downloads remote rasters. When an allowlist is set, only those
// hosts may be fetched.
type Fetcher struct {
	httpClient *http.Client
	allowed    map[string]struct{}
}

// NewFetcher builds a fetcher. A nil or empty allowlist permits any host.
func NewFetcher(httpClient *http.Client, allowlist []string) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	f := &Fetcher{httpClient: httpClient}
	if len(allowlist) > 0 {
		f.allowed = make(map[string]struct{}, len(allowlist))
		for _, host := range allowlist {
			f.allowed[strings.ToLower(strings.TrimSpace(host))] = struct{}{}
		}
		// Redirect targets must pass the same host check as the first URL.
		restricted := *httpClient
		restricted.CheckRedirect = f.checkRedirect
		f.httpClient = &restricted
	}
	return f
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("image: stopped after %d redirects: %w", maxRedirects, domain.ErrInvalidInput)
	}
	_, err := f.Check(req.URL.String())
	return err
}

// Check validates that raw is an absolute http(s) URL on an allowed host.
func (f *Fetcher) Check(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Hostname() == "" {
		return nil, fmt.Errorf("image: invalid image url: %w", domain.ErrInvalidInput)
	}
	if f.allowed != nil {
		if _, ok := f.allowed[strings.ToLower(parsed.Hostname())]; !ok {
			return nil, fmt.Errorf("image: %s: %w", parsed.Hostname(), domain.ErrHostNotAllowed)
		}
	}
	return parsed, nil
}

// Fetch downloads the image and returns its bytes and media type (image/png
// when the upstream does not say).
func (f *Fetcher) Fetch(ctx context.Context, raw string) ([]byte, string, error) {
	parsed, err := f.Check(raw)
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("image: build download request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("image: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", &domain.UpstreamError{Service: "download", Status: resp.StatusCode, Message: fmt.Sprintf("failed to fetch image: status %d", resp.StatusCode)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("image: read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, "", fmt.Errorf("image: image exceeds %d bytes: %w", MaxImageBytes, domain.ErrInvalidInput)
	}
	if len(data) == 0 {
		return nil, "", errEmptyImage
	}
	return data, mediaType(resp.Header.Get("Content-Type")), nil
}

func mediaType(header string) string {
	if header == "" {
		return "image/png"
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil || mt == "" {
		return "image/png"
	}
	return mt
}
