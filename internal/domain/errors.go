package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotConfigured  = errors.New("not configured")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNoResult       = errors.New("no result")
	ErrUpstream       = errors.New("upstream failure")
	ErrQuotaExceeded  = errors.New("daily generation limit reached")
	ErrPaymentFailed  = errors.New("order payment failed")
	ErrHostNotAllowed = errors.New("image host is not allowed")
)

// UpstreamError carries the status and message returned by a hosted API so
// handlers can forward them.
type UpstreamError struct {
	Service string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: upstream status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// StatusOf returns the upstream status carried by err, or 0.
func StatusOf(err error) int {
	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.Status >= http.StatusBadRequest {
		return upstream.Status
	}
	return 0
}
