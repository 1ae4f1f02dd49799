// Package relay re-frames an upstream chat completion event stream for the browser.
package relay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// MaxLineBytes bounds a single upstream event line.
const MaxLineBytes = 1 << 20

const deltaPath = "choices.0.delta.content"

var (
	dataPrefix = []byte("data:")
	doneMarker = []byte("[DONE]")
)

// EventWriter receives framed events. Flush pushes buffered bytes to the client.
type EventWriter interface {
	io.Writer
	Flush() error
}

type chunk struct {
	Content string `json:"content"`
}

// Relay copies content deltas from upstream to w as `data: {"content":...}`
// events until upstream sends [DONE] or ends. Cancelling ctx closes upstream.
// It returns the number of events written.
func Relay(ctx context.Context, upstream io.ReadCloser, w EventWriter) (int, error) {
	defer upstream.Close()

	g, gctx := errgroup.WithContext(ctx)
	deltas := make(chan string)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-gctx.Done():
			_ = upstream.Close()
		case <-stop:
		}
	}()

	g.Go(func() error {
		defer close(deltas)
		scanner := bufio.NewScanner(upstream)
		scanner.Buffer(make([]byte, 0, 64<<10), MaxLineBytes)
		for scanner.Scan() {
			content, done := parseLine(scanner.Bytes())
			if done {
				return nil
			}
			if content == "" {
				continue
			}
			select {
			case deltas <- content:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("relay: read upstream: %w", err)
		}
		return nil
	})

	written := 0
	g.Go(func() error {
		for content := range deltas {
			if err := writeEvent(w, content); err != nil {
				return err
			}
			written++
		}
		return nil
	})

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return written, err
}

// parseLine extracts the content delta from one event-stream line. done is
// true for the [DONE] sentinel.
func parseLine(line []byte) (content string, done bool) {
	line = bytes.TrimSpace(line)
	if !bytes.HasPrefix(line, dataPrefix) {
		return "", false
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if bytes.Equal(payload, doneMarker) {
		return "", true
	}
	if !gjson.ValidBytes(payload) {
		return "", false
	}
	return gjson.GetBytes(payload, deltaPath).String(), false
}

func writeEvent(w EventWriter, content string) error {
	body, err := json.Marshal(chunk{Content: content})
	if err != nil {
		return fmt.Errorf("relay: encode chunk: %w", err)
	}
	frame := make([]byte, 0, len(body)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, body...)
	frame = append(frame, '\n', '\n')
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("relay: write: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("relay: flush: %w", err)
	}
	return nil
}

// HTTPWriter adapts a ResponseWriter, unwrapping middleware wrappers to find
// the flusher.
type HTTPWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func NewHTTPWriter(w http.ResponseWriter) *HTTPWriter {
	return &HTTPWriter{w: w, rc: http.NewResponseController(w)}
}

func (h *HTTPWriter) Write(p []byte) (int, error) { return h.w.Write(p) }

func (h *HTTPWriter) Flush() error {
	if err := h.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// StartStream writes the event-stream response headers.
func StartStream(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}
