package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	flushes int
	failAt  int
}

func (r *recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAt > 0 && r.flushes+1 >= r.failAt {
		return 0, errors.New("client gone")
	}
	return r.buf.Write(p)
}

func (r *recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
	return nil
}

func (r *recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

type trackingBody struct {
	io.Reader
	mu     sync.Mutex
	closed bool
}

func (b *trackingBody) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	if c, ok := b.Reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (b *trackingBody) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func TestRelayReframesDeltasUntilDone(t *testing.T) {
	upstream := &trackingBody{Reader: strings.NewReader(
		"data: {\"choices\":[{\"delta\":{\"content\":\"A\"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"B\"}}]}\n\n" +
			"data: [DONE]\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"after\"}}]}\n\n",
	)}
	w := &recorder{}

	n, err := Relay(context.Background(), upstream, w)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "data: {\"content\":\"A\"}\n\ndata: {\"content\":\"B\"}\n\n", w.String())
	require.Equal(t, 2, w.flushes)
	require.True(t, upstream.isClosed())
}

func TestRelaySkipsEmptyAndMalformedLines(t *testing.T) {
	upstream := io.NopCloser(strings.NewReader(
		": keep-alive\n" +
			"data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n" +
			"data: not-json\n\n" +
			"event: ping\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"\"}}]}\n\n" +
			"data:{\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n",
	))
	w := &recorder{}

	n, err := Relay(context.Background(), upstream, w)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "data: {\"content\":\"ok\"}\n\n", w.String())
}

func TestRelayEndsOnUpstreamEOFWithoutDone(t *testing.T) {
	upstream := io.NopCloser(strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"tail\"}}]}"))
	w := &recorder{}

	n, err := Relay(context.Background(), upstream, w)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestRelayCancellationClosesUpstream(t *testing.T) {
	pr, pw := io.Pipe()
	upstream := &trackingBody{Reader: pr}
	w := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := Relay(ctx, upstream, w)
		done <- err
	}()

	_, err := pw.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"A\"}}]}\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return w.String() != "" }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after cancellation")
	}
	require.True(t, upstream.isClosed())

	_, err = pw.Write([]byte("data: x\n"))
	require.Error(t, err)
}

func TestRelayStopsWhenClientWriteFails(t *testing.T) {
	pr, pw := io.Pipe()
	upstream := &trackingBody{Reader: pr}
	w := &recorder{failAt: 1}

	go func() {
		for i := 0; i < 100; i++ {
			if _, err := pw.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n")); err != nil {
				return
			}
		}
		_ = pw.Close()
	}()

	n, err := Relay(context.Background(), upstream, w)
	require.Error(t, err)
	require.Zero(t, n)
	require.True(t, upstream.isClosed())
}

func TestHTTPWriterFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	StartStream(rec)
	w := NewHTTPWriter(rec)
	require.NoError(t, writeEvent(w, "hi"))
	require.True(t, rec.Flushed)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.Equal(t, "data: {\"content\":\"hi\"}\n\n", rec.Body.String())
}
