package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gridwell/espi-self-access/cryptoutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler captures every payload the listener delivers.
type recordingHandler struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (h *recordingHandler) HandleMessage(_ context.Context, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.payloads = append(h.payloads, append([]byte(nil), payload...))
	return h.err
}

func (h *recordingHandler) delivered() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]byte(nil), h.payloads...)
}

func newTestServer(t *testing.T, handler MessageHandler) *httptest.Server {
	t.Helper()

	srv, err := New(&HTTPServerConfig{
		ListenAddr:    "127.0.0.1:0",
		Log:           testLogger(),
		DrainDuration: 10 * time.Millisecond,
	}, handler)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.getRouter())
	t.Cleanup(ts.Close)
	return ts
}

func TestNew_RequiresHandler(t *testing.T) {
	_, err := New(&HTTPServerConfig{Log: testLogger()}, nil)
	require.Error(t, err)
}

func TestNew_TLSConfig(t *testing.T) {
	cert, err := cryptoutils.RandomCert()
	require.NoError(t, err)

	srv, err := New(&HTTPServerConfig{
		ListenAddr:     "127.0.0.1:0",
		Log:            testLogger(),
		TLSCertificate: &cert,
	}, &recordingHandler{})
	require.NoError(t, err)

	require.NotNil(t, srv.srv.TLSConfig)
	assert.Len(t, srv.srv.TLSConfig.Certificates, 1)
}

func TestHandleNotification_DeliversPayloadOnce(t *testing.T) {
	handler := &recordingHandler{}
	ts := newTestServer(t, handler)

	resp, err := http.Post(ts.URL+NotificationPath, "application/xml", strings.NewReader(notificationDoc))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	delivered := handler.delivered()
	require.Len(t, delivered, 1)
	assert.Equal(t, []byte(notificationDoc), delivered[0])
}

func TestHandleNotification_AcceptsBOMAndWhitespace(t *testing.T) {
	handler := &recordingHandler{}
	ts := newTestServer(t, handler)

	body := "\xef\xbb\xbf\n  " + `<ns0:BatchList xmlns:ns0="http://naesb.org/espi"/>`
	resp, err := http.Post(ts.URL+NotificationPath, "application/xml", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, handler.delivered(), 1)
}

func TestHandleNotification_RejectsBadBodies(t *testing.T) {
	handler := &recordingHandler{}
	ts := newTestServer(t, handler)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "empty body",
			body:       "",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not xml",
			body:       `{"hello": "custodian"}`,
			wantStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:       "oversized body",
			body:       strings.Repeat("x", maxBodySize+1),
			wantStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+NotificationPath, "application/xml", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}

	// None of the rejected bodies reached the handler.
	assert.Empty(t, handler.delivered())
}

func TestHandleNotification_HandlerError(t *testing.T) {
	handler := &recordingHandler{err: errors.New("archive unavailable")}
	ts := newTestServer(t, handler)

	resp, err := http.Post(ts.URL+NotificationPath, "application/xml", strings.NewReader(notificationDoc))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHandleNotification_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &recordingHandler{})

	resp, err := http.Get(ts.URL + NotificationPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

// overlapDetector reports whether two handler invocations ever ran at the
// same time.
type overlapDetector struct {
	mu      sync.Mutex
	active  int
	overlap bool
}

func (h *overlapDetector) HandleMessage(context.Context, []byte) error {
	h.mu.Lock()
	h.active++
	if h.active > 1 {
		h.overlap = true
	}
	h.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	h.mu.Lock()
	h.active--
	h.mu.Unlock()
	return nil
}

func TestHandleNotification_SerializesInvocations(t *testing.T) {
	handler := &overlapDetector{}
	ts := newTestServer(t, handler)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(ts.URL+NotificationPath, "application/xml", strings.NewReader(notificationDoc))
			if assert.NoError(t, err) {
				resp.Body.Close()
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	assert.False(t, handler.overlap, "handler invocations overlapped")
}

func TestHealthAndDrainEndpoints(t *testing.T) {
	ts := newTestServer(t, &recordingHandler{})

	getStatus := func(path string) int {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, getStatus("/livez"))
	assert.Equal(t, http.StatusOK, getStatus("/readyz"))

	assert.Equal(t, http.StatusOK, getStatus("/drain"))
	assert.Equal(t, http.StatusServiceUnavailable, getStatus("/readyz"))

	assert.Equal(t, http.StatusOK, getStatus("/undrain"))
	assert.Equal(t, http.StatusOK, getStatus("/readyz"))
}
