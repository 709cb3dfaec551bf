package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/partygames/internal/testutil"
)

func TestRecoveryWritesPanicResponse(t *testing.T) {
	logs, logger := testutil.NewLogRecorder()
	var recovered any
	handler := Recovery(logger, func(w http.ResponseWriter, _ *http.Request, err any) {
		recovered = err
		w.WriteHeader(http.StatusTeapot)
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "boom", recovered)
	assert.Equal(t, []string{"panic recovered"}, logs.Messages(slog.LevelError))
}

func TestRecoveryRethrowsAbort(t *testing.T) {
	handler := Recovery(testutil.NopLogger(), func(http.ResponseWriter, *http.Request, any) {
		t.Fatal("abort must not reach the panic handler")
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRecoverySkipsResponseAfterHijack(t *testing.T) {
	called := make(chan struct{}, 1)
	upgrader := websocket.Upgrader{}
	handler := Recovery(testutil.NopLogger(), func(http.ResponseWriter, *http.Request, any) {
		called <- struct{}{}
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close()
		panic("after upgrade")
	}))

	finished := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(finished)
		handler.ServeHTTP(w, r)
	}))
	defer srv.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	_ = conn.Close()

	<-finished
	assert.Empty(t, called)
}

func TestLoggingRecordsStatus(t *testing.T) {
	logs, logger := testutil.NewLogRecorder()
	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rooms/NOPE", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, []string{"http request"}, logs.Messages(slog.LevelInfo))
}
