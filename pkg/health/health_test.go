package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(handler http.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.AddLivenessCheck("ok", time.Second, func(context.Context) error { return nil })

	w := serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCheck_FailureThreshold(t *testing.T) {
	h := New()
	var healthy atomic.Bool
	h.AddLivenessCheck("db", time.Second, func(context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("connection refused")
	})
	c := h.liveness[0]
	ctx := context.Background()

	for range FailureThreshold - 1 {
		c.run(ctx)
	}
	assert.Equal(t, http.StatusOK, serve(h.LiveEndpoint).Code, "below threshold")

	c.run(ctx)
	w := serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"db":"connection refused"}}`, w.Body.String())

	healthy.Store(true)
	c.run(ctx)
	assert.Equal(t, http.StatusOK, serve(h.LiveEndpoint).Code, "one success recovers")
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, func(context.Context) error { return nil })

	w := serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, w.Body.String())
	assert.False(t, h.IsReady())

	h.SetReady(true)
	assert.Equal(t, http.StatusOK, serve(h.ReadyEndpoint).Code)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h.ReadyEndpoint).Code)
}

func TestStartRunsChecks(t *testing.T) {
	h := New()
	var runs atomic.Int32
	h.AddReadinessCheck("postgres", time.Second, func(context.Context) error {
		runs.Add(1)
		return errors.New("down")
	})
	h.SetReady(true)

	h.Start(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return !h.IsReady() }, time.Second, 5*time.Millisecond)
	h.Stop()
	h.Stop()

	stopped := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, runs.Load(), stopped+1)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	require.Error(t, GoroutineCountCheck(0)(ctx))

	require.NoError(t, PingCheck(pinger{})(ctx))
	err := PingCheck(pinger{err: errors.New("refused")})(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}
