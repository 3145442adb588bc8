package culler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/bookmarks/internal/culler"
	"github.com/nikbrunner/bookmarks/internal/model"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/no-head", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusMovedPermanently)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func bookmarks(base string, paths ...string) []model.Bookmark {
	out := make([]model.Bookmark, len(paths))
	for i, p := range paths {
		out[i] = model.Bookmark{ID: int64(i + 1), URL: base + p}
	}
	return out
}

func TestCheck_Statuses(t *testing.T) {
	srv := newServer(t)
	var progress atomic.Int32
	c := culler.New(culler.Options{
		Concurrency: 2,
		OnProgress:  func(done, total int) { progress.Add(1) },
	})

	results := c.Check(context.Background(), bookmarks(srv.URL, "/ok", "/missing", "/gone", "/broken", "/no-head", "/moved"))

	want := []struct {
		status culler.Status
		code   int
	}{
		{culler.Healthy, 200},
		{culler.Dead, 404},
		{culler.Dead, 410},
		{culler.Unreachable, 500},
		{culler.Healthy, 200},
		{culler.Healthy, 200},
	}
	assert.Equal(t, len(results), len(want))
	for i, w := range want {
		assert.Equal(t, results[i].Bookmark.ID, int64(i+1))
		assert.Equal(t, results[i].Status, w.status, "result %d: %+v", i, results[i])
		assert.Equal(t, results[i].StatusCode, w.code, "result %d", i)
	}
	assert.Equal(t, results[3].Reason, "Internal Server Error")
	assert.Equal(t, int(progress.Load()), len(want))
	assert.DeepEqual(t, culler.DeadIDs(results), []int64{2, 3})
}

func TestCheck_ExcludedDomainIsNotDead(t *testing.T) {
	srv := newServer(t)
	c := culler.New(culler.Options{ExcludeDomains: []string{"127.0.0.1"}})

	results := c.Check(context.Background(), bookmarks(srv.URL, "/missing"))
	assert.Equal(t, results[0].Status, culler.Unreachable)
	assert.Equal(t, results[0].Reason, "Possibly private (auth required)")
}

func TestCheck_ConnectionFailure(t *testing.T) {
	srv := newServer(t)
	url := srv.URL
	srv.Close()

	results := culler.New(culler.Options{}).Check(context.Background(), bookmarks(url, "/ok"))
	assert.Equal(t, results[0].Status, culler.Unreachable)
	assert.Equal(t, results[0].StatusCode, 0)
	assert.Equal(t, results[0].Reason, "Connection refused")
}

func TestCheck_Cancelled(t *testing.T) {
	srv := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := culler.New(culler.Options{}).Check(ctx, bookmarks(srv.URL, "/ok", "/ok", "/ok"))
	for _, r := range results {
		assert.Equal(t, r.Status, culler.Unreachable)
		assert.Equal(t, r.Reason, "Cancelled")
	}
}

func TestCheck_Empty(t *testing.T) {
	assert.Assert(t, culler.New(culler.Options{}).Check(context.Background(), nil) == nil)
}
