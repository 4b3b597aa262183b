package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// TestHandler_ServesMetrics はスクレイプでメトリクスが返ることを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordPostCreated()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "socialboard_posts_created_total") {
		t.Error("response should contain socialboard_posts_created_total metric")
	}
}

// TestMiddleware_UsesRoutePattern はURLではなくルートパターンでラベル付けされることを検証する。
func TestMiddleware_UsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	r := chi.NewRouter()
	r.Use(Middleware(c))
	r.Put("/api/v1/post/{id}/like", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/post/"+id+"/like", nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	mf := findMetricFamily(t, reg, "socialboard_http_requests_total")
	if len(mf.GetMetric()) != 1 {
		t.Fatalf("expected 1 series, got %d", len(mf.GetMetric()))
	}
	m := mf.GetMetric()[0]
	if got := labelValue(m, "route"); got != "/api/v1/post/{id}/like" {
		t.Errorf("route = %q, want %q", got, "/api/v1/post/{id}/like")
	}
	if got := labelValue(m, "status_code"); got != "404" {
		t.Errorf("status_code = %q, want %q", got, "404")
	}
	if val := m.GetCounter().GetValue(); val != 2 {
		t.Errorf("count = %v, want 2", val)
	}
}

// TestMiddleware_NilRecorder_PassesThrough はRecorderがnilでもリクエストが処理されることを検証する。
func TestMiddleware_NilRecorder_PassesThrough(t *testing.T) {
	h := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTeapot)
	}
}
