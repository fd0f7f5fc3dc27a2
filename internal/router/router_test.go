package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubHandler struct{ hit string }

func (s *stubHandler) record(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.hit = name
		w.WriteHeader(http.StatusTeapot)
	}
}

func (s *stubHandler) Chat(w http.ResponseWriter, r *http.Request)         { s.record("chat")(w, r) }
func (s *stubHandler) ResetSession(w http.ResponseWriter, r *http.Request) { s.record("reset")(w, r) }
func (s *stubHandler) ClearCache(w http.ResponseWriter, r *http.Request)   { s.record("clear")(w, r) }
func (s *stubHandler) CacheStats(w http.ResponseWriter, r *http.Request)   { s.record("stats")(w, r) }
func (s *stubHandler) Health(w http.ResponseWriter, r *http.Request)       { s.record("health")(w, r) }
func (s *stubHandler) TerritoryConfig(w http.ResponseWriter, r *http.Request) {
	s.record("territory")(w, r)
}

func TestSetupRouter(t *testing.T) {
	tests := []struct {
		method, path, want string
	}{
		{http.MethodPost, "/api/v1/chat", "chat"},
		{http.MethodDelete, "/api/v1/chat/sessions/abc", "reset"},
		{http.MethodDelete, "/api/v1/cache", "clear"},
		{http.MethodGet, "/api/v1/cache/stats", "stats"},
		{http.MethodGet, "/health", "health"},
		{http.MethodGet, "/api/v1/territories/annecy/config", "territory"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			h := &stubHandler{}
			r := SetupRouter(&Config{ChatHandler: h})
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusTeapot, rr.Code)
			assert.Equal(t, tt.want, h.hit)
		})
	}

	t.Run("metrics", func(t *testing.T) {
		r := SetupRouter(&Config{ChatHandler: &stubHandler{}})
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
