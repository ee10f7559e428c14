package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstc/opsdesk-backend/pkg/access"
	"github.com/nstc/opsdesk-backend/pkg/enums"
	"github.com/nstc/opsdesk-backend/pkg/logger"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func requestWithPattern(method, url, pattern, body string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	ctx = access.WithActor(ctx, access.Actor{Name: "Huda", Role: enums.RoleStorekeeper})
	return req.WithContext(ctx)
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		want    time.Duration
		ok      bool
	}{
		{"transfer", http.MethodPost, "/api/v1/inventory/transfer", criticalIdempotencyTTL, true},
		{"single issue", http.MethodPost, "/api/v1/requests/{reqId}/issue", criticalIdempotencyTTL, true},
		{"bulk receive", http.MethodPost, "/api/v1/requests/receive", criticalIdempotencyTTL, true},
		{"lend", http.MethodPost, "/api/v1/inventory/lend", defaultIdempotencyTTL, true},
		{"approve", http.MethodPost, "/api/v1/requests/{reqId}/approve", 0, false},
		{"list", http.MethodGet, "/api/v1/inventory/transfer", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.pattern)
		assert.Equal(t, tt.ok, ok, tt.name)
		if ok {
			assert.Equal(t, tt.want, ttl, tt.name)
		}
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"qty":30}}`))
	}))

	const pattern = "/api/v1/requests/{reqId}/issue"
	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, "/api/v1/requests/7/issue", pattern, `{"qty":20}`)
		req.Header.Set("Idempotency-Key", "issue-7")
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `{"data":{"qty":30}}`, resp.Body.String())
	}
	assert.Equal(t, 1, calls, "second call must replay, not re-issue")

	req := requestWithPattern(http.MethodPost, "/api/v1/requests/7/issue", pattern, `{"qty":21}`)
	req.Header.Set("Idempotency-Key", "issue-7")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "IDEMPOTENCY_KEY_REUSED")
}

func TestIdempotencyRequiresKeyOnGuardedRoutes(t *testing.T) {
	handler := Idempotency(newFakeStore(), logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := requestWithPattern(http.MethodPost, "/api/v1/inventory/transfer", "/api/v1/inventory/transfer", `{}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req = requestWithPattern(http.MethodPost, "/api/v1/requests/7/approve", "/api/v1/requests/{reqId}/approve", `{}`)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code, "unguarded routes pass through")
}

func TestIdempotencySkipsServerErrors(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, "/api/v1/inventory/transfer", "/api/v1/inventory/transfer", `{}`)
		req.Header.Set("Idempotency-Key", "t-1")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}
