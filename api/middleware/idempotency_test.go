package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/venuetix/venuetix-backend/pkg/errors"
	"github.com/venuetix/venuetix-backend/pkg/types"
)

type fakeIdemStore struct {
	values map[string]string
	sets   int
}

func newFakeIdemStore() *fakeIdemStore {
	return &fakeIdemStore{values: make(map[string]string)}
}

func (f *fakeIdemStore) Get(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeIdemStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.sets++
	if _, exists := f.values[key]; exists {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeIdemStore) IdempotencyKey(scope, id string) string {
	return "vtx:idempotency:" + scope + ":" + id
}

func (f *fakeIdemStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func scanRequestWith(body, key string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/scans", strings.NewReader(body))
	if key != "" {
		r.Header.Set("Idempotency-Key", key)
	}
	r = r.WithContext(WithDeviceID(WithOrgID(r.Context(), "org-1"), "gate-1"))
	return r
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeIdemStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"result":"valid"}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, scanRequestWith(`{"qr_data":"abc"}`, "key-1"))
	if calls != 1 {
		t.Fatalf("expected handler invoked once, got %d", calls)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, scanRequestWith(`{"qr_data":"abc"}`, "key-1"))
	if calls != 1 {
		t.Fatalf("replay must not re-invoke the handler, got %d calls", calls)
	}
	if second.Code != http.StatusOK {
		t.Fatalf("unexpected replay status %d", second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replayed body differs: %q vs %q", first.Body.String(), second.Body.String())
	}
}

func TestIdempotencyRejectsMissingKey(t *testing.T) {
	handler := Idempotency(newFakeIdemStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without an idempotency key")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, scanRequestWith(`{}`, ""))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newFakeIdemStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), scanRequestWith(`{"qr_data":"abc"}`, "key-1"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, scanRequestWith(`{"qr_data":"other"}`, "key-1"))

	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("unexpected error code %s", envelope.Error.Code)
	}
}

func TestIdempotencyScopesKeysByDevice(t *testing.T) {
	store := newFakeIdemStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), scanRequestWith(`{"qr_data":"abc"}`, "key-1"))

	other := httptest.NewRequest(http.MethodPost, "/api/v1/scans", strings.NewReader(`{"qr_data":"abc"}`))
	other.Header.Set("Idempotency-Key", "key-1")
	other = other.WithContext(WithDeviceID(WithOrgID(other.Context(), "org-1"), "gate-2"))
	handler.ServeHTTP(httptest.NewRecorder(), other)

	if calls != 2 {
		t.Fatalf("same key from another device must not replay, got %d calls", calls)
	}
}

func TestIdempotencyIgnoresUnruledRoutes(t *testing.T) {
	calls := 0
	handler := Idempotency(newFakeIdemStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/tickets/abc/scan-logs", nil)
	handler.ServeHTTP(httptest.NewRecorder(), r)
	if calls != 1 {
		t.Fatalf("unruled route must pass through, got %d calls", calls)
	}
}
