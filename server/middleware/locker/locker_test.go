package locker_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ribeiro-lab/photond/server/middleware/locker"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestUnlockedPassesThrough(t *testing.T) {
	l := locker.New()
	h := l.Check(http.HandlerFunc(okHandler))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 when unlocked, got %d", rec.Code)
	}
}

func TestLockedBounces(t *testing.T) {
	l := locker.New()
	l.Lock()
	h := l.Check(http.HandlerFunc(okHandler))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image", nil))
	if rec.Code != http.StatusLocked {
		t.Errorf("expected 423 when locked, got %d", rec.Code)
	}
}

func TestLockRouteNotProtected(t *testing.T) {
	l := locker.New()
	l.Lock()
	h := l.Check(http.HandlerFunc(okHandler))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lock", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected lock route to bypass the lock, got %d", rec.Code)
	}
}

func TestHTTPSetUnlocks(t *testing.T) {
	l := locker.New()
	l.Lock()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/lock", strings.NewReader(`{"bool": false}`))
	l.HTTPSet(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from HTTPSet, got %d", rec.Code)
	}
	if l.Locked() {
		t.Error("expected locker to be unlocked after HTTPSet false")
	}
}
