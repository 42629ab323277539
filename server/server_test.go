package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"goji.io/pat"

	"github.com/ribeiro-lab/photond/server"
)

type fakeHTTPer struct {
	rt server.RouteTable
}

func (f fakeHTTPer) RT() server.RouteTable { return f.rt }

func TestMuxServesBoundRoutes(t *testing.T) {
	h := fakeHTTPer{rt: server.RouteTable{
		pat.Get("/ping"): func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		},
	}}
	m := server.Mux(h)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, req)
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected bound route to answer 418, got %d", rec.Code)
	}
}

func TestRouteList(t *testing.T) {
	h := fakeHTTPer{rt: server.RouteTable{
		pat.Get("/a"):  func(w http.ResponseWriter, r *http.Request) {},
		pat.Post("/b"): func(w http.ResponseWriter, r *http.Request) {},
	}}
	m := server.Mux(h)
	req := httptest.NewRequest(http.MethodGet, "/route-list", nil)
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from route-list, got %d", rec.Code)
	}
	var routes []string
	if err := json.NewDecoder(rec.Body).Decode(&routes); err != nil {
		t.Fatal(err)
	}
	if len(routes) != 2 {
		t.Errorf("expected 2 routes listed, got %d: %v", len(routes), routes)
	}
}
