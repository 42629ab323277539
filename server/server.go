// Package server contains the route table plumbing shared by all HTTP
// device wrappers.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"

	"goji.io"
	"goji.io/pat"
)

// RouteTable maps goji patterns to handler funcs
type RouteTable map[*pat.Pattern]http.HandlerFunc

// Endpoints lists the patterns in a RouteTable (the keys), sorted
func (rt RouteTable) Endpoints() []string {
	routes := make([]string, 0, len(rt))
	for k := range rt {
		routes = append(routes, k.String())
	}
	sort.Strings(routes)
	return routes
}

// Bind attaches every route in the table to a goji mux
func (rt RouteTable) Bind(m *goji.Mux) {
	for p, h := range rt {
		m.Handle(p, h)
	}
}

// HTTPer is an object which exposes a route table of its HTTP methods
type HTTPer interface {
	// RT returns the route table of the object
	RT() RouteTable
}

// Mux builds a goji mux holding the routes of an HTTPer, plus a route-list
// route which returns the bound patterns as a JSON array of strings.
// The mux matches against the full request path; strip any mount prefix
// before handing requests to it.
func Mux(h HTTPer) *goji.Mux {
	m := goji.NewMux()
	rt := h.RT()
	rt.Bind(m)
	m.Handle(pat.Get("/route-list"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(rt.Endpoints())
		if err != nil {
			log.Printf("error encoding list of routes to json %q", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	return m
}
