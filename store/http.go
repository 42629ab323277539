package store

import (
	"encoding/json"
	"net/http"
	"strconv"

	"goji.io/pat"

	"github.com/google/uuid"
	"github.com/ribeiro-lab/photond/server"
)

// HTTPArchive exposes a Store over HTTP
type HTTPArchive struct {
	s *Store

	RouteTable server.RouteTable
}

// NewHTTPArchive wraps a Store with HTTP routes
func NewHTTPArchive(s *Store) HTTPArchive {
	w := HTTPArchive{s: s}
	rt := server.RouteTable{
		pat.Get("/sessions"):             w.Sessions,
		pat.Get("/sessions/:id/samples"): w.Samples,
		pat.Get("/sessions/:id/stats"):   w.Stats,
	}
	w.RouteTable = rt
	return w
}

// RT satisfies server.HTTPer
func (h HTTPArchive) RT() server.RouteTable {
	return h.RouteTable
}

// Sessions replies with the recorded sessions as JSON, most recent first
func (h HTTPArchive) Sessions(w http.ResponseWriter, r *http.Request) {
	recs, err := h.s.Sessions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(recs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func sessionID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(pat.Param(r, "id"))
}

// Samples replies with up to n samples of a session as JSON, most recent
// first.  n comes from the query string and defaults to 100.
func (h HTTPArchive) Samples(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n := 100
	if s := r.URL.Query().Get("n"); s != "" {
		n, err = strconv.Atoi(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	samples, err := h.s.RecentSamples(id, n)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(samples)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Stats replies with the summary statistics of a session as JSON
func (h HTTPArchive) Stats(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	stats, err := h.s.Stats(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(stats)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
