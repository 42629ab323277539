package counting

import (
	"encoding/json"
	"net/http"

	"goji.io/pat"

	"github.com/ribeiro-lab/photond/server"
)

// HTTPCounter exposes a Counter over HTTP
type HTTPCounter struct {
	c *Counter

	RouteTable server.RouteTable
}

// NewHTTPCounter wraps a Counter with HTTP routes
func NewHTTPCounter(c *Counter) HTTPCounter {
	w := HTTPCounter{c: c}
	rt := server.RouteTable{
		pat.Get("/history"):     w.History,
		pat.Get("/stats"):       w.Stats,
		pat.Get("/baseline"):    w.Baseline,
		pat.Post("/baseline"):   w.ResetBaseline,
		pat.Get("/calibration"): w.Calibration,
		pat.Get("/session"):     w.Session,
	}
	w.RouteTable = rt
	return w
}

// RT satisfies server.HTTPer
func (h HTTPCounter) RT() server.RouteTable {
	return h.RouteTable
}

// History replies with the ring buffer contents as JSON
func (h HTTPCounter) History(w http.ResponseWriter, r *http.Request) {
	hst := h.c.History()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(hst)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Stats replies with a snapshot of the counting state as JSON
func (h HTTPCounter) Stats(w http.ResponseWriter, r *http.Request) {
	s := h.c.Stats()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(s)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// baselineT is the JSON reply shape of Baseline
type baselineT struct {
	Calibrated bool    `json:"calibrated"`
	Progress   float64 `json:"progress"`
	DarkADU    float64 `json:"darkADU"`
	DarkStdADU float64 `json:"darkStdADU"`
}

// Baseline replies with the dark calibration state as JSON
func (h HTTPCounter) Baseline(w http.ResponseWriter, r *http.Request) {
	b := baselineT{
		Calibrated: h.c.Calibrated(),
		Progress:   h.c.Progress(),
		DarkADU:    h.c.Dark(),
		DarkStdADU: h.c.DarkStd(),
	}
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(b)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ResetBaseline discards the dark calibration; a new one begins on the
// next frames through the pipeline
func (h HTTPCounter) ResetBaseline(w http.ResponseWriter, r *http.Request) {
	h.c.ResetBaseline()
	w.WriteHeader(http.StatusOK)
}

// Calibration replies with the conversion constants as JSON
func (h HTTPCounter) Calibration(w http.ResponseWriter, r *http.Request) {
	cal := h.c.Calibration()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(cal)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// sessionT is the JSON reply shape of Session
type sessionT struct {
	ID        string `json:"id"`
	Started   string `json:"started"`
	Exposure  string `json:"exposure"`
	ROIWidth  int    `json:"roiWidth"`
	ROIHeight int    `json:"roiHeight"`
}

// Session replies with the active session descriptor as JSON
func (h HTTPCounter) Session(w http.ResponseWriter, r *http.Request) {
	s := h.c.CurrentSession()
	reply := sessionT{
		ID:        s.ID.String(),
		Started:   s.Started.Format("2006-01-02T15:04:05Z07:00"),
		Exposure:  s.Exposure.String(),
		ROIWidth:  s.ROIWidth,
		ROIHeight: s.ROIHeight,
	}
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(reply)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
