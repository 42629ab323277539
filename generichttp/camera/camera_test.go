package camera_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpcamera "github.com/ribeiro-lab/photond/generichttp/camera"
	"github.com/ribeiro-lab/photond/server"
	"github.com/ribeiro-lab/photond/sim"
)

func newWrapped() (*sim.Camera, http.Handler) {
	cam := sim.New(sim.Config{Width: 32, Height: 24, DarkADU: 100, NoiseADU: 2, Seed: 3})
	w := httpcamera.NewHTTPCamera(cam, nil)
	return cam, server.Mux(w)
}

func TestGetImageJPG(t *testing.T) {
	_, m := newWrapped()
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", ct)
	}
}

func TestGetImageFITS(t *testing.T) {
	_, m := newWrapped()
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image?fmt=fits", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.Bytes()
	if len(body) < 6 || string(body[:6]) != "SIMPLE" {
		t.Error("expected FITS output to start with SIMPLE")
	}
}

func TestGetImageUnknownFormat(t *testing.T) {
	_, m := newWrapped()
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image?fmt=bmp", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown format, got %d", rec.Code)
	}
}

func TestExposureTimeRoundTrip(t *testing.T) {
	cam, m := newWrapped()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/exposure-time?exposureTime=25ms", nil)
	m.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 setting exposure, got %d", rec.Code)
	}
	d, _ := cam.GetExposureTime()
	if d != 25*time.Millisecond {
		t.Errorf("expected 25ms on the camera, got %v", d)
	}

	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exposure-time", nil))
	var f struct {
		F64 float64 `json:"f64"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.F64 != 0.025 {
		t.Errorf("expected 0.025 s over the wire, got %f", f.F64)
	}
}

func TestExposureTimeBareNumberGetsSeconds(t *testing.T) {
	cam, m := newWrapped()
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/exposure-time?exposureTime=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	d, _ := cam.GetExposureTime()
	if d != 2*time.Second {
		t.Errorf("expected bare 2 to parse as 2s, got %v", d)
	}
}

func TestExposureTimeJSONBody(t *testing.T) {
	cam, m := newWrapped()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/exposure-time", strings.NewReader(`{"f64": 0.005}`))
	m.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	d, _ := cam.GetExposureTime()
	if d != 5*time.Millisecond {
		t.Errorf("expected 5ms from JSON body, got %v", d)
	}
}

func TestAOIRoundTrip(t *testing.T) {
	_, m := newWrapped()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/aoi", strings.NewReader(`{"left":1,"top":1,"width":16,"height":8}`))
	m.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 setting AOI, got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/aoi", nil))
	var aoi struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&aoi); err != nil {
		t.Fatal(err)
	}
	if aoi.Width != 16 || aoi.Height != 8 {
		t.Errorf("expected 16x8 AOI back, got %dx%d", aoi.Width, aoi.Height)
	}
}

func TestThermalRoutesBoundForThermalManager(t *testing.T) {
	_, m := newWrapped()
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/temperature", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected thermal route to be bound for ThermalManager, got %d", rec.Code)
	}
}

func TestBurstFITSCube(t *testing.T) {
	_, m := newWrapped()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/burst", strings.NewReader(`{"fps": 10, "frames": 3}`))
	m.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from burst, got %d", rec.Code)
	}
	body := rec.Body.Bytes()
	if len(body) < 6 || string(body[:6]) != "SIMPLE" {
		t.Error("expected FITS cube to start with SIMPLE")
	}
}
