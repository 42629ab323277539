// Package camera provides a generic HTTP interface to a scientific camera
package camera

import (
	"encoding/json"
	"go/types"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/astrogo/fitsio"
	"goji.io/pat"

	cam "github.com/ribeiro-lab/photond/camera"
	"github.com/ribeiro-lab/photond/generichttp"
	"github.com/ribeiro-lab/photond/imgrec"
	"github.com/ribeiro-lab/photond/server"
	"github.com/ribeiro-lab/photond/util"
)

// MetadataMaker can produce an array of FITS cards
type MetadataMaker interface {
	// CollectHeaderMetadata produces an array of FITS cards
	CollectHeaderMetadata() []fitsio.Card
}

// HTTPCamera is an HTTP wrapper around a PictureTaker.  If the camera also
// implements ThermalManager or Identifier, the matching routes are bound too.
type HTTPCamera struct {
	// PictureTaker is the camera being wrapped
	PictureTaker cam.PictureTaker

	// Rec is the recorder FITS downloads are teed into, may be nil
	Rec *imgrec.Recorder

	routeTable server.RouteTable
}

// NewHTTPCamera returns a new wrapper with the route table populated
func NewHTTPCamera(p cam.PictureTaker, rec *imgrec.Recorder) *HTTPCamera {
	w := &HTTPCamera{PictureTaker: p, Rec: rec}
	rt := server.RouteTable{
		// image capture
		pat.Get("/image"):  w.GetFrame,
		pat.Post("/burst"): w.Burst,

		// exposure manipulation
		pat.Get("/exposure-time"):  w.GetExposureTime,
		pat.Post("/exposure-time"): w.SetExposureTime,

		// geometry
		pat.Get("/aoi"):      w.GetAOI,
		pat.Post("/aoi"):     w.SetAOI,
		pat.Get("/binning"):  w.GetBinning,
		pat.Post("/binning"): w.SetBinning,
	}
	if t, ok := p.(cam.ThermalManager); ok {
		rt[pat.Get("/fan")] = generichttp.GetBool(t.GetFan)
		rt[pat.Post("/fan")] = generichttp.SetBool(t.SetFan)
		rt[pat.Get("/sensor-cooling")] = generichttp.GetBool(t.GetCooling)
		rt[pat.Post("/sensor-cooling")] = generichttp.SetBool(t.SetCooling)
	}
	if t, ok := p.(cam.TemperatureSensor); ok {
		rt[pat.Get("/temperature")] = generichttp.GetFloat(t.GetTemperature)
	}
	if id, ok := p.(cam.Identifier); ok {
		rt[pat.Get("/model")] = generichttp.GetString(id.GetModel)
		rt[pat.Get("/serial")] = generichttp.GetString(id.GetSerialNumber)
	}
	w.routeTable = rt
	return w
}

// RT satisfies server.HTTPer
func (h *HTTPCamera) RT() server.RouteTable {
	return h.routeTable
}

// SetExposureTime sets the exposure time on a POST request.
// it can be provided either as a query parameter exposureTime, formatted in a
// way that is parseable by golang/time.ParseDuration, or a json payload with
// key f64, holding the exposure time in seconds.
func (h *HTTPCamera) SetExposureTime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	texp := q.Get("exposureTime")
	var d time.Duration
	var err error
	if texp == "" {
		f := generichttp.FloatT{}
		err = json.NewDecoder(r.Body).Decode(&f)
		d = util.SecsToDuration(f.F64)
	} else {
		if util.AllElementsNumbers(texp) {
			texp = texp + "s"
		}
		d, err = time.ParseDuration(texp)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = h.PictureTaker.SetExposureTime(d)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetExposureTime gets the exposure time on a GET request
func (h *HTTPCamera) GetExposureTime(w http.ResponseWriter, r *http.Request) {
	f, err := h.PictureTaker.GetExposureTime()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	hp := generichttp.HumanPayload{T: types.Float64, Float: f.Seconds()}
	hp.EncodeAndRespond(w, r)
}

// GetFrame takes a picture and returns it on a GET request.
//
// the image format may be specified in a query parameter; default to jpg
//
// the exposure time may be specified as a query parameter in any time-looking
// format, such as "25ms" or "10us".  Strictly speaking, it must be a valid
// input to golang time.ParseDuration.  if no unit is appended, an s (seconds)
// is added.  if no exposure time is provided, it is not updated and the
// existing value is used.
func (h *HTTPCamera) GetFrame(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	texp := q.Get("exposureTime")
	if texp != "" {
		if util.AllElementsNumbers(texp) {
			texp = texp + "s"
		}
		T, err := time.ParseDuration(texp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = h.PictureTaker.SetExposureTime(T)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	img, err := h.PictureTaker.GetFrame()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	aoi, err := h.PictureTaker.GetAOI()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	format := q.Get("fmt")
	if format == "" {
		format = "jpg"
	}
	switch format {
	case "jpg":
		im := scale16to8(img, aoi.Width, aoi.Height)
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		jpeg.Encode(w, im, nil)
	case "png":
		im := scale16to8(img, aoi.Width, aoi.Height)
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		png.Encode(w, im)
	case "fits":
		// tee the download into the recorder when one is attached and armed
		var w2 io.Writer
		if h.Rec != nil && h.Rec.Enabled && h.Rec.Root != "" {
			w2 = io.MultiWriter(w, h.Rec)
			defer h.Rec.Incr()
		} else {
			w2 = w
		}
		cards := []fitsio.Card{}
		if carder, ok := h.PictureTaker.(MetadataMaker); ok {
			cards = carder.CollectHeaderMetadata()
		}

		hdr := w.Header()
		hdr.Set("Content-Type", "image/fits")
		hdr.Set("Content-Disposition", "attachment; filename=image.fits")
		err = writeFits(w2, cards, img, aoi.Width, aoi.Height, 1)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	default:
		http.Error(w, "unknown image format "+format, http.StatusBadRequest)
	}
}

// Burst takes a burst of N frames at M fps and returns it as a fits image cube
func (h *HTTPCamera) Burst(w http.ResponseWriter, r *http.Request) {
	t := struct {
		FPS    float64 `json:"fps"`
		Frames int     `json:"frames"`
	}{}
	err := json.NewDecoder(r.Body).Decode(&t)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	img, err := h.PictureTaker.Burst(t.Frames, t.FPS)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	aoi, err := h.PictureTaker.GetAOI()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cards := []fitsio.Card{}
	if carder, ok := h.PictureTaker.(MetadataMaker); ok {
		cards = carder.CollectHeaderMetadata()
	}
	cards = append(cards, fitsio.Card{Name: "fps", Value: t.FPS, Comment: "frame rate"})
	hdr := w.Header()
	hdr.Set("Content-Type", "image/fits")
	hdr.Set("Content-Disposition", "attachment; filename=image.fits")
	w.WriteHeader(http.StatusOK)
	err = writeFits(w, cards, img, aoi.Width, aoi.Height, t.Frames)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetAOI returns the current AOI as JSON
func (h *HTTPCamera) GetAOI(w http.ResponseWriter, r *http.Request) {
	aoi, err := h.PictureTaker.GetAOI()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(aoi)
}

// SetAOI sets the AOI from a JSON body
func (h *HTTPCamera) SetAOI(w http.ResponseWriter, r *http.Request) {
	aoi := cam.AOI{}
	err := json.NewDecoder(r.Body).Decode(&aoi)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = h.PictureTaker.SetAOI(aoi)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetBinning returns the current binning as JSON
func (h *HTTPCamera) GetBinning(w http.ResponseWriter, r *http.Request) {
	b, err := h.PictureTaker.GetBinning()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(b)
}

// SetBinning sets the binning from a JSON body
func (h *HTTPCamera) SetBinning(w http.ResponseWriter, r *http.Request) {
	b := cam.Binning{}
	err := json.NewDecoder(r.Body).Decode(&b)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = h.PictureTaker.SetBinning(b)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// scale16to8 squashes a 16-bit buffer to an 8-bit grayscale image for the
// lossy preview formats
func scale16to8(img []uint16, width, height int) *image.Gray {
	buf := make([]byte, len(img))
	for idx := 0; idx < len(img); idx++ {
		buf[idx] = byte(img[idx] / 256)
	}
	return &image.Gray{Pix: buf, Stride: width, Rect: image.Rect(0, 0, width, height)}
}
