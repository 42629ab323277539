/*Package counting implements the photon counting pipeline.

A Counter wraps a camera and converts frames to photons per pixel using an
EMVA 1288 calibration.  The first BaselineFrames frames establish the dark
baseline: the mean ADU of the centered ROI is accumulated and averaged, and
until that completes every frame reports zero photons.  Afterward each frame's
ROI mean has the dark level subtracted and is converted ADU -> electrons ->
photons.  A signal darker than the baseline reports zero photons; that is
correct behavior, not an error.

Results land in ring buffers sized HistoryLength and, when a Sink is attached,
are appended to it as they are produced.
*/
package counting

import (
	"context"
	"sync"
	"time"

	"github.com/brandondube/ringo"
	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ribeiro-lab/photond/camera"
	"github.com/ribeiro-lab/photond/emva"
	"github.com/ribeiro-lab/photond/frame"
	"github.com/ribeiro-lab/photond/imgrec"
	"github.com/ribeiro-lab/photond/mathx"
)

// Sample is one processed frame
type Sample struct {
	// Frame is the frame index within the session, counting from zero
	Frame int `json:"frame"`

	// Time is when the frame was processed
	Time time.Time `json:"time"`

	// MeanADU is the mean ROI level in ADU
	MeanADU float64 `json:"meanADU"`

	// Photons is the photon estimate per pixel per exposure
	Photons float64 `json:"photons"`

	// SNR is the signal to noise ratio of the estimate
	SNR float64 `json:"snr"`

	// Digest is the xxhash64 of the ROI pixels
	Digest uint64 `json:"digest"`
}

// Session describes one counting run
type Session struct {
	// ID uniquely identifies the session
	ID uuid.UUID

	// Started is when the session began
	Started time.Time

	// Exposure is the camera exposure time at session start
	Exposure time.Duration

	// ROIWidth and ROIHeight are the analysis window dimensions
	ROIWidth  int
	ROIHeight int

	// Cal is the calibration in effect
	Cal emva.Calibration
}

// Sink receives the products of a counting run, e.g. a SQLite archive
type Sink interface {
	// StartSession is called once when the run begins
	StartSession(Session) error

	// SetBaseline is called once when dark calibration completes
	SetBaseline(id uuid.UUID, darkADU, darkStdADU float64) error

	// Append is called for every calibrated sample
	Append(id uuid.UUID, s Sample) error
}

// Config holds the knobs of a Counter
type Config struct {
	// BaselineFrames is the number of frames averaged for the dark baseline
	BaselineFrames int

	// ROIWidth and ROIHeight are the centered analysis window dimensions
	ROIWidth  int
	ROIHeight int

	// HistoryLength is the ring buffer capacity
	HistoryLength int

	// MaxFPS caps the acquisition rate; <= 0 runs as fast as the camera can
	MaxFPS float64

	// Calibration converts ADU to photons
	Calibration emva.Calibration
}

func (c *Config) fillDefaults() {
	if c.BaselineFrames == 0 {
		c.BaselineFrames = 50
	}
	if c.ROIWidth == 0 {
		c.ROIWidth = 200
	}
	if c.ROIHeight == 0 {
		c.ROIHeight = 200
	}
	if c.HistoryLength == 0 {
		c.HistoryLength = 500
	}
	if c.Calibration == (emva.Calibration{}) {
		c.Calibration = emva.BFSU304S2M
	}
}

// Baseline is the dark calibration state machine
type Baseline struct {
	need    int
	vals    []float64
	dark    float64
	darkStd float64
	done    bool
}

// NewBaseline returns a baseline which completes after n observations
func NewBaseline(n int) *Baseline {
	return &Baseline{need: n, vals: make([]float64, 0, n)}
}

// Observe feeds one dark frame mean into the baseline.  It returns true on
// the observation that completes calibration.  Observations after completion
// are ignored.
func (b *Baseline) Observe(meanADU float64) bool {
	if b.done {
		return false
	}
	b.vals = append(b.vals, meanADU)
	if len(b.vals) >= b.need {
		b.dark = mathx.Mean(b.vals)
		b.darkStd = mathx.Std(b.vals)
		b.done = true
		return true
	}
	return false
}

// Done returns true once calibration is complete
func (b *Baseline) Done() bool { return b.done }

// Dark returns the mean dark level in ADU, zero before completion
func (b *Baseline) Dark() float64 { return b.dark }

// DarkStd returns the dark noise in ADU, zero before completion
func (b *Baseline) DarkStd() float64 { return b.darkStd }

// Progress returns the calibration progress as a fraction from 0 to 1
func (b *Baseline) Progress() float64 {
	if b.done {
		return 1
	}
	return float64(len(b.vals)) / float64(b.need)
}

// Reset starts calibration over
func (b *Baseline) Reset() {
	b.vals = b.vals[:0]
	b.dark = 0
	b.darkStd = 0
	b.done = false
}

// Counter owns the acquisition loop state.  It is safe for concurrent use;
// the HTTP routes read while the run loop writes.
type Counter struct {
	mu sync.Mutex

	cam      camera.PictureTaker
	cfg      Config
	baseline *Baseline

	frameIdx int
	session  Session

	photons ringo.CircleF64
	adu     ringo.CircleF64
	times   ringo.CircleTime
	frames  ringo.CircleF64

	sink Sink
	rec  *imgrec.Recorder
	log  *logrus.Entry
}

// Option mutates a Counter at construction
type Option func(*Counter)

// WithSink attaches an archive sink to the counter
func WithSink(s Sink) Option {
	return func(c *Counter) { c.sink = s }
}

// WithRecorder attaches a FITS recorder to the counter.  Calibrated ROI
// frames are written through it while its Enabled flag is set; baseline
// frames and failed acquisitions are not recorded.
func WithRecorder(r *imgrec.Recorder) Option {
	return func(c *Counter) { c.rec = r }
}

// WithLogger replaces the default logger
func WithLogger(l *logrus.Entry) Option {
	return func(c *Counter) { c.log = l }
}

// New returns a Counter ready to Run
func New(cam camera.PictureTaker, cfg Config, opts ...Option) (*Counter, error) {
	cfg.fillDefaults()
	if err := cfg.Calibration.Validate(); err != nil {
		return nil, errors.Wrap(err, "counting: bad calibration")
	}
	c := &Counter{
		cam:      cam,
		cfg:      cfg,
		baseline: NewBaseline(cfg.BaselineFrames),
		log:      logrus.WithField("subsystem", "counting"),
	}
	c.photons.Init(cfg.HistoryLength)
	c.adu.Init(cfg.HistoryLength)
	c.times.Init(cfg.HistoryLength)
	c.frames.Init(cfg.HistoryLength)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ProcessFrame acquires and processes a single frame.  During the baseline
// phase the returned sample holds zero photons and calibrated is false.
// Failed acquisitions burn a frame index and return an error, matching the
// behavior of skipping incomplete frames.
func (c *Counter) ProcessFrame() (s Sample, calibrated bool, err error) {
	buf, err := c.cam.GetFrame()
	if err != nil {
		c.mu.Lock()
		c.frameIdx++
		c.mu.Unlock()
		return Sample{}, false, errors.Wrap(err, "counting: frame acquisition failed")
	}
	aoi, err := c.cam.GetAOI()
	if err != nil {
		return Sample{}, false, errors.Wrap(err, "counting: AOI query failed")
	}
	full, err := frame.New(buf, aoi.Width, aoi.Height)
	if err != nil {
		return Sample{}, false, err
	}
	roi, err := full.CenteredROI(c.cfg.ROIWidth, c.cfg.ROIHeight)
	if err != nil {
		return Sample{}, false, err
	}
	meanADU := roi.Mean()
	digest := roi.Digest()

	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.frameIdx
	c.frameIdx++

	if !c.baseline.Done() {
		if c.baseline.Observe(meanADU) {
			c.log.WithFields(logrus.Fields{
				"darkADU":  c.baseline.Dark(),
				"darkStd":  c.baseline.DarkStd(),
				"darkStdE": c.baseline.DarkStd() * c.cfg.Calibration.Gain,
				"frames":   c.cfg.BaselineFrames,
			}).Info("baseline calibration complete")
			if c.sink != nil {
				if err := c.sink.SetBaseline(c.session.ID, c.baseline.Dark(), c.baseline.DarkStd()); err != nil {
					c.log.WithError(err).Warn("failed to archive baseline")
				}
			}
		}
		return Sample{Frame: idx, Time: time.Now(), MeanADU: meanADU, Digest: digest}, false, nil
	}

	cal := c.cfg.Calibration
	photons := cal.ADUToPhotons(meanADU, c.baseline.Dark())
	s = Sample{
		Frame:   idx,
		Time:    time.Now(),
		MeanADU: meanADU,
		Photons: photons,
		SNR:     cal.SNR(photons),
		Digest:  digest,
	}
	c.photons.Append(s.Photons)
	c.adu.Append(s.MeanADU)
	c.times.Append(s.Time)
	c.frames.Append(float64(s.Frame))

	if c.sink != nil {
		if err := c.sink.Append(c.session.ID, s); err != nil {
			c.log.WithError(err).Warn("failed to archive sample")
		}
	}
	if c.rec != nil && c.rec.Enabled && c.rec.Root != "" {
		if err := c.record(roi, s); err != nil {
			c.log.WithError(err).Warn("failed to record frame")
		}
	}
	if c.frameIdx%100 == 0 {
		c.log.WithFields(logrus.Fields{
			"frame":   s.Frame,
			"photons": s.Photons,
			"adu":     s.MeanADU,
			"dark":    c.baseline.Dark(),
			"delta":   s.MeanADU - c.baseline.Dark(),
		}).Debug("counting progress")
	}
	return s, true, nil
}

// Run drives the acquisition loop until the context is cancelled.  Frame
// failures back off exponentially and do not end the run; the backoff resets
// on the next good frame.
func (c *Counter) Run(ctx context.Context) error {
	texp, err := c.cam.GetExposureTime()
	if err != nil {
		return errors.Wrap(err, "counting: could not read exposure time")
	}
	sess := Session{
		ID:        uuid.New(),
		Started:   time.Now(),
		Exposure:  texp,
		ROIWidth:  c.cfg.ROIWidth,
		ROIHeight: c.cfg.ROIHeight,
		Cal:       c.cfg.Calibration,
	}
	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()
	if c.sink != nil {
		if err := c.sink.StartSession(sess); err != nil {
			return errors.Wrap(err, "counting: could not begin archive session")
		}
	}
	c.log.WithFields(logrus.Fields{
		"session":        sess.ID,
		"exposure":       texp,
		"baselineFrames": c.cfg.BaselineFrames,
	}).Info("acquiring frames for dark baseline calibration")

	var limiter *rate.Limiter
	if c.cfg.MaxFPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.cfg.MaxFPS), 1)
	}
	bo := &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      0, // retry for as long as the run lasts
		Clock:               backoff.SystemClock,
	}
	bo.Reset()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		_, _, err := c.ProcessFrame()
		if err != nil {
			wait := bo.NextBackOff()
			c.log.WithError(err).WithField("retryIn", wait).Warn("frame skipped")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		bo.Reset()
	}
}

// CurrentSession returns the active session descriptor
func (c *Counter) CurrentSession() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Calibrated returns true once the dark baseline is established
func (c *Counter) Calibrated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseline.Done()
}

// Progress returns the baseline calibration progress from 0 to 1
func (c *Counter) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseline.Progress()
}

// Dark returns the mean dark level in ADU
func (c *Counter) Dark() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseline.Dark()
}

// DarkStd returns the dark noise in ADU
func (c *Counter) DarkStd() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseline.DarkStd()
}

// ResetBaseline discards the dark calibration and starts over.  The history
// buffers are left alone; frame indices keep counting so archived samples
// keep unique keys within the session.
func (c *Counter) ResetBaseline() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseline.Reset()
	c.log.Info("baseline calibration reset")
}

// Calibration returns the calibration in effect
func (c *Counter) Calibration() emva.Calibration {
	return c.cfg.Calibration
}

// History is the ring buffer contents from least to most recent
type History struct {
	Times   []time.Time `json:"timestamp"`
	Frames  []float64   `json:"frame"`
	ADU     []float64   `json:"adu"`
	Photons []float64   `json:"photons"`
}

// History returns a copy of the ring buffers.  The copy is taken under the
// lock; an unfilled ring's Contiguous() aliases the live buffer and would
// otherwise mutate under the caller as the run loop appends.
func (c *Counter) History() History {
	c.mu.Lock()
	defer c.mu.Unlock()
	return History{
		Times:   append([]time.Time(nil), c.times.Contiguous()...),
		Frames:  append([]float64(nil), c.frames.Contiguous()...),
		ADU:     append([]float64(nil), c.adu.Contiguous()...),
		Photons: append([]float64(nil), c.photons.Contiguous()...),
	}
}

// Stats is a snapshot of the counting state
type Stats struct {
	// Calibrated is true once the dark baseline is established
	Calibrated bool `json:"calibrated"`

	// Progress is the baseline progress from 0 to 1
	Progress float64 `json:"progress"`

	// DarkADU is the mean dark level
	DarkADU float64 `json:"darkADU"`

	// DarkStdADU is the dark noise
	DarkStdADU float64 `json:"darkStdADU"`

	// Current is the most recent photon estimate
	Current float64 `json:"current"`

	// Mean is the mean photon estimate over the history buffer
	Mean float64 `json:"mean"`

	// SNR is the SNR of the most recent estimate
	SNR float64 `json:"snr"`

	// Frames is the number of frames processed, including skips
	Frames int `json:"frames"`
}

// Stats returns a snapshot of the counting state
func (c *Counter) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.photons.Tail()
	return Stats{
		Calibrated: c.baseline.Done(),
		Progress:   c.baseline.Progress(),
		DarkADU:    c.baseline.Dark(),
		DarkStdADU: c.baseline.DarkStd(),
		Current:    current,
		Mean:       mathx.Mean(c.photons.Contiguous()),
		SNR:        c.cfg.Calibration.SNR(current),
		Frames:     c.frameIdx,
	}
}
