/*Package sim contains a simulated camera for tests and hardware-free bringup.

The simulator plays the same role the mock device types do for the motion and
laser servers: it satisfies the camera interfaces with plausible numbers so the
full pipeline can run on a laptop with no FLIR hardware or vendor SDK present.

The pixel model is a constant dark level plus Gaussian read noise plus an
optional signal level which scales linearly with exposure time.  The RNG is
seeded, so a simulator constructed with the same parameters replays the same
frames.
*/
package sim

import (
	"math/rand"
	"sync"
	"time"

	"github.com/ribeiro-lab/photond/camera"
	"github.com/ribeiro-lab/photond/util"
)

// Config describes the simulated sensor and scene
type Config struct {
	// Width is the sensor width in pixels
	Width int

	// Height is the sensor height in pixels
	Height int

	// DarkADU is the dark level in ADU
	DarkADU float64

	// NoiseADU is the 1-sigma read noise in ADU
	NoiseADU float64

	// SignalADU is the mean signal above dark, in ADU, at RefExposure
	SignalADU float64

	// RefExposure is the exposure time SignalADU is quoted at
	RefExposure time.Duration

	// Seed seeds the RNG
	Seed int64
}

// Camera is a simulated camera.  It is safe for concurrent use.
type Camera struct {
	sync.Mutex

	cfg     Config
	rng     *rand.Rand
	texp    time.Duration
	aoi     camera.AOI
	binning camera.Binning
	cooling bool
	fan     bool
	init    bool
}

// New returns a simulated camera.  Zero-valued dimensions default to the
// BFS-U3-04S2M sensor format (720x540).
func New(cfg Config) *Camera {
	if cfg.Width == 0 {
		cfg.Width = 720
	}
	if cfg.Height == 0 {
		cfg.Height = 540
	}
	if cfg.RefExposure == 0 {
		cfg.RefExposure = 5 * time.Millisecond
	}
	return &Camera{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		texp:    cfg.RefExposure,
		aoi:     camera.AOI{Left: 1, Top: 1, Width: cfg.Width, Height: cfg.Height},
		binning: camera.Binning{H: 1, V: 1},
	}
}

// Initialize initializes the camera
func (c *Camera) Initialize() error {
	c.Lock()
	defer c.Unlock()
	c.init = true
	return nil
}

// Finalize finalizes the camera
func (c *Camera) Finalize() error {
	c.Lock()
	defer c.Unlock()
	c.init = false
	return nil
}

// GetRes gets the (H, W) of the frames produced at the current AOI
func (c *Camera) GetRes() ([2]int, error) {
	c.Lock()
	defer c.Unlock()
	return [2]int{c.aoi.Height, c.aoi.Width}, nil
}

// GetFrame synthesizes one frame at the current AOI and exposure
func (c *Camera) GetFrame() ([]uint16, error) {
	c.Lock()
	defer c.Unlock()
	return c.synth(), nil
}

func (c *Camera) synth() []uint16 {
	scale := float64(c.texp) / float64(c.cfg.RefExposure)
	mean := c.cfg.DarkADU + c.cfg.SignalADU*scale
	buf := make([]uint16, c.aoi.Width*c.aoi.Height)
	for i := range buf {
		v := mean + c.rng.NormFloat64()*c.cfg.NoiseADU
		buf[i] = uint16(util.Clamp(v, 0, 65535))
	}
	return buf
}

// Burst takes n frames back to back; fps is accepted for interface
// compatibility and not simulated
func (c *Camera) Burst(n int, fps float64) ([]uint16, error) {
	c.Lock()
	defer c.Unlock()
	out := make([]uint16, 0, n*c.aoi.Width*c.aoi.Height)
	for i := 0; i < n; i++ {
		out = append(out, c.synth()...)
	}
	return out, nil
}

// SetExposureTime sets the exposure time
func (c *Camera) SetExposureTime(d time.Duration) error {
	c.Lock()
	defer c.Unlock()
	c.texp = d
	return nil
}

// GetExposureTime gets the exposure time
func (c *Camera) GetExposureTime() (time.Duration, error) {
	c.Lock()
	defer c.Unlock()
	return c.texp, nil
}

// SetAOI sets the area of interest
func (c *Camera) SetAOI(aoi camera.AOI) error {
	c.Lock()
	defer c.Unlock()
	c.aoi = aoi
	return nil
}

// GetAOI gets the area of interest
func (c *Camera) GetAOI() (camera.AOI, error) {
	c.Lock()
	defer c.Unlock()
	return c.aoi, nil
}

// SetBinning sets the binning factor
func (c *Camera) SetBinning(b camera.Binning) error {
	c.Lock()
	defer c.Unlock()
	c.binning = b
	return nil
}

// GetBinning gets the binning factor
func (c *Camera) GetBinning() (camera.Binning, error) {
	c.Lock()
	defer c.Unlock()
	return c.binning, nil
}

// GetCooling queries if sensor cooling is active
func (c *Camera) GetCooling() (bool, error) {
	c.Lock()
	defer c.Unlock()
	return c.cooling, nil
}

// SetCooling turns sensor cooling on or off
func (c *Camera) SetCooling(b bool) error {
	c.Lock()
	defer c.Unlock()
	c.cooling = b
	return nil
}

// GetTemperature returns a plausible focal plane temperature
func (c *Camera) GetTemperature() (float64, error) {
	c.Lock()
	defer c.Unlock()
	if c.cooling {
		return 5.0, nil
	}
	return 35.0, nil
}

// GetFan queries if the fan is on
func (c *Camera) GetFan() (bool, error) {
	c.Lock()
	defer c.Unlock()
	return c.fan, nil
}

// SetFan turns the fan on or off
func (c *Camera) SetFan(b bool) error {
	c.Lock()
	defer c.Unlock()
	c.fan = b
	return nil
}

// GetModel returns the simulated model name
func (c *Camera) GetModel() (string, error) {
	return "SIM-BFS-U3-04S2M", nil
}

// GetSerialNumber returns the simulated serial number
func (c *Camera) GetSerialNumber() (string, error) {
	return "00000000", nil
}

var (
	_ camera.PictureTaker   = &Camera{}
	_ camera.ThermalManager = &Camera{}
	_ camera.Identifier     = &Camera{}
)
