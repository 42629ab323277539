/*Package spinnaker exposes control of FLIR cameras in Go via the Spinnaker
SDK's C interface.

The GenTL producer used for discovery is configured outside this package,
via the SPINNAKER_GENTL64_CTI environment variable the vendor tooling also
honors.

Resource teardown ordering matters to the SDK: the image must be released
before the camera, the camera before the camera list, and the list before the
system, or the driver returns -1004 (RESOURCE_IN_USE) on the next open.
Camera.Finalize performs the full sequence and is safe to call repeatedly.
*/
package spinnaker

/*
#cgo CFLAGS: -I/usr/include/spinnaker_c
#cgo LDFLAGS: -lSpinnaker_C
#include <stdlib.h>
#include <SpinnakerC.h>
*/
import "C"
import (
	"time"
	"unsafe"

	"github.com/ribeiro-lab/photond/camera"
)

const (
	// MaxStringLength is how large a buffer to allocate for node string
	// values when we have no way of knowing ahead of time how big they are
	MaxStringLength = 256

	// WRAPVER is the wrapper code version.
	// Increment this when pkg spinnaker is updated.
	WRAPVER = 1
)

// Features maps node names to "types" without using the types pkg, due to C enums
var Features = map[string]string{
	// ints
	"Width":                     "int",
	"Height":                    "int",
	"OffsetX":                   "int",
	"OffsetY":                   "int",
	"SensorWidth":               "int",
	"SensorHeight":              "int",
	"BinningHorizontal":         "int",
	"BinningVertical":           "int",
	"DeviceLinkThroughputLimit": "int",

	// floats
	"ExposureTime":         "float",
	"AcquisitionFrameRate": "float",
	"DeviceTemperature":    "float",
	"Gain":                 "float",
	"BlackLevel":           "float",

	// bools
	"AcquisitionFrameRateEnable": "bool",
	"ReverseX":                   "bool",
	"ReverseY":                   "bool",

	// enums
	"AcquisitionMode": "enum",
	"ExposureAuto":    "enum",
	"GainAuto":        "enum",
	"PixelFormat":     "enum",
	"TriggerMode":     "enum",

	// strings (TL device nodemap)
	"DeviceModelName":    "string",
	"DeviceSerialNumber": "string",
	"DeviceVendorName":   "string",
}

// Camera represents a camera from the Spinnaker SDK
type Camera struct {
	sys     C.spinSystem
	list    C.spinCameraList
	cam     C.spinCamera
	nodemap C.spinNodeMapHandle
	tlmap   C.spinNodeMapHandle

	// acquiring tracks whether BeginAcquisition has been issued
	acquiring bool

	// exposureTime is the currently programmed exposure time
	exposureTime time.Duration

	// aoi is a cached copy of the programmed AOI
	aoi camera.AOI

	// binning is a cached copy of the programmed binning
	binning camera.Binning

	// model and serial hold the device identity strings
	model  string
	serial string
}

// Open opens a connection to the camera at the given index on the camera list
func Open(camIdx int) (*Camera, error) {
	c := &Camera{}
	err := enrich(Error(int(C.spinSystemGetInstance(&c.sys))), "spinSystemGetInstance")
	if err != nil {
		return nil, err
	}
	err = enrich(Error(int(C.spinCameraListCreateEmpty(&c.list))), "spinCameraListCreateEmpty")
	if err != nil {
		return nil, err
	}
	err = enrich(Error(int(C.spinSystemGetCameras(c.sys, c.list))), "spinSystemGetCameras")
	if err != nil {
		return nil, err
	}
	var size C.size_t
	err = enrich(Error(int(C.spinCameraListGetSize(c.list, &size))), "spinCameraListGetSize")
	if err != nil {
		return nil, err
	}
	if int(size) == 0 {
		c.releaseSystem()
		return nil, ErrNoCameras
	}
	err = enrich(Error(int(C.spinCameraListGet(c.list, C.size_t(camIdx), &c.cam))), "spinCameraListGet")
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Initialize initializes the camera, forces exposure and gain auto modes off,
// sets continuous acquisition, and begins acquiring.  Frames are read with
// GetFrame.
func (c *Camera) Initialize() error {
	err := enrich(Error(int(C.spinCameraInit(c.cam))), "spinCameraInit")
	if err != nil {
		return err
	}
	err = enrich(Error(int(C.spinCameraGetNodeMap(c.cam, &c.nodemap))), "spinCameraGetNodeMap")
	if err != nil {
		return err
	}
	err = enrich(Error(int(C.spinCameraGetTLDeviceNodeMap(c.cam, &c.tlmap))), "spinCameraGetTLDeviceNodeMap")
	if err != nil {
		return err
	}
	// manual exposure; the photon calibration is meaningless if the camera
	// floats the exposure underneath us
	err = c.SetEnum("ExposureAuto", "Off")
	if err != nil {
		return err
	}
	err = c.SetEnum("GainAuto", "Off")
	if err != nil {
		return err
	}
	err = c.SetEnum("AcquisitionMode", "Continuous")
	if err != nil {
		return err
	}
	err = enrich(Error(int(C.spinCameraBeginAcquisition(c.cam))), "spinCameraBeginAcquisition")
	if err != nil {
		return err
	}
	c.acquiring = true
	return nil
}

// Finalize tears down the camera connection.  Order matters, see the package
// docstring.  Safe to call more than once.
func (c *Camera) Finalize() error {
	var firstErr error
	if c.acquiring {
		if err := Error(int(C.spinCameraEndAcquisition(c.cam))); err != nil && firstErr == nil {
			firstErr = enrich(err, "spinCameraEndAcquisition")
		}
		c.acquiring = false
	}
	if c.cam != nil {
		if err := Error(int(C.spinCameraDeInit(c.cam))); err != nil && firstErr == nil {
			firstErr = enrich(err, "spinCameraDeInit")
		}
		if err := Error(int(C.spinCameraRelease(c.cam))); err != nil && firstErr == nil {
			firstErr = enrich(err, "spinCameraRelease")
		}
		c.cam = nil
	}
	c.releaseSystem()
	return firstErr
}

func (c *Camera) releaseSystem() {
	if c.list != nil {
		C.spinCameraListClear(c.list)
		C.spinCameraListDestroy(c.list)
		c.list = nil
	}
	if c.sys != nil {
		C.spinSystemReleaseInstance(c.sys)
		c.sys = nil
	}
}

// GetRes gets the (H, W) of frames at the current AOI
func (c *Camera) GetRes() ([2]int, error) {
	aoi, err := c.GetAOI()
	if err != nil {
		return [2]int{}, err
	}
	return [2]int{aoi.Height, aoi.Width}, nil
}

// GetFrame reads the next frame from the camera as a strided slice of uint16.
// Incomplete images are released and reported as an error; the caller decides
// whether to retry.
func (c *Camera) GetFrame() ([]uint16, error) {
	if !c.acquiring {
		return nil, ErrNotAcquiring
	}
	expT, err := c.GetExposureTime()
	if err != nil {
		return nil, err
	}
	timeout := expT + 1*time.Second

	var img C.spinImage
	err = enrich(Error(int(C.spinCameraGetNextImageEx(c.cam, C.uint64_t(timeout.Milliseconds()), &img))), "spinCameraGetNextImageEx")
	if err != nil {
		return nil, err
	}
	// the image must be released on every path from here down or the
	// buffer pool starves
	defer C.spinImageRelease(img)

	var incomplete C.bool8_t
	err = enrich(Error(int(C.spinImageIsIncomplete(img, &incomplete))), "spinImageIsIncomplete")
	if err != nil {
		return nil, err
	}
	if incomplete != 0 {
		var status C.spinImageStatus
		C.spinImageGetStatus(img, &status)
		return nil, DRVError(int(status))
	}

	var (
		width  C.size_t
		height C.size_t
		stride C.size_t
		ptr    unsafe.Pointer
		sz     C.size_t
	)
	if err = enrich(Error(int(C.spinImageGetWidth(img, &width))), "spinImageGetWidth"); err != nil {
		return nil, err
	}
	if err = enrich(Error(int(C.spinImageGetHeight(img, &height))), "spinImageGetHeight"); err != nil {
		return nil, err
	}
	if err = enrich(Error(int(C.spinImageGetStride(img, &stride))), "spinImageGetStride"); err != nil {
		return nil, err
	}
	if err = enrich(Error(int(C.spinImageGetData(img, &ptr))), "spinImageGetData"); err != nil {
		return nil, err
	}
	if err = enrich(Error(int(C.spinImageGetBufferSize(img, &sz))), "spinImageGetBufferSize"); err != nil {
		return nil, err
	}

	// copy out of the SDK buffer before release; unpad rows if the stride
	// exceeds 2*width
	raw := C.GoBytes(ptr, C.int(sz))
	w, h, str := int(width), int(height), int(stride)
	buf, err := UnpadBuffer(raw, str, w, h)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, w*h)
	for i := range out {
		out[i] = uint16(buf[2*i]) | uint16(buf[2*i+1])<<8
	}
	return out, nil
}

// Burst takes n frames at the given framerate and returns the contiguous
// strided buffer for the 3D array.  The framerate is programmed with
// AcquisitionFrameRate; fps <= 0 leaves the camera free-running.
func (c *Camera) Burst(n int, fps float64) ([]uint16, error) {
	if fps > 0 {
		if err := c.SetBool("AcquisitionFrameRateEnable", true); err != nil {
			return nil, err
		}
		if err := c.SetFloat("AcquisitionFrameRate", fps); err != nil {
			return nil, err
		}
		defer c.SetBool("AcquisitionFrameRateEnable", false)
	}
	var out []uint16
	for i := 0; i < n; i++ {
		frame, err := c.GetFrame()
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = make([]uint16, 0, n*len(frame))
		}
		out = append(out, frame...)
	}
	return out, nil
}

// GetExposureTime gets the current exposure time as a duration
func (c *Camera) GetExposureTime() (time.Duration, error) {
	if c.exposureTime == 0 { // zero value, uninitialized
		us, err := c.GetFloat("ExposureTime")
		if err != nil {
			return 0, err
		}
		c.exposureTime = time.Duration(us * 1e3) // us => ns
	}
	return c.exposureTime, nil
}

// SetExposureTime sets the exposure time as a duration
func (c *Camera) SetExposureTime(d time.Duration) error {
	err := c.SetFloat("ExposureTime", float64(d.Nanoseconds())/1e3) // ns => us
	if err == nil {
		c.exposureTime = d
	}
	return err
}

// GetAOI retrieves the current AOI
func (c *Camera) GetAOI() (camera.AOI, error) {
	w, err := c.GetInt("Width")
	if err != nil {
		return camera.AOI{}, err
	}
	h, err := c.GetInt("Height")
	if err != nil {
		return camera.AOI{}, err
	}
	l, err := c.GetInt("OffsetX")
	if err != nil {
		return camera.AOI{}, err
	}
	t, err := c.GetInt("OffsetY")
	if err != nil {
		return camera.AOI{}, err
	}
	c.aoi = camera.AOI{Left: l + 1, Top: t + 1, Width: w, Height: h}
	return c.aoi, nil
}

// SetAOI programs the AOI.  Offsets in the GenICam model are zero based while
// AOI is one based, the conversion happens here.
func (c *Camera) SetAOI(aoi camera.AOI) error {
	steps := []struct {
		feature string
		value   int
	}{
		{"OffsetX", 0}, // zero the offsets first so the new window always fits
		{"OffsetY", 0},
		{"Width", aoi.Width},
		{"Height", aoi.Height},
		{"OffsetX", aoi.Left - 1},
		{"OffsetY", aoi.Top - 1},
	}
	for _, s := range steps {
		if err := c.SetInt(s.feature, s.value); err != nil {
			return err
		}
	}
	c.aoi = aoi
	return nil
}

// GetBinning returns the binning option of the camera
func (c *Camera) GetBinning() (camera.Binning, error) {
	h, err := c.GetInt("BinningHorizontal")
	if err != nil {
		return camera.Binning{}, err
	}
	v, err := c.GetInt("BinningVertical")
	if err != nil {
		return camera.Binning{}, err
	}
	c.binning = camera.Binning{H: h, V: v}
	return c.binning, nil
}

// SetBinning sets the binning option of the camera
func (c *Camera) SetBinning(b camera.Binning) error {
	err := c.SetInt("BinningHorizontal", b.H)
	if err != nil {
		return err
	}
	err = c.SetInt("BinningVertical", b.V)
	if err == nil {
		c.binning = b
	}
	return err
}

// GetTemperature gets the current device temperature in Celsius
func (c *Camera) GetTemperature() (float64, error) {
	return c.GetFloat("DeviceTemperature")
}

// GetModel returns the device model name
func (c *Camera) GetModel() (string, error) {
	if c.model == "" {
		s, err := c.getTLString("DeviceModelName")
		if err != nil {
			return "", err
		}
		c.model = s
	}
	return c.model, nil
}

// GetSerialNumber returns the device serial number
func (c *Camera) GetSerialNumber() (string, error) {
	if c.serial == "" {
		s, err := c.getTLString("DeviceSerialNumber")
		if err != nil {
			return "", err
		}
		c.serial = s
	}
	return c.serial, nil
}

// UnpadBuffer strips row padding from a strided buffer, returning a packed
// buffer of 2*width*height bytes
func UnpadBuffer(buf []byte, stride, width, height int) ([]byte, error) {
	rowLen := 2 * width
	if stride == rowLen {
		return buf, nil
	}
	if stride < rowLen {
		return nil, DRVError(-1013) // INVALID_BUFFER
	}
	out := make([]byte, 0, rowLen*height)
	for y := 0; y < height; y++ {
		out = append(out, buf[y*stride:y*stride+rowLen]...)
	}
	return out, nil
}

var (
	_ camera.PictureTaker      = &Camera{}
	_ camera.Identifier        = &Camera{}
	_ camera.TemperatureSensor = &Camera{}
)
