/*Package camera describes a standard set of interfaces for control of cameras

The Minimal type contains the basics, while the extended interfaces describe
features typically found on scientific cameras.  Concrete implementations
live in the driver packages (spinnaker) and in sim for a hardware-free stand-in.
*/
package camera

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AOI describes an area of interest on the camera
type AOI struct {
	// Left is the left pixel index.  1-based
	Left int `json:"left"`

	// Top is the top pixel index.  1-based
	Top int `json:"top"`

	// Width is the width in pixels
	Width int `json:"width"`

	// Height is the height in pixels
	Height int `json:"height"`
}

// Binning encapsulates information about pixel addition on camera
type Binning struct {
	// H is the horizontal binning factor
	H int `json:"h"`

	// V is the vertical binning factor
	V int `json:"v"`
}

// FormatBinning converts a binning to the string format used by vendor SDKs,
// e.g. Binning{2,2} => "2x2"
func FormatBinning(b Binning) string {
	return fmt.Sprintf("%dx%d", b.H, b.V)
}

// ParseBinning converts a vendor SDK binning string to a Binning,
// e.g. "2x2" => Binning{2,2}.  Malformed strings produce the zero value.
func ParseBinning(sdkValue string) Binning {
	b := Binning{}
	chunks := strings.Split(sdkValue, "x")
	if len(chunks) != 2 {
		return b
	}
	b.H, _ = strconv.Atoi(chunks[0])
	b.V, _ = strconv.Atoi(chunks[1])
	return b
}

// Minimal describes a minimal camera interface with only the basics.
type Minimal interface {
	// Initialize initializes the camera.  This may have myriad side effects,
	// for example the initialization of a camera driver in C, the allocation
	// of buffer(s) for holding camera frames, and the setting of hardware
	// parameters like exposure auto modes.
	Initialize() error

	// Finalize finalizes the camera, which will typically call a similar
	// function on the camera driver.  It must be safe to call more than once.
	Finalize() error

	// GetRes gets the (H, W) associated with the data returned by GetFrame
	GetRes() ([2]int, error)

	// GetFrame triggers capture of a frame and returns the strided image
	// data as 16-bit integers.  The data is a 1D slice strided by the
	// frame width.
	GetFrame() ([]uint16, error)
}

// PictureTaker describes an interface to a camera which can capture images
// with configurable exposure and geometry
type PictureTaker interface {
	Minimal

	// Burst takes N frames at a certain framerate and returns the contiguous
	// strided buffer for the 3D array
	Burst(int, float64) ([]uint16, error)

	// SetExposureTime sets the exposure time
	SetExposureTime(time.Duration) error

	// GetExposureTime gets the exposure time
	GetExposureTime() (time.Duration, error)

	// SetAOI allows the AOI to be set
	SetAOI(AOI) error

	// GetAOI retrieves the current AOI
	GetAOI() (AOI, error)

	// SetBinning sets the binning option of the camera
	SetBinning(Binning) error

	// GetBinning returns the binning option of the camera
	GetBinning() (Binning, error)
}

// ThermalManager describes an interface to a camera which can manage its
// thermal performance
type ThermalManager interface {
	// GetCooling queries if focal plane cooling is currently active
	GetCooling() (bool, error)

	// SetCooling turns focal plane cooling on or off
	SetCooling(bool) error

	// GetTemperature gets the current focal plane temperature in Celsius
	GetTemperature() (float64, error)

	// GetFan queries if the fan is on or off
	GetFan() (bool, error)

	// SetFan turns the fan on or off
	SetFan(bool) error
}

// TemperatureSensor describes a camera which can report its sensor
// temperature but not necessarily manage it
type TemperatureSensor interface {
	// GetTemperature gets the current focal plane temperature in Celsius
	GetTemperature() (float64, error)
}

// Identifier describes a camera which can report its hardware identity
type Identifier interface {
	// GetModel returns the device model name
	GetModel() (string, error)

	// GetSerialNumber returns the device serial number
	GetSerialNumber() (string, error)
}
