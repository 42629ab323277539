// this file contains the node map accessors shared by the camera methods.
// GenICam nodes are looked up by name and their values read or written based
// on the type declared in the Features map.

package spinnaker

/*
#cgo CFLAGS: -I/usr/include/spinnaker_c
#cgo LDFLAGS: -lSpinnaker_C
#include <stdlib.h>
#include <SpinnakerC.h>
*/
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/astrogo/fitsio"
)

// ErrFeatureNotFound is generated when a feature is looked up in the Features
// map but does not exist there
type ErrFeatureNotFound struct {
	// Feature is the specific feature not found
	Feature string
}

// Error satisfies the error interface
func (e ErrFeatureNotFound) Error() string {
	return fmt.Sprintf("feature %s not found in Features map, see spinnaker#Features for known features", e.Feature)
}

func (c *Camera) node(nodemap C.spinNodeMapHandle, feature string) (C.spinNodeHandle, error) {
	if _, ok := Features[feature]; !ok {
		return nil, ErrFeatureNotFound{feature}
	}
	cstr := C.CString(feature)
	defer C.free(unsafe.Pointer(cstr))
	var hNode C.spinNodeHandle
	err := enrich(Error(int(C.spinNodeMapGetNode(nodemap, cstr, &hNode))), "spinNodeMapGetNode")
	return hNode, err
}

// GetInt reads an integer node
func (c *Camera) GetInt(feature string) (int, error) {
	n, err := c.node(c.nodemap, feature)
	if err != nil {
		return 0, err
	}
	var v C.int64_t
	err = enrich(Error(int(C.spinIntegerGetValue(n, &v))), "spinIntegerGetValue")
	return int(v), err
}

// SetInt writes an integer node
func (c *Camera) SetInt(feature string, value int) error {
	n, err := c.node(c.nodemap, feature)
	if err != nil {
		return err
	}
	return enrich(Error(int(C.spinIntegerSetValue(n, C.int64_t(value)))), "spinIntegerSetValue")
}

// GetFloat reads a float node
func (c *Camera) GetFloat(feature string) (float64, error) {
	n, err := c.node(c.nodemap, feature)
	if err != nil {
		return 0, err
	}
	var v C.double
	err = enrich(Error(int(C.spinFloatGetValue(n, &v))), "spinFloatGetValue")
	return float64(v), err
}

// SetFloat writes a float node
func (c *Camera) SetFloat(feature string, value float64) error {
	n, err := c.node(c.nodemap, feature)
	if err != nil {
		return err
	}
	return enrich(Error(int(C.spinFloatSetValue(n, C.double(value)))), "spinFloatSetValue")
}

// GetBool reads a boolean node
func (c *Camera) GetBool(feature string) (bool, error) {
	n, err := c.node(c.nodemap, feature)
	if err != nil {
		return false, err
	}
	var v C.bool8_t
	err = enrich(Error(int(C.spinBooleanGetValue(n, &v))), "spinBooleanGetValue")
	return v != 0, err
}

// SetBool writes a boolean node
func (c *Camera) SetBool(feature string, value bool) error {
	n, err := c.node(c.nodemap, feature)
	if err != nil {
		return err
	}
	var v C.bool8_t
	if value {
		v = 1
	}
	return enrich(Error(int(C.spinBooleanSetValue(n, v))), "spinBooleanSetValue")
}

// SetEnum writes an enumeration node by entry name, e.g.
// SetEnum("ExposureAuto", "Off")
func (c *Camera) SetEnum(feature, entry string) error {
	n, err := c.node(c.nodemap, feature)
	if err != nil {
		return err
	}
	cstr := C.CString(entry)
	defer C.free(unsafe.Pointer(cstr))
	var hEntry C.spinNodeHandle
	err = enrich(Error(int(C.spinEnumerationGetEntryByName(n, cstr, &hEntry))), "spinEnumerationGetEntryByName")
	if err != nil {
		return err
	}
	var v C.int64_t
	err = enrich(Error(int(C.spinEnumerationEntryGetIntValue(hEntry, &v))), "spinEnumerationEntryGetIntValue")
	if err != nil {
		return err
	}
	return enrich(Error(int(C.spinEnumerationSetIntValue(n, v))), "spinEnumerationSetIntValue")
}

// getTLString reads a string node from the transport layer device nodemap
func (c *Camera) getTLString(feature string) (string, error) {
	n, err := c.node(c.tlmap, feature)
	if err != nil {
		return "", err
	}
	buf := make([]byte, MaxStringLength)
	sz := C.size_t(len(buf))
	err = enrich(Error(int(C.spinStringGetValue(n, (*C.char)(unsafe.Pointer(&buf[0])), &sz))), "spinStringGetValue")
	if err != nil {
		return "", err
	}
	if sz > 0 {
		sz-- // drop the NUL
	}
	return string(buf[:sz]), nil
}

// CollectHeaderMetadata produces the FITS cards written with every frame
func (c *Camera) CollectHeaderMetadata() []fitsio.Card {
	cards := []fitsio.Card{
		{Name: "HDRVER", Value: fmt.Sprintf("spinnaker-%d", WRAPVER), Comment: "wrapper header version"},
	}
	if model, err := c.GetModel(); err == nil {
		cards = append(cards, fitsio.Card{Name: "CAMMODEL", Value: model, Comment: "camera model"})
	}
	if serial, err := c.GetSerialNumber(); err == nil {
		cards = append(cards, fitsio.Card{Name: "CAMSN", Value: serial, Comment: "camera serial number"})
	}
	if texp, err := c.GetExposureTime(); err == nil {
		cards = append(cards, fitsio.Card{Name: "EXPTIME", Value: texp.Seconds(), Comment: "exposure time, seconds"})
	}
	if temp, err := c.GetTemperature(); err == nil {
		cards = append(cards, fitsio.Card{Name: "CCDTEMP", Value: temp, Comment: "device temperature, Celsius"})
	}
	return cards
}
