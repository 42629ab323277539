package spinnaker

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCameras is generated when the camera list is empty,
	// i.e. no camera is plugged in or the GenTL producer is missing
	ErrNoCameras = errors.New("no cameras detected, check connection and SPINNAKER_GENTL64_CTI")

	// ErrNotAcquiring is generated when a frame is requested before
	// BeginAcquisition
	ErrNotAcquiring = errors.New("camera is not acquiring, call Initialize first")

	// ErrCodes is a map of error codes (ints) to error strings
	ErrCodes = map[DRVError]string{
		0:     "SPINNAKER_ERR_SUCCESS",
		-1001: "SPINNAKER_ERR_ERROR",
		-1002: "SPINNAKER_ERR_NOT_INITIALIZED",
		-1003: "SPINNAKER_ERR_NOT_IMPLEMENTED",
		-1004: "SPINNAKER_ERR_RESOURCE_IN_USE",
		-1005: "SPINNAKER_ERR_ACCESS_DENIED",
		-1006: "SPINNAKER_ERR_INVALID_HANDLE",
		-1007: "SPINNAKER_ERR_INVALID_ID",
		-1008: "SPINNAKER_ERR_NO_DATA",
		-1009: "SPINNAKER_ERR_INVALID_PARAMETER",
		-1010: "SPINNAKER_ERR_IO",
		-1011: "SPINNAKER_ERR_TIMEOUT",
		-1012: "SPINNAKER_ERR_ABORT",
		-1013: "SPINNAKER_ERR_INVALID_BUFFER",
		-1014: "SPINNAKER_ERR_NOT_AVAILABLE",
		-1015: "SPINNAKER_ERR_INVALID_ADDRESS",
		-1016: "SPINNAKER_ERR_BUFFER_TOO_SMALL",
		-1017: "SPINNAKER_ERR_INVALID_INDEX",
		-1018: "SPINNAKER_ERR_PARSING_CHUNK_DATA",
		-1019: "SPINNAKER_ERR_INVALID_VALUE",
		-1020: "SPINNAKER_ERR_RESOURCE_EXHAUSTED",
		-1021: "SPINNAKER_ERR_OUT_OF_MEMORY",
		-1022: "SPINNAKER_ERR_BUSY",

		-2001: "GENICAM_ERR_INVALID_ARGUMENT",
		-2002: "GENICAM_ERR_OUT_OF_RANGE",
		-2003: "GENICAM_ERR_PROPERTY",
		-2004: "GENICAM_ERR_RUN_TIME",
		-2005: "GENICAM_ERR_LOGICAL",
		-2006: "GENICAM_ERR_ACCESS",
		-2007: "GENICAM_ERR_TIMEOUT",
		-2008: "GENICAM_ERR_DYNAMIC_CAST",
		-2009: "GENICAM_ERR_GENERIC",
		-2010: "GENICAM_ERR_BAD_ALLOCATION",

		-3001: "SPINNAKER_ERR_IM_CONVERT",
		-3002: "SPINNAKER_ERR_IM_COPY",
		-3003: "SPINNAKER_ERR_IM_MALLOC",
		-3004: "SPINNAKER_ERR_IM_NOT_SUPPORTED",
		-3005: "SPINNAKER_ERR_IM_HISTOGRAM_RANGE",
		-3006: "SPINNAKER_ERR_IM_HISTOGRAM_MEAN",
		-3007: "SPINNAKER_ERR_IM_MIN_MAX",
		-3008: "SPINNAKER_ERR_IM_COLOR_CONVERSION",
	}
)

// DRVError represents a driver error and has nice formatting
type DRVError int

// Error satisfies the error interface
func (e DRVError) Error() string {
	if s, ok := ErrCodes[e]; ok {
		return fmt.Sprintf("%d - %s", int(e), s)
	}
	return fmt.Sprintf("%d - UNKNOWN_ERROR_CODE", int(e))
}

// Error returns nil if the error code is success, otherwise returns
// an object which prints the error code and string value
func Error(code int) error {
	if code == 0 {
		return nil
	}
	return DRVError(code)
}

// enrich wraps an SDK error with the name of the call that produced it
func enrich(err error, call string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", call, err)
}
