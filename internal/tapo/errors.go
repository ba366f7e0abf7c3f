package tapo

import (
	"fmt"

	"codeberg.org/helvik/tapowatt/internal/errors"
)

const (
	// Connection and session errors
	ErrConnectFailed   = errors.ErrorCode("tapo_connect_failed")
	ErrHandshakeFailed = errors.ErrorCode("tapo_handshake_failed")
	ErrLoginFailed     = errors.ErrorCode("tapo_login_failed")

	// Request errors
	ErrRequestFailed = errors.ErrorCode("tapo_request_failed")
	ErrDecodeFailed  = errors.ErrorCode("tapo_decode_failed")

	// Operation errors
	ErrPollFailed     = errors.ErrorCode("tapo_poll_failed")
	ErrDeviceRejected = errors.ErrorCode("tapo_device_rejected")
)

// deviceErrorMessages maps the device's numeric error codes to diagnostics.
// The codes are part of the vendor protocol and are not documented; these
// are the ones observed in the wild.
var deviceErrorMessages = map[int]string{
	-1002:  "incorrect request",
	-1003:  "malformed request payload",
	-1008:  "invalid request parameters",
	-1010:  "invalid public key length",
	-1012:  "invalid terminal UUID",
	-1501:  "invalid credentials",
	-1301:  "rate limited by device",
	-20601: "account not bound to device",
	9999:   "session expired",
}

// DeviceError is a non-zero error_code in a device response envelope.
type DeviceError struct {
	Code int
}

func (e *DeviceError) Error() string {
	if msg, ok := deviceErrorMessages[e.Code]; ok {
		return fmt.Sprintf("device error %d: %s", e.Code, msg)
	}

	return fmt.Sprintf("device error %d", e.Code)
}

// newDeviceError returns nil for a zero (success) code
func newDeviceError(code int) error {
	if code == 0 {
		return nil
	}

	return &DeviceError{Code: code}
}
