// Package hwerr holds the failure taxonomy shared by the bus transport, the
// device drivers and the monitor loop.
package hwerr

import (
	"errors"

	"github.com/afroash/airquality-monitor/internal/models"
)

var (
	// ErrBus reports a transaction the bus did not complete.
	ErrBus = errors.New("bus error")
	// ErrIdentityMismatch reports a device answering with the wrong chip id.
	ErrIdentityMismatch = errors.New("identity mismatch")
	// ErrCalibrationInvalid reports coefficients or a read-back that cannot be trusted.
	ErrCalibrationInvalid = errors.New("calibration invalid")
	// ErrNotResponding reports a device that never signalled ready.
	ErrNotResponding = errors.New("not responding")
)

// Status maps an error to the device status reported to collaborators.
// A nil error is Ready; anything unclassified counts as NotResponding.
func Status(err error) models.DeviceStatus {
	switch {
	case err == nil:
		return models.StatusReady
	case errors.Is(err, ErrIdentityMismatch):
		return models.StatusIdentityMismatch
	case errors.Is(err, ErrCalibrationInvalid):
		return models.StatusCalibrationInvalid
	default:
		return models.StatusNotResponding
	}
}
