// Package clock provides an injectable time source so TOTP windows and
// pending-setup TTLs can be driven by a fake clock in tests.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System is a Clock backed by time.Now.
type System struct{}

func (System) Now() time.Time { return time.Now() }
