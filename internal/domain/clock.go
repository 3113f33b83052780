package domain

import "time"

// Clock supplies the current time. Services read "now" only through an
// injected Clock so window and expiry logic stays testable.
type Clock func() time.Time

// SystemClock reads the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }
