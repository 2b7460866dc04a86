// Package clock abstracts the trusted time source. Cooldown and lifecycle
// timestamps always come from an injected Clock, never from a client-supplied
// value and never from a bare time.Now() call inside business logic, so the
// regeneration rule is both tamper-resistant and testable.
package clock

import "time"

// Clock supplies the current server time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns the server's own UTC clock. The server process is the time
// authority for its clients; device clocks are never consulted.
func System() Clock { return systemClock{} }
