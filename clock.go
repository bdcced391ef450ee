package server

import "time"

// Clock is the hub's time source. Timer-driven behavior reads the clock
// through this interface so tests can simulate day rollovers and token
// expiry without waiting on the wall clock.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
