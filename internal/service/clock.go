package service

import (
	"time"
	_ "time/tzdata"
)

// PragueLocation is the timezone of the CNB publication schedule.
var PragueLocation = mustLoadLocation("Europe/Prague")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("load location " + name + ": " + err.Error())
	}
	return loc
}

type pragueClock struct{}

func NewPragueClock() Clock { return pragueClock{} }

func (pragueClock) Now() time.Time { return time.Now().In(PragueLocation) }

// FixedClock always reports the same instant.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }
