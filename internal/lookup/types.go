package lookup

import (
	"time"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Metrics records the outcome of each lookup round trip.
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}
)

type nopMetrics struct{}

func (nopMetrics) Observe(string, error, time.Time) {}
