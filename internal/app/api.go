package app

import (
	"context"
	"errors"
	"time"
)

// StateVector - one aircraft state observed by the OpenSky Network API.
// Position, velocity and altitude may be absent in the upstream payload and
// are kept nullable so the store can persist them as NULL.
type StateVector struct {
	ICAO24        string   `json:"icao24"`
	CallSign      string   `json:"callSign"`
	OriginCountry string   `json:"originCountry"`
	TimePosition  *int64   `json:"timePosition"`
	Longitude     *float64 `json:"longitude"`
	Latitude      *float64 `json:"latitude"`
	Velocity      *float64 `json:"velocity"`
	Altitude      *float64 `json:"altitude"`
}

// Trajectory - one validated trajectory row, summarising the first and last
// valid snapshot of an aircraft.
type Trajectory struct {
	AircraftID      int64    `json:"aircraftID"`
	ICAO24          string   `json:"icao24"`
	StartTime       int64    `json:"startTime"`
	EndTime         int64    `json:"endTime"`
	DurationSeconds int64    `json:"durationSeconds"`
	DurationHours   *float64 `json:"durationHours"`
	StartLat        float64  `json:"startLat"`
	StartLon        float64  `json:"startLon"`
	EndLat          float64  `json:"endLat"`
	EndLon          float64  `json:"endLon"`
	SnapshotCount   int64    `json:"snapshotCount"`
	DistanceKm      *float64 `json:"distanceKm"`
}

// Failure taxonomy. Every pipeline error wraps one of these sentinels so
// callers can classify with errors.Is.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrAuthentication = errors.New("authentication error")
	ErrFetch          = errors.New("fetch error")
	ErrPersistence    = errors.New("persistence error")
	ErrValidation     = errors.New("validation error")
)

// RawSink - optional mirror for the raw state batch of one ingestion run.
// Sink failures are reported to the caller but must not abort ingestion.
type RawSink interface {
	Init(ctx context.Context, params interface{}) error
	Sink(ctx context.Context, t time.Time, states []StateVector) error
}
