package sst

import (
	"fmt"
	"math"
	"time"
)

// MetricKind selects which value of the point service payload is extracted.
type MetricKind int

const (
	MetricTemperature MetricKind = iota
	MetricAnomaly
)

// DataType returns the selector sent to the point service for this metric.
func (m MetricKind) DataType() string {
	switch m {
	case MetricTemperature:
		return "mean"
	case MetricAnomaly:
		return "anomaly"
	default:
		return "unknown"
	}
}

func (m MetricKind) String() string {
	switch m {
	case MetricTemperature:
		return "temperature"
	case MetricAnomaly:
		return "anomaly"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// ParseDataType maps a wire selector ("mean" or "anomaly") back to a MetricKind.
func ParseDataType(s string) (MetricKind, error) {
	switch s {
	case "mean":
		return MetricTemperature, nil
	case "anomaly":
		return MetricAnomaly, nil
	default:
		return 0, fmt.Errorf("unknown data type %q", s)
	}
}

// AbsentReason classifies why no value could be obtained for a sample.
type AbsentReason int

const (
	ReasonNone AbsentReason = iota
	ReasonTransportFailure
	ReasonApplicationFailure
	ReasonDataAbsent
)

func (r AbsentReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonTransportFailure:
		return "transport_failure"
	case ReasonApplicationFailure:
		return "application_failure"
	case ReasonDataAbsent:
		return "data_absent"
	default:
		return "unknown"
	}
}

// Observation is the outcome of fetching one (date, metric) sample.
// An absent observation is never a zero measurement.
type Observation struct {
	Value   float64
	Present bool
	Reason  AbsentReason
	Err     error
}

// Present wraps a measured value.
func Present(v float64) Observation {
	return Observation{Value: v, Present: true}
}

// Absent records a missing sample together with its cause.
func Absent(reason AbsentReason, err error) Observation {
	return Observation{Reason: reason, Err: err}
}

// Float returns the value and whether it is present.
func (o Observation) Float() (float64, bool) {
	return o.Value, o.Present
}

// Location is a geographic point in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Label renders the location for chart titles, e.g. "38.13°N, 4.13°E".
func (l Location) Label() string {
	ns, ew := "N", "E"
	if l.Lat < 0 {
		ns = "S"
	}
	if l.Lon < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%g°%s, %g°%s", math.Abs(l.Lat), ns, math.Abs(l.Lon), ew)
}

// TimeSeries holds index-aligned samples: position i of Temperatures and
// Anomalies belongs to Dates[i].
type TimeSeries struct {
	Dates        []time.Time
	Temperatures []Observation
	Anomalies    []Observation
}

// Len returns the number of samples on the date axis.
func (ts TimeSeries) Len() int {
	return len(ts.Dates)
}

// Aligned reports whether all three sequences have the same length.
func (ts TimeSeries) Aligned() bool {
	return len(ts.Dates) == len(ts.Temperatures) && len(ts.Dates) == len(ts.Anomalies)
}

// PresentCount returns how many observations of the given metric carry a value.
func (ts TimeSeries) PresentCount(metric MetricKind) int {
	n := 0
	for _, o := range ts.Observations(metric) {
		if o.Present {
			n++
		}
	}
	return n
}

// Observations returns the sequence for the given metric.
func (ts TimeSeries) Observations(metric MetricKind) []Observation {
	if metric == MetricAnomaly {
		return ts.Anomalies
	}
	return ts.Temperatures
}
