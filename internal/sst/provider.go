package sst

import (
	"context"
	"time"
)

// PointSource abstracts the SST point data service.
//
// FetchPoint never returns an error: every failure is folded into an absent
// Observation whose Reason and Err describe what went wrong.
type PointSource interface {
	Name() string
	FetchPoint(ctx context.Context, loc Location, metric MetricKind, date time.Time) Observation
}
