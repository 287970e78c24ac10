package httpapi

import (
	"math"
	"time"

	"github.com/i474232898/sst-timeseries-graph/internal/sst"
)

// Dataset answers point lookups for the mock service.
type Dataset interface {
	Point(loc sst.Location, metric sst.MetricKind, date time.Time) (float64, bool)
}

// SeasonalDataset is a deterministic synthetic SST climatology: a latitude
// dependent mean, an annual cycle peaking in late summer of each hemisphere,
// and a linear warming trend that also drives the anomaly.
type SeasonalDataset struct {
	// CoverageStart is the first date with data; earlier dates have none.
	CoverageStart time.Time
	// TrendPerYear is the warming rate in °C per year.
	TrendPerYear float64
	// BaselineYear is the centre of the climatology period.
	BaselineYear int
}

// NewSeasonalDataset returns a dataset covering the satellite era.
func NewSeasonalDataset() *SeasonalDataset {
	return &SeasonalDataset{
		CoverageStart: time.Date(1981, time.September, 1, 0, 0, 0, 0, time.UTC),
		TrendPerYear:  0.02,
		BaselineYear:  1991,
	}
}

func (d *SeasonalDataset) Point(loc sst.Location, metric sst.MetricKind, date time.Time) (float64, bool) {
	if date.Before(d.CoverageStart) {
		return 0, false
	}

	years := float64(date.Year()-d.BaselineYear) + float64(date.YearDay()-1)/365.0
	anomaly := d.TrendPerYear*years + 0.15*math.Sin(2*math.Pi*years/3.7)
	if metric == sst.MetricAnomaly {
		return round2(anomaly), true
	}

	// Sea water freezes near -1.8°C.
	mean := math.Max(28-0.3*math.Abs(loc.Lat), -1.8)
	peak := 8.0
	if loc.Lat < 0 {
		peak = 2.0
	}
	amplitude := 0.1 * math.Min(math.Abs(loc.Lat), 50)
	month := float64(date.Month())
	seasonal := amplitude * math.Cos(2*math.Pi*(month-peak)/12)

	return round2(mean + seasonal + anomaly), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
