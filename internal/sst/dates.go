package sst

import "time"

// DateLayout is the ISO date format used on the wire.
const DateLayout = "2006-01-02"

// MonthlyDates returns the first day of every month from January of startYear
// through December of endYear, in order. It returns an empty slice when
// startYear > endYear; callers validate the range.
func MonthlyDates(startYear, endYear int) []time.Time {
	if startYear > endYear {
		return []time.Time{}
	}

	dates := make([]time.Time, 0, 12*(endYear-startYear+1))
	year, month := startYear, time.January
	for year <= endYear {
		dates = append(dates, time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
		if month == time.December {
			year, month = year+1, time.January
		} else {
			month++
		}
	}
	return dates
}
