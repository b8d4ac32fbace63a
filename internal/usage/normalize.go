package usage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jgoulah/meterdata/pkg/models"
)

// DefaultTimestampLayouts are tried in order when combining a row's Date and Start Time.
var DefaultTimestampLayouts = buildLayouts(
	[]string{"2006-01-02", "1/2/2006", "01/02/2006", "1/2/06"},
	[]string{"15:04", "15:04:05", "3:04 PM", "3:04:05 PM", "3:04PM"},
)

func buildLayouts(dates, times []string) []string {
	layouts := make([]string, 0, len(dates)*len(times))
	for _, d := range dates {
		for _, t := range times {
			layouts = append(layouts, d+" "+t)
		}
	}
	return layouts
}

// Normalizer resamples a meter export to hourly usage
type Normalizer struct {
	loc     *time.Location
	layouts []string
}

// NewNormalizer creates a normalizer that interprets export times in loc.
// A nil loc means UTC and empty layouts means DefaultTimestampLayouts.
func NewNormalizer(loc *time.Location, layouts []string) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	if len(layouts) == 0 {
		layouts = DefaultTimestampLayouts
	}
	return &Normalizer{loc: loc, layouts: layouts}
}

// Normalize sums the readings of one meter into hour buckets.
// Hours without readings produce no record.
func (n *Normalizer) Normalize(readings []models.RawReading) ([]models.HourlyRecord, error) {
	if len(readings) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrMalformedInput)
	}

	first := readings[0]
	readingType, err := models.ParseReadingType(first.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	buckets := make(map[int64][]float64)
	for i, r := range readings {
		if r.Type != first.Type || r.MeterNumber != first.MeterNumber || r.UsageUnit != first.UsageUnit {
			return nil, fmt.Errorf("%w: row %d has type/meter/unit %q/%q/%q, expected %q/%q/%q",
				ErrMalformedInput, i+1, r.Type, r.MeterNumber, r.UsageUnit, first.Type, first.MeterNumber, first.UsageUnit)
		}

		ts, err := n.parseTimestamp(r.Date, r.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %q %q", ErrMalformedTimestamp, i+1, r.Date, r.StartTime)
		}

		hour := HourStart(ts).Unix()
		buckets[hour] = append(buckets[hour], r.Usage)
	}

	hours := make([]int64, 0, len(buckets))
	for h := range buckets {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i] < hours[j] })

	records := make([]models.HourlyRecord, 0, len(hours))
	for _, h := range hours {
		records = append(records, models.HourlyRecord{
			Timestamp: time.Unix(h, 0).In(n.loc),
			Type:      readingType,
			UsageUnit: first.UsageUnit,
			Usage:     sumOrdered(buckets[h]),
		})
	}

	return records, nil
}

func (n *Normalizer) parseTimestamp(date, startTime string) (time.Time, error) {
	s := strings.Join(strings.Fields(date+" "+startTime), " ")
	for _, layout := range n.layouts {
		if wall, err := time.Parse(layout, s); err == nil {
			return inLocation(wall, n.loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", s)
}

// inLocation places the wall clock reading of wall (parsed as UTC) in loc.
// A wall time skipped by a forward DST shift is moved forward by the size
// of the gap, so 02:15 on a 02:00 to 03:00 spring-forward day becomes 03:15.
// A repeated wall time in a fall-back hour resolves to its first occurrence.
func inLocation(wall time.Time, loc *time.Location) time.Time {
	t := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(),
		wall.Second(), wall.Nanosecond(), loc)
	if t.Hour() == wall.Hour() && t.Minute() == wall.Minute() {
		return t
	}
	// In a gap time.Date answers with the pre-transition offset still in
	// effect, so reapplying that offset lands after the transition.
	_, offset := t.Zone()
	return wall.Add(-time.Duration(offset) * time.Second).In(loc)
}

// HourStart floors t to the start of its wall-clock hour. In the repeated
// hour of a fall-back day both occurrences floor to the first.
func HourStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}
