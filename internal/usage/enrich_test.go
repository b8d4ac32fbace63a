package usage

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/meterdata/pkg/models"
)

type mapDirectory struct {
	meters    map[string]string
	occupancy map[string]int
}

func (d mapDirectory) Building(meter string) (string, bool) {
	b, ok := d.meters[meter]
	return b, ok
}

func (d mapDirectory) Occupancy(building string) (int, bool) {
	o, ok := d.occupancy[building]
	return o, ok
}

func testDirectory() mapDirectory {
	return mapDirectory{
		meters: map[string]string{
			"1001": "Library",
			"2001": "Library",
			"3001": "Annex",
		},
		occupancy: map[string]int{
			"Library": 250,
		},
	}
}

func TestEnrich_StampsEveryRecord(t *testing.T) {
	e := NewEnricher(testDirectory())
	hour := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)

	records := []models.HourlyRecord{
		{Timestamp: hour, Type: models.Electric, UsageUnit: "kWh", Usage: 6},
		{Timestamp: hour.Add(time.Hour), Type: models.Electric, UsageUnit: "kWh", Usage: 4},
	}

	annotated, err := e.Enrich(records, "1001")
	require.NoError(t, err)
	require.Len(t, annotated, 2)

	for i, a := range annotated {
		assert.Equal(t, "Library", a.Building)
		assert.Equal(t, 250, a.Occupancy)
		assert.Equal(t, records[i], a.HourlyRecord)
	}
}

func TestEnrich_UnknownMeter(t *testing.T) {
	e := NewEnricher(testDirectory())

	annotated, err := e.Enrich([]models.HourlyRecord{{Usage: 1}}, "9999")
	require.Error(t, err)
	assert.Nil(t, annotated)
	assert.ErrorIs(t, err, ErrUnknownMeter)

	var lookupErr *LookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, "9999", lookupErr.Key)
	assert.Contains(t, err.Error(), "9999")
}

func TestEnrich_UnknownBuilding(t *testing.T) {
	e := NewEnricher(testDirectory())

	_, err := e.Enrich([]models.HourlyRecord{{Usage: 1}}, "3001")
	assert.ErrorIs(t, err, ErrUnknownBuilding)
	assert.NotErrorIs(t, err, ErrUnknownMeter)
	assert.Contains(t, err.Error(), "Annex")
}

func TestEnrich_EmptySeriesStillResolves(t *testing.T) {
	e := NewEnricher(testDirectory())

	_, err := e.Enrich(nil, "9999")
	assert.ErrorIs(t, err, ErrUnknownMeter)

	annotated, err := e.Enrich(nil, "1001")
	require.NoError(t, err)
	assert.Empty(t, annotated)
}
