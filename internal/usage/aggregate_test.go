package usage

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/meterdata/pkg/models"
)

func annotated(building string, ts time.Time, typ models.ReadingType, unit string, usage float64, occupancy int) models.AnnotatedRecord {
	return models.AnnotatedRecord{
		HourlyRecord: models.HourlyRecord{Timestamp: ts, Type: typ, UsageUnit: unit, Usage: usage},
		Building:     building,
		Occupancy:    occupancy,
	}
}

func TestAggregate_NeverSumsAcrossTypes(t *testing.T) {
	hour := time.Date(2024, 10, 1, 14, 0, 0, 0, time.UTC)

	results, err := Aggregate([][]models.AnnotatedRecord{
		{annotated("Library", hour, models.Electric, "kWh", 10.0, 250)},
		{annotated("Library", hour, models.Gas, "therms", 3.0, 250)},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, models.Electric, results[0].Type)
	assert.Equal(t, 10.0, results[0].Usage)
	assert.Equal(t, "kWh", results[0].UsageUnit)
	assert.Equal(t, models.Gas, results[1].Type)
	assert.Equal(t, 3.0, results[1].Usage)
	assert.Equal(t, "therms", results[1].UsageUnit)
	for _, r := range results {
		assert.NotEqual(t, 13.0, r.Usage)
	}
}

func TestAggregate_OverlappingFilesAreSummed(t *testing.T) {
	hour := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)

	first := []models.AnnotatedRecord{
		annotated("Library", hour, models.Electric, "kWh", 6.0, 250),
		annotated("Library", hour.Add(time.Hour), models.Electric, "kWh", 2.0, 250),
	}
	second := []models.AnnotatedRecord{
		annotated("Library", hour.Add(time.Hour), models.Electric, "kWh", 3.5, 250),
		annotated("Library", hour.Add(2*time.Hour), models.Electric, "kWh", 1.0, 250),
	}

	results, err := Aggregate([][]models.AnnotatedRecord{first, second})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 6.0, results[0].Usage)
	assert.Equal(t, 5.5, results[1].Usage)
	assert.Equal(t, 1.0, results[2].Usage)
}

func TestAggregate_SortedByBuildingTimeType(t *testing.T) {
	h1 := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	h2 := h1.Add(time.Hour)

	results, err := Aggregate([][]models.AnnotatedRecord{{
		annotated("Library", h2, models.Gas, "therms", 1, 250),
		annotated("Annex", h2, models.Electric, "kWh", 1, 40),
		annotated("Library", h1, models.Gas, "therms", 1, 250),
		annotated("Library", h1, models.Electric, "kWh", 1, 250),
	}})
	require.NoError(t, err)

	keys := make([]models.AggregateKey, len(results))
	for i, r := range results {
		keys[i] = r.Key()
	}
	assert.Equal(t, []models.AggregateKey{
		{Building: "Annex", Timestamp: h2, Type: models.Electric},
		{Building: "Library", Timestamp: h1, Type: models.Electric},
		{Building: "Library", Timestamp: h1, Type: models.Gas},
		{Building: "Library", Timestamp: h2, Type: models.Gas},
	}, keys)
}

func TestAggregate_FirstOccupancyWins(t *testing.T) {
	hour := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)

	results, err := Aggregate([][]models.AnnotatedRecord{
		{annotated("Library", hour, models.Electric, "kWh", 1, 250)},
		{annotated("Library", hour, models.Electric, "kWh", 1, 999)},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 250, results[0].Occupancy)
}

func TestAggregate_InconsistentUnit(t *testing.T) {
	hour := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)

	results, err := Aggregate([][]models.AnnotatedRecord{
		{annotated("Library", hour, models.Electric, "kWh", 1, 250)},
		{annotated("Library", hour, models.Electric, "Wh", 1000, 250)},
	})
	assert.ErrorIs(t, err, ErrInconsistentUnit)
	assert.Contains(t, err.Error(), "Library")
	assert.Nil(t, results)
}

func TestAggregate_ReorderingGivesSameResult(t *testing.T) {
	base := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	var records []models.AnnotatedRecord
	for i := 0; i < 48; i++ {
		hour := base.Add(time.Duration(i%6) * time.Hour)
		building := []string{"Library", "Annex"}[i%2]
		typ := []models.ReadingType{models.Electric, models.Gas}[i%3%2]
		unit := map[models.ReadingType]string{models.Electric: "kWh", models.Gas: "therms"}[typ]
		records = append(records, annotated(building, hour, typ, unit, float64(i%7+1)/10, 10))
	}

	want, err := Aggregate([][]models.AnnotatedRecord{records})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 5; trial++ {
		shuffled := append([]models.AnnotatedRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got, err := Aggregate([][]models.AnnotatedRecord{shuffled[:20], shuffled[20:]})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestAggregate_SumDoesNotDependOnOrder(t *testing.T) {
	hour := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	a := annotated("Library", hour, models.Electric, "kWh", 0.1, 250)
	b := annotated("Library", hour, models.Electric, "kWh", 0.2, 250)
	c := annotated("Library", hour, models.Electric, "kWh", 0.3, 250)

	abc, err := Aggregate([][]models.AnnotatedRecord{{a, b, c}})
	require.NoError(t, err)
	cba, err := Aggregate([][]models.AnnotatedRecord{{c}, {b}, {a}})
	require.NoError(t, err)

	require.Len(t, abc, 1)
	assert.Equal(t, abc, cba)
	assert.InDelta(t, 0.6, abc[0].Usage, 1e-9)
}

func TestAggregate_SameInstantInDifferentZonesIsOneGroup(t *testing.T) {
	utc := time.Date(2024, 10, 1, 14, 0, 0, 0, time.UTC)
	est := utc.In(time.FixedZone("EST", -5*3600))

	results, err := Aggregate([][]models.AnnotatedRecord{
		{annotated("Library", est, models.Electric, "kWh", 1, 250)},
		{annotated("Library", utc, models.Electric, "kWh", 2, 250)},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, 3.0, results[0].Usage)
	assert.Equal(t, est, results[0].Timestamp)
	assert.Equal(t, models.NewAggregateKey("Library", utc, models.Electric), results[0].Key())
}

func TestAggregate_SingleFileRoundTrip(t *testing.T) {
	n := NewNormalizer(time.UTC, nil)
	e := NewEnricher(testDirectory())

	hourly, err := n.Normalize([]models.RawReading{
		electric("2024-10-01", "09:00", 1.0),
		electric("2024-10-01", "09:15", 1.5),
		electric("2024-10-01", "11:30", 2.25),
		electric("2024-10-02", "00:00", 0.75),
	})
	require.NoError(t, err)

	enriched, err := e.Enrich(hourly, "1001")
	require.NoError(t, err)

	results, err := Aggregate([][]models.AnnotatedRecord{enriched})
	require.NoError(t, err)
	require.Len(t, results, len(hourly))

	for i, r := range results {
		assert.True(t, hourly[i].Timestamp.Equal(r.Timestamp))
		assert.Equal(t, hourly[i].Usage, r.Usage)
		assert.Equal(t, hourly[i].UsageUnit, r.UsageUnit)
		assert.Equal(t, "Library", r.Building)
	}
}

func TestAggregate_Empty(t *testing.T) {
	results, err := Aggregate(nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
