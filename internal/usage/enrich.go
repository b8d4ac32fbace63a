package usage

import (
	"github.com/jgoulah/meterdata/pkg/models"
)

// Directory resolves meters to buildings and buildings to occupancy
type Directory interface {
	Building(meterNumber string) (string, bool)
	Occupancy(building string) (int, bool)
}

// Enricher stamps hourly records with building metadata
type Enricher struct {
	dir Directory
}

// NewEnricher creates an enricher backed by dir
func NewEnricher(dir Directory) *Enricher {
	return &Enricher{dir: dir}
}

// Resolve looks up the building and occupancy for a meter
func (e *Enricher) Resolve(meterNumber string) (string, int, error) {
	building, ok := e.dir.Building(meterNumber)
	if !ok {
		return "", 0, &LookupError{Err: ErrUnknownMeter, Key: meterNumber}
	}
	occupancy, ok := e.dir.Occupancy(building)
	if !ok {
		return "", 0, &LookupError{Err: ErrUnknownBuilding, Key: building}
	}
	return building, occupancy, nil
}

// Enrich attaches the meter's building and occupancy to every record.
// The lookup happens once, before any record is touched.
func (e *Enricher) Enrich(records []models.HourlyRecord, meterNumber string) ([]models.AnnotatedRecord, error) {
	building, occupancy, err := e.Resolve(meterNumber)
	if err != nil {
		return nil, err
	}

	annotated := make([]models.AnnotatedRecord, len(records))
	for i, r := range records {
		annotated[i] = models.AnnotatedRecord{
			HourlyRecord: r,
			Building:     building,
			Occupancy:    occupancy,
		}
	}
	return annotated, nil
}
