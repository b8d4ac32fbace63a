package usage

import (
	"fmt"
	"sort"

	"github.com/jgoulah/meterdata/pkg/models"
)

type group struct {
	record models.AggregatedRecord
	usages []float64
}

// Aggregate merges annotated datasets into one record per (building, hour, type).
// Usage is summed within a group and never across reading types. Unit and
// occupancy are taken from the first record seen; a group whose records
// disagree on unit is rejected with ErrInconsistentUnit.
func Aggregate(datasets [][]models.AnnotatedRecord) ([]models.AggregatedRecord, error) {
	groups := make(map[models.AggregateKey]*group)

	for _, dataset := range datasets {
		for _, r := range dataset {
			key := r.Key()

			g, ok := groups[key]
			if !ok {
				groups[key] = &group{
					record: models.AggregatedRecord{
						Building:  r.Building,
						Timestamp: r.Timestamp,
						Type:      r.Type,
						UsageUnit: r.UsageUnit,
						Occupancy: r.Occupancy,
					},
					usages: []float64{r.Usage},
				}
				continue
			}

			if g.record.UsageUnit != r.UsageUnit {
				return nil, fmt.Errorf("%w: %s %s %s has %q and %q", ErrInconsistentUnit,
					r.Building, r.Timestamp.Format("2006-01-02 15:04"), r.Type, g.record.UsageUnit, r.UsageUnit)
			}
			g.usages = append(g.usages, r.Usage)
		}
	}

	results := make([]models.AggregatedRecord, 0, len(groups))
	for _, g := range groups {
		g.record.Usage = sumOrdered(g.usages)
		results = append(results, g.record)
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Building != b.Building {
			return a.Building < b.Building
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Type < b.Type
	})

	return results, nil
}
