package reference

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jgoulah/meterdata/internal/usage"
)

// Tables holds the meter-to-building and building-to-occupancy mappings.
// It is read-only once loaded.
type Tables struct {
	meters    map[string]string
	occupancy map[string]int
}

// New builds tables from already loaded mappings. The maps are copied.
func New(meters map[string]string, occupancy map[string]int) *Tables {
	t := &Tables{
		meters:    make(map[string]string, len(meters)),
		occupancy: make(map[string]int, len(occupancy)),
	}
	for k, v := range meters {
		t.meters[strings.TrimSpace(k)] = v
	}
	for k, v := range occupancy {
		t.occupancy[k] = v
	}
	return t
}

// Load reads both reference files concurrently
func Load(ctx context.Context, metersPath, occupancyPath string) (*Tables, error) {
	var meters map[string]string
	var occupancy map[string]int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		f, err := os.Open(metersPath)
		if err != nil {
			return fmt.Errorf("opening meters file: %w", err)
		}
		defer f.Close()

		meters, err = LoadMeters(f)
		if err != nil {
			return fmt.Errorf("loading %s: %w", metersPath, err)
		}
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		f, err := os.Open(occupancyPath)
		if err != nil {
			return fmt.Errorf("opening occupancy file: %w", err)
		}
		defer f.Close()

		occupancy, err = LoadOccupancy(f)
		if err != nil {
			return fmt.Errorf("loading %s: %w", occupancyPath, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Tables{meters: meters, occupancy: occupancy}, nil
}

// LoadMeters parses a CSV with meterNum and building columns
func LoadMeters(r io.Reader) (map[string]string, error) {
	rows, err := readTable(r, "meterNum", "building")
	if err != nil {
		return nil, err
	}

	meters := make(map[string]string, len(rows))
	for i, row := range rows {
		meter, building := row[0], row[1]
		if meter == "" || building == "" {
			return nil, fmt.Errorf("%w: row %d has an empty meterNum or building", usage.ErrMalformedInput, i+2)
		}
		if _, dup := meters[meter]; dup {
			return nil, fmt.Errorf("%w: duplicate meterNum %q", usage.ErrMalformedInput, meter)
		}
		meters[meter] = building
	}
	return meters, nil
}

// LoadOccupancy parses a CSV with building and occupancy columns
func LoadOccupancy(r io.Reader) (map[string]int, error) {
	rows, err := readTable(r, "building", "occupancy")
	if err != nil {
		return nil, err
	}

	occupancy := make(map[string]int, len(rows))
	for i, row := range rows {
		building := row[0]
		if building == "" {
			return nil, fmt.Errorf("%w: row %d has an empty building", usage.ErrMalformedInput, i+2)
		}
		if _, dup := occupancy[building]; dup {
			return nil, fmt.Errorf("%w: duplicate building %q", usage.ErrMalformedInput, building)
		}
		n, err := parseCount(row[1])
		if err != nil {
			return nil, fmt.Errorf("%w: occupancy for %q: %v", usage.ErrMalformedInput, building, err)
		}
		occupancy[building] = n
	}
	return occupancy, nil
}

// Building returns the building a meter belongs to
func (t *Tables) Building(meterNumber string) (string, bool) {
	b, ok := t.meters[strings.TrimSpace(meterNumber)]
	return b, ok
}

// Occupancy returns the occupancy of a building
func (t *Tables) Occupancy(building string) (int, bool) {
	o, ok := t.occupancy[building]
	return o, ok
}

// Buildings returns every building that has an occupancy entry, sorted
func (t *Tables) Buildings() []string {
	names := make([]string, 0, len(t.occupancy))
	for b := range t.occupancy {
		names = append(names, b)
	}
	sort.Strings(names)
	return names
}

// MeterCount returns the number of mapped meters
func (t *Tables) MeterCount() int {
	return len(t.meters)
}

// readTable returns the trimmed values of the wanted columns for each data row
func readTable(r io.Reader, columns ...string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty table", usage.ErrMalformedInput)
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make([]int, len(columns))
	for i, col := range columns {
		index[i] = -1
		for j, h := range header {
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), col) {
				index[i] = j
				break
			}
		}
		if index[i] == -1 {
			return nil, fmt.Errorf("%w: missing column %q in header %v", usage.ErrMalformedInput, col, header)
		}
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		row := make([]string, len(columns))
		for i, idx := range index {
			if idx < len(record) {
				row[i] = strings.TrimSpace(record[idx])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseCount accepts integers and integral floats such as "120.0"
func parseCount(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not a whole number: %q", s)
	}
	return int(f), nil
}
