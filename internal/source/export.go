package source

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jgoulah/meterdata/internal/usage"
	"github.com/jgoulah/meterdata/pkg/models"
)

// DefaultHeaderRows is the number of account metadata rows above the column header
const DefaultHeaderRows = 4

// Column names of a utility usage export
const (
	ColDate      = "Date"
	ColStartTime = "Start Time"
	ColType      = "Type"
	ColMeter     = "Meter"
	ColUsageUnit = "Usage Unit"
	ColUsage     = "Usage"
)

var requiredColumns = []string{ColDate, ColStartTime, ColType, ColMeter, ColUsageUnit, ColUsage}

// Options controls how an export is read
type Options struct {
	HeaderRows int // Metadata rows to skip before the column header
}

// ReadFile reads a utility usage export from disk
func ReadFile(path string, opts Options) ([]models.RawReading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening export: %w", err)
	}
	defer f.Close()

	return Read(f, opts)
}

// Read parses a utility usage export into raw readings
func Read(r io.Reader, opts Options) ([]models.RawReading, error) {
	// Metadata rows are counted as physical lines, blank ones included,
	// so they are skipped before the CSV reader drops empty lines.
	br := stripBOM(r)
	for i := 0; i < opts.HeaderRows; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: export ends inside the %d metadata rows", usage.ErrMalformedInput, opts.HeaderRows)
			}
			return nil, fmt.Errorf("reading metadata row %d: %w", i+1, err)
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing column header", usage.ErrMalformedInput)
		}
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	cols := make(map[string]int, len(requiredColumns))
	for i, col := range header {
		name := strings.TrimSpace(col)
		for _, want := range requiredColumns {
			if strings.EqualFold(name, want) {
				if _, seen := cols[want]; !seen {
					cols[want] = i
				}
			}
		}
	}
	for _, want := range requiredColumns {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("%w: missing column %q in header %v", usage.ErrMalformedInput, want, header)
		}
	}

	var readings []models.RawReading
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}

		if blank(record) {
			continue
		}

		field := func(name string) string {
			idx := cols[name]
			if idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		usageStr := field(ColUsage)
		value, err := parseUsage(usageStr)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d: usage %q: %v", usage.ErrMalformedInput, line+opts.HeaderRows, usageStr, err)
		}

		readings = append(readings, models.RawReading{
			Date:        field(ColDate),
			StartTime:   field(ColStartTime),
			Type:        field(ColType),
			MeterNumber: field(ColMeter),
			UsageUnit:   field(ColUsageUnit),
			Usage:       value,
		})
	}

	return readings, nil
}

// parseUsage parses a non-negative usage value, tolerating thousands separators
func parseUsage(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value")
	}
	return v, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func stripBOM(r io.Reader) *bufio.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		br.Discard(3)
	}
	return br
}
