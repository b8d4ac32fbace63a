package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jgoulah/meterdata/pkg/models"
)

// TimestampLayout is how hour timestamps appear in the output
const TimestampLayout = "2006-01-02 15:04:05"

// Header is the column header of the consolidated output
var Header = []string{"Building", "datetime", "Type", "Usage Unit", "Usage", "Occupancy"}

// WriteCSV writes one row per aggregated record
func WriteCSV(w io.Writer, records []models.AggregatedRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Building,
			r.Timestamp.Format(TimestampLayout),
			string(r.Type),
			r.UsageUnit,
			strconv.FormatFloat(r.Usage, 'f', -1, 64),
			strconv.Itoa(r.Occupancy),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes the output through a temp file and renames it into place,
// so readers never see a partially written file
func WriteFile(path string, records []models.AggregatedRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	return nil
}
