package pipeline

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/jgoulah/meterdata/internal/source"
	"github.com/jgoulah/meterdata/internal/usage"
	"github.com/jgoulah/meterdata/pkg/models"
)

// FileSummary describes one accepted export
type FileSummary struct {
	Path      string
	Meter     string
	Building  string
	Type      models.ReadingType
	Readings  int
	Hours     int
	UsageUnit string
	TotalUsed float64 // Sum of the file's hourly usage in UsageUnit
}

// Session accumulates enriched exports and aggregates them once at the end.
// A file either contributes all of its hours or none of them.
type Session struct {
	opts       source.Options
	normalizer *usage.Normalizer
	enricher   *usage.Enricher
	logger     *zap.Logger

	datasets [][]models.AnnotatedRecord
	files    []FileSummary
}

// NewSession creates a session. A nil logger discards log output.
func NewSession(opts source.Options, normalizer *usage.Normalizer, enricher *usage.Enricher, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		opts:       opts,
		normalizer: normalizer,
		enricher:   enricher,
		logger:     logger,
	}
}

// AddFile reads, normalizes and enriches one export from disk
func (s *Session) AddFile(path string) (FileSummary, error) {
	readings, err := source.ReadFile(path, s.opts)
	if err != nil {
		return s.reject(path, err)
	}
	return s.add(path, readings)
}

// AddReader is AddFile for an export that is already open
func (s *Session) AddReader(name string, r io.Reader) (FileSummary, error) {
	readings, err := source.Read(r, s.opts)
	if err != nil {
		return s.reject(name, err)
	}
	return s.add(name, readings)
}

func (s *Session) add(path string, readings []models.RawReading) (FileSummary, error) {
	hourly, err := s.normalizer.Normalize(readings)
	if err != nil {
		return s.reject(path, err)
	}

	meter := readings[0].MeterNumber
	annotated, err := s.enricher.Enrich(hourly, meter)
	if err != nil {
		return s.reject(path, err)
	}

	summary := FileSummary{
		Path:      path,
		Meter:     meter,
		Type:      hourly[0].Type,
		Readings:  len(readings),
		Hours:     len(hourly),
		UsageUnit: hourly[0].UsageUnit,
	}
	if len(annotated) > 0 {
		summary.Building = annotated[0].Building
	}
	for _, r := range hourly {
		summary.TotalUsed += r.Usage
	}

	s.datasets = append(s.datasets, annotated)
	s.files = append(s.files, summary)

	s.logger.Info("export accepted",
		zap.String("file", path),
		zap.String("meter", meter),
		zap.String("building", summary.Building),
		zap.String("type", string(summary.Type)),
		zap.Int("readings", summary.Readings),
		zap.Int("hours", summary.Hours),
		zap.Float64("total_used", summary.TotalUsed),
	)
	return summary, nil
}

func (s *Session) reject(path string, err error) (FileSummary, error) {
	s.logger.Warn("export rejected", zap.String("file", path), zap.Error(err))
	return FileSummary{}, &usage.FileError{Path: path, Err: err}
}

// Files returns the summaries of accepted exports in the order they were added
func (s *Session) Files() []FileSummary {
	return append([]FileSummary(nil), s.files...)
}

// Pending returns the number of hourly rows buffered for aggregation
func (s *Session) Pending() int {
	n := 0
	for _, d := range s.datasets {
		n += len(d)
	}
	return n
}

// Finalize aggregates everything accumulated so far
func (s *Session) Finalize() ([]models.AggregatedRecord, error) {
	records, err := usage.Aggregate(s.datasets)
	if err != nil {
		return nil, fmt.Errorf("aggregating %d exports: %w", len(s.files), err)
	}

	s.logger.Info("session aggregated",
		zap.Int("files", len(s.files)),
		zap.Int("hourly_rows", s.Pending()),
		zap.Int("records", len(records)),
	)
	return records, nil
}
