package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/meterdata/internal/pipeline"
	"github.com/jgoulah/meterdata/internal/usage"
	"github.com/jgoulah/meterdata/pkg/models"
)

func TestExitCode(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: exitOK},
		{name: "generic", err: errors.New("boom"), want: exitError},
		{name: "unknown meter", err: &usage.FileError{Path: "a.csv", Err: &usage.LookupError{Err: usage.ErrUnknownMeter, Key: "1"}}, want: exitUnknownMeter},
		{name: "unknown building", err: &usage.LookupError{Err: usage.ErrUnknownBuilding, Key: "Gym"}, want: exitUnknownBuilding},
		{name: "malformed input", err: fmt.Errorf("%w: no rows", usage.ErrMalformedInput), want: exitMalformedInput},
		{name: "malformed timestamp", err: fmt.Errorf("wrapped: %w", usage.ErrMalformedTimestamp), want: exitMalformedTimestamp},
		{name: "inconsistent unit", err: fmt.Errorf("aggregating: %w", usage.ErrInconsistentUnit), want: exitInconsistentUnit},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, exitCode(tc.err))
		})
	}
}

func TestReadFileNames_StopsAtSentinel(t *testing.T) {
	in := strings.NewReader("electric.csv\n\n  gas.csv  \nSTOP\nignored.csv\n")
	var out bytes.Buffer
	var got []string

	err := readFileNames(in, &out, true, func(name string) error {
		got = append(got, name)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"electric.csv", "gas.csv"}, got)
	assert.Equal(t, 4, strings.Count(out.String(), "Please enter a filename or STOP to stop"))
}

func TestReadFileNames_EOFWithoutPrompt(t *testing.T) {
	var out bytes.Buffer
	var got []string

	err := readFileNames(strings.NewReader("a.csv\nb.csv"), &out, false, func(name string) error {
		got = append(got, name)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.csv", "b.csv"}, got)
	assert.Empty(t, out.String())
}

func TestReadFileNames_AbortsOnError(t *testing.T) {
	var got []string
	err := readFileNames(strings.NewReader("a.csv\nb.csv\nSTOP\n"), &bytes.Buffer{}, false, func(name string) error {
		got = append(got, name)
		return usage.ErrUnknownMeter
	})

	assert.ErrorIs(t, err, usage.ErrUnknownMeter)
	assert.Equal(t, []string{"a.csv"}, got)
}

func TestFormatSummary(t *testing.T) {
	summary := pipeline.FileSummary{
		Path:      "library.csv",
		Meter:     "1001",
		Building:  "Library",
		Type:      models.Electric,
		Readings:  2976,
		Hours:     744,
		UsageUnit: "kWh",
		TotalUsed: 12345.5,
	}

	assert.Equal(t,
		"✓ library.csv: meter 1001 (Library, Electric) → 744 hours from 2,976 readings, 12,345.5 kWh used",
		formatSummary(summary))
}
