package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jgoulah/meterdata/internal/pipeline"
	"github.com/jgoulah/meterdata/internal/reference"
	"github.com/jgoulah/meterdata/internal/report"
	"github.com/jgoulah/meterdata/internal/source"
	"github.com/jgoulah/meterdata/internal/usage"
)

// stopSentinel ends interactive file entry
const stopSentinel = "STOP"

var (
	ingestOutput     string
	ingestSkipErrors bool
	ingestStore      bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Combine usage exports into one hourly CSV",
	Long: `Reads each utility usage export, sums its readings into hours, tags them with the
meter's building and occupancy, and writes the combined dataset once all files are in.

Without file arguments, file names are read from stdin one per line until STOP.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestOutput, "output", "", "Output CSV (default from config, else ./output.csv)")
	ingestCmd.Flags().BoolVar(&ingestSkipErrors, "skip-errors", false, "Skip exports that fail instead of aborting")
	ingestCmd.Flags().BoolVar(&ingestStore, "store", false, "Also save the combined dataset to the database")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Ingest started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	loc, err := cfg.GetLocation()
	if err != nil {
		return err
	}

	tables, err := reference.Load(cmd.Context(), cfg.GetMetersFile(), cfg.GetOccupancyFile())
	if err != nil {
		return fmt.Errorf("loading reference tables: %w", err)
	}
	fmt.Printf("Loaded %s meters across %s buildings\n",
		humanize.Comma(int64(tables.MeterCount())), humanize.Comma(int64(len(tables.Buildings()))))

	session := pipeline.NewSession(
		source.Options{HeaderRows: cfg.GetHeaderRows()},
		usage.NewNormalizer(loc, cfg.TimestampLayouts),
		usage.NewEnricher(tables),
		logger,
	)

	skipErrors := ingestSkipErrors || cfg.SkipErrors
	skipped := 0
	addFile := func(path string) error {
		summary, err := session.AddFile(path)
		if err != nil {
			if skipErrors {
				fmt.Printf("✗ Skipped %v\n", err)
				skipped++
				return nil
			}
			return err
		}
		fmt.Println(formatSummary(summary))
		return nil
	}

	if len(args) > 0 {
		for _, path := range args {
			if err := addFile(path); err != nil {
				return err
			}
		}
	} else {
		interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		if err := readFileNames(os.Stdin, os.Stdout, interactive, addFile); err != nil {
			return err
		}
	}

	files := session.Files()
	if len(files) == 0 {
		return errors.New("no exports were accepted, nothing to write")
	}

	records, err := session.Finalize()
	if err != nil {
		return err
	}

	output := ingestOutput
	if output == "" {
		output = cfg.GetOutputFile()
	}
	if err := report.WriteFile(output, records); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Printf("✓ Wrote %s rows from %d exports to %s\n", humanize.Comma(int64(len(records))), len(files), output)
	if skipped > 0 {
		fmt.Printf("⚠ %d exports were skipped\n", skipped)
	}

	if ingestStore {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		runID := uuid.NewString()
		if err := db.SaveAggregated(cmd.Context(), runID, records); err != nil {
			return fmt.Errorf("storing results: %w", err)
		}
		fmt.Printf("✓ Stored %s rows in %s (run %s)\n", humanize.Comma(int64(len(records))), getDBPath(), runID)
	}

	return nil
}

// readFileNames calls fn for each non-empty line of in until the stop sentinel or EOF.
// A prompt is written before each line when interactive is set.
func readFileNames(in io.Reader, out io.Writer, interactive bool, fn func(string) error) error {
	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprintf(out, "Please enter a filename or %s to stop\n", stopSentinel)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}

		name := strings.TrimSpace(scanner.Text())
		if name == stopSentinel {
			return nil
		}
		if name == "" {
			continue
		}
		if err := fn(name); err != nil {
			return err
		}
	}
}

func formatSummary(summary pipeline.FileSummary) string {
	return fmt.Sprintf("✓ %s: meter %s (%s, %s) → %s hours from %s readings, %s %s used",
		summary.Path, summary.Meter, summary.Building, summary.Type,
		humanize.Comma(int64(summary.Hours)), humanize.Comma(int64(summary.Readings)),
		humanize.CommafWithDigits(summary.TotalUsed, 3), summary.UsageUnit)
}
