package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/meterdata/internal/database"
	"github.com/jgoulah/meterdata/pkg/models"
)

var (
	listBuilding string
	listType     string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored hourly usage",
	Long:  `Displays the combined hourly usage saved by 'ingest --store'.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listBuilding, "building", "", "Filter by building")
	listCmd.Flags().StringVar(&listType, "type", "", "Filter by reading type (Electric or Gas)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	filter := database.Filter{Building: listBuilding}
	if listType != "" {
		t, err := models.ParseReadingType(listType)
		if err != nil {
			return err
		}
		filter.Type = t
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	loc, err := cfg.GetLocation()
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	data, err := db.ListAggregated(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("listing usage: %w", err)
	}

	if len(data) == 0 {
		fmt.Println("No data found")
		return nil
	}

	fmt.Println("------------------------------------------------------------------------")
	fmt.Printf("%-20s  %-16s  %-8s  %12s  %-8s  %9s\n", "Building", "Hour", "Type", "Usage", "Unit", "Occupancy")
	fmt.Println("------------------------------------------------------------------------")

	totals := make(map[string]float64)
	var units []string
	for _, r := range data {
		fmt.Printf("%-20s  %-16s  %-8s  %12.3f  %-8s  %9d\n",
			r.Building, r.Timestamp.In(loc).Format("2006-01-02 15:04"), r.Type, r.Usage, r.UsageUnit, r.Occupancy)
		if _, seen := totals[r.UsageUnit]; !seen {
			units = append(units, r.UsageUnit)
		}
		totals[r.UsageUnit] += r.Usage
	}

	fmt.Println("------------------------------------------------------------------------")
	for _, unit := range units {
		fmt.Printf("Total: %s %s\n", humanize.CommafWithDigits(totals[unit], 2), unit)
	}
	fmt.Printf("(%s records)\n", humanize.Comma(int64(len(data))))

	return nil
}
