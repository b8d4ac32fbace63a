package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/meterdata/internal/database"
	"github.com/jgoulah/meterdata/internal/publisher"
	"github.com/jgoulah/meterdata/pkg/models"
)

var (
	publishAll   bool
	publishLimit int
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish stored hourly usage over MQTT",
	Long:  `Reads stored hourly usage from the database and publishes each row to the configured MQTT broker.`,
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().BoolVar(&publishAll, "all", false, "Force republish all records (ignore published flag)")
	publishCmd.Flags().IntVar(&publishLimit, "limit", 0, "Limit number of records to publish (0 = no limit)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pub, err := publisher.New(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	var data []models.AggregatedRecord
	if publishAll {
		data, err = db.ListAggregated(cmd.Context(), database.Filter{})
		if err == nil && publishLimit > 0 && len(data) > publishLimit {
			data = data[:publishLimit]
		}
	} else {
		data, err = db.ListUnpublished(cmd.Context(), publishLimit)
	}
	if err != nil {
		return fmt.Errorf("listing usage: %w", err)
	}

	if len(data) == 0 {
		fmt.Println("No unpublished data found")
		return nil
	}

	fmt.Printf("Publishing %d records...\n", len(data))
	published := 0
	for i, r := range data {
		fmt.Printf("[%d/%d] %s %s %s (%.3f %s)... ", i+1, len(data), r.Building, r.Timestamp.Format("2006-01-02 15:04"), r.Type, r.Usage, r.UsageUnit)
		if err := pub.Publish(r); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			continue
		}

		if err := db.MarkPublished(cmd.Context(), r.ID); err != nil {
			fmt.Printf("✓ (warning: failed to mark as published: %v)\n", err)
		} else {
			fmt.Printf("✓\n")
		}
		published++
	}

	fmt.Printf("\nTotal records published: %d/%d\n", published, len(data))
	return nil
}
