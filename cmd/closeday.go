package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"gymgate/internal/config"
	"gymgate/internal/database/postgres"
)

var closeDayCmd = &cobra.Command{
	Use:   "close-day",
	Short: "Check out everyone still marked present",
	Long: `Write an exit event for every member whose latest event is an entry.
Run at closing time (typically from cron) so members who left without
checking out do not start the next day marked present.`,
	RunE: runCloseDay,
}

func init() {
	rootCmd.AddCommand(closeDayCmd)
}

func runCloseDay(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	events := postgres.NewEventRepository(pool)
	closed, err := events.BulkCloseAll(context.Background())
	if err != nil {
		return fmt.Errorf("closing day: %w", err)
	}

	if closed == 0 {
		fmt.Println("Nobody was present.")
		return nil
	}
	fmt.Printf("Checked out %d members.\n", closed)
	return nil
}
