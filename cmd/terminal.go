package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gymgate/internal/config"
	"gymgate/internal/credential"
	"gymgate/internal/database/postgres"
	"gymgate/internal/embedding"
	"gymgate/internal/gate"
	"gymgate/internal/roster"
	"gymgate/internal/terminal"
)

var terminalCmd = &cobra.Command{
	Use:   "terminal",
	Short: "Run a check-in terminal",
	Long: `Run the check-in terminal loop against a camera snapshot endpoint.
Each tick grabs a frame, extracts a face embedding through the embedding
service, and feeds it to the access decision engine. Decisions are
printed as terminal feedback.`,
	RunE: runTerminal,
}

func init() {
	rootCmd.AddCommand(terminalCmd)

	terminalCmd.Flags().String("camera", "", "Camera snapshot URL (e.g. http://camera.local/snapshot.jpg)")
}

func runTerminal(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	cameraURL := mustGetString(cmd, "camera")
	if cameraURL == "" {
		cameraURL = os.Getenv("CAMERA_SNAPSHOT_URL")
	}
	if cameraURL == "" {
		return errors.New("camera snapshot URL is required (--camera or CAMERA_SNAPSHOT_URL)")
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	members := postgres.NewMemberRepository(pool)
	events := postgres.NewEventRepository(pool)

	cache := roster.New(members)
	decoder := credential.NewDecoder(cfg.Gate.TokenMaxAge)
	engine := gate.New(cache, events, decoder, cfg.Gate)

	frames := terminal.NewSnapshotSource(cameraURL)
	extractor := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Dim)

	loop := terminal.NewLoop(frames, extractor, engine, cache,
		cfg.Gate.Tick, cfg.Roster.RefreshInterval, printFeedback)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStopping terminal...")
		cancel()
	}()

	fmt.Printf("Terminal running against %s\n", cameraURL)
	fmt.Println("Press Ctrl+C to stop")
	return loop.Run(ctx)
}

// printFeedback renders one decision on the terminal display.
func printFeedback(d gate.Decision) {
	switch d.Status {
	case gate.StatusAccepted:
		fmt.Printf("[%s] %s: %s (distance %.3f)\n",
			d.Timestamp.Format("15:04:05"), d.Kind, d.Member.Name, d.Distance)
	case gate.StatusTooSoon:
		fmt.Printf("[%s] %s: wait %ds before checking in again\n",
			d.Timestamp.Format("15:04:05"), d.Member.Name, int(d.Remaining.Seconds()+0.5))
	case gate.StatusNoMatch:
		fmt.Printf("[%s] face not recognized (distance %.3f)\n",
			d.Timestamp.Format("15:04:05"), d.Distance)
	case gate.StatusInvalidToken:
		fmt.Printf("[%s] invalid credential\n", d.Timestamp.Format("15:04:05"))
	case gate.StatusSyncError:
		fmt.Printf("[%s] sync error, try again: %v\n", d.Timestamp.Format("15:04:05"), d.Err)
	}
}
