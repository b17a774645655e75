package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gymgate/internal/config"
	"gymgate/internal/credential"
	"gymgate/internal/database/postgres"
	"gymgate/internal/gate"
	"gymgate/internal/roster"
	"gymgate/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the gymgate web server.
The server exposes the check-in API for browser-based kiosks, member
enrollment, the presence board, and the front-desk dashboard with a
live attendance feed.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// serveRefresher refreshes the roster cache directly; the serve command has
// no terminal loop to coalesce requests through.
type serveRefresher struct {
	cache *roster.Cache
}

func (r serveRefresher) RequestRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.cache.Refresh(ctx); err != nil {
		fmt.Printf("Warning: roster refresh failed: %v\n", err)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	members := postgres.NewMemberRepository(pool)
	events := postgres.NewEventRepository(pool)

	cache := roster.New(members)
	if err := cache.Refresh(context.Background()); err != nil {
		fmt.Printf("Warning: initial roster load failed: %v\n", err)
	} else {
		fmt.Printf("Roster loaded: %d eligible members\n", cache.Len())
	}

	decoder := credential.NewDecoder(cfg.Gate.TokenMaxAge)
	engine := gate.New(cache, events, decoder, cfg.Gate)

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, web.Deps{
		Members:   members,
		Events:    events,
		Engine:    engine,
		Refresher: serveRefresher{cache: cache},
	})

	// Keep the roster fresh while the server runs.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ticker := time.NewTicker(cfg.Roster.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cache.Refresh(ctx); err != nil {
					fmt.Printf("Warning: roster refresh failed: %v\n", err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting gymgate on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
