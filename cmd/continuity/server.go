package continuity

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/storyweave/continuity"
	"github.com/storyweave/continuity/pkg/config"
	continuityLogger "github.com/storyweave/continuity/pkg/logger"
	"github.com/storyweave/continuity/pkg/server"
	"github.com/storyweave/continuity/pkg/telemetry"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Continuity HTTP server",
	Long: `Start the Continuity HTTP server to provide REST API access to the
consistency engine.

The server provides endpoints for:
- Adding story entities and validated relationships
- Triggering contradiction scans and reading reports
- Executing guarded read queries
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "debug", "Server mode (debug, release, test)")

	// Store flags
	serverCmd.Flags().String("store-driver", "badger", "Store driver (memory, badger, neo4j)")
	serverCmd.Flags().String("store-uri", "./continuity_db", "Store URI/path")
	serverCmd.Flags().String("store-username", "", "Store username (neo4j only)")
	serverCmd.Flags().String("store-password", "", "Store password (neo4j only)")
	serverCmd.Flags().String("store-database", "", "Store database name (neo4j only)")

	// Scheduler flags
	serverCmd.Flags().Bool("scheduler-enabled", true, "Run background consistency scans")
	serverCmd.Flags().Int("scan-interval", 300, "Background scan interval in seconds")

	// Telemetry flags
	serverCmd.Flags().String("telemetry-parquet-path", "", "Path to directory for telemetry (scan stats and errors)")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	overrideConfigWithFlags(cmd, cfg)

	// Validate configuration
	if err := validateServerConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize client
	fmt.Println("Initializing Continuity...")
	client, logger, err := initializeClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize Continuity: %w", err)
	}
	defer client.Close()

	if cfg.Scheduler.Enabled {
		client.StartScheduler()
		logger.Info("background scans enabled", "interval_seconds", cfg.Scheduler.Interval)
	}

	// Create and setup server
	srv := server.New(cfg, client)
	srv.Setup()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal: %v\n", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		fmt.Println("Server stopped gracefully")
		return nil
	}
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	// Server flags
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}

	// Store flags
	if cmd.Flags().Changed("store-driver") {
		cfg.Store.Driver, _ = cmd.Flags().GetString("store-driver")
	}
	if cmd.Flags().Changed("store-uri") {
		cfg.Store.URI, _ = cmd.Flags().GetString("store-uri")
	}
	if cmd.Flags().Changed("store-username") {
		cfg.Store.Username, _ = cmd.Flags().GetString("store-username")
	}
	if cmd.Flags().Changed("store-password") {
		cfg.Store.Password, _ = cmd.Flags().GetString("store-password")
	}
	if cmd.Flags().Changed("store-database") {
		cfg.Store.Database, _ = cmd.Flags().GetString("store-database")
	}

	// Scheduler flags
	if cmd.Flags().Changed("scheduler-enabled") {
		cfg.Scheduler.Enabled, _ = cmd.Flags().GetBool("scheduler-enabled")
	}
	if cmd.Flags().Changed("scan-interval") {
		cfg.Scheduler.Interval, _ = cmd.Flags().GetInt("scan-interval")
	}

	// Telemetry flags
	if cmd.Flags().Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = cmd.Flags().GetString("telemetry-parquet-path")
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.Store.Driver != "memory" && cfg.Store.URI == "" {
		return fmt.Errorf("store URI is required")
	}
	if cfg.Scheduler.Interval <= 0 {
		return fmt.Errorf("invalid scan interval: %d", cfg.Scheduler.Interval)
	}
	return nil
}

func initializeClient(cfg *config.Config) (*continuity.Client, *slog.Logger, error) {
	colorHandler := continuityLogger.NewColorHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger := slog.New(colorHandler)

	// Mirror error logs into Parquet alongside scan telemetry
	if cfg.Telemetry.ParquetPath != "" {
		parquetHandler, err := telemetry.NewParquetHandler(colorHandler, cfg.Telemetry.ParquetPath)
		if err != nil {
			fmt.Printf("Warning: Failed to initialize error tracking: %v\n", err)
		} else {
			logger = slog.New(parquetHandler)
			fmt.Println("Error tracking enabled")
		}
	}

	client, err := continuity.NewClient(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	fmt.Printf("Continuity initialized successfully with store: %s\n", cfg.Store.Driver)
	return client, logger, nil
}
