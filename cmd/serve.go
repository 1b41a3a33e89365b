package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recognition HTTP API",
	Long: `Start the Face Attendance HTTP API.
Camera clients post frames to /api/v1/frames and receive one outcome per
detected face. Attendance can be listed and exported as CSV per day.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("api-token", "", "Token required on /api/v1 requests (defaults to API_TOKEN, empty disables auth)")
}

// resolveServeHostPort resolves port, host and API token from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	apiToken := mustGetString(cmd, "api-token")

	if apiToken == "" {
		apiToken = os.Getenv("API_TOKEN")
	}
	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host, apiToken
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	closeStorage, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refs, err := newReferenceStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening reference images: %w", err)
	}

	orch, closeRecorder, err := newOrchestrator(ctx, cfg, refs)
	if err != nil {
		return err
	}
	defer closeRecorder()

	port, host, apiToken := resolveServeHostPort(cmd)
	if apiToken == "" {
		fmt.Println("Warning: API_TOKEN not set, the API is unauthenticated")
	}

	server := web.NewServer(port, host, apiToken, newEmbedder(cfg), orch, refs)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
