package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/framehost/internal/infrastructure/config"
	"github.com/GriffinCanCode/framehost/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Falling back to default config: %v", err)
		cfg = config.Default()
	}

	// Flags override environment variables
	port := flag.String("port", cfg.Server.Port, "Server port")
	origin := flag.String("origin", cfg.Frame.Origin, "Default frame origin")
	profiles := flag.String("profiles", cfg.Frame.ProfilesFile, "Frame profiles file (.yaml or .toml)")
	sandbox := flag.Bool("sandbox", cfg.Sandbox.Enabled, "Enable the in-process JavaScript sandbox")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development mode (colored logs, debug level)")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Frame.Origin = *origin
	cfg.Frame.ProfilesFile = *profiles
	cfg.Sandbox.Enabled = *sandbox
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
