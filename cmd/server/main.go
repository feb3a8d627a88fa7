package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/toolgate/backend/internal/infrastructure/config"
	"github.com/toolgate/backend/internal/infrastructure/server"
)

func main() {
	port := flag.String("port", "", "HTTP port (overrides PORT)")
	bridgePort := flag.String("bridge-port", "", "Agent bridge port (overrides BRIDGE_PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *bridgePort != "" {
		cfg.Bridge.Port = *bridgePort
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
