package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/DocSandbox/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/DocSandbox/backend/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override environment and config file
	port := flag.String("port", cfg.Server.Port, "Server port")
	root := flag.String("root", cfg.Documents.Root, "Directory exposed as the document root")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development mode (console logs, debug level)")
	configFile := flag.String("config", "", "YAML or TOML config file applied over the environment")
	flag.Parse()

	if *configFile != "" {
		if err := cfg.ApplyFile(*configFile); err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = *port
		case "root":
			cfg.Documents.Root = *root
		case "dev":
			cfg.Logging.Development = *dev
			if *dev {
				cfg.Logging.Level = "debug"
			}
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-sigChan:
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Printf("Error during shutdown: %v", err)
			os.Exit(1)
		}
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}
}
