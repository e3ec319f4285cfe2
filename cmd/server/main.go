package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tabvault/tabvault/internal/infrastructure/config"
	"github.com/tabvault/tabvault/internal/infrastructure/logging"
	"github.com/tabvault/tabvault/internal/server"
)

func main() {
	storePath := flag.String("store", "", "Store path (overrides STORE_PATH)")
	port := flag.String("port", "", "HTTP port (overrides PORT)")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *storePath != "" {
		cfg.Store.Path = *storePath
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		log = logging.NewDefault()
	}
	defer log.Sync()

	srv, err := server.NewServer(cfg, log)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
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
		log.Info("Shutting down")
		if err := srv.Close(); err != nil {
			log.Error("Error during shutdown", zap.Error(err))
		}
	case err := <-errChan:
		log.Fatal("Server error", zap.Error(err))
	}
}
