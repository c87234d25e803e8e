// Command demo-market runs a local market gateway for exercising the
// web3telegram SDK end to end without the real iExec stack: it serves the
// orderbook endpoints the SDK's APIClient consumes, accepts order
// publication, and exposes a mock Telegram API recording every delivered
// message.
//
// # Configuration File
//
// Create a YAML file with gateway settings:
//
//	addr: ":3000"
//	postgres:            # optional; in-memory store when omitted
//	  host: "localhost"
//	  port: 5432
//	  user: "market"
//	  password: "secret"
//	  database: "market"
//
// # Usage
//
//	go run ./cmd/demo-market
//	go run ./cmd/demo-market --config=market.yaml --addr=:3001
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gopkg.in/yaml.v3"

	"github.com/iExecBlockchainComputing/web3telegram-sdk/marketplace"
)

// MarketConfig configures the demo market gateway.
type MarketConfig struct {
	Addr     string                      `yaml:"addr"`
	Postgres *marketplace.PostgresConfig `yaml:"postgres"`
}

func loadConfig(path string) (*MarketConfig, error) {
	cfg := &MarketConfig{Addr: ":3000"}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		addr       = flag.String("addr", "", "HTTP listen address (overrides config)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	var store marketplace.OrderStore
	if cfg.Postgres != nil {
		store, err = marketplace.NewPostgresOrderStore(cfg.Postgres)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Postgres error: %v\n", err)
			os.Exit(1)
		}
	} else {
		store = marketplace.NewMemoryOrderStore()
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	gateway, err := NewGateway(store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Gateway error: %v\n", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	gateway.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		fmt.Printf("Demo market listening on %s\n", cfg.Addr)
		fmt.Printf("Orderbook: curl http://localhost%s/datasetorders\n", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "HTTP server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	fmt.Println("Market shutdown complete")
}
