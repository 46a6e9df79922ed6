// Command httpserver runs the concurrent HTTP/1.1 file server.
//
// Usage: httpserver [-t THREADS] [-config PATH] PORT
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/cubbit/httpfs/internal/logger"
	"github.com/cubbit/httpfs/internal/server"
	"github.com/cubbit/httpfs/pkg/config"
)

func main() {
	threads := flag.Int("t", 0, "worker pool size (0 = use config/default)")
	configPath := flag.String("config", "", "path to an optional YAML config file")
	// Report unparsable flags with exit status 1 rather than the flag
	// package's default of 2.
	flag.CommandLine.Init(os.Args[0], flag.ContinueOnError)
	if err := flag.CommandLine.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	if flag.NArg() != 1 || *threads < 0 {
		fmt.Fprintln(os.Stderr, "usage: httpserver [-t THREADS] [-config PATH] PORT")
		os.Exit(1)
	}

	port, err := strconv.Atoi(flag.Arg(0))
	if err != nil || port < 1 || port > 65535 {
		fmt.Fprintf(os.Stderr, "Invalid port: %s\n", flag.Arg(0))
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath, port, *threads)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger.SetLevel(cfg.Logging.Level)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}

	// Installing the cancellation context before constructing the server
	// value closes the window where a signal could reach partially
	// initialized state (SPEC_FULL §9).
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv, err := server.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server initialization error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, srv)
	}

	if err := srv.Serve(ctx); err != nil {
		logger.Error("server error: %v", err)
		os.Exit(1)
	}
}

func serveMetrics(addr string, srv *server.Server) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", srv.Metrics().Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server error: %v", err)
	}
}
