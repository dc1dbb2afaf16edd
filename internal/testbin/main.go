// Command testbin serves the testsite fixture over HTTP for manual browser
// runs and process-level tests.
//
// Behavior:
//   - Listens on -addr (default 127.0.0.1:0, a free port)
//   - Prints "listening on <base URL>" once the listener is up
//   - Serves until SIGINT or SIGTERM, then shuts down gracefully
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cboone/pagewalk/config"
	"github.com/cboone/pagewalk/internal/testsite"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:0", "listen address")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := config.NewLogger(config.LogConfig{Level: *level, Format: "console"}, nil)
	defer func() { _ = logger.Sync() }()

	if err := run(*addr, logger); err != nil {
		logger.Error("Fixture server failed.", zap.Error(err))
		os.Exit(1)
	}
}

func run(addr string, logger *zap.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           testsite.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	base := "http://" + ln.Addr().String()
	fmt.Printf("listening on %s\n", base)
	logger.Info("Serving fixture site.", zap.String("url", base))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("Shutting down fixture site.")
	return srv.Shutdown(shutdownCtx)
}
