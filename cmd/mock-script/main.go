package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kx0101/scripttester/internal/mockscript"
)

func main() {
	port := flag.Int("port", 8080, "Port to run the mock script on")
	failStatus := flag.Int("fail-status", 0, "Answer every request with this HTTP status (0 = never)")
	latency := flag.Duration("latency", 0, "Delay added to every response")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	server := mockscript.New(mockscript.Options{
		FailStatus: *failStatus,
		Latency:    *latency,
		Logger:     logger,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", *port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("mock script listening", "url", "http://"+addr+"/")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down mock script")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("mock script stopped", "requests", server.RequestCount())
}
