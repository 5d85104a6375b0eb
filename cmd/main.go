package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/feralops/tnr-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	// SIGINT/SIGTERM drain in-flight ingest requests before exit.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-stop
		a.Log.Info("Shutting down", "signal", sig.String())
		a.Shutdown()
	}()

	if err := a.Run(); err != nil {
		a.Log.Error("Server failed", "error", err)
		a.Close()
		os.Exit(1)
	}
}
