// Command mockinstrument runs a simulated XML-RPC instrument controller for
// local development and load tests.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"observe/internal/gateway/document"
	"observe/internal/instrumentsim"
	"observe/internal/platform/server"
)

func main() {
	addr := pflag.String("addr", ":9999", "listen address")
	kind := pflag.String("kind", "telescope", fmt.Sprintf("instrument kind %v", document.KindNames()))
	path := pflag.String("path", "/RPC2", "XML-RPC request path")
	delay := pflag.Duration("delay", 0, "artificial latency added to every call")
	pflag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctrl, ok := instrumentsim.ForKind(*kind)
	if !ok {
		slog.Error("unknown instrument kind", "kind", *kind, "known", document.KindNames())
		os.Exit(2)
	}
	ctrl.SetDelay(*delay)

	mux := http.NewServeMux()
	mux.Handle(*path, ctrl)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"kind":   *kind,
			"calls":  len(ctrl.Calls()),
		})
	})

	slog.Info("mock instrument starting", "addr", *addr, "kind", *kind, "path", *path, "delay", delay.String())

	srv := server.New(*addr, mux, server.WithWriteTimeout(*delay+10*time.Second))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
	}
}
