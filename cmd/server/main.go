package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/jacentio/pantry/api"
	"github.com/jacentio/pantry/store"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	host := env("HOST", "0.0.0.0")
	port := env("PORT", "8080")
	backend := env("STORE_BACKEND", "dynamo")
	dataDir := env("DATA_DIR", "./data")
	prefix := env("TABLE_PREFIX", "")
	origins := env("ALLOWED_ORIGINS", "*")

	gateway, err := store.New(context.Background(), backend, dataDir, prefix)
	if err != nil {
		logger.Error("failed to create store gateway", "backend", backend, "error", err)
		os.Exit(1)
	}

	h := api.New(gateway, logger)
	handler := api.Logging(api.CORS(h, strings.Split(origins, ",")), logger)

	addr := fmt.Sprintf("%s:%s", host, port)
	logger.Info("pantry starting", "addr", addr, "backend", backend)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
