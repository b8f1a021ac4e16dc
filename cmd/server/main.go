package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env", "error", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func SetupLogger(level slog.Level) {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02 15:04:05",
		AddSource:  true,
	})

	slog.SetDefault(slog.New(handler))
}
