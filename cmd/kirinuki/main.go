// Package main is the kirinuki CLI entry point.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	// OPENAI_API_KEY and KIRINUKI_SERVER may come from a local .env file.
	_ = godotenv.Load()

	if err := fang.Execute(context.Background(), NewRootCmd(version)); err != nil {
		os.Exit(1)
	}
}
