// Package main is the entry point for the cb CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/evcraddock/commentbox/internal/cli"
)

func main() {
	// CB_* settings may come from a local .env file.
	_ = godotenv.Load(".env")

	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
