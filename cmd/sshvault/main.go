package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
)

func main() {
	// Wipe locked buffers on SIGINT/SIGTERM instead of leaving key
	// material in memory.
	memguard.CatchInterrupt()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		memguard.SafeExit(1)
	}
	memguard.Purge()
}
