// Command bookapp runs the offline-first catalog cache: an HTTP API for
// the UI layer, a one-shot prefetch run, and cache inspection tools.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
