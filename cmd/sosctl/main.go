// Command sosctl classifies readings and triggers SOS alerts from a terminal,
// using the same configuration and pipeline as the sos service.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
