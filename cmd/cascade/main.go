// Command cascade runs a minimal Wayland display server that supports
// the wlr input inhibitor protocol, and inspects servers that do.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
