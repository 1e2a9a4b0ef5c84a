// gradectl is the operator-facing companion to cmd/api: it applies or
// reverts the SQLite schema and seeds the Problem Catalog from an exported
// HTML problem bank, none of which the API server does on its own beyond
// the automatic Migrate-on-start call.
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
