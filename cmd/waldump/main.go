// Dump the meta index of a WAL directory.
// Usage: go run ./cmd/waldump <wal-directory>
package main

import (
	"fmt"
	"os"

	"waldb/metaindex"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <wal-directory>\n", os.Args[0])
		os.Exit(1)
	}
	if err := metaindex.InspectTo(os.Stdout, os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
