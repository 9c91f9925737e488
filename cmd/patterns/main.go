// Command patterns runs recommendation strategies from the terminal against the
// configured graph store.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, defaultLoader).Execute(); err != nil {
		os.Exit(1)
	}
}
