// Command pathbench turns graph path-query execution logs into ranked,
// quota-bounded query pools.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
