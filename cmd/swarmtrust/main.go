// Command swarmtrust evaluates trust-score models against drone-swarm
// attack scenario telemetry.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
