// Command podsim compiles workloads onto a systolic array pod and replays the
// schedule cycle by cycle.
package main

import "github.com/tebeka/atexit"

func main() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
