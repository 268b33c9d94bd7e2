// Command steward-start registers a managed service with launchd and
// verifies it came up.
package main

import "github.com/homelab-ops/steward/cmd/steward-start/cmd"

func main() {
	cmd.Execute()
}
