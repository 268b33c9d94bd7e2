// Command steward-stop stops a managed service with bounded escalating
// shutdown and unregisters it from launchd.
package main

import "github.com/homelab-ops/steward/cmd/steward-stop/cmd"

func main() {
	cmd.Execute()
}
