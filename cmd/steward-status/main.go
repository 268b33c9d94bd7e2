// Command steward-status reports the state of managed services: launchd
// registration, process detail, installed version, update availability.
package main

import "github.com/homelab-ops/steward/cmd/steward-status/cmd"

func main() {
	cmd.Execute()
}
