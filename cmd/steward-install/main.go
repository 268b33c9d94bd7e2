// Command steward-install installs or updates one managed service from its
// upstream release listing.
package main

import "github.com/homelab-ops/steward/cmd/steward-install/cmd"

func main() {
	cmd.Execute()
}
