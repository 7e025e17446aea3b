// netsimctl -- CLI client for the netsimd control API.
package main

import "github.com/lp-netsim/netsim/cmd/netsimctl/commands"

func main() {
	commands.Execute()
}
