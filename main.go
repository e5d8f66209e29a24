package main

import (
	"github.com/opensky-lab/flightpipe/cli/cmd"
)

func main() {
	cmd.Execute()
}
