package main

import (
	"os"

	relaycmder "github.com/papercomputeco/relay/cmd/relay"
)

func main() {
	if err := relaycmder.ExecuteCmd(relaycmder.NewRelayCmd()); err != nil {
		os.Exit(1)
	}
}
