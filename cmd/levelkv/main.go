package main

import (
	"fmt"
	"os"

	"github.com/eigerco/levelkv/pkg/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.CLI.Error().Err(err).Msg("command failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
