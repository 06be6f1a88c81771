package main

import (
	"flag"
	"os"

	"github.com/polargamesbr/rpg-sub006/internal/platform/config"
	"github.com/polargamesbr/rpg-sub006/internal/tools/envelopekey"
)

func main() {
	cfg, err := envelopekey.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := envelopekey.Run(cfg, os.Stdout, nil); err != nil {
		config.Exitf("generate key: %v", err)
	}
}
