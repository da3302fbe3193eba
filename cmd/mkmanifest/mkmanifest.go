package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/milvehicles/pkg/config"
	"github.com/cyclopcam/milvehicles/pkg/manifest"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("mkmanifest", "Create the detector's dataset configuration (data.yaml)")
	configFile := parser.String("c", "config", &argparse.Options{Help: "YAML config file", Required: false, Default: ""})
	output := parser.String("o", "output", &argparse.Options{Help: "Output file. Defaults to the configured manifest path", Required: false, Default: ""})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	check(err)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	if *output != "" {
		cfg.Data.Manifest = *output
	}

	m, err := manifest.Create(logger, cfg)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	logger.Infof("%v classes: %v", m.NC, m.Names)
}
