package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/milvehicles/pkg/config"
	"github.com/cyclopcam/milvehicles/pkg/manifest"
	"github.com/cyclopcam/milvehicles/pkg/yolo"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("train", "Train the detector on the military vehicle dataset")
	configFile := parser.String("c", "config", &argparse.Options{Help: "YAML config file", Required: false, Default: ""})
	epochs := parser.Int("", "epochs", &argparse.Options{Help: "Number of epochs. Defaults to the configured value", Required: false, Default: 0})
	batch := parser.Int("", "batch", &argparse.Options{Help: "Batch size. Defaults to the configured value", Required: false, Default: 0})
	imgsz := parser.Int("", "imgsz", &argparse.Options{Help: "Image size. Defaults to the configured value", Required: false, Default: 0})
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
	if *epochs > 0 {
		cfg.Train.Epochs = *epochs
	}
	if *batch > 0 {
		cfg.Train.BatchSize = *batch
	}
	if *imgsz > 0 {
		cfg.Train.ImageSize = *imgsz
	}

	m, err := manifest.Create(logger, cfg)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	if len(m.Missing) != 0 {
		logger.Warnf("Training with incomplete dataset (%v missing)", len(m.Missing))
	}

	detector := yolo.NewCLI(logger, cfg.Detector.Executable, cfg.BaseDir)
	res, err := detector.Train(&yolo.TrainRequest{
		Manifest:  cfg.ManifestPath(),
		Model:     cfg.Detector.Pretrained,
		Classes:   cfg.Data.Classes,
		Epochs:    cfg.Train.Epochs,
		ImageSize: cfg.Train.ImageSize,
		BatchSize: cfg.Train.BatchSize,
		Project:   cfg.RunsDir(),
		Name:      cfg.Train.RunName,
	})
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	logger.Infof("Training finished. Best weights: %v", res.BestWeights)
}
