package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/milvehicles/pkg/config"
	"github.com/cyclopcam/milvehicles/pkg/nn"
	"github.com/cyclopcam/milvehicles/pkg/yolo"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("predict", "Detect military vehicles in an image, video, directory or camera")
	source := parser.String("s", "source", &argparse.Options{Help: "Image, video, directory, or camera index (eg 0)", Required: true})
	model := parser.String("m", "model", &argparse.Options{Help: "Path to model weights. Defaults to the best weights of the training run", Required: false, Default: ""})
	conf := parser.Float("", "conf", &argparse.Options{Help: "Confidence threshold. Defaults to the configured value", Required: false, Default: -1.0})
	imgsz := parser.Int("", "imgsz", &argparse.Options{Help: "Inference image size. Defaults to the training image size", Required: false, Default: 0})
	configFile := parser.String("c", "config", &argparse.Options{Help: "YAML config file", Required: false, Default: ""})
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

	src, err := yolo.ParseSource(*source)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	requested := *model
	if requested == "" {
		requested = cfg.BestWeightsPath()
	}
	weights := yolo.ResolveWeights(logger, cfg, requested)
	logger.Infof("Using %v weights %v", weights.Source, weights.Path)

	params := nn.NewDetectionParams()
	params.ConfidenceThreshold = cfg.Detector.Confidence
	params.ImageSize = cfg.Train.ImageSize
	if *conf >= 0 {
		params.ConfidenceThreshold = float32(*conf)
	}
	if *imgsz > 0 {
		params.ImageSize = *imgsz
	} else if weights.Config != nil && weights.Config.Width != 0 {
		params.ImageSize = weights.Config.Width
	}

	detector := yolo.NewCLI(logger, cfg.Detector.Executable, cfg.BaseDir)
	res, err := detector.Predict(&yolo.PredictRequest{
		Weights: weights,
		Source:  src,
		Params:  params,
		Project: cfg.RunsDir(),
		Name:    "predict",
	})
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	logger.Infof("Detections saved to %v", res.SaveDir)
}
