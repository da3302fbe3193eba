package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/milvehicles/pkg/config"
	"github.com/cyclopcam/milvehicles/pkg/dataset"
	"github.com/cyclopcam/milvehicles/pkg/viz"
	"github.com/dustin/go-humanize"
)

// Same-class boxes that overlap this much are reported by --validate
const duplicateIoU = 0.9

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("showbatch", "Draw a batch of training samples with their annotations")
	configFile := parser.String("c", "config", &argparse.Options{Help: "YAML config file", Required: false, Default: ""})
	split := parser.Selector("", "split", []string{config.SplitTrain, config.SplitVal, config.SplitTest}, &argparse.Options{Help: "Dataset split", Required: false, Default: config.SplitTrain})
	numExamples := parser.Int("n", "num", &argparse.Options{Help: "Number of images to draw", Required: false, Default: 5})
	perRow := parser.Int("", "per-row", &argparse.Options{Help: "Images per row", Required: false, Default: 4})
	output := parser.String("o", "output", &argparse.Options{Help: "Output image (.png or .jpg)", Required: false, Default: "batch.png"})
	histogram := parser.String("", "hist", &argparse.Options{Help: "If specified, also write a histogram of the classes in the split to this file", Required: false, Default: ""})
	seed := parser.Int("", "seed", &argparse.Options{Help: "Shuffle seed. 0 for random", Required: false, Default: 0})
	validate := parser.Flag("", "validate", &argparse.Options{Help: "Check every annotation in the split for out of range classes and duplicate boxes", Default: false})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	check(err)

	if err := run(logger, *configFile, *split, *numExamples, *perRow, *output, *histogram, int64(*seed), *validate); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(logger logs.Log, configFile, split string, numExamples, perRow int, output, histogram string, seed int64, validate bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	imagesDir, err := cfg.ImagesDir(split)
	if err != nil {
		return err
	}
	labelsDir, err := cfg.LabelsDir(split)
	if err != nil {
		return err
	}

	ds, err := dataset.New(imagesDir, labelsDir, cfg.Train.ImageSize, dataset.WithExtensions(cfg.Data.Extensions))
	if err != nil {
		return err
	}
	logger.Infof("%v split: %v images in %v", split, humanize.Comma(int64(ds.Len())), imagesDir)
	if ds.Len() == 0 {
		return fmt.Errorf("No images in %v", imagesDir)
	}

	if validate {
		if err := ds.Validate(cfg.NumClasses()); err != nil {
			return err
		}
		logger.Infof("All annotations have valid classes")
		dups, err := ds.FindDuplicates(duplicateIoU)
		if err != nil {
			return err
		}
		for _, dup := range dups {
			logger.Warnf("%v: boxes %v and %v overlap with IoU %.2f", dup.LabelPath, dup.Overlap.A+1, dup.Overlap.B+1, dup.Overlap.IOU)
		}
	}

	if seed == 0 {
		seed = cfg.Loader.Seed
	}
	loader, err := dataset.NewLoader(ds, dataset.LoaderOptions{
		BatchSize: max(numExamples, 1),
		Shuffle:   cfg.Loader.Shuffle,
		Seed:      seed,
		Workers:   cfg.Loader.Workers,
	})
	if err != nil {
		return err
	}
	batch, err := loader.Batch(0)
	if err != nil {
		return err
	}
	load := loader.LoadTime.Summary()
	logger.Infof("Loaded batch of %v images with %v objects (average %v per image, slowest %v)",
		batch.N, humanize.Comma(int64(batch.NumObjects())), load.Average, load.Longest)

	img, err := viz.RenderBatch(batch, cfg.Data.Classes, &viz.RenderOptions{
		NumExamples:  numExamples,
		ImagesPerRow: perRow,
		Padding:      4,
		LineWidth:    2,
	})
	if err != nil {
		return err
	}
	if err := viz.Save(img, output); err != nil {
		return err
	}
	logger.Infof("Wrote %v", output)

	if histogram != "" {
		counts, err := ds.CountClasses(cfg.NumClasses())
		if err != nil {
			return err
		}
		if err := viz.ClassHistogram(counts, cfg.Data.Classes, split, histogram); err != nil {
			return err
		}
		logger.Infof("Wrote class histogram %v", histogram)
	}
	return nil
}
