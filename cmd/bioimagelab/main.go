package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rs/zerolog"

	"bioimagelab/pkg/bioimage"
	"bioimagelab/pkg/config"
	"bioimagelab/pkg/diag"
	"bioimagelab/pkg/normalize"
	"bioimagelab/pkg/visualization"
)

func main() {
	// Parse command line arguments
	inputPath := flag.String("input", "", "Input image (.png/.jpg or .ics/.ids/.tif/.tiff)")
	configPath := flag.String("config", "bioimagelab.yaml", "Configuration file (YAML)")
	channel := flag.Int("channel", 0, "Channel index to process")
	strategy := flag.String("strategy", "", "Normalization strategy: global, zref, zslice, tref, tslice (default from config)")
	method := flag.String("method", "", "Normalization method: max, minmax, percentile, zscore (default from config)")
	zRef := flag.Int("zref", -1, "Reference z-stack for the zref strategy (default from config)")
	tRef := flag.Int("tref", -1, "Reference timepoint for the tref strategy (default from config)")
	threshold := flag.Float64("threshold", -1, "Binarization threshold in [0, 1] (default from config)")
	fluorophore := flag.String("fluor", "", "Fluorophore tag for rendering tint (gfp, rfp, yfp, dapi, ...)")
	outputDir := flag.String("outdir", "", "Directory for rendered slice pairs (default from config)")
	flag.Parse()

	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	applyFlagOverrides(cfg, *strategy, *method, *zRef, *tRef, *threshold, *fluorophore, *outputDir)

	level := zerolog.WarnLevel
	if cfg.Output.Verbose {
		level = zerolog.InfoLevel
	}
	sink := diag.NewConsole(level)

	fmt.Println("================================")
	fmt.Println("BIOIMAGELAB - 5D MICROSCOPY IMAGE PREPROCESSING")
	fmt.Println("================================")

	// Step 1: Classify and load the image into the 5D tensor store
	fmt.Println("Step 1: Loading bioimage...")
	controller := bioimage.NewController(*inputPath, bioimage.WithSink(sink))
	if err := controller.Load(); err != nil {
		log.Fatalf("Load failed: %v", err)
	}
	shape := controller.Shape()
	fmt.Printf("Loaded %s with shape %s, channels: %v\n", *inputPath, shape, controller.ChannelNames())

	// Step 2: Normalize the selected channel
	fmt.Println("Step 2: Normalizing channel...")
	strat, err := normalize.ParseStrategy(cfg.Normalize.Strategy, cfg.Normalize.ZRef, cfg.Normalize.TRef)
	if err != nil {
		log.Fatalf("Invalid strategy: %v", err)
	}
	meth, err := normalize.ParseMethod(cfg.Normalize.Method, cfg.Normalize.PercentileLow, cfg.Normalize.PercentileHigh)
	if err != nil {
		log.Fatalf("Invalid method: %v", err)
	}
	if _, err := controller.Normalize(*channel, strat, meth); err != nil {
		log.Fatalf("Normalization failed: %v", err)
	}
	fmt.Printf("Channel %d normalized (%s, %s)\n", *channel, strat, meth.Name())

	// Step 3: Binarize the normalized channel
	fmt.Println("Step 3: Binarizing channel...")
	if _, err := controller.Binarize(*channel, cfg.Binarize.Threshold); err != nil {
		log.Fatalf("Binarization failed: %v", err)
	}
	fmt.Printf("Channel %d binarized at threshold %.2f\n", *channel, cfg.Binarize.Threshold)

	// Step 4: Render raw/binary slice pairs
	fmt.Println("Step 4: Rendering slice pairs...")
	renderer := visualization.NewRenderer(controller)
	if err := renderer.RenderSequence(*channel, cfg.Render.Fluorophore, cfg.Render.OutputDir); err != nil {
		log.Fatalf("Rendering failed: %v", err)
	}
	fmt.Printf("Rendered %d slice pairs to %s\n", shape.T*shape.Z, cfg.Render.OutputDir)
}

func applyFlagOverrides(cfg *config.Config, strategy, method string, zRef, tRef int, threshold float64, fluorophore, outputDir string) {
	if strategy != "" {
		cfg.Normalize.Strategy = strategy
	}
	if method != "" {
		cfg.Normalize.Method = method
	}
	if zRef >= 0 {
		cfg.Normalize.ZRef = zRef
	}
	if tRef >= 0 {
		cfg.Normalize.TRef = tRef
	}
	if threshold >= 0 {
		cfg.Binarize.Threshold = threshold
	}
	if fluorophore != "" {
		cfg.Render.Fluorophore = fluorophore
	}
	if outputDir != "" {
		cfg.Render.OutputDir = outputDir
	}
}
