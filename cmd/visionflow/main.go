package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/menta2k/visionflow"
	"github.com/menta2k/visionflow/internal/config"
	"github.com/menta2k/visionflow/internal/utils"
	"github.com/menta2k/visionflow/pkg/imageio"
	"github.com/menta2k/visionflow/pkg/parse"
	"github.com/menta2k/visionflow/pkg/predict"
	"github.com/menta2k/visionflow/pkg/render"
)

func main() {
	var in, outDir, backend, endpoint, model, cfgPath string
	var showLabels, showScores, dumpJSON bool
	var maskAlpha float64
	var thickness, quality int
	var ext string
	var lossless bool

	flag.StringVar(&in, "in", "", "input image path or URL (jpg/png/webp)")
	flag.StringVar(&outDir, "out", "out", "output directory")
	flag.StringVar(&backend, "backend", "hosted", "backend to use: hosted or ollama")
	flag.StringVar(&endpoint, "url", "", "inference endpoint URL (hosted) or server URL (ollama, default http://localhost:11434)")
	flag.StringVar(&model, "model", "llava", "model name (ollama backend only)")
	flag.StringVar(&cfgPath, "config", "", "config file path (YAML)")

	flag.BoolVar(&showLabels, "labels", true, "draw class labels")
	flag.BoolVar(&showScores, "scores", true, "draw confidence scores")
	flag.Float64Var(&maskAlpha, "alpha", 0.5, "segmentation mask opacity (0-1)")
	flag.IntVar(&thickness, "thickness", 2, "bounding box outline thickness (px)")
	flag.BoolVar(&dumpJSON, "json", false, "also write the parsed predictions as JSON")

	flag.StringVar(&ext, "ext", "png", "overlay output format: png|jpg|webp")
	flag.IntVar(&quality, "quality", 92, "JPEG/WebP output quality (1-100)")
	flag.BoolVar(&lossless, "lossless", false, "WebP lossless mode")

	flag.Parse()
	if in == "" {
		log.Fatalf("usage: %s -in input.jpg|URL [-backend hosted|ollama] [-url endpoint] [-out outdir]", os.Args[0])
	}

	var cfg *config.Config
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFromFile(cfgPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	} else {
		cfg = config.FromEnv()
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if endpoint == "" {
		endpoint = cfg.Endpoint.URL
	}

	if err := utils.EnsureDir(outDir); err != nil {
		log.Fatal(err)
	}

	// Create the appropriate backend
	var predictor predict.Predictor
	switch backend {
	case "hosted":
		if endpoint == "" {
			log.Fatal("hosted backend needs -url or VISIONFLOW_ENDPOINT")
		}
		predictor, err = predict.NewClient(endpoint, cfg.Endpoint.APIKey, cfg.Endpoint.APISecret,
			predict.WithCoordinateSpace(coordinateSpace(cfg.Parse.CoordinateSpace)),
			predict.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Endpoint.TimeoutSeconds) * time.Second}),
		)
		if err != nil {
			log.Fatalf("Failed to create hosted client: %v", err)
		}
	case "ollama":
		if endpoint == "" {
			endpoint = "http://localhost:11434"
		}
		predictor, err = predict.NewOllamaBackend(endpoint, model)
		if err != nil {
			log.Fatalf("Failed to create Ollama backend: %v", err)
		}
	default:
		log.Fatalf("Unknown backend: %s (use 'hosted' or 'ollama')", backend)
	}

	client := visionflow.NewWithOptions(predictor, render.Options{
		ShowLabels:   showLabels,
		ShowScores:   showScores,
		MaskAlpha:    maskAlpha,
		BoxThickness: thickness,
	})

	img, err := imageio.LoadSmart(in)
	if err != nil {
		log.Fatal(err)
	}

	set, report, err := client.Predict(context.Background(), img)
	if err != nil {
		log.Fatal(err)
	}
	for _, entryErr := range report.Errors {
		log.Warnf("skipped malformed prediction: %v", entryErr)
	}
	log.Infof("parsed %d of %d predictions (%d coordinates clamped)",
		set.Len(), report.Entries, report.Clamped)
	for label, n := range set.ClassCounts() {
		log.Infof("  %s: %d", label, n)
	}

	overlay, err := client.Render(img, set)
	if err != nil {
		log.Fatal(err)
	}

	outPath := utils.GenerateOutputFilename(in, outDir, "_overlay", ext)
	if err := imageio.Save(overlay, outPath, ext, quality, lossless); err != nil {
		log.Fatal(err)
	}
	log.Infof("wrote %s", outPath)

	if dumpJSON {
		data, err := json.MarshalIndent(set, "", "  ")
		if err != nil {
			log.Fatal(err)
		}
		jsonPath := utils.GenerateOutputFilename(in, outDir, "_predictions", "json")
		if err := os.WriteFile(jsonPath, data, 0644); err != nil {
			log.Fatal(err)
		}
		log.Infof("wrote %s", jsonPath)
	}

	fmt.Printf("done: %d predictions, overlay at %s\n", set.Len(), outPath)
}

func coordinateSpace(name string) parse.CoordinateSpace {
	switch name {
	case "normalized":
		return parse.SpaceNormalized
	case "pixel":
		return parse.SpacePixel
	default:
		return parse.SpaceAuto
	}
}
