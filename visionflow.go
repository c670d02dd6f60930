// Package visionflow turns hosted visual-inference responses into validated,
// strongly-typed predictions and visual overlays for human inspection.
//
// The package parses heterogeneous inference results (detection,
// classification, segmentation) into a unified typed representation and
// composes them onto the source image as deterministic overlays: bounding
// boxes, segmentation mask fills and text labels.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/menta2k/visionflow"
//		"github.com/menta2k/visionflow/pkg/imageio"
//		"github.com/menta2k/visionflow/pkg/predict"
//	)
//
//	func main() {
//		predictor, err := predict.NewClient("https://predict.example.com/inference", "key", "secret")
//		if err != nil {
//			log.Fatal(err)
//		}
//		client := visionflow.New(predictor)
//
//		img, err := imageio.Load("photo.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		predictions, overlay, err := client.PredictAndRender(context.Background(), img)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		log.Printf("found %d objects", predictions.Len())
//		if err := imageio.Save(overlay, "photo_overlay.png", "png", 92, false); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of four main components:
//
// 1. Geometry (pkg/geometry): bounding boxes and coordinate conversions
// 2. Prediction model (pkg/prediction): typed, validated inference results
// 3. Result parser (pkg/parse): raw response payloads to prediction sets
// 4. Overlay renderer (pkg/render): deterministic drawing of boxes, masks and labels
//
// Inference backends live behind the predict.Predictor interface; a hosted
// HTTP endpoint client and a local Ollama vision-model backend are provided.
// The pipeline package (pkg/pipeline) chains loading, prediction and overlay
// steps over one image or a whole folder.
package visionflow

import (
	"context"
	"image"

	"github.com/menta2k/visionflow/pkg/parse"
	"github.com/menta2k/visionflow/pkg/predict"
	"github.com/menta2k/visionflow/pkg/prediction"
	"github.com/menta2k/visionflow/pkg/render"
)

// Version of the visionflow library
const Version = "1.0.0"

// Client ties an inference backend to the parser and renderer.
type Client struct {
	predictor  predict.Predictor
	renderOpts render.Options
}

// New creates a Client with default render options.
func New(predictor predict.Predictor) *Client {
	return &Client{
		predictor:  predictor,
		renderOpts: render.DefaultOptions(),
	}
}

// NewWithOptions creates a Client with custom render options.
func NewWithOptions(predictor predict.Predictor, opts render.Options) *Client {
	return &Client{
		predictor:  predictor,
		renderOpts: opts,
	}
}

// Predict runs inference on an image and returns the validated predictions
// plus the parse report for the raw response.
func (c *Client) Predict(ctx context.Context, img image.Image) (*prediction.PredictionSet, *parse.Report, error) {
	return c.predictor.Predict(ctx, img)
}

// Render draws a prediction set onto a copy of the image.
func (c *Client) Render(img image.Image, set *prediction.PredictionSet) (*image.NRGBA, error) {
	return render.Render(img, set, c.renderOpts)
}

// PredictAndRender runs inference and renders the overlay in one call.
func (c *Client) PredictAndRender(ctx context.Context, img image.Image) (*prediction.PredictionSet, *image.NRGBA, error) {
	set, _, err := c.Predict(ctx, img)
	if err != nil {
		return nil, nil, err
	}
	overlay, err := c.Render(img, set)
	if err != nil {
		return nil, nil, err
	}
	return set, overlay, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
