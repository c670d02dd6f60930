// Package predict submits images to an inference backend and returns parsed
// prediction sets. The core model and renderer never talk to the network;
// everything transport-related lives behind the Predictor interface.
package predict

import (
	"context"
	"image"

	"github.com/menta2k/visionflow/pkg/parse"
	"github.com/menta2k/visionflow/pkg/prediction"
)

// Predictor runs inference for one image and returns the validated
// predictions plus the parse report for the raw response.
type Predictor interface {
	Predict(ctx context.Context, img image.Image) (*prediction.PredictionSet, *parse.Report, error)
}
