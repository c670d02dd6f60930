package predict

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/visionflow/pkg/imageio"
	"github.com/menta2k/visionflow/pkg/parse"
	"github.com/menta2k/visionflow/pkg/prediction"
)

// detectionPrompt instructs a local vision model to emit the same detection
// payload the hosted service produces, with normalized coordinates.
const detectionPrompt = `You are an object detector.

Return JSON only:
{
  "predictions": [
    {"label": "string", "score": 0.0, "box": [0.0, 0.0, 0.0, 0.0]}
  ]
}

HARD RULES
- box is [xmin, ymin, xmax, ymax] normalized to [0,1] (NOT pixels).
- score is your confidence in [0,1].
- One entry per distinct object. Return an empty predictions array if nothing is found.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// OllamaBackend runs inference against a local Ollama server with a vision
// capable model. It implements Predictor so callers can swap it in for the
// hosted client.
type OllamaBackend struct {
	client *api.Client
	model  string
}

// NewOllamaBackend creates a backend for the given Ollama server URL and
// model name. Any path on the URL (such as /api/chat) is ignored.
func NewOllamaBackend(ollamaURL, model string) (*OllamaBackend, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}
	return &OllamaBackend{
		client: api.NewClient(baseURL, http.DefaultClient),
		model:  model,
	}, nil
}

// Predict sends the image to the vision model and parses the JSON it
// returns. Coordinates are always treated as normalized, per the prompt.
func (b *OllamaBackend) Predict(ctx context.Context, img image.Image) (*prediction.PredictionSet, *parse.Report, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}

	imgB64, err := imageio.EncodeBase64(img, "jpg", 1536, 85)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode image: %w", err)
	}
	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode base64 image: %v", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: b.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: detectionPrompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream: &streamFalse,
	}

	var responseContent string
	err = b.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("ollama chat error: %v", err)
	}
	if responseContent == "" {
		return nil, nil, fmt.Errorf("empty response from ollama")
	}

	raw := sanitizeModelJSON(responseContent)
	bounds := img.Bounds()
	return parse.Parse([]byte(raw), bounds.Dx(), bounds.Dy(), parse.Options{
		Space: parse.SpaceNormalized,
	})
}

// sanitizeModelJSON removes code fences, comments, and trailing commas from
// a model response before JSON parsing.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	reBlock := regexp.MustCompile(`(?s)/\*.*?\*/`)
	raw = reBlock.ReplaceAllString(raw, "")
	reLine := regexp.MustCompile(`(?m)^\s*//.*$`)
	raw = reLine.ReplaceAllString(raw, "")
	reInline := regexp.MustCompile(`(?m)//.*$`)
	raw = reInline.ReplaceAllString(raw, "")
	reTrailing := regexp.MustCompile(`,(\s*[}\]])`)
	raw = reTrailing.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
