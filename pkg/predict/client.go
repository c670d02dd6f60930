package predict

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/menta2k/visionflow/pkg/imageio"
	"github.com/menta2k/visionflow/pkg/parse"
	"github.com/menta2k/visionflow/pkg/prediction"
)

// Client talks to a hosted inference endpoint. Images are uploaded as JPEG
// via multipart form data; credentials travel in the apikey/apisecret
// headers.
type Client struct {
	endpoint   string
	apiKey     string
	apiSecret  string
	space      parse.CoordinateSpace
	httpClient *http.Client
	logger     *log.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithCoordinateSpace overrides the coordinate convention used when parsing
// responses. Default is auto detection.
func WithCoordinateSpace(space parse.CoordinateSpace) ClientOption {
	return func(c *Client) { c.space = space }
}

// WithHTTPClient replaces the underlying HTTP client, e.g. to change the
// timeout.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger replaces the logger used for parse warnings.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a hosted-endpoint client.
func NewClient(endpoint, apiKey, apiSecret string, opts ...ClientOption) (*Client, error) {
	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported endpoint scheme: %s", parsedURL.Scheme)
	}
	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Predict uploads the image, reads the raw response and parses it into a
// PredictionSet sized to the image.
func (c *Client) Predict(ctx context.Context, img image.Image) (*prediction.PredictionSet, *parse.Report, error) {
	data, err := imageio.Encode(img, "jpg", 0, 90)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode image: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, nil, fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("apisecret", c.apiSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("inference request failed: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	bounds := img.Bounds()
	return parse.Parse(raw, bounds.Dx(), bounds.Dy(), parse.Options{
		Space:  c.space,
		Logger: c.logger,
	})
}
