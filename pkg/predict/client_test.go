package predict

import (
	"context"
	"image"
	"image/color"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/menta2k/visionflow/pkg/parse"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{64, 64, 64, 255})
		}
	}
	return img
}

func TestClientPredict(t *testing.T) {
	var gotKey, gotSecret, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("apikey")
		gotSecret = r.Header.Get("apisecret")
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("upload is not multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"request_id": "r-7", "predictions": [
			{"label": "cat", "score": 0.92, "box": [0.1, 0.1, 0.4, 0.4]}
		]}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "test-key", "test-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	set, report, err := client.Predict(context.Background(), createTestImage(100, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotKey != "test-key" || gotSecret != "test-secret" {
		t.Errorf("credentials not sent: key=%q secret=%q", gotKey, gotSecret)
	}
	if gotContentType == "" {
		t.Error("missing multipart content type")
	}
	if !report.Ok() {
		t.Errorf("unexpected report errors: %v", report.Errors)
	}
	if set.Len() != 1 || set.RequestID() != "r-7" {
		t.Fatalf("unexpected set: len=%d request_id=%q", set.Len(), set.RequestID())
	}

	box := set.At(0).Box
	if box == nil || math.Abs(box.XMin-10) > 1e-9 || math.Abs(box.XMax-40) > 1e-9 {
		t.Errorf("unexpected pixel box %v", box)
	}
}

func TestClientPredictHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "bad", "bad")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, err := client.Predict(context.Background(), createTestImage(10, 10)); err == nil {
		t.Error("expected error for HTTP 401")
	}
}

func TestNewClientValidatesEndpoint(t *testing.T) {
	if _, err := NewClient("ftp://example.com", "k", "s"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
	if _, err := NewClient("http://example.com/inference", "k", "s"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSanitizeModelJSON(t *testing.T) {
	raw := "```json\n{\n  // a comment\n  \"predictions\": [\n    {\"label\": \"cat\", \"score\": 0.9, \"box\": [0.1, 0.1, 0.2, 0.2]},\n  ]\n}\n```"

	got := sanitizeModelJSON(raw)
	set, report, err := parse.Parse([]byte(got), 100, 100, parse.Options{Space: parse.SpaceNormalized})
	if err != nil {
		t.Fatalf("sanitized output does not parse: %v\n%s", err, got)
	}
	if !report.Ok() || set.Len() != 1 || set.At(0).Label != "cat" {
		t.Errorf("unexpected parse result: %d predictions, errors %v", set.Len(), report.Errors)
	}
}

func TestNewOllamaBackendParsesURL(t *testing.T) {
	backend, err := NewOllamaBackend("http://localhost:11434/api/chat", "llava")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.model != "llava" {
		t.Errorf("unexpected model %q", backend.model)
	}
}
