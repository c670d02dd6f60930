// Package parse turns raw inference-service responses into validated
// prediction sets. Parsing is resilient per entry: a malformed prediction is
// excluded and recorded in the report instead of failing the whole batch.
package parse

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/menta2k/visionflow/pkg/geometry"
	"github.com/menta2k/visionflow/pkg/prediction"
)

// CoordinateSpace selects how box coordinates in the raw response are
// interpreted. The service's convention is not always observable, so it is
// an explicit, testable option rather than a hard-coded assumption.
type CoordinateSpace int

const (
	// SpaceAuto treats an entry whose coordinates all lie in [0,1] as
	// normalized and anything else as pixel coordinates.
	SpaceAuto CoordinateSpace = iota
	// SpaceNormalized forces interpretation as fractions of the image size.
	SpaceNormalized
	// SpacePixel forces interpretation as absolute pixel coordinates.
	SpacePixel
)

// Options configures a parse call.
type Options struct {
	// Space selects the coordinate convention, SpaceAuto by default.
	Space CoordinateSpace

	// Logger receives warnings about clamped coordinates. Defaults to the
	// standard logrus logger.
	Logger *log.Logger
}

// EntryError pairs a recorded per-entry failure with the index of the raw
// entry that caused it.
type EntryError struct {
	Index int
	Err   error
}

func (e EntryError) Error() string {
	return fmt.Sprintf("entry %d: %v", e.Index, e.Err)
}

// Report summarizes a parse call: how many raw entries were seen, which ones
// were rejected and how many coordinates had to be clamped to image bounds.
type Report struct {
	Entries int
	Clamped int
	Errors  []EntryError
}

// Ok reports whether every raw entry parsed cleanly.
func (r *Report) Ok() bool {
	return len(r.Errors) == 0
}

type rawResponse struct {
	RequestID   string            `json:"request_id"`
	Predictions []json.RawMessage `json:"predictions"`
}

type rawEntry struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Label       string         `json:"label"`
	Score       *float64       `json:"score"`
	ClassID     int            `json:"class_id"`
	Box         []float64      `json:"box"`
	Mask        string         `json:"mask"`
	EncodingMap map[string]int `json:"encoding_map"`
	MaskShape   []int          `json:"mask_shape"`
}

// Parse maps a raw service response onto a PredictionSet for an image of the
// given pixel dimensions. The response is either a JSON object with a
// "predictions" array (plus optional "request_id") or a bare array of
// prediction entries.
//
// Out-of-bounds coordinates are clamped to the canvas and logged, since a
// service may legitimately overflow by a fraction of a pixel when rounding.
// Scores outside [0,1] indicate a protocol mismatch and reject the entry.
func Parse(raw []byte, width, height int, opts Options) (*prediction.PredictionSet, *Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	if width <= 0 || height <= 0 {
		return nil, nil, &prediction.ValidationError{
			Field:    "image dimensions",
			Expected: "positive width and height",
			Actual:   fmt.Sprintf("%dx%d", width, height),
		}
	}

	entries, requestID, err := splitEntries(raw)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{Entries: len(entries)}
	preds := make([]prediction.Prediction, 0, len(entries))
	for i, data := range entries {
		p, clamped, err := parseEntry(data, width, height, opts.Space)
		if err != nil {
			report.Errors = append(report.Errors, EntryError{Index: i, Err: err})
			continue
		}
		if clamped {
			report.Clamped++
			logger.WithFields(log.Fields{
				"entry": i,
				"label": p.Label,
			}).Warn("clamped out-of-bounds coordinates to image canvas")
		}
		preds = append(preds, p)
	}

	set, err := prediction.NewPredictionSet(width, height, requestID, preds)
	if err != nil {
		return nil, report, err
	}
	return set, report, nil
}

func splitEntries(raw []byte) ([]json.RawMessage, string, error) {
	var resp rawResponse
	if err := json.Unmarshal(raw, &resp); err == nil && resp.Predictions != nil {
		return resp.Predictions, resp.RequestID, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err == nil {
		return entries, "", nil
	}
	return nil, "", &prediction.ValidationError{
		Field:    "response",
		Expected: "JSON object with a predictions array, or a bare array",
		Actual:   preview(raw),
	}
}

func parseEntry(data json.RawMessage, width, height int, space CoordinateSpace) (prediction.Prediction, bool, error) {
	var e rawEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return prediction.Prediction{}, false, &prediction.ValidationError{
			Field:    "entry",
			Expected: "JSON object",
			Actual:   preview(data),
		}
	}

	kind, err := resolveKind(e)
	if err != nil {
		return prediction.Prediction{}, false, err
	}
	if e.Label == "" {
		return prediction.Prediction{}, false, &prediction.ValidationError{Field: "label", Expected: "non-empty string", Actual: "missing or empty"}
	}
	if e.Score == nil {
		return prediction.Prediction{}, false, &prediction.ValidationError{Field: "score", Expected: "value in [0,1]", Actual: "missing"}
	}
	if *e.Score < 0 || *e.Score > 1 {
		return prediction.Prediction{}, false, &prediction.ValidationError{Field: "score", Expected: "value in [0,1]", Actual: fmt.Sprintf("%g", *e.Score)}
	}

	p := prediction.Prediction{
		ID:      e.ID,
		Kind:    kind,
		Label:   e.Label,
		Score:   *e.Score,
		ClassID: e.ClassID,
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	clamped := false
	switch kind {
	case prediction.KindClassification:
		// No spatial fields.
	case prediction.KindDetection:
		box, c, err := parseBox(e.Box, width, height, space)
		if err != nil {
			return prediction.Prediction{}, false, err
		}
		p.Box = &box
		clamped = c
	case prediction.KindSegmentation:
		mask, err := parseMask(e, width, height)
		if err != nil {
			return prediction.Prediction{}, false, err
		}
		p.Mask = mask
		// The extent box is derived when the mask has any foreground; an
		// all-background mask keeps a nil box and reports EmptyRegionError
		// only when its extent is actually requested.
		if extent, err := mask.Extent(); err == nil {
			p.Box = &extent
		}
	}
	return p, clamped, nil
}

func resolveKind(e rawEntry) (prediction.Kind, error) {
	if e.Type != "" {
		switch e.Type {
		case "classification":
			return prediction.KindClassification, nil
		case "detection":
			return prediction.KindDetection, nil
		case "segmentation":
			return prediction.KindSegmentation, nil
		default:
			return 0, &prediction.UnsupportedVariantError{Variant: e.Type}
		}
	}
	// Discriminate by field shape: a mask wins over a box, a box over neither.
	if e.Mask != "" {
		return prediction.KindSegmentation, nil
	}
	if e.Box != nil {
		return prediction.KindDetection, nil
	}
	return prediction.KindClassification, nil
}

func parseBox(coords []float64, width, height int, space CoordinateSpace) (geometry.Box, bool, error) {
	if len(coords) != 4 {
		return geometry.Box{}, false, &prediction.ValidationError{
			Field:    "box",
			Expected: "[xmin, ymin, xmax, ymax]",
			Actual:   fmt.Sprintf("%d values", len(coords)),
		}
	}
	box, err := geometry.NewBox(coords[0], coords[1], coords[2], coords[3])
	if err != nil {
		return geometry.Box{}, false, &prediction.ValidationError{
			Field:    "box",
			Expected: "xmin <= xmax and ymin <= ymax",
			Actual:   fmt.Sprintf("%v", coords),
		}
	}
	if isNormalized(box, space) {
		box = geometry.NormalizedBox{XMin: box.XMin, YMin: box.YMin, XMax: box.XMax, YMax: box.YMax}.ToPixel(width, height)
	}
	clamped := box.ClampTo(width, height)
	return clamped, clamped != box, nil
}

func isNormalized(b geometry.Box, space CoordinateSpace) bool {
	switch space {
	case SpaceNormalized:
		return true
	case SpacePixel:
		return false
	default:
		return b.XMin >= 0 && b.YMin >= 0 && b.XMax <= 1 && b.YMax <= 1
	}
}

func parseMask(e rawEntry, width, height int) (*prediction.Mask, error) {
	maskW, maskH := width, height
	if len(e.MaskShape) == 2 {
		// mask_shape is (height, width), matching the service convention.
		maskH, maskW = e.MaskShape[0], e.MaskShape[1]
	}
	if maskW != width || maskH != height {
		return nil, &prediction.ValidationError{
			Field:    "mask_shape",
			Expected: fmt.Sprintf("%dx%d to match the image", width, height),
			Actual:   fmt.Sprintf("%dx%d", maskW, maskH),
		}
	}
	encodingMap := e.EncodingMap
	if encodingMap == nil {
		encodingMap = map[string]int{"Z": 0, "N": 1}
	}
	return prediction.DecodeRLEMask(e.Mask, encodingMap, width, height)
}

func preview(data []byte) string {
	const max = 48
	s := string(data)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
