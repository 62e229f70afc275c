package core

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
)

// Threshold is the score above which a row is classified as positive.
const Threshold = 0.5

// Prediction is the thresholded class and raw probability for one row.
type Prediction struct {
	Positive    bool
	Probability float64
}

// Classify converts a raw model score into a prediction.
func Classify(score float32) Prediction {
	return Prediction{
		Positive:    score > Threshold,
		Probability: widen(score),
	}
}

// widen converts a float32 to the float64 with the same shortest decimal
// representation, so 0.87 stays 0.87 instead of 0.8700000047683716.
func widen(f float32) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return v
}

// Predictor owns the model handle. It is built once before the server starts
// accepting requests and is read-only afterwards; a nil model means the
// service is unavailable.
type Predictor struct {
	model Model
}

// NewPredictor wraps model; pass nil to build a predictor that rejects every
// request as unavailable.
func NewPredictor(model Model) *Predictor {
	return &Predictor{model: model}
}

// Ready reports whether a model is loaded.
func (p *Predictor) Ready() bool {
	return p.model != nil
}

// ModelInfo returns the loaded model's info, or nil if no model is loaded.
func (p *Predictor) ModelInfo() *ModelInfo {
	if p.model == nil {
		return nil
	}
	info := p.model.Info()
	return &info
}

func (p *Predictor) Release() {
	if p.model != nil {
		p.model.Release()
	}
}

// Predict runs the model over the upload's features and thresholds each score.
func (p *Predictor) Predict(upload *Upload) ([]Prediction, error) {
	const op = "predict"

	if p.model == nil {
		return nil, newError(KindUnavailable, op, ErrModelNotLoaded)
	}

	features := upload.Features
	if features.Rows == 0 {
		return []Prediction{}, nil
	}

	scores, err := p.model.Predict(features.AsSequences())
	if err != nil {
		return nil, newError(KindInference, op, err)
	}
	if len(scores) != features.Rows {
		return nil, newError(KindInference, op, fmt.Errorf("model returned %d scores for %d rows", len(scores), features.Rows))
	}

	predictions := make([]Prediction, len(scores))
	for i, score := range scores {
		predictions[i] = Classify(score)
	}

	return predictions, nil
}

// Summary describes one annotated upload.
type Summary struct {
	Rows      int
	Positives int
	// Agreement is the fraction of rows whose predicted class matches the
	// adjusted label, or -1 if there are no rows.
	Agreement float64
}

func summarize(upload *Upload, predictions []Prediction) Summary {
	summary := Summary{Rows: len(predictions), Agreement: -1}
	if len(predictions) == 0 {
		return summary
	}

	matches := 0
	for i, pred := range predictions {
		if pred.Positive {
			summary.Positives++
		}
		if pred.Positive == (upload.Labels[i] == 1) {
			matches++
		}
	}
	summary.Agreement = float64(matches) / float64(len(predictions))
	return summary
}

// Annotate parses a CSV upload, classifies every row and writes the annotated
// table as an xlsx workbook to w. The workbook is only written once parsing
// and inference have succeeded.
func (p *Predictor) Annotate(upload io.Reader, w io.Writer) (Summary, error) {
	if p.model == nil {
		return Summary{}, newError(KindUnavailable, "annotate", ErrModelNotLoaded)
	}

	parsed, err := ParseUpload(upload)
	if err != nil {
		return Summary{}, err
	}

	predictions, err := p.Predict(parsed)
	if err != nil {
		return Summary{}, err
	}

	if err := WriteWorkbook(w, parsed.Table, predictions); err != nil {
		return Summary{}, err
	}

	summary := summarize(parsed, predictions)
	slog.Debug("annotated upload", "rows", summary.Rows, "positives", summary.Positives, "labelled_agreement", summary.Agreement)

	return summary, nil
}
