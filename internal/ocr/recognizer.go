// Package ocr runs Tesseract over document field crops. The engine is a
// fixed pool of clients; each client serves one recognition at a time.
package ocr

import (
	"context"
	"errors"
)

// Result is the text and 0-100 confidence of one recognition.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Recognizer recognizes one encoded image under a profile.
type Recognizer interface {
	Recognize(ctx context.Context, img []byte, profile Profile) (Result, error)
}

var (
	// ErrEngineUnavailable means the engine failed to start or was shut
	// down. It is fatal to the whole OCR run.
	ErrEngineUnavailable = errors.New("ocr engine unavailable")
	// ErrRecognitionTimeout means a single recognition outlived its budget.
	ErrRecognitionTimeout = errors.New("ocr recognition timed out")
)
