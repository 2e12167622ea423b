package plate

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractReader recognizes plates with a local Tesseract installation.
type TesseractReader struct {
	language string
}

// NewTesseractReader creates a reader using the given Tesseract language code.
func NewTesseractReader(language string) *TesseractReader {
	return &TesseractReader{language: language}
}

// ReadPlate runs OCR over the prepared plate image. The confidence is the
// mean word confidence reported by Tesseract, scaled to 0..1.
func (t *TesseractReader) ReadPlate(ctx context.Context, roi []byte) (string, float64, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return "", 0, fmt.Errorf("failed to set language: %w", err)
	}

	// Plates are a single line of unstructured text.
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return "", 0, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	if err := client.SetImageFromBytes(roi); err != nil {
		return "", 0, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("OCR failed: %w", err)
	}

	plate := Normalize(text)
	if plate == "" {
		return "", 0, nil
	}

	confidence := 0.0
	if boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD); err == nil && len(boxes) > 0 {
		sum := 0.0
		for _, box := range boxes {
			sum += box.Confidence
		}
		confidence = sum / float64(len(boxes)) / 100.0
	}

	return plate, confidence, nil
}
