// Package plate turns a license-plate detection into a normalized plate
// number, either with local Tesseract OCR or a remote plate-reader API.
package plate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"strings"
	"unicode"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"

	"trafficwatch/internal/config"
)

// Unread is recorded when no plate could be recognized.
const Unread = "UNREAD"

// minPlateLength filters out OCR noise; anything shorter is discarded.
const minPlateLength = 4

// roiMargin is the padding in pixels added around the detected plate box
// before cropping, to survive slightly tight detections.
const roiMargin = 8

// roiScale upsamples the cropped plate before OCR.
const roiScale = 3

// Reader recognizes a plate number from a prepared plate image.
type Reader interface {
	ReadPlate(ctx context.Context, roi []byte) (plate string, confidence float64, err error)
}

// NewReader picks the Reader implementation selected by configuration.
func NewReader(cfg *config.Config) Reader {
	if cfg.PlateReader == "remote" {
		return NewRemoteReader(cfg.PlateAPIURL, cfg.PlateAPIToken, cfg.PlateRegions)
	}
	return NewTesseractReader(cfg.PlateLanguage)
}

// PrepareROI crops the plate region (with margin) out of the source image,
// upsamples it and converts it to a high-contrast grayscale PNG, which is what
// both readers consume.
func PrepareROI(src image.Image, box image.Rectangle) ([]byte, error) {
	bounds := src.Bounds()

	region := image.Rect(
		box.Min.X-roiMargin, box.Min.Y-roiMargin,
		box.Max.X+roiMargin, box.Max.Y+roiMargin,
	).Intersect(bounds)

	if region.Dx() <= 0 || region.Dy() <= 0 {
		return nil, fmt.Errorf("plate region %v outside image bounds %v", box, bounds)
	}

	cropped := imaging.Crop(src, region)
	resized := imaging.Resize(cropped, region.Dx()*roiScale, region.Dy()*roiScale, imaging.Lanczos)

	gray := effect.Grayscale(resized)
	contrasted := adjust.Contrast(gray, 0.4)

	var buf bytes.Buffer
	if err := png.Encode(&buf, contrasted); err != nil {
		return nil, fmt.Errorf("failed to encode plate region: %w", err)
	}

	return buf.Bytes(), nil
}

// Normalize uppercases a raw OCR read and strips everything that cannot
// appear on a plate. Reads shorter than minPlateLength are rejected.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if unicode.IsUpper(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	plate := b.String()
	if len(plate) < minPlateLength {
		return ""
	}
	return plate
}
