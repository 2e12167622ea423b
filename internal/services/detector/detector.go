package detector

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"

	"trafficwatch/internal/config"
	"trafficwatch/internal/logger"
)

const (
	// InputSize is the square side length the network expects.
	InputSize = 640
)

// Canonical labels produced by the traffic model.
const (
	LabelRider      = "rider"
	LabelHelmet     = "helmet"
	LabelPerson     = "person"
	LabelPlate      = "license-plate"
	LabelRedLight   = "red-light"
	LabelMotorcycle = "motorcycle"
	LabelScooter    = "scooter"
	LabelBicycle    = "bicycle"
)

// classLabels maps network class indices to labels, in training order.
var classLabels = []string{
	LabelRider,
	LabelHelmet,
	LabelPerson,
	LabelPlate,
	LabelRedLight,
	LabelMotorcycle,
	LabelScooter,
	LabelBicycle,
}

// Detection represents one detected object.
type Detection struct {
	Label      string
	Confidence float64
	X          int
	Y          int
	Width      int
	Height     int
}

// Rect returns the detection's bounding box as an image.Rectangle.
func (d Detection) Rect() image.Rectangle {
	return image.Rect(d.X, d.Y, d.X+d.Width, d.Y+d.Height)
}

// Service runs DNN inference on media frames. A Service is not safe for
// concurrent use; each processing worker owns its own instance.
type Service struct {
	net           gocv.Net
	modelPath     string
	confidenceMin float32
	nmsThreshold  float32
	loaded        bool
	logger        *logger.Logger
}

// NewService creates a detector and tries to load the network. A missing or
// broken model is not fatal: the server still accepts uploads, processing
// just reports the detector as not ready.
func NewService(cfg *config.Config, logger *logger.Logger) *Service {
	s := &Service{
		modelPath:     cfg.ModelPath,
		confidenceMin: float32(cfg.ConfidenceMin),
		nmsThreshold:  float32(cfg.NMSThreshold),
		logger:        logger,
	}

	if err := s.initializeNet(); err != nil {
		s.logger.Warning("Could not initialize detection network: %v", err)
		return s
	}

	return s
}

// initializeNet loads the network from the model file.
func (s *Service) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	net := gocv.ReadNet(s.modelPath, "")
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", s.modelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		return fmt.Errorf("failed to set backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		return fmt.Errorf("failed to set target: %w", err)
	}

	s.net = net
	s.loaded = true
	s.logger.Info("Detection network initialized from %s", s.modelPath)
	return nil
}

// Ready reports whether the network is loaded.
func (s *Service) Ready() bool {
	return s.loaded
}

// Close releases the network.
func (s *Service) Close() error {
	if s.loaded {
		return s.net.Close()
	}
	return nil
}

// DetectObjects runs inference on an encoded image and returns detections in
// original image coordinates.
func (s *Service) DetectObjects(imageBytes []byte) ([]Detection, error) {
	if !s.loaded {
		return nil, fmt.Errorf("detection network not initialized")
	}

	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(InputSize, InputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")

	output := s.net.Forward("")
	defer output.Close()

	// Output rows: cx, cy, w, h, objectness, then one score per class.
	cols := 5 + len(classLabels)
	rows := output.Total() / cols
	reshaped := output.Reshape(1, rows)
	defer reshaped.Close()

	scaleX := float32(mat.Cols()) / float32(InputSize)
	scaleY := float32(mat.Rows()) / float32(InputSize)

	var (
		boxes   []image.Rectangle
		scores  []float32
		classes []int
	)

	for i := 0; i < reshaped.Rows(); i++ {
		objectness := reshaped.GetFloatAt(i, 4)
		if objectness < s.confidenceMin {
			continue
		}

		bestClass := 0
		bestScore := float32(0)
		for c := 0; c < len(classLabels); c++ {
			score := reshaped.GetFloatAt(i, 5+c)
			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}

		confidence := objectness * bestScore
		if confidence < s.confidenceMin {
			continue
		}

		cx := reshaped.GetFloatAt(i, 0) * scaleX
		cy := reshaped.GetFloatAt(i, 1) * scaleY
		w := reshaped.GetFloatAt(i, 2) * scaleX
		h := reshaped.GetFloatAt(i, 3) * scaleY

		boxes = append(boxes, image.Rect(
			int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)))
		scores = append(scores, confidence)
		classes = append(classes, bestClass)
	}

	var results []Detection
	for _, idx := range gocv.NMSBoxes(boxes, scores, s.confidenceMin, s.nmsThreshold) {
		box := boxes[idx]
		results = append(results, Detection{
			Label:      classLabels[classes[idx]],
			Confidence: float64(scores[idx]),
			X:          box.Min.X,
			Y:          box.Min.Y,
			Width:      box.Dx(),
			Height:     box.Dy(),
		})
	}

	return results, nil
}

// AnnotateImage draws detection boxes and labels onto the image and returns
// it re-encoded as JPEG.
func (s *Service) AnnotateImage(detections []Detection, img []byte) ([]byte, error) {
	red := color.RGBA{R: 255, G: 0, B: 0, A: 0}

	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	for _, detection := range detections {
		if err := gocv.Rectangle(&mat, detection.Rect(), red, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s (%.2f)", detection.Label, detection.Confidence)
		pt := image.Pt(detection.X, detection.Y-5)
		if err := gocv.PutText(&mat, label, pt, gocv.FontHersheySimplex, 0.5, red, 1); err != nil {
			return nil, fmt.Errorf("failed to draw text: %w", err)
		}
	}

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	annotated := make([]byte, len(buf.GetBytes()))
	copy(annotated, buf.GetBytes())

	return annotated, nil
}
