// Package video samples frames out of uploaded video files and runs
// detection over them with bounded concurrency.
package video

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"trafficwatch/internal/logger"
	"trafficwatch/internal/services/detector"
)

// maxSampledFrames caps the work a single video upload can cause.
const maxSampledFrames = 60

// Detector is the subset of the detection service the sampler needs.
type Detector interface {
	DetectObjects(imageBytes []byte) ([]detector.Detection, error)
}

// FrameResult pairs a sampled frame with its detections.
type FrameResult struct {
	Index      int
	Frame      []byte
	Detections []detector.Detection
}

// Service extracts and analyzes frames from video files.
type Service struct {
	interval int
	logger   *logger.Logger
}

// NewService creates a sampler that keeps every interval-th frame.
func NewService(interval int, logger *logger.Logger) *Service {
	if interval < 1 {
		interval = 1
	}
	return &Service{interval: interval, logger: logger}
}

// Sample reads the video and returns every interval-th frame encoded as JPEG,
// up to maxSampledFrames.
func (s *Service) Sample(path string) ([][]byte, error) {
	capture, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	defer capture.Close()

	mat := gocv.NewMat()
	defer mat.Close()

	var frames [][]byte
	frameIndex := 0

	for capture.Read(&mat) {
		frameIndex++
		if mat.Empty() || frameIndex%s.interval != 0 {
			continue
		}

		buf, err := gocv.IMEncode(".jpg", mat)
		if err != nil {
			s.logger.Warning("Failed to encode frame %d of %s: %v", frameIndex, path, err)
			continue
		}

		frame := make([]byte, len(buf.GetBytes()))
		copy(frame, buf.GetBytes())
		buf.Close()

		frames = append(frames, frame)
		if len(frames) >= maxSampledFrames {
			break
		}
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames could be sampled from %s", path)
	}

	s.logger.Info("Sampled %d frames from %s (every %d)", len(frames), path, s.interval)
	return frames, nil
}

// Analyze runs detection over the frames, borrowing detectors from the pool.
// Concurrency is bounded by the pool size; frame order is preserved in the
// result slice.
func (s *Service) Analyze(ctx context.Context, frames [][]byte, pool chan Detector) ([]FrameResult, error) {
	results := make([]FrameResult, len(frames))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cap(pool))

	for i, frame := range frames {
		i, frame := i, frame
		g.Go(func() error {
			var det Detector
			select {
			case det = <-pool:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { pool <- det }()

			detections, err := det.DetectObjects(frame)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}

			results[i] = FrameResult{Index: i, Frame: frame, Detections: detections}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
