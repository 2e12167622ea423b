package video

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"trafficwatch/internal/config"
	"trafficwatch/internal/logger"
	"trafficwatch/internal/services/detector"
)

// countingDetector tags each frame with its content and tracks concurrent use.
type countingDetector struct {
	inFlight *int32
	maxSeen  *int32
	fail     bool
}

func (d *countingDetector) DetectObjects(imageBytes []byte) ([]detector.Detection, error) {
	n := atomic.AddInt32(d.inFlight, 1)
	defer atomic.AddInt32(d.inFlight, -1)

	for {
		seen := atomic.LoadInt32(d.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(d.maxSeen, seen, n) {
			break
		}
	}

	if d.fail {
		return nil, errors.New("inference failed")
	}

	return []detector.Detection{
		{Label: string(imageBytes), Confidence: 0.9, X: 1, Y: 2, Width: 3, Height: 4},
	}, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
}

func TestAnalyze_PreservesFrameOrder(t *testing.T) {
	svc := NewService(15, testLogger(t))

	var inFlight, maxSeen int32
	pool := make(chan Detector, 2)
	pool <- &countingDetector{inFlight: &inFlight, maxSeen: &maxSeen}
	pool <- &countingDetector{inFlight: &inFlight, maxSeen: &maxSeen}

	frames := make([][]byte, 10)
	for i := range frames {
		frames[i] = []byte(fmt.Sprintf("frame-%02d", i))
	}

	results, err := svc.Analyze(context.Background(), frames, pool)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(results) != len(frames) {
		t.Fatalf("Expected %d results, got %d", len(frames), len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("Result %d has index %d", i, r.Index)
		}
		if len(r.Detections) != 1 || r.Detections[0].Label != string(frames[i]) {
			t.Errorf("Result %d detections belong to the wrong frame: %+v", i, r.Detections)
		}
	}

	// All borrowed detectors must be back in the pool.
	if len(pool) != 2 {
		t.Errorf("Expected 2 detectors returned to pool, got %d", len(pool))
	}

	if maxSeen > 2 {
		t.Errorf("Concurrency exceeded pool size: %d detectors in flight", maxSeen)
	}
}

func TestAnalyze_PropagatesDetectorError(t *testing.T) {
	svc := NewService(15, testLogger(t))

	var inFlight, maxSeen int32
	pool := make(chan Detector, 1)
	pool <- &countingDetector{inFlight: &inFlight, maxSeen: &maxSeen, fail: true}

	_, err := svc.Analyze(context.Background(), [][]byte{[]byte("a"), []byte("b")}, pool)
	if err == nil {
		t.Fatal("Expected error from failing detector")
	}
}

func TestAnalyze_NoFrames(t *testing.T) {
	svc := NewService(15, testLogger(t))

	pool := make(chan Detector, 1)
	var inFlight, maxSeen int32
	pool <- &countingDetector{inFlight: &inFlight, maxSeen: &maxSeen}

	results, err := svc.Analyze(context.Background(), nil, pool)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}
