package plate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// RemoteReader recognizes plates through a hosted plate-reader HTTP API.
type RemoteReader struct {
	url     string
	token   string
	regions []string
	client  *http.Client
}

// NewRemoteReader creates a reader for the given API endpoint. regions is a
// comma separated list of region hints forwarded to the API.
func NewRemoteReader(url, token, regions string) *RemoteReader {
	var hints []string
	for _, r := range strings.Split(regions, ",") {
		if r = strings.TrimSpace(r); r != "" {
			hints = append(hints, r)
		}
	}

	return &RemoteReader{
		url:     url,
		token:   token,
		regions: hints,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// plateReaderResponse mirrors the relevant part of the API response.
type plateReaderResponse struct {
	Results []struct {
		Plate string  `json:"plate"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// ReadPlate uploads the plate image and returns the highest-scoring candidate.
func (r *RemoteReader) ReadPlate(ctx context.Context, roi []byte) (string, float64, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, region := range r.regions {
		if err := writer.WriteField("regions", region); err != nil {
			return "", 0, fmt.Errorf("failed to write region field: %w", err)
		}
	}

	part, err := writer.CreateFormFile("upload", "plate.png")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(roi); err != nil {
		return "", 0, fmt.Errorf("failed to write plate image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, &body)
	if err != nil {
		return "", 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if r.token != "" {
		req.Header.Set("Authorization", "Token "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("plate reader request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("plate reader returned status %d", resp.StatusCode)
	}

	var decoded plateReaderResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", 0, fmt.Errorf("failed to decode plate reader response: %w", err)
	}

	best := ""
	bestScore := 0.0
	for _, candidate := range decoded.Results {
		if candidate.Score >= bestScore {
			best = candidate.Plate
			bestScore = candidate.Score
		}
	}

	plate := Normalize(best)
	if plate == "" {
		return "", 0, nil
	}

	return plate, bestScore, nil
}
