package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ParseEvidenceName extracts the case number and capture date from an
// evidence filename in the pattern TVC-YYYYMMDD-NNNNNN.jpg.
func ParseEvidenceName(filename string) (caseNumber string, capturedAt time.Time, err error) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(base, "-")

	if len(parts) != 3 || parts[0] != "TVC" {
		return "", time.Time{}, fmt.Errorf("invalid evidence name format: %s", filename)
	}

	capturedAt, err = time.Parse("20060102", parts[1])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to parse evidence date: %w", err)
	}

	return base, capturedAt, nil
}
