package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trafficwatch/internal/config"
	"trafficwatch/internal/dto"
	"trafficwatch/internal/logger"
	"trafficwatch/internal/models"
	"trafficwatch/internal/repository"
	"trafficwatch/internal/services"
)

// mediaTypes maps accepted upload extensions to the media type of the case.
var mediaTypes = map[string]string{
	".jpg":  models.MediaImage,
	".jpeg": models.MediaImage,
	".png":  models.MediaImage,
	".mp4":  models.MediaVideo,
	".avi":  models.MediaVideo,
	".mov":  models.MediaVideo,
}

// UploadHandler accepts a traffic media file, records a pending case and
// queues it for processing.
func UploadHandler(manager *services.Manager, cases repository.CaseRepository, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		maxBytes := cfg.MaxUploadSizeMB << 20
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				http.Error(w, "Upload too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "Invalid multipart form", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "File field is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		mediaType, ok := mediaTypes[ext]
		if !ok {
			http.Error(w, fmt.Sprintf("Unsupported file type %s", ext), http.StatusBadRequest)
			return
		}

		location := r.FormValue("location")
		if location == "" {
			location = cfg.DefaultStation
		}

		if err := os.MkdirAll(cfg.UploadDirectory, 0755); err != nil {
			logger.Error("Failed to create upload directory: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		now := time.Now()
		day := now.Format("20060102")

		// Concurrent uploads can claim the same day sequence between
		// numbering and insert; the UNIQUE constraint reports the loser,
		// which renumbers and retries.
		var (
			id         int64
			caseNumber string
			storedPath string
			size       int64
		)
		for attempt := 0; ; attempt++ {
			seq, err := cases.NextSequence(day)
			if err != nil {
				logger.Error("Failed to number case: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			number := fmt.Sprintf("TVC-%s-%06d", day, seq)
			path := filepath.Join(cfg.UploadDirectory, number+ext)

			if storedPath == "" {
				dst, err := os.Create(path)
				if err != nil {
					logger.Error("Failed to create upload file: %v", err)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				size, err = io.Copy(dst, file)
				dst.Close()
				if err != nil {
					os.Remove(path)
					logger.Error("Failed to store upload: %v", err)
					http.Error(w, "Failed to store upload", http.StatusInternalServerError)
					return
				}
			} else if path != storedPath {
				if err := os.Rename(storedPath, path); err != nil {
					os.Remove(storedPath)
					logger.Error("Failed to renumber upload file: %v", err)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
			}
			caseNumber, storedPath = number, path

			id, err = cases.Insert(&models.Case{
				CaseNumber: caseNumber,
				Filename:   header.Filename,
				FilePath:   storedPath,
				FileSize:   size,
				MediaType:  mediaType,
				Location:   location,
				CapturedAt: now,
				Status:     models.StatusPending,
			})
			if err == nil {
				break
			}
			if errors.Is(err, repository.ErrDuplicateCaseNumber) && attempt < 3 {
				continue
			}
			os.Remove(storedPath)
			logger.Error("Failed to insert case: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		queued := manager.Enqueue(id)
		logger.Info("Upload %s stored as case %s (queued=%v)", header.Filename, caseNumber, queued)

		writeJSON(w, logger, http.StatusCreated, dto.UploadResponse{
			CaseID:     id,
			CaseNumber: caseNumber,
			MediaType:  mediaType,
			Queued:     queued,
		})
	}
}
