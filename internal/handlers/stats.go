package handlers

import (
	"net/http"

	"trafficwatch/internal/logger"
	"trafficwatch/internal/repository"
)

// GetStatsHandler returns dashboard statistics over all cases.
func GetStatsHandler(cases repository.CaseRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := cases.GetStats()
		if err != nil {
			logger.Error("Failed to get stats: %v", err)
			http.Error(w, "Failed to retrieve stats", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusOK, stats)
	}
}
