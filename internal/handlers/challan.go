package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strconv"

	"trafficwatch/internal/logger"
	"trafficwatch/internal/models"
	"trafficwatch/internal/repository"
	"trafficwatch/internal/services/challan"
)

// SendChallanHandler emails a challan for a processed case.
func SendChallanHandler(
	challanService *challan.Service,
	cases repository.CaseRepository,
	violations repository.ViolationRepository,
	logger *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			http.Error(w, "Valid id parameter is required", http.StatusBadRequest)
			return
		}

		recipient := r.URL.Query().Get("recipient")
		if _, err := mail.ParseAddress(recipient); err != nil {
			http.Error(w, "Valid recipient address is required", http.StatusBadRequest)
			return
		}

		c, err := cases.GetByID(id)
		if err != nil {
			logger.Error("Error loading case %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if c == nil {
			http.Error(w, "Case not found", http.StatusNotFound)
			return
		}
		if c.Status == models.StatusPending {
			http.Error(w, "Case is not processed yet", http.StatusConflict)
			return
		}

		vs, err := violations.GetByCaseID(id)
		if err != nil {
			logger.Error("Error loading violations for case %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if len(vs) == 0 {
			http.Error(w, "Case has no violations to challan", http.StatusConflict)
			return
		}

		ch, err := challanService.Send(c, vs, recipient)
		if err != nil {
			if errors.Is(err, challan.ErrNotConfigured) {
				http.Error(w, "Challan delivery is not configured", http.StatusServiceUnavailable)
				return
			}
			logger.Error("Failed to send challan for case %s: %v", c.CaseNumber, err)
			http.Error(w, "Failed to send challan", http.StatusBadGateway)
			return
		}

		logger.Info("Challan %s sent for case %s to %s", ch.ChallanNumber, c.CaseNumber, recipient)
		writeJSON(w, logger, http.StatusOK, ch)
	}
}
