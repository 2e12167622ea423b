package handlers

import (
	"net/http"
	"os"
	"strconv"

	"trafficwatch/internal/dto"
	"trafficwatch/internal/logger"
	"trafficwatch/internal/repository"
	"trafficwatch/internal/services"
)

// GetCasesHandler returns a filtered, paginated list of violation cases.
func GetCasesHandler(cases repository.CaseRepository, violations repository.ViolationRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &dto.CaseFilter{
			Status:        q.Get("status"),
			ViolationCode: q.Get("violation"),
			Location:      q.Get("location"),
			VehicleType:   q.Get("vehicleType"),
			Plate:         q.Get("plate"),
			DateAfter:     parseDate(q.Get("dateAfter")),
			DateBefore:    parseDate(q.Get("dateBefore")),
			Limit:         limit,
			Offset:        (page - 1) * limit,
		}

		records, err := cases.GetAll(filter)
		if err != nil {
			logger.Error("Error querying cases: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := cases.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting cases: %v", err)
			totalCount = len(records)
		}

		totalFines := 0
		infos := make([]dto.CaseInfo, 0, len(records))
		for _, c := range records {
			vs, err := violations.GetByCaseID(c.ID)
			if err != nil {
				logger.Error("Error loading violations for case %d: %v", c.ID, err)
			}

			names := make([]string, 0, len(vs))
			for _, v := range vs {
				names = append(names, v.Description)
			}

			totalFines += c.TotalFine
			infos = append(infos, dto.CaseInfo{
				ID:           c.ID,
				CaseNumber:   c.CaseNumber,
				Filename:     c.Filename,
				CapturedAt:   c.CapturedAt,
				Location:     c.Location,
				VehicleType:  c.VehicleType,
				VehicleColor: c.VehicleColor,
				PlateNumber:  c.PlateNumber,
				Status:       c.Status,
				TotalFine:    c.TotalFine,
				Violations:   names,
				EvidenceFile: c.EvidenceFile,
			})
		}

		data := dto.CasesData{
			Cases:       infos,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
			TotalFines:  totalFines,
		}

		writeJSON(w, logger, http.StatusOK, data)
	}
}

// GetCaseDetailHandler returns the full record of one case.
func GetCaseDetailHandler(
	cases repository.CaseRepository,
	violations repository.ViolationRepository,
	detections repository.DetectionRepository,
	challans repository.ChallanRepository,
	logger *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			http.Error(w, "Valid id parameter is required", http.StatusBadRequest)
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

		vs, err := violations.GetByCaseID(id)
		if err != nil {
			logger.Error("Error loading violations: %v", err)
		}
		ds, err := detections.GetByCaseID(id)
		if err != nil {
			logger.Error("Error loading detections: %v", err)
		}
		chs, err := challans.GetByCaseID(id)
		if err != nil {
			logger.Error("Error loading challans: %v", err)
		}

		writeJSON(w, logger, http.StatusOK, dto.CaseDetail{
			Case:       *c,
			Violations: vs,
			Detections: ds,
			Challans:   chs,
		})
	}
}

// GetFiltersHandler returns the distinct values available for case filtering.
func GetFiltersHandler(cases repository.CaseRepository, violations repository.ViolationRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locations, vehicleTypes, err := cases.GetFilterValues()
		if err != nil {
			logger.Error("Failed to get filter values: %v", err)
		}

		codes, err := violations.GetCodes()
		if err != nil {
			logger.Error("Failed to get violation codes: %v", err)
		}

		response := map[string]interface{}{
			"locations":    locations,
			"vehicleTypes": vehicleTypes,
			"violations":   codes,
		}

		writeJSON(w, logger, http.StatusOK, response)
	}
}

// DeleteCaseHandler removes a case, its related rows and its files.
func DeleteCaseHandler(manager *services.Manager, cases repository.CaseRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			http.Error(w, "Valid id parameter is required", http.StatusBadRequest)
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

		if err := os.Remove(c.FilePath); err != nil && !os.IsNotExist(err) {
			logger.Error("Failed to delete upload %s: %v", c.FilePath, err)
		}
		if err := manager.GetEvidenceService().Remove(c.EvidenceFile); err != nil {
			logger.Error("Failed to delete evidence %s: %v", c.EvidenceFile, err)
		}

		if err := cases.Delete(id); err != nil {
			logger.Error("Failed to delete case %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("Deleted case %s", c.CaseNumber)
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "deleted", "case_number": c.CaseNumber})
	}
}

// ClearCasesHandler removes all cases and evidence files.
func ClearCasesHandler(manager *services.Manager, cases repository.CaseRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := manager.GetEvidenceService().Clear(); err != nil {
			logger.Error("Error clearing evidence: %v", err)
		}

		if err := cases.DeleteAll(); err != nil {
			logger.Error("Error clearing cases: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("All cases cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}

// ViewEvidenceHandler serves a single evidence image specified via the "file" query parameter.
func ViewEvidenceHandler(manager *services.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file := r.URL.Query().Get("file")
		if file == "" {
			http.Error(w, "File parameter is required", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, manager.GetEvidenceService().Path(file))
	}
}
