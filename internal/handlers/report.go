package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trafficwatch/internal/dto"
	"trafficwatch/internal/logger"
	"trafficwatch/internal/repository"
)

// csvHeader defines the columns of the violation report.
var csvHeader = []string{
	"Case Number", "Date", "Time", "Filename", "Location",
	"Vehicle Type", "Vehicle Color", "Plate Number",
	"Violations", "Fine (Rs)", "Status",
}

// CSVReportHandler streams a CSV report of cases matching the same filters as
// the case list.
func CSVReportHandler(cases repository.CaseRepository, violations repository.ViolationRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := &dto.CaseFilter{
			Status:        q.Get("status"),
			ViolationCode: q.Get("violation"),
			Location:      q.Get("location"),
			VehicleType:   q.Get("vehicleType"),
			Plate:         q.Get("plate"),
			DateAfter:     parseDate(q.Get("dateAfter")),
			DateBefore:    parseDate(q.Get("dateBefore")),
		}

		records, err := cases.GetAll(filter)
		if err != nil {
			logger.Error("Error querying cases for report: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		filename := fmt.Sprintf("traffic_violations_%s.csv", time.Now().Format("20060102_150405"))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

		writer := csv.NewWriter(w)
		defer writer.Flush()

		if err := writer.Write(csvHeader); err != nil {
			logger.Error("Error writing CSV header: %v", err)
			return
		}

		for _, c := range records {
			vs, err := violations.GetByCaseID(c.ID)
			if err != nil {
				logger.Error("Error loading violations for case %d: %v", c.ID, err)
				continue
			}

			names := make([]string, 0, len(vs))
			for _, v := range vs {
				names = append(names, v.Description)
			}

			row := []string{
				c.CaseNumber,
				c.CapturedAt.Format("2006-01-02"),
				c.CapturedAt.Format("15:04:05"),
				c.Filename,
				c.Location,
				c.VehicleType,
				c.VehicleColor,
				c.PlateNumber,
				strings.Join(names, "; "),
				strconv.Itoa(c.TotalFine),
				c.Status,
			}
			if err := writer.Write(row); err != nil {
				logger.Error("Error writing CSV row: %v", err)
				return
			}
		}

		logger.Info("CSV report generated: %s (%d cases)", filename, len(records))
	}
}
