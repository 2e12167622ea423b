package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"trafficwatch/internal/models"
	"trafficwatch/internal/repository/sqlite"
	"trafficwatch/internal/services/storage"
)

// uploadExts maps the extensions an original upload may carry, in the order
// they are probed when matching an evidence file back to its source media.
var uploadExts = map[string]string{
	".jpg":  models.MediaImage,
	".jpeg": models.MediaImage,
	".png":  models.MediaImage,
	".mp4":  models.MediaVideo,
	".avi":  models.MediaVideo,
	".mov":  models.MediaVideo,
}

func main() {
	evidenceDir := flag.String("evidence", "static/evidence", "Directory containing annotated evidence images")
	uploadsDir := flag.String("uploads", "static/uploads", "Directory containing original uploads")
	dbPath := flag.String("db", "data/violations.db", "Database path")
	workers := flag.Int("workers", 8, "Concurrent file scans")
	flag.Parse()

	fmt.Printf("Backfilling cases from %s into database %s\n", *evidenceDir, *dbPath)

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	caseRepo := sqlite.NewCaseRepository(db)

	files, err := os.ReadDir(*evidenceDir)
	if err != nil {
		log.Fatalf("Failed to read evidence directory: %v", err)
	}

	candidates := make([]*models.Case, len(files))
	var g errgroup.Group
	g.SetLimit(*workers)

	for i, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".jpg" {
			continue
		}

		i, file := i, file
		g.Go(func() error {
			caseNumber, capturedAt, err := storage.ParseEvidenceName(file.Name())
			if err != nil {
				log.Printf("Skipping %s: %v", file.Name(), err)
				return nil
			}

			c := &models.Case{
				CaseNumber:   caseNumber,
				CapturedAt:   capturedAt,
				Status:       models.StatusProcessed,
				EvidenceFile: file.Name(),
			}

			// Match the evidence back to its original upload when it still
			// exists on disk.
			for ext, mediaType := range uploadExts {
				path := filepath.Join(*uploadsDir, caseNumber+ext)
				info, err := os.Stat(path)
				if err != nil {
					continue
				}
				c.Filename = caseNumber + ext
				c.FilePath = path
				c.FileSize = info.Size()
				c.MediaType = mediaType
				break
			}
			if c.Filename == "" {
				c.Filename = file.Name()
				c.FilePath = filepath.Join(*evidenceDir, file.Name())
				c.MediaType = models.MediaImage
				if info, err := file.Info(); err == nil {
					c.FileSize = info.Size()
				}
			}

			candidates[i] = c
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("Failed to scan evidence files: %v", err)
	}

	inserted, skipped := 0, 0
	for _, c := range candidates {
		if c == nil {
			continue
		}

		existing, err := caseRepo.GetByCaseNumber(c.CaseNumber)
		if err != nil {
			log.Fatalf("Failed to look up case %s: %v", c.CaseNumber, err)
		}
		if existing != nil {
			skipped++
			continue
		}

		if _, err := caseRepo.Insert(c); err != nil {
			log.Fatalf("Failed to insert case %s: %v", c.CaseNumber, err)
		}
		inserted++
	}

	fmt.Printf("Backfilled %d cases (%d already present)\n", inserted, skipped)

	stats, err := caseRepo.GetStats()
	if err == nil {
		fmt.Printf("\nDatabase statistics:\n")
		fmt.Printf("   Total cases: %d\n", stats.TotalCases)
		fmt.Printf("   Total violations: %d\n", stats.TotalViolations)
		fmt.Printf("   Total fines: %d\n", stats.TotalFines)
		fmt.Printf("   Pending cases: %d\n", stats.PendingCases)
		fmt.Printf("   Challans sent: %d\n", stats.ChallansSent)
	}
}
