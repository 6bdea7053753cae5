package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
)

// WriteHealthReport writes report as
// "<dir>/<dataset>-<YYYYMMDDTHHMMSS local time>.json",
// matching the JSON shape spec.md §6 publishes for external
// monitoring to poll. Health reports are plain files rather than a
// database table: the orchestrator must be able to report a crash
// even when the database connection itself is what failed.
func WriteHealthReport(dir string, dataset string, report *domain.HealthReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := filepath.Join(dir, dataset+"-"+time.Now().Format("20060102T150405")+".json")
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(name, raw, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// LoadHealthReport reads back one report file written by
// WriteHealthReport; no command in this repository calls it.
func LoadHealthReport(path string) (*domain.HealthReport, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report domain.HealthReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
