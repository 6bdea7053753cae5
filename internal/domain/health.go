package domain

import "time"

// JobStatus is the terminal outcome a scheduled job records in its
// health report.
type JobStatus string

const (
	JobSuccess JobStatus = "success"
	JobFailure JobStatus = "failure"
	JobTimeout JobStatus = "timeout"
)

// HealthReport is the per-dataset JSON document every scheduled job
// writes at exit (spec.md §4.9, §6). The serving API (out of scope)
// reads these files as its "scraper health" endpoint.
type HealthReport struct {
	Status     JobStatus `json:"status"`
	Dataset    string    `json:"dataset"`
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished"`
	ItemCounts map[string]int `json:"item_counts"`
	ErrorCount int       `json:"error_count"`
	ExitCode   int       `json:"exit_code"`
	LogPath    string    `json:"log_path"`
}
