package main

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"soundscout/internal/ipc"
)

var titleCaser = cases.Title(language.English)

func parseJobID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", arg)
	}
	return id, nil
}

// formatVerdict renders a job's recognition verdict for table output.
func formatVerdict(job ipc.JobView) string {
	if job.Result == nil {
		if job.ErrorKind != "" {
			return fmt.Sprintf("%s: %s", job.ErrorKind, job.ErrorMessage)
		}
		return ""
	}
	result := job.Result
	if result.Outcome == "recognized" {
		track := result.Title
		if result.Artist != "" {
			track = fmt.Sprintf("%s - %s", result.Artist, result.Title)
		}
		return fmt.Sprintf("%s (%.0f%%)", track, result.Confidence*100)
	}
	return titleCaser.String(result.Outcome)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
