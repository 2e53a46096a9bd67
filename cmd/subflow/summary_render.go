package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"subflow/internal/batch"
	"subflow/internal/language"
	"subflow/internal/pipeline"
	"subflow/internal/services"
)

func renderSummary(summary batch.Summary) string {
	var b strings.Builder
	if len(summary.Results) > 0 {
		rows := make([][]string, 0, len(summary.Results))
		for _, result := range summary.Results {
			rows = append(rows, summaryRow(result))
		}
		b.WriteString(renderTable(
			[]string{"Video", "Status", "Stage", "Rendered", "Failures", "Duration"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
		))
		b.WriteString("\n")
	}
	for _, skip := range summary.Skipped {
		fmt.Fprintf(&b, "Skipped %s: %s\n", skip.Name, skip.Reason)
	}

	succeeded, partial, failed := summary.Counts()
	fmt.Fprintf(&b, "Run %s %s: %d succeeded, %d partial, %d failed",
		shortID(summary.RunID), summary.Outcome(), succeeded, partial, failed)
	if summary.NotStarted > 0 {
		fmt.Fprintf(&b, ", %d not started", summary.NotStarted)
	}
	fmt.Fprintf(&b, " in %s\n", formatDuration(summary.Duration))
	return b.String()
}

func summaryRow(result pipeline.Result) []string {
	return []string{
		result.Job.VideoName,
		resultStatus(result),
		string(result.Stage),
		joinCodes(result.Rendered()),
		resultFailures(result),
		formatDuration(result.Duration),
	}
}

func resultStatus(result pipeline.Result) string {
	switch {
	case result.Succeeded():
		return "ok"
	case result.Partial():
		return "partial"
	default:
		return "failed"
	}
}

// resultFailures lists the failing step and error kind of the video, or of
// each failed language.
func resultFailures(result pipeline.Result) string {
	if result.Err != nil {
		return fmt.Sprintf("%s (%s)", dashIfEmpty(result.FailedStep), services.KindOf(result.Err))
	}
	var parts []string
	for _, code := range result.FailedLanguages() {
		lang := result.Languages[code]
		parts = append(parts, fmt.Sprintf("%s: %s (%s)", code, dashIfEmpty(lang.FailedStep), services.KindOf(lang.Err)))
	}
	return strings.Join(parts, "; ")
}

func joinCodes(codes []language.Code) string {
	if len(codes) == 0 {
		return "-"
	}
	values := make([]string, len(codes))
	for i, code := range codes {
		values[i] = string(code)
	}
	sort.Strings(values)
	return strings.Join(values, ", ")
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
