package mcp

import (
	"fmt"
	"strings"

	"github.com/researchrender/researchrender/pkg/models"
)

func formatResult(res *models.ProcessResult) string {
	var b strings.Builder
	if res.ContentHash != "" {
		fmt.Fprintf(&b, "Content hash: %s\n", res.ContentHash)
	}
	if res.Message != "" {
		fmt.Fprintf(&b, "Status: %s\n", res.Message)
	}
	fmt.Fprintf(&b, "\n## Steps\n%s\n", res.Steps)
	if res.Code != nil {
		fmt.Fprintf(&b, "\n## Code\n%s\n", *res.Code)
	}
	if res.Error != nil {
		fmt.Fprintf(&b, "\n%s stage failed: %s\n", res.Error.Stage, res.Error.Message)
	}
	return b.String()
}

func formatRecord(rec *models.PaperRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Filename:     %s\n", rec.Filename)
	fmt.Fprintf(&b, "Content hash: %s\n", rec.ContentHash)
	fmt.Fprintf(&b, "Updated:      %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05"))
	if rec.Steps != nil {
		fmt.Fprintf(&b, "\n## Steps\n%s\n", *rec.Steps)
	}
	if rec.Code != nil {
		fmt.Fprintf(&b, "\n## Code\n%s\n", *rec.Code)
	}
	return b.String()
}

// formatRecords formats paper records as a text table.
func formatRecords(recs []models.PaperRecord) string {
	if len(recs) == 0 {
		return "No papers processed yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-14s %-30s %-5s %-5s %-20s\n", "Hash", "Filename", "Steps", "Code", "Updated")
	b.WriteString(strings.Repeat("-", 78) + "\n")
	for _, r := range recs {
		name := r.Filename
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		fmt.Fprintf(&b, "%-14s %-30s %-5s %-5s %-20s\n",
			shortHash(r.ContentHash), name, mark(r.Steps != nil), mark(r.Code != nil),
			r.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

// formatEventSummary formats generation call aggregates as a text table.
func formatEventSummary(rows []models.EventSummary) string {
	if len(rows) == 0 {
		return "No generation calls recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-6s %-10s %8s %14s\n", "Service", "Stage", "Outcome", "Calls", "Avg Latency")
	b.WriteString(strings.Repeat("-", 52) + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-10s %-6s %-10s %8d %12dms\n", r.Service, r.Stage, r.Outcome, r.Calls, r.AvgLatencyMs)
	}
	return b.String()
}

// formatBudgetStatus formats budget statuses as a text table.
func formatBudgetStatus(statuses []models.BudgetStatus) string {
	if len(statuses) == 0 {
		return "No budget policies found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-8s %10s %10s %10s %6s\n",
		"Service", "Period", "Max Calls", "Used", "Remaining", "Usage%")
	b.WriteString(strings.Repeat("-", 59) + "\n")
	for _, s := range statuses {
		pct := float64(0)
		if s.Policy.MaxCalls > 0 {
			pct = float64(s.Used) / float64(s.Policy.MaxCalls) * 100
		}
		fmt.Fprintf(&b, "%-10s %-8s %10d %10d %10d %5.1f%%\n",
			s.Policy.Service, s.Policy.Period, s.Policy.MaxCalls, s.Used, s.Remaining, pct)
	}
	return b.String()
}

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	return fmt.Sprintf("Cache Statistics\n"+
		"  Steps entries: %d\n"+
		"  Code entries:  %d\n"+
		"  Hits:          %d\n"+
		"  Misses:        %d\n"+
		"  Hit Rate:      %.1f%%\n",
		stats.StepsEntries, stats.CodeEntries, stats.Hits, stats.Misses, hitRate)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func mark(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
