package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gzhole/scriptshield/internal/logger"
	"github.com/gzhole/scriptshield/internal/risk"
)

var (
	logFilterCategory string
	logFilterFlagged  bool
	logLast           int
	logSummary        bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and filter the audit log",
	Long: `View the ScriptShield audit log with filtering and summary options.

Examples:
  scriptshield log                          # Show all entries
  scriptshield log --last 20                # Show last 20 entries
  scriptshield log --category malicious     # Show only malicious scripts
  scriptshield log --flagged                # Show everything not rated Safe
  scriptshield log --summary                # Show summary stats`,
	RunE: logCommand,
}

func init() {
	logCmd.Flags().StringVar(&logFilterCategory, "category", "", "Filter by category (Safe, Suspicious, Malicious, Indeterminate)")
	logCmd.Flags().BoolVar(&logFilterFlagged, "flagged", false, "Show only entries not rated Safe")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show last N entries")
	logCmd.Flags().BoolVar(&logSummary, "summary", false, "Show summary statistics")
	rootCmd.AddCommand(logCmd)
}

func logCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	events, err := readAuditLog(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No audit log entries found.")
		return nil
	}

	filtered := filterEvents(events, logFilterCategory, logFilterFlagged)
	if logLast > 0 && logLast < len(filtered) {
		filtered = filtered[len(filtered)-logLast:]
	}

	if logSummary {
		printSummary(out, filtered)
		return nil
	}

	printEvents(out, filtered)
	return nil
}

func readAuditLog(path string) ([]logger.AuditEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []logger.AuditEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event logger.AuditEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip malformed lines
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

func filterEvents(events []logger.AuditEvent, category string, flagged bool) []logger.AuditEvent {
	if category == "" && !flagged {
		return events
	}

	var filtered []logger.AuditEvent
	for _, e := range events {
		if category != "" && !strings.EqualFold(e.Category, category) {
			continue
		}
		if flagged && !e.Flagged() {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func printEvents(w io.Writer, events []logger.AuditEvent) {
	for _, e := range events {
		ts := formatTimestamp(e.Timestamp)
		category := e.Category
		if category == "" {
			category = "ERROR"
		}

		fmt.Fprintf(w, "%s %s %s  %s %.2f%%\n", eventIcon(e), ts, e.Filename, category, e.RiskScore)

		if len(e.Families) > 0 {
			fmt.Fprintf(w, "     Threats: %s\n", strings.Join(e.Families, ", "))
		}
		for _, s := range e.Evidence {
			fmt.Fprintf(w, "     Evidence: %s\n", s)
		}
		if e.Error != "" {
			fmt.Fprintf(w, "     Error: %s\n", e.Error)
		}
		if e.SHA256 != "" {
			fmt.Fprintf(w, "     SHA256: %s\n", e.SHA256)
		}
		fmt.Fprintf(w, "     Source: %s  ID: %s\n", e.Source, e.AnalysisID)
		fmt.Fprintln(w)
	}
}

func printSummary(w io.Writer, events []logger.AuditEvent) {
	counts := map[string]int{}
	families := map[string]int{}
	errorCount := 0

	for _, e := range events {
		counts[e.Category]++
		for _, f := range e.Families {
			families[f]++
		}
		if e.Error != "" {
			errorCount++
		}
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════")
	fmt.Fprintln(w, "  ScriptShield Audit Summary")
	fmt.Fprintln(w, "═══════════════════════════════════════════")
	fmt.Fprintf(w, "  Total analyses:  %d\n", len(events))
	fmt.Fprintf(w, "  Safe:            %d\n", counts["Safe"])
	fmt.Fprintf(w, "  Suspicious:      %d\n", counts["Suspicious"])
	fmt.Fprintf(w, "  Malicious:       %d\n", counts["Malicious"])
	fmt.Fprintf(w, "  Indeterminate:   %d\n", counts["Indeterminate"])
	fmt.Fprintf(w, "  Errors:          %d\n", errorCount)
	fmt.Fprintln(w, "═══════════════════════════════════════════")

	if len(events) > 0 {
		fmt.Fprintf(w, "  First event:     %s\n", formatTimestamp(events[0].Timestamp))
		fmt.Fprintf(w, "  Last event:      %s\n", formatTimestamp(events[len(events)-1].Timestamp))
	}

	if len(families) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Top threat families:")
		for _, fc := range topFamilies(families, 10) {
			fmt.Fprintf(w, "    %-24s %d\n", fc.name, fc.count)
		}
	}

	fmt.Fprintln(w)
}

type familyCount struct {
	name  string
	count int
}

// topFamilies orders by count, then name, and keeps at most n.
func topFamilies(counts map[string]int, n int) []familyCount {
	out := make([]familyCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, familyCount{name, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func eventIcon(e logger.AuditEvent) string {
	return categoryIcon(risk.Category(e.Category))
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
