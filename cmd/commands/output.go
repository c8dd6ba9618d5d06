package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/dohr-michael/taskdeck/internal/tasks"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func parseOutput(s string) (string, error) {
	switch strings.ToLower(s) {
	case "", outputTable:
		return outputTable, nil
	case outputJSON, outputYAML:
		return strings.ToLower(s), nil
	}
	return "", fmt.Errorf("invalid output %q: must be one of table, json, yaml", s)
}

// printValue writes v as JSON or YAML.
func printValue(w io.Writer, v any, format string) error {
	switch format {
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// printTasks writes list in the given format. Table titles are cut to fit
// the terminal when stdout is one.
func printTasks(w io.Writer, list []tasks.Task, format string, now time.Time) error {
	if format != outputTable {
		if list == nil {
			list = []tasks.Task{}
		}
		return printValue(w, list, format)
	}

	if len(list) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return nil
	}

	maxTitle := titleWidth()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tSTAR\tPRIORITY\tDUE\tEST\tTAGS\tTITLE")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			mark(t.Completed, "x"),
			mark(t.Starred, "*"),
			t.Priority,
			dueText(t, now),
			estimateText(t.EstimatedTime),
			tagsText(t.Tags),
			truncate(t.Title, maxTitle),
		)
	}
	return tw.Flush()
}

func printTask(w io.Writer, t tasks.Task, now time.Time) {
	fmt.Fprintf(w, "ID:          %s\n", t.ID)
	fmt.Fprintf(w, "Title:       %s\n", t.Title)
	fmt.Fprintf(w, "Priority:    %s\n", t.Priority)
	fmt.Fprintf(w, "Completed:   %t\n", t.Completed)
	fmt.Fprintf(w, "Starred:     %t\n", t.Starred)
	fmt.Fprintf(w, "Tags:        %s\n", tagsText(t.Tags))
	fmt.Fprintf(w, "Due:         %s\n", dueText(t, now))
	fmt.Fprintf(w, "Estimate:    %s\n", estimateText(t.EstimatedTime))
	if !t.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created:     %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if !t.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated:     %s\n", t.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
}

func mark(b bool, m string) string {
	if b {
		return m
	}
	return "-"
}

func dueText(t tasks.Task, now time.Time) string {
	if t.DueDate == nil {
		return "-"
	}
	s := t.DueDate.Local().Format("2006-01-02 15:04")
	if !t.Completed && now.After(*t.DueDate) {
		s += " (overdue)"
	}
	return s
}

func estimateText(minutes *int) string {
	if minutes == nil {
		return "-"
	}
	return strconv.Itoa(*minutes) + "m"
}

func tagsText(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ",")
}

// titleWidth returns the room left for titles on the terminal, 0 meaning
// no limit.
func titleWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	// ID, flags, priority, due, estimate and tags take roughly 70 columns.
	if width-70 < 20 {
		return 20
	}
	return width - 70
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	return string(r[:limit-1]) + "…"
}
