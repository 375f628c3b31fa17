package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/p4market/catalogdb/internal/migration"
	"github.com/p4market/catalogdb/internal/verify"
)

// outputFormat specifies how to render CLI output.
type outputFormat string

const (
	outputTable outputFormat = "table"
	outputJSON  outputFormat = "json"
	outputYAML  outputFormat = "yaml"
)

// parseOutputFormat parses and validates the output format flag.
func parseOutputFormat(s string) (outputFormat, error) {
	switch strings.ToLower(s) {
	case "table", "":
		return outputTable, nil
	case "json":
		return outputJSON, nil
	case "yaml":
		return outputYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (supported: table, json, yaml)", s)
	}
}

// printOutput renders data in the requested format. Table output uses the
// given headers and rows; json and yaml serialize data directly.
func printOutput(w io.Writer, format string, data any, headers []string, rows [][]string) error {
	f, err := parseOutputFormat(format)
	if err != nil {
		return err
	}
	switch f {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return printTable(w, headers, rows)
	}
}

// printTable writes aligned columnar output to the writer.
func printTable(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(headers, "\t")))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func shortSum(sum string) string {
	if len(sum) <= 12 {
		return sum
	}
	return sum[:12]
}

func versionString(v int64) string {
	return strconv.FormatInt(v, 10)
}

func printRunReport(w io.Writer, format string, report *migration.Report) error {
	drifted := make(map[int64]migration.Drift, len(report.Drifted))
	for _, d := range report.Drifted {
		drifted[d.Version] = d
	}

	var rows [][]string
	for _, o := range report.Applied {
		rows = append(rows, []string{versionString(o.Version), o.Name, "applied", shortSum(o.Checksum), ""})
	}
	for _, o := range report.Skipped {
		if d, ok := drifted[o.Version]; ok {
			rows = append(rows, []string{versionString(o.Version), o.Name, "drifted", shortSum(d.Recorded), shortSum(d.Current)})
			continue
		}
		rows = append(rows, []string{versionString(o.Version), o.Name, "up to date", shortSum(o.Checksum), ""})
	}
	if f := report.Failed; f != nil {
		rows = append(rows, []string{versionString(f.Version), f.Name, "failed", "", f.Error})
	}
	for _, o := range report.Pending {
		rows = append(rows, []string{versionString(o.Version), o.Name, "pending", shortSum(o.Checksum), ""})
	}
	for _, v := range report.Unknown {
		rows = append(rows, []string{versionString(v), "", "not in registry", "", ""})
	}

	return printOutput(w, format, report, []string{"version", "name", "status", "checksum", "detail"}, rows)
}

func printRepairReport(w io.Writer, format string, report *migration.RepairReport) error {
	if report == nil {
		report = &migration.RepairReport{Results: []migration.RepairResult{}}
	}
	rows := make([][]string, 0, len(report.Results))
	for _, r := range report.Results {
		detail := r.Error
		if detail == "" && r.Status == migration.StatusRepaired {
			detail = shortSum(r.Previous) + " -> " + shortSum(r.Current)
		}
		rows = append(rows, []string{versionString(r.Version), r.Status, detail})
	}
	return printOutput(w, format, report, []string{"version", "status", "detail"}, rows)
}

func printSchemaReport(w io.Writer, format string, report *verify.SchemaReport) error {
	rows := make([][]string, 0, len(report.Tables))
	for _, t := range report.Tables {
		exists := "missing"
		count := "-"
		if t.Exists {
			exists = "exists"
			count = strconv.FormatInt(t.RowCount, 10)
		}
		detail := t.Error
		if detail == "" && len(t.MissingColumns) > 0 && t.Exists {
			detail = "missing columns: " + strings.Join(t.MissingColumns, ", ")
		}
		rows = append(rows, []string{t.Name, exists, count, detail})
	}
	return printOutput(w, format, report, []string{"table", "state", "rows", "detail"}, rows)
}
