package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// formatCodemodsText formats the catalog as aligned columns.
func formatCodemodsText(w io.Writer, mods []CLICodemod) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tDESCRIPTION")
	for _, m := range mods {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Name, m.Kind, m.Description)
	}
	tw.Flush()
}

// formatRunText prints diffs and failures of a run. Unchanged files are
// omitted.
func formatRunText(w io.Writer, run CLIRun) {
	for _, f := range run.Files {
		switch {
		case f.Error != "":
			fmt.Fprintf(w, "FAIL %s: %s\n", f.Path, f.Error)
		case f.Diff != "":
			fmt.Fprint(w, f.Diff)
		case f.Status == "changed":
			fmt.Fprintf(w, "M %s\n", f.Path)
		}
	}
}

// formatRunRecordsText formats recorded runs as aligned columns.
func formatRunRecordsText(w io.Writer, runs []CLIRunRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODEMOD\tSTARTED\tDRY\tFILES\tCHANGED\tFAILED\tSKIPPED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\t%d\t%d\t%d\n",
			r.ID, r.Codemod, r.StartedAt.Local().Format(time.DateTime), r.DryRun,
			r.Total, r.Changed, r.Failed, r.Skipped)
	}
	tw.Flush()
}

// formatFileResultsText formats recorded file results as aligned columns.
func formatFileResultsText(w io.Writer, results []CLIFileResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tPATH\tERROR")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Status, r.Path, r.Error)
	}
	tw.Flush()
}

// writeResultText dispatches to the text formatter for the result type.
func writeResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLICodemod:
		formatCodemodsText(w, v)
	case CLIRun:
		formatRunText(w, v)
	case []CLIRunRecord:
		formatRunRecordsText(w, v)
	case []CLIFileResult:
		formatFileResultsText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// outputResult writes results in the selected format to stdout.
func outputResult(command string, results any) error {
	result := CLIResult{Command: command, Results: results}
	if flagFormat == "text" {
		return writeResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
