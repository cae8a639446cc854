package verify

import (
	"encoding/json"
	"fmt"
	"io"
)

// ReportFormat specifies the output format for verification reports.
type ReportFormat string

const (
	FormatJSON ReportFormat = "json"
	FormatText ReportFormat = "text"
)

// ReportGenerator renders verification reports.
type ReportGenerator struct {
	format  ReportFormat
	verbose bool
}

// NewReportGenerator creates a generator for the given format.
func NewReportGenerator(format ReportFormat) *ReportGenerator {
	return &ReportGenerator{format: format}
}

// WithVerbose enables verbose output.
func (g *ReportGenerator) WithVerbose(verbose bool) *ReportGenerator {
	g.verbose = verbose
	return g
}

// Generate writes the report in the configured format.
func (g *ReportGenerator) Generate(report *Report, w io.Writer) error {
	switch g.format {
	case FormatJSON:
		return g.generateJSON(report, w)
	case FormatText:
		return g.generateText(report, w)
	default:
		return fmt.Errorf("unknown format: %s", g.format)
	}
}

func (g *ReportGenerator) generateJSON(report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (g *ReportGenerator) generateText(report *Report, w io.Writer) error {
	fmt.Fprintln(w, "=== TWFF Verification Report ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Schema:      %s\n", passFail(report.SchemaValid))
	fmt.Fprintf(w, "Chain:       %s\n", passFail(report.ChainIntact))
	fmt.Fprintf(w, "Events:      %d\n", report.EventCount)
	if report.Tip != "" {
		fmt.Fprintf(w, "Chain tip:   %s\n", truncate(report.Tip, g.verbose))
	}
	if report.ContainerDigest != "" {
		fmt.Fprintf(w, "Container:   %s\n", truncate(report.ContainerDigest, g.verbose))
	}
	if report.SignatureValid != nil {
		fmt.Fprintf(w, "Signatures:  %s\n", passFail(*report.SignatureValid))
	}

	if len(report.Violations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Violations (%d):\n", len(report.Violations))
		for _, v := range report.Violations {
			fmt.Fprintf(w, "  %s\n", v)
		}
	}

	fmt.Fprintln(w)
	if report.Clean() {
		fmt.Fprintln(w, "Result: PASS")
	} else {
		fmt.Fprintln(w, "Result: FAIL")
	}
	return nil
}

func passFail(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAILED"
}

func truncate(hash string, verbose bool) string {
	if verbose || len(hash) <= 16 {
		return hash
	}
	return hash[:16] + "…"
}
