package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"idintake/internal/document"
	"idintake/internal/pipeline"
	"idintake/internal/policy"
)

type extractOptions struct {
	InputPath string
	TextOnly  bool
}

var extractOpts extractOptions

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run the document pipeline on a local image and print the result as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd.Context(), extractOpts, cmd.OutOrStdout())
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOpts.InputPath, "input", "i", "", "Path to the document photo")
	extractCmd.Flags().BoolVar(&extractOpts.TextOnly, "text-only", false, "Only run the whole-document OCR pass")
	_ = extractCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(extractCmd)
}

// extractField is one field of the printed report.
type extractField struct {
	RawText    string  `json:"rawText"`
	Confidence float64 `json:"confidence"`
	Value      *string `json:"value"`
}

type extractReport struct {
	Fields     map[document.Field]extractField `json:"fields"`
	RawText    string                          `json:"rawText"`
	Confidence float64                         `json:"confidence"`
	Rectified  bool                            `json:"rectified"`
	Deskew     float64                         `json:"deskewDegrees"`
	Verdict    policy.Verdict                  `json:"verdict"`
}

func runExtract(ctx context.Context, opts extractOptions, out io.Writer) error {
	raw, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	docs, err := newDocumentStack(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer closeWithTimeout(docs.Close)

	ctx, cancel := context.WithTimeout(ctx, cfg.Rectify.Timeout+cfg.OCR.Timeout)
	defer cancel()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if opts.TextOnly {
		res, err := docs.pipeline.ExtractText(ctx, raw)
		if err != nil {
			return err
		}
		return enc.Encode(res)
	}

	start := time.Now()
	outcome, err := docs.pipeline.Process(ctx, raw)
	if err != nil {
		return err
	}
	log.DebugContext(ctx, "extraction finished", "duration_ms", time.Since(start).Milliseconds())
	return enc.Encode(newExtractReport(outcome))
}

func newExtractReport(o *pipeline.Outcome) extractReport {
	report := extractReport{
		Fields:     make(map[document.Field]extractField, len(o.Data.Fields)),
		RawText:    o.Data.RawText,
		Confidence: o.Data.Confidence,
		Rectified:  o.Rectified,
		Deskew:     o.Deskew,
		Verdict:    o.Verdict,
	}
	for name, f := range o.Data.Fields {
		report.Fields[name] = extractField{RawText: f.RawText, Confidence: f.Confidence, Value: f.Normalized}
	}
	return report
}
