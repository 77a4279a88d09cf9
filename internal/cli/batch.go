package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/pipeline"
	"github.com/ppiankov/claimwatch/internal/worker"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Check many content items from a file in parallel",
	Long: `Batch reads one item per line (text or URL, "#" starts a comment),
checks the items concurrently and writes one JSON report per item.

Example:
  claimwatch batch posts.txt
  claimwatch batch urls.txt --concurrency 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./claimwatch-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().Float64Var(&urgency, "urgency", 0, "urgency hint applied to every item")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return eris.Wrap(err, "batch: create output directory")
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	check := func(ctx context.Context, item string) *model.Report {
		return a.pipeline.Check(ctx, pipeline.Request{
			Content:     item,
			ContentType: detectContentType(item, ""),
			Urgency:     urgency,
		})
	}

	processor := worker.NewBatchProcessor(check, concurrency)
	results, err := processor.ProcessFile(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var ok, failed int
	for _, r := range results {
		if r.Report == nil {
			failed++
			fmt.Fprintf(out, "✗ %s: %v\n", preview(r.Item), r.Error)
			continue
		}

		path := filepath.Join(outputDir, fmt.Sprintf("%03d-%s.json", r.Index+1, sanitizeFilename(preview(r.Item))))
		data, err := json.MarshalIndent(r.Report, "", "  ")
		if err == nil {
			err = os.WriteFile(path, data, 0o644)
		}
		if err != nil {
			failed++
			fmt.Fprintf(out, "✗ %s: write report: %v\n", preview(r.Item), err)
			continue
		}

		if r.Error != nil {
			failed++
			fmt.Fprintf(out, "✗ %s: %v\n", preview(r.Item), r.Error)
			continue
		}
		ok++
		fmt.Fprintf(out, "✓ %s: %s (%.2f)\n", preview(r.Item), r.Report.Assessment.Verdict, r.Report.Assessment.Score)
	}

	fmt.Fprintf(out, "\nChecked %d items: %d ok, %d failed. Reports in %s\n", len(results), ok, failed, outputDir)
	return nil
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 60 {
		return string(r[:60]) + "..."
	}
	return s
}

// sanitizeFilename keeps letters, digits, dots and dashes
func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), "_.")
	if len(name) > 60 {
		name = name[:60]
	}
	if name == "" {
		name = "item"
	}
	return name
}
