package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/pipeline"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	contentType  string
	urgency      float64
	unresolved   bool
	userID       string
	outJSON      string
	checkTimeout time.Duration
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <text|url|->",
	Short: "Fact-check one piece of content",
	Long: `Check extracts claims from the content, verifies them against news,
government, academic, fact-checking and social sources, and prints the
verdict. Pass "-" to read the content from stdin.

Inconclusive results, or any result with --unresolved, are stored as
unsolved queries for the monitor.

Example:
  claimwatch check "Scientists discover a cure with 99% effectiveness."
  claimwatch check https://example.com/story --type url --json report.json
  cat post.txt | claimwatch check - --urgency 0.8 --user alice`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&contentType, "type", "", "content type: text, html, url (default: url for http(s) arguments, else text)")
	checkCmd.Flags().Float64Var(&urgency, "urgency", 0, "urgency hint in [0,1]")
	checkCmd.Flags().BoolVar(&unresolved, "unresolved", false, "store the content as an unsolved query regardless of the verdict")
	checkCmd.Flags().StringVar(&userID, "user", "", "user to subscribe to alerts for a stored query")
	checkCmd.Flags().StringVar(&outJSON, "json", "", "write the full report as JSON to this path (\"-\" for stdout)")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 2*time.Minute, "overall check timeout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	content := args[0]
	if content == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return eris.Wrap(err, "check: read stdin")
		}
		content = string(data)
	}
	if urgency < 0 || urgency > 1 {
		return eris.Errorf("check: urgency %.2f outside [0,1]", urgency)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	report := a.pipeline.Check(ctx, pipeline.Request{
		Content:        content,
		ContentType:    detectContentType(content, contentType),
		Urgency:        urgency,
		UserID:         userID,
		FlagUnresolved: unresolved,
	})

	if err := writeReport(cmd.OutOrStdout(), report, outJSON); err != nil {
		return err
	}
	if report.Status == model.StatusError {
		return eris.Errorf("check failed: %s", report.Error)
	}
	return nil
}

func detectContentType(content, flag string) model.ContentType {
	if flag != "" {
		return model.ContentType(flag)
	}
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		if !strings.ContainsAny(trimmed, " \n\t") {
			return model.ContentURL
		}
	}
	return model.ContentText
}

// writeReport prints the human summary and optionally the JSON report
func writeReport(w io.Writer, report *model.Report, jsonPath string) error {
	if jsonPath == "-" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printSummary(w, report)

	if jsonPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "check: marshal report")
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return eris.Wrap(err, "check: write report")
	}
	fmt.Fprintf(w, "Wrote %s\n", jsonPath)
	return nil
}

func printSummary(w io.Writer, r *model.Report) {
	if r.Subject != "" {
		fmt.Fprintf(w, "%s\n", r.Subject)
	}
	fmt.Fprintf(w, "Status:     %s\n", r.Status)
	if r.Error != "" {
		fmt.Fprintf(w, "Error:      %s (%s)\n", r.Error, r.ErrorKind)
	}
	a := r.Assessment
	fmt.Fprintf(w, "Verdict:    %s (score %.2f, confidence %.2f)\n", a.Verdict, a.Score, a.Confidence)
	if a.IsMisinformation {
		fmt.Fprintf(w, "Flag:       likely misinformation\n")
	}
	fmt.Fprintf(w, "Summary:    %s\n", r.Summary)

	byID := make(map[string]model.Claim, len(r.Claims))
	for _, c := range r.Claims {
		byID[c.ID] = c
	}
	for _, ca := range a.ClaimAssessments {
		fmt.Fprintf(w, "  - [%s %.2f] %s\n", ca.Verdict, ca.Score, byID[ca.ClaimID].Text)
	}
	if r.Explanation != nil {
		fmt.Fprintf(w, "\n%s\n", r.Explanation.Text)
	}
	if r.QueryID != "" {
		fmt.Fprintf(w, "Stored as unsolved query %s\n", r.QueryID)
	}
}
