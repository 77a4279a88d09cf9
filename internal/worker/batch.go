package worker

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/rotisserie/eris"
)

// CheckFunc checks one content item and always returns a report
type CheckFunc func(ctx context.Context, item string) *model.Report

// CheckJob represents a single content check
type CheckJob struct {
	Index int
	Item  string
	Check CheckFunc
}

// Execute executes the check job
func (j *CheckJob) Execute(ctx context.Context) Result {
	report := j.Check(ctx, j.Item)

	var err error
	if report == nil {
		err = eris.Errorf("worker: no report for item %d", j.Index)
	} else if report.Status == model.StatusError {
		err = eris.Errorf("worker: item %d: %s", j.Index, report.Error)
	}

	return &CheckResult{
		Index:  j.Index,
		Item:   j.Item,
		Report: report,
		Error:  err,
	}
}

// CheckResult represents the result of a check job
type CheckResult struct {
	Index  int
	Item   string
	Report *model.Report
	Error  error
}

// GetError returns the error from the check result
func (r *CheckResult) GetError() error {
	return r.Error
}

// BatchProcessor checks multiple content items concurrently
type BatchProcessor struct {
	check       CheckFunc
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(check CheckFunc, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		check:       check,
		concurrency: concurrency,
	}
}

// ProcessItems checks items concurrently. Results are returned in input order.
func (b *BatchProcessor) ProcessItems(ctx context.Context, items []string) []*CheckResult {
	if len(items) == 0 {
		return []*CheckResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, item := range items {
		pool.Submit(&CheckJob{
			Index: i,
			Item:  item,
			Check: b.check,
		})
	}

	results := pool.Wait()

	ordered := make([]*CheckResult, len(items))
	for _, result := range results {
		r := result.(*CheckResult)
		ordered[r.Index] = r
	}

	// Items never run when ctx was cancelled before submission
	for i, r := range ordered {
		if r == nil {
			err := eris.New("worker: not processed")
			if cause := context.Cause(ctx); cause != nil {
				err = eris.Wrap(cause, "worker: not processed")
			}
			ordered[i] = &CheckResult{Index: i, Item: items[i], Error: err}
		}
	}

	return ordered
}

// ProcessFile reads items from a file and checks them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*CheckResult, error) {
	items, err := ReadItemsFromFile(filePath)
	if err != nil {
		return nil, eris.Wrap(err, "worker: read items")
	}

	return b.ProcessItems(ctx, items), nil
}

// ReadItemsFromFile reads content items or URLs from a file (one per line)
func ReadItemsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, eris.Wrap(err, "worker: open file")
	}
	defer func() { _ = file.Close() }()

	var items []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			items = append(items, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "worker: scan file")
	}

	return items, nil
}
