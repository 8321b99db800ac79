package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/mimic/pkg/types"
)

const (
	defaultBatchConcurrency = 2
	// maxBatchAttempts bounds retries of a rate limited job.
	maxBatchAttempts = 3
)

// BatchFile is the YAML job list read by the batch command.
type BatchFile struct {
	Concurrency int        `yaml:"concurrency"`
	Defaults    BatchJob   `yaml:"defaults"`
	Jobs        []BatchJob `yaml:"jobs"`
}

// BatchJob is one page to analyze. Empty fields take the file defaults.
type BatchJob struct {
	URL       string         `yaml:"url"`
	Framework string         `yaml:"framework"`
	Styling   string         `yaml:"styling"`
	Options   *types.Options `yaml:"options"`
	Output    string         `yaml:"output"`
}

// BatchResult is the outcome of one job.
type BatchResult struct {
	Job      BatchJob
	Response *types.AnalysisResponse
	Attempts int
	Path     string
	Err      error
}

// responder is the orchestrator surface the batch runner drives.
type responder interface {
	Respond(ctx context.Context, clientID string, req types.AnalysisRequest) *types.AnalysisResponse
}

// loadBatchFile reads path and applies the defaults to every job.
func loadBatchFile(path string) (*BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return parseBatchFile(data)
}

func parseBatchFile(data []byte) (*BatchFile, error) {
	file := &BatchFile{Concurrency: defaultBatchConcurrency}
	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}
	if len(file.Jobs) == 0 {
		return nil, fmt.Errorf("batch file has no jobs")
	}
	if file.Concurrency <= 0 {
		file.Concurrency = defaultBatchConcurrency
	}

	d := file.Defaults
	if d.Framework == "" {
		d.Framework = string(types.FrameworkReact)
	}
	if d.Styling == "" {
		d.Styling = string(types.StylingTailwind)
	}
	for i := range file.Jobs {
		job := &file.Jobs[i]
		if job.URL == "" {
			return nil, fmt.Errorf("job %d: url is required", i+1)
		}
		if job.Framework == "" {
			job.Framework = d.Framework
		}
		if job.Styling == "" {
			job.Styling = d.Styling
		}
		if job.Options == nil {
			job.Options = d.Options
		}
		if job.Output == "" {
			job.Output = d.Output
		}
	}
	return file, nil
}

func (j BatchJob) request() types.AnalysisRequest {
	return types.AnalysisRequest{
		URL:       j.URL,
		Framework: types.Framework(j.Framework),
		Styling:   types.Styling(j.Styling),
		Options:   j.Options,
	}
}

// batchRunner runs jobs on a fixed number of workers.
type batchRunner struct {
	pipeline    responder
	concurrency int
	// sleep waits out a rate limit; returns false if ctx ended first.
	sleep func(ctx context.Context, d time.Duration) bool
}

func newBatchRunner(p responder, concurrency int) *batchRunner {
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	return &batchRunner{pipeline: p, concurrency: concurrency, sleep: sleepContext}
}

// Run analyzes every job and returns results in job order.
func (b *batchRunner) Run(ctx context.Context, jobs []BatchJob) []BatchResult {
	results := make([]BatchResult, len(jobs))
	work := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < b.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				results[i] = b.runJob(ctx, jobs[i])
			}
		}()
	}

	sent := 0
dispatch:
	for ; sent < len(jobs); sent++ {
		select {
		case work <- sent:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(work)
	wg.Wait()

	for i := sent; i < len(jobs); i++ {
		results[i] = BatchResult{Job: jobs[i], Err: ctx.Err()}
	}
	return results
}

func (b *batchRunner) runJob(ctx context.Context, job BatchJob) BatchResult {
	res := BatchResult{Job: job}
	for res.Attempts < maxBatchAttempts {
		res.Attempts++
		res.Response = b.pipeline.Respond(ctx, CLIClientID, job.request())
		wait, retry := retryAfter(res.Response)
		if !retry || res.Attempts == maxBatchAttempts {
			break
		}
		if !b.sleep(ctx, wait) {
			res.Err = ctx.Err()
			return res
		}
	}

	if res.Response.Success && job.Output != "" {
		res.Path, res.Err = writeComponent(job.Output, res.Response.Component)
	}
	return res
}

// retryAfter reports whether a response is a rate limit rejection and how
// long its resetIn hint says to wait.
func retryAfter(resp *types.AnalysisResponse) (time.Duration, bool) {
	if resp == nil || resp.Success || resp.Error == nil || resp.Error.Code != string(types.CodeRateLimited) {
		return 0, false
	}
	wait := time.Second
	switch v := resp.Error.Details["resetIn"].(type) {
	case int:
		wait = time.Duration(v) * time.Second
	case float64:
		wait = time.Duration(v * float64(time.Second))
	}
	if wait <= 0 {
		wait = time.Second
	}
	return wait, true
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// renderBatchSummary prints one line per job and returns the failure count.
func renderBatchSummary(w io.Writer, results []BatchResult) int {
	failed := 0
	rows := make([]string, 0, len(results)+1)
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			rows = append(rows, errorStyle.Render("✗ ")+r.Job.URL+" "+labelStyle.Render(r.Err.Error()))
		case r.Response == nil || !r.Response.Success:
			failed++
			msg := "no response"
			if r.Response != nil && r.Response.Error != nil {
				msg = fmt.Sprintf("[%s] %s", r.Response.Error.Code, r.Response.Error.Message)
			}
			rows = append(rows, errorStyle.Render("✗ ")+r.Job.URL+" "+labelStyle.Render(msg))
		default:
			line := successStyle.Render("✓ ") + r.Job.URL + " " + labelStyle.Render(r.Response.Component.Filename)
			if r.Path != "" {
				line += labelStyle.Render(" -> " + r.Path)
			}
			if r.Response.Analysis.Cached {
				line += labelStyle.Render(" (cached)")
			}
			rows = append(rows, line)
		}
	}
	rows = append(rows, titleStyle.Render(fmt.Sprintf("%d/%d succeeded", len(results)-failed, len(results))))
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, rows...))
	return failed
}

// batchCmd creates the batch command.
func batchCmd() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Analyze every page listed in a YAML job file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "YAML job file"},
			&cli.IntFlag{Name: "concurrency", Usage: "Override the file's worker count"},
			&cli.BoolFlag{Name: "json", Usage: "Print the responses as JSON"},
		},
		Action: func(c *cli.Context) error {
			file, err := loadBatchFile(c.String("file"))
			if err != nil {
				return outputError(err)
			}
			concurrency := file.Concurrency
			if n := c.Int("concurrency"); n > 0 {
				concurrency = n
			}

			rt, err := buildRuntime(c)
			if err != nil {
				return outputError(err)
			}
			defer rt.close()

			results := newBatchRunner(rt.orch, concurrency).Run(c.Context, file.Jobs)

			if c.Bool("json") {
				responses := make([]*types.AnalysisResponse, len(results))
				for i, r := range results {
					responses[i] = r.Response
				}
				if err := outputJSON(os.Stdout, responses); err != nil {
					return outputError(err)
				}
			} else if failed := renderBatchSummary(os.Stdout, results); failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d jobs failed", failed, len(results)), 1)
			}
			return nil
		},
	}
}
