package mirror

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/mfx/internal/models"
	"github.com/desertthunder/mfx/internal/registry"
	"github.com/desertthunder/mfx/internal/shared"
	"golang.org/x/time/rate"
)

// SyncOpts contains configuration for bulk experiment syncs.
type SyncOpts struct {
	NumWorkers int     // Concurrent fetch workers (default: 5)
	RateLimit  float64 // Requests per second (default: 5)
}

// RunAttachResult represents the outcome of attaching a single run.
type RunAttachResult struct {
	RunID   string // Tracking-server run id
	RunName string // Display name, empty when the fetch failed
	Success bool
	Error   error
}

// SyncResult contains all data from a bulk experiment sync.
type SyncResult struct {
	ExperimentName string            // Mirrored experiment
	TotalRuns      int               // Runs found on the tracking server
	AttachedRuns   int               // Runs registered and linked
	FailedRuns     int               // Runs that could not be attached
	Results        []RunAttachResult // Individual attach results
}

type runFetchJob struct {
	runID string
}

type runFetchResult struct {
	runID string
	rec   *models.RunRecord
	err   error
}

// SyncExperiment mirrors every run of an experiment into the dataset's registry.
//
// This method implements a worker pool pattern to fetch runs concurrently
// while respecting API rate limits. Registration and parent linking happen
// on the calling goroutine after all fetches complete, so the experiment
// record's run list is only ever read and rewritten serially.
func (e *Engine) SyncExperiment(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	dataset *registry.Dataset,
	experimentName string,
	opts SyncOpts,
) (*SyncResult, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: tracking client not initialized", shared.ErrServiceUnavailable)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := e.EnsureExperimentRecord(ctx, prog, dataset, experimentName); err != nil {
		return nil, err
	}

	info, err := dataset.GetRunInfo(experimentName)
	if err != nil {
		return nil, err
	}
	expRec, ok := info.Config.(*models.ExperimentRecord)
	if !ok {
		return nil, fmt.Errorf("record %q is not an experiment record", experimentName)
	}

	e.sendProgress(prog, searchRunsUpdate(1, 1, expRec.ExperimentID))

	runs, err := e.client.SearchRuns(ctx, expRec.ExperimentID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		ExperimentName: experimentName,
		TotalRuns:      len(runs),
		Results:        make([]RunAttachResult, 0, len(runs)),
	}
	if len(runs) == 0 {
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan runFetchJob, len(runs))
	fetched := make(chan runFetchResult, len(runs))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.fetchWorker(ctx, &wg, limiter, jobs, fetched)
	}

	go func() {
		for i, run := range runs {
			select {
			case <-ctx.Done():
				close(jobs)
				return
			default:
			}

			e.sendProgress(prog, fetchRunUpdate(i+1, len(runs), run.Info.RunID))
			jobs <- runFetchJob{runID: run.Info.RunID}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(fetched)
	}()

	// Registration stays on this goroutine: the parent record's run list
	// is read-modify-write, and concurrent writers would drop links.
	completed := 0
	for res := range fetched {
		completed++

		if res.err != nil {
			result.FailedRuns++
			result.Results = append(result.Results, RunAttachResult{
				RunID:   res.runID,
				Success: false,
				Error:   res.err,
			})
			e.sendProgress(prog, attachFailedUpdate(completed, len(runs), res.runID, res.err))
			continue
		}

		if err := dataset.RegisterRun(res.rec.Key(), res.rec); err != nil {
			result.FailedRuns++
			result.Results = append(result.Results, RunAttachResult{
				RunID:   res.runID,
				RunName: res.rec.RunName,
				Success: false,
				Error:   err,
			})
			e.sendProgress(prog, attachFailedUpdate(completed, len(runs), res.runID, err))
			continue
		}

		if _, err := linkRunToExperiment(dataset, experimentName, res.rec.RunName); err != nil {
			result.FailedRuns++
			result.Results = append(result.Results, RunAttachResult{
				RunID:   res.runID,
				RunName: res.rec.RunName,
				Success: false,
				Error:   err,
			})
			e.sendProgress(prog, attachFailedUpdate(completed, len(runs), res.runID, err))
			continue
		}

		result.AttachedRuns++
		result.Results = append(result.Results, RunAttachResult{
			RunID:   res.runID,
			RunName: res.rec.RunName,
			Success: true,
		})
		e.sendProgress(prog, registerRunUpdate(completed, len(runs), res.rec))
	}

	return result, nil
}

// fetchWorker is a worker goroutine that fetches runs from the jobs channel.
func (e *Engine) fetchWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan runFetchJob,
	results chan<- runFetchResult,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := limiter.Wait(ctx); err != nil {
			results <- runFetchResult{runID: job.runID, err: err}
			continue
		}

		rec, err := e.fetchRunRecord(ctx, job.runID)
		results <- runFetchResult{runID: job.runID, rec: rec, err: err}
	}
}

// fetchRunRecord fetches a single run and converts it into a registry record.
func (e *Engine) fetchRunRecord(ctx context.Context, runID string) (*models.RunRecord, error) {
	run, err := e.client.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run: %w", err)
	}
	return buildRunRecord(run)
}
