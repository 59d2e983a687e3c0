// Package pipeline runs pipeline stages over artifact stores and keeps local
// and remote stores in sync.
//
// A stage is applied to every item of its input kind that has no artifact of
// its output kind yet, so a stage can be re-run any number of times: items that
// were completed are skipped, items that failed are retried.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/book-expert/logger"
	"github.com/dlops-io/mega-pipeline-aws/internal/core"
	"github.com/dustin/go-humanize"
)

// Static errors.
var (
	ErrNilLogger    = errors.New("logger cannot be nil")
	ErrNilTransform = errors.New("stage transform cannot be nil")
	ErrNilStore     = errors.New("artifact store cannot be nil")
)

// Log formats.
const (
	logFmtRunStarted    = "Stage %s: %d item(s) of kind %s"
	logFmtItemSkipped   = "Stage %s: skipping %s, %s already exists"
	logFmtItemProcessed = "Stage %s: wrote %s (%s)"
	logFmtItemFailed    = "Stage %s: item %s failed: %v"
	logFmtRunFinished   = "Stage %s finished: %d processed, %d skipped, %d failed"
)

// TransformFunc turns the input artifact of one item into its output artifact.
type TransformFunc func(ctx context.Context, id string, input []byte) ([]byte, error)

// Stage describes one input-kind to output-kind transformation.
type Stage struct {
	Name       string
	InputKind  core.Kind
	OutputKind core.Kind
	Transform  TransformFunc
}

// Failure records why a single item could not be handled.
type Failure struct {
	ID  string
	Err error
}

// RunReport summarizes one stage run. All slices are ordered by item id.
type RunReport struct {
	Stage     string
	Processed []string
	Skipped   []string
	Failures  []Failure
}

// ProcessedCount returns the number of items written during the run.
func (r RunReport) ProcessedCount() int { return len(r.Processed) }

// SkippedCount returns the number of items whose output already existed.
func (r RunReport) SkippedCount() int { return len(r.Skipped) }

// FailedIDs returns the ids of the failed items.
func (r RunReport) FailedIDs() []string {
	ids := make([]string, 0, len(r.Failures))
	for _, failure := range r.Failures {
		ids = append(ids, failure.ID)
	}

	return ids
}

type itemStatus int

const (
	statusFailed itemStatus = iota
	statusSkipped
	statusProcessed
)

type itemOutcome struct {
	status itemStatus
	err    error
}

// Runner executes stages. With more than one worker, items are processed by a
// bounded pool; the report is the same as for a sequential run.
type Runner struct {
	log     *logger.Logger
	workers int
}

// NewRunner creates a Runner. Worker counts below one mean sequential.
func NewRunner(log *logger.Logger, workers int) (*Runner, error) {
	if log == nil {
		return nil, ErrNilLogger
	}

	if workers < 1 {
		workers = 1
	}

	return &Runner{
		log:     log,
		workers: workers,
	}, nil
}

// Run applies stage to every item listed in source under stage.InputKind and
// persists the outputs to dest. Only a failure to list the source is returned
// as an error; per-item failures are collected in the report.
func (r *Runner) Run(
	ctx context.Context,
	stage Stage,
	source, dest core.ArtifactStore,
) (RunReport, error) {
	report := RunReport{
		Stage:     stage.Name,
		Processed: nil,
		Skipped:   nil,
		Failures:  nil,
	}

	if stage.Transform == nil {
		return report, ErrNilTransform
	}

	if source == nil || dest == nil {
		return report, ErrNilStore
	}

	listed, err := source.List(ctx, stage.InputKind)
	if err != nil {
		return report, Wrap(ErrStorage, "list "+stage.InputKind.Name, err)
	}

	ids := uniqueSorted(listed)
	r.log.Info(logFmtRunStarted, stage.Name, len(ids), stage.InputKind.Name)

	outcomes := r.processAll(ctx, stage, source, dest, ids)

	for index, id := range ids {
		outcome := outcomes[index]

		switch outcome.status {
		case statusProcessed:
			report.Processed = append(report.Processed, id)
		case statusSkipped:
			report.Skipped = append(report.Skipped, id)
		case statusFailed:
			report.Failures = append(report.Failures, Failure{ID: id, Err: outcome.err})
		}
	}

	r.log.Info(
		logFmtRunFinished,
		stage.Name,
		report.ProcessedCount(),
		report.SkippedCount(),
		len(report.Failures),
	)

	return report, nil
}

func (r *Runner) processAll(
	ctx context.Context,
	stage Stage,
	source, dest core.ArtifactStore,
	ids []string,
) []itemOutcome {
	outcomes := make([]itemOutcome, len(ids))

	if r.workers == 1 {
		for index, id := range ids {
			outcomes[index] = r.processItem(ctx, stage, source, dest, id)
		}

		return outcomes
	}

	var waitGroup sync.WaitGroup

	workerPool := make(chan struct{}, r.workers)

	// ids are unique, so no two goroutines ever touch the same item.
	for index, id := range ids {
		waitGroup.Add(1)

		go func(index int, id string) {
			defer waitGroup.Done()

			workerPool <- struct{}{}

			defer func() { <-workerPool }()

			outcomes[index] = r.processItem(ctx, stage, source, dest, id)
		}(index, id)
	}

	waitGroup.Wait()

	return outcomes
}

func (r *Runner) processItem(
	ctx context.Context,
	stage Stage,
	source, dest core.ArtifactStore,
	id string,
) itemOutcome {
	outcome := r.tryItem(ctx, stage, source, dest, id)
	if outcome.status == statusFailed {
		r.log.Error(logFmtItemFailed, stage.Name, id, outcome.err)
	}

	return outcome
}

func (r *Runner) tryItem(
	ctx context.Context,
	stage Stage,
	source, dest core.ArtifactStore,
	id string,
) itemOutcome {
	ctxErr := ctx.Err()
	if ctxErr != nil {
		return itemOutcome{status: statusFailed, err: Wrap(ErrTransientProvider, "interrupted before "+id, ctxErr)}
	}

	exists, err := dest.Exists(ctx, stage.OutputKind, id)
	if err != nil {
		return itemOutcome{status: statusFailed, err: Wrap(ErrStorage, "check "+stage.OutputKind.Key(id), err)}
	}

	if exists {
		r.log.Info(logFmtItemSkipped, stage.Name, id, stage.OutputKind.Key(id))

		return itemOutcome{status: statusSkipped, err: nil}
	}

	input, err := source.Read(ctx, stage.InputKind, id)
	if err != nil {
		return itemOutcome{status: statusFailed, err: Wrap(ErrStorage, "read "+stage.InputKind.Key(id), err)}
	}

	output, err := stage.Transform(ctx, id, input)
	if err != nil {
		if Classify(err) == nil {
			err = Wrap(ErrTransientProvider, "transform "+id, err)
		}

		return itemOutcome{status: statusFailed, err: err}
	}

	err = dest.Write(ctx, stage.OutputKind, id, output)
	if err != nil {
		return itemOutcome{status: statusFailed, err: Wrap(ErrStorage, "write "+stage.OutputKind.Key(id), err)}
	}

	r.log.Info(
		logFmtItemProcessed,
		stage.Name,
		stage.OutputKind.Key(id),
		humanize.Bytes(uint64(len(output))),
	)

	return itemOutcome{status: statusProcessed, err: nil}
}

func uniqueSorted(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)

	return slices.Compact(out)
}

// String renders a failure as "id: error".
func (f Failure) String() string {
	return fmt.Sprintf("%s: %v", f.ID, f.Err)
}
