package pipeline

import (
	"context"

	"github.com/dlops-io/mega-pipeline-aws/internal/core"
)

// ArtifactObserver is told about every artifact a sync wrote to its target.
type ArtifactObserver interface {
	ArtifactWritten(ctx context.Context, kind core.Kind, id string) error
}

// SyncReport summarizes one sync pass. Both slices are ordered by item id.
type SyncReport struct {
	Kind        string
	Transferred []string
	Failures    []Failure
}

// SyncOption customizes a sync pass.
type SyncOption func(*syncOptions)

type syncOptions struct {
	observer ArtifactObserver
}

// WithObserver notifies observer after each successful transfer. Observer
// errors are logged as warnings and do not fail the transfer.
func WithObserver(observer ArtifactObserver) SyncOption {
	return func(o *syncOptions) {
		o.observer = observer
	}
}

// SyncDown copies every remote artifact of kind into local, overwriting local
// files of the same name. With clearLocal, local artifacts of kind are removed
// first so the local store ends up holding exactly the remote set.
func (r *Runner) SyncDown(
	ctx context.Context,
	remote core.ArtifactStore,
	local core.ClearableStore,
	kind core.Kind,
	clearLocal bool,
	opts ...SyncOption,
) (SyncReport, error) {
	if remote == nil || local == nil {
		return SyncReport{Kind: kind.Name, Transferred: nil, Failures: nil}, ErrNilStore
	}

	if clearLocal {
		err := local.Clear(ctx, kind)
		if err != nil {
			return SyncReport{Kind: kind.Name, Transferred: nil, Failures: nil},
				Wrap(ErrStorage, "clear local "+kind.Name, err)
		}

		r.log.Info("Cleared local artifacts of kind %s", kind.Name)
	}

	return r.copyAll(ctx, remote, local, kind, "download", opts)
}

// SyncUp copies every local artifact of kind to remote. Remote objects with the
// same key are always overwritten; unlike Run there is no existence check.
func (r *Runner) SyncUp(
	ctx context.Context,
	local core.ArtifactStore,
	remote core.ArtifactStore,
	kind core.Kind,
	opts ...SyncOption,
) (SyncReport, error) {
	if remote == nil || local == nil {
		return SyncReport{Kind: kind.Name, Transferred: nil, Failures: nil}, ErrNilStore
	}

	return r.copyAll(ctx, local, remote, kind, "upload", opts)
}

func (r *Runner) copyAll(
	ctx context.Context,
	from, to core.ArtifactStore,
	kind core.Kind,
	direction string,
	opts []SyncOption,
) (SyncReport, error) {
	options := syncOptions{observer: nil}
	for _, opt := range opts {
		opt(&options)
	}

	report := SyncReport{Kind: kind.Name, Transferred: nil, Failures: nil}

	listed, err := from.List(ctx, kind)
	if err != nil {
		return report, Wrap(ErrStorage, direction+" list "+kind.Name, err)
	}

	ids := uniqueSorted(listed)
	if len(ids) == 0 {
		r.log.Warn("No %s artifacts found to %s", kind.Name, direction)
	}

	for _, id := range ids {
		copyErr := copyOne(ctx, from, to, kind, id)
		if copyErr != nil {
			copyErr = Wrap(ErrStorage, direction+" "+kind.Key(id), copyErr)
			r.log.Error("Failed to %s %s: %v", direction, kind.Key(id), copyErr)
			report.Failures = append(report.Failures, Failure{ID: id, Err: copyErr})

			continue
		}

		r.log.Info("Transferred %s (%s)", kind.Key(id), direction)
		report.Transferred = append(report.Transferred, id)

		if options.observer != nil {
			observeErr := options.observer.ArtifactWritten(ctx, kind, id)
			if observeErr != nil {
				r.log.Warn("Failed to announce %s: %v", kind.Key(id), observeErr)
			}
		}
	}

	return report, nil
}

func copyOne(ctx context.Context, from, to core.ArtifactStore, kind core.Kind, id string) error {
	ctxErr := ctx.Err()
	if ctxErr != nil {
		return ctxErr
	}

	data, err := from.Read(ctx, kind, id)
	if err != nil {
		return err
	}

	return to.Write(ctx, kind, id, data)
}
